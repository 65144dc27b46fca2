package store

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// Dataset defaults.
const (
	DefaultDatasetSize = 500
	DefaultDatasetSeed = 42
)

// Field bounds every generated resource must satisfy.
const (
	MaxNameLen        = 200
	MaxDescriptionLen = 1000
	MaxTagLen         = 100
)

// CanonicalTags is the fixed tag vocabulary of the dataset.
var CanonicalTags = []string{
	"home",
	"car",
	"technology",
	"food",
	"health",
	"finance",
	"travel",
	"education",
	"sports",
	"music",
	"fashion",
	"nature",
	"work",
	"family",
	"art",
}

// GenerateResources builds count resources deterministically from seed.
// Tags are dealt round-robin over CanonicalTags and the result is shuffled
// with the same seeded source, so every tag gets count/len(tags) resources
// give or take one.
func GenerateResources(count int, seed int64) ([]models.Resource, error) {
	if count < 0 {
		return nil, fmt.Errorf("invalid dataset size %d", count)
	}
	f := gofakeit.New(seed)

	resources := make([]models.Resource, 0, count)
	for i := 0; i < count; i++ {
		id, err := uuid.NewRandomFromReader(f.Rand)
		if err != nil {
			return nil, fmt.Errorf("generate resource id: %w", err)
		}
		resources = append(resources, models.Resource{
			ID:          id.String(),
			Name:        catchPhrase(f),
			Description: clip(f.Sentence(12)+" "+f.Sentence(10), MaxDescriptionLen),
			Tag:         CanonicalTags[i%len(CanonicalTags)],
		})
	}
	f.Rand.Shuffle(len(resources), func(i, j int) {
		resources[i], resources[j] = resources[j], resources[i]
	})
	return resources, nil
}

// NewDefaultIndex generates and indexes the default dataset.
func NewDefaultIndex(size int, seed int64) (*MemoryIndex, error) {
	resources, err := GenerateResources(size, seed)
	if err != nil {
		return nil, err
	}
	return NewMemoryIndex(resources)
}

func catchPhrase(f *gofakeit.Faker) string {
	words := []string{f.Adjective(), f.BuzzWord(), f.Noun()}
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return clip(strings.Join(words, " "), MaxNameLen)
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
