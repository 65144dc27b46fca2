package store

import (
	"context"
	"fmt"

	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// MemoryIndex is the in-memory resource index. It is built once and is
// read-only afterwards, so lookups need no locking.
type MemoryIndex struct {
	resources []models.Resource
	byID      map[string]int   // id → position in resources
	byTag     map[string][]int // tag → positions, insertion order
	tags      []string         // first-occurrence order
}

// NewMemoryIndex indexes resources, keeping their order. Duplicate ids are
// rejected.
func NewMemoryIndex(resources []models.Resource) (*MemoryIndex, error) {
	idx := &MemoryIndex{
		resources: make([]models.Resource, 0, len(resources)),
		byID:      make(map[string]int, len(resources)),
		byTag:     make(map[string][]int),
	}
	for _, r := range resources {
		if _, dup := idx.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate resource id %s", r.ID)
		}
		pos := len(idx.resources)
		idx.resources = append(idx.resources, r)
		idx.byID[r.ID] = pos
		if _, seen := idx.byTag[r.Tag]; !seen {
			idx.tags = append(idx.tags, r.Tag)
		}
		idx.byTag[r.Tag] = append(idx.byTag[r.Tag], pos)
	}
	return idx, nil
}

// Get returns a copy of the resource with the given id.
func (m *MemoryIndex) Get(_ context.Context, id string) (*models.Resource, error) {
	pos, ok := m.byID[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "resource", Key: id}
	}
	r := m.resources[pos]
	return &r, nil
}

func (m *MemoryIndex) ListByTag(_ context.Context, tag string) []models.Resource {
	positions := m.byTag[tag]
	out := make([]models.Resource, 0, len(positions))
	for _, pos := range positions {
		out = append(out, m.resources[pos])
	}
	return out
}

// ListByTags concatenates ListByTag for each tag in the given order.
// Resources are not de-duplicated across tags.
func (m *MemoryIndex) ListByTags(ctx context.Context, tags []string) []models.Resource {
	var out []models.Resource
	for _, t := range tags {
		out = append(out, m.ListByTag(ctx, t)...)
	}
	return out
}

func (m *MemoryIndex) List(_ context.Context) []models.Resource {
	out := make([]models.Resource, len(m.resources))
	copy(out, m.resources)
	return out
}

func (m *MemoryIndex) UniqueTags(_ context.Context) []string {
	out := make([]string, len(m.tags))
	copy(out, m.tags)
	return out
}

func (m *MemoryIndex) Count() int {
	return len(m.resources)
}
