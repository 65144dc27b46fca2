// Package linkverify checks that resource links cited in responses point at
// records that actually exist.
//
// Internal links (/resources/{id}) are verified against the resource index.
// External links are accepted on format alone: only links the service
// generates itself can be checked against ground truth.
package linkverify

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartfetcher/smartfetcher/internal/store"
	"github.com/smartfetcher/smartfetcher/pkg/contracts"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// VerifyInternalLink checks that link has the form /resources/{id}, that id
// has the canonical syntax, and that id exists in index.
//
// Malformed or unknown links are reported in the result, not as an error.
// An error is returned only when the index lookup itself fails.
func VerifyInternalLink(ctx context.Context, link string, index contracts.ResourceIndex) (models.LinkVerificationResult, error) {
	if !strings.HasPrefix(link, models.ResourceLinkPrefix) {
		return invalid(nil, fmt.Sprintf("link must start with %s, got: %s", models.ResourceLinkPrefix, link)), nil
	}

	id := strings.TrimPrefix(link, models.ResourceLinkPrefix)
	if !store.ValidID(id) {
		return invalid(nil, fmt.Sprintf("invalid identifier format: %s", id)), nil
	}

	if _, err := index.Get(ctx, id); err != nil {
		if store.IsNotFound(err) {
			// Keep the id so callers can log which one was fabricated.
			return invalid(&id, fmt.Sprintf("identifier not found in resource store: %s", id)), nil
		}
		return models.LinkVerificationResult{}, fmt.Errorf("look up %s: %w", id, err)
	}

	return models.LinkVerificationResult{Valid: true, ID: &id}, nil
}

// VerifyExternalLink accepts http:// and https:// URLs without fetching them.
func VerifyExternalLink(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func invalid(id *string, reason string) models.LinkVerificationResult {
	return models.LinkVerificationResult{Valid: false, ID: id, Error: &reason}
}

// Verifier implements contracts.LinkChecker.
type Verifier struct {
	index contracts.ResourceIndex
}

// NewVerifier returns a verifier backed by index. A nil index limits
// internal links to a syntax check.
func NewVerifier(index contracts.ResourceIndex) *Verifier {
	return &Verifier{index: index}
}

// VerifyLink reports whether url can be trusted as a citation.
func (v *Verifier) VerifyLink(ctx context.Context, url string) (bool, error) {
	if strings.HasPrefix(url, models.ResourceLinkPrefix) {
		if v.index == nil {
			return store.ValidID(strings.TrimPrefix(url, models.ResourceLinkPrefix)), nil
		}
		res, err := VerifyInternalLink(ctx, url, v.index)
		if err != nil {
			return false, err
		}
		return res.Valid, nil
	}
	return VerifyExternalLink(url), nil
}
