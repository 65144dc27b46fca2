package store

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/smartfetcher/smartfetcher/pkg/models"
)

// DefaultMinPerTag is the per-tag floor used by the validator. 15 tags over
// 500 resources averages 33 per tag.
const DefaultMinPerTag = 30

// TagCount is the validator's view of one tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
	Pass  bool   `json:"pass"`
}

// ValidationReport aggregates dataset integrity checks.
type ValidationReport struct {
	TotalCountPass  bool       `json:"total_count_pass"`
	ActualCount     int        `json:"actual_count"`
	ExpectedCount   int        `json:"expected_count"`
	MinPerTag       int        `json:"min_per_tag"`
	TagDistribution []TagCount `json:"tag_distribution"`
	UniqueIDs       bool       `json:"unique_ids"`
	SingleTags      bool       `json:"single_tags"`
	SchemaValid     bool       `json:"schema_valid"`
	SchemaErrors    []string   `json:"schema_errors,omitempty"`
	OverallPass     bool       `json:"overall_pass"`
}

// ValidateDataset runs every integrity check over resources.
func ValidateDataset(resources []models.Resource, expected, minPerTag int) *ValidationReport {
	rep := &ValidationReport{
		ActualCount:   len(resources),
		ExpectedCount: expected,
		MinPerTag:     minPerTag,
		UniqueIDs:     true,
		SingleTags:    true,
	}
	rep.TotalCountPass = rep.ActualCount == expected

	seen := make(map[string]struct{}, len(resources))
	counts := make(map[string]int)
	for i, r := range resources {
		if _, dup := seen[r.ID]; dup {
			rep.UniqueIDs = false
		}
		seen[r.ID] = struct{}{}

		tag := strings.TrimSpace(r.Tag)
		if tag == "" || strings.Contains(tag, ",") {
			rep.SingleTags = false
		}
		counts[r.Tag]++

		rep.SchemaErrors = append(rep.SchemaErrors, schemaErrors(i, &r)...)
	}
	rep.SchemaValid = len(rep.SchemaErrors) == 0

	tagsPass := true
	for tag, n := range counts {
		tc := TagCount{Tag: tag, Count: n, Pass: n >= minPerTag}
		if !tc.Pass {
			tagsPass = false
		}
		rep.TagDistribution = append(rep.TagDistribution, tc)
	}
	sort.Slice(rep.TagDistribution, func(i, j int) bool {
		return rep.TagDistribution[i].Tag < rep.TagDistribution[j].Tag
	})

	rep.OverallPass = rep.TotalCountPass && tagsPass && rep.UniqueIDs && rep.SingleTags && rep.SchemaValid
	return rep
}

func schemaErrors(i int, r *models.Resource) []string {
	var errs []string
	if !ValidID(r.ID) {
		errs = append(errs, fmt.Sprintf("resource %d: invalid id %q", i, r.ID))
	}
	check := func(field, v string, max int) {
		n := utf8.RuneCountInString(v)
		if n < 1 || n > max {
			errs = append(errs, fmt.Sprintf("resource %d: %s length %d outside 1-%d", i, field, n, max))
		}
	}
	check("name", r.Name, MaxNameLen)
	check("description", r.Description, MaxDescriptionLen)
	check("tag", r.Tag, MaxTagLen)
	return errs
}

// Summary renders the report for humans.
func (r *ValidationReport) Summary() string {
	mark := func(ok bool) string {
		if ok {
			return "ok"
		}
		return "FAIL"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Total Count: %s (%d/%d)\n", mark(r.TotalCountPass), r.ActualCount, r.ExpectedCount)
	fmt.Fprintf(&b, "Unique IDs: %s\n", mark(r.UniqueIDs))
	fmt.Fprintf(&b, "Single Tags: %s\n", mark(r.SingleTags))
	fmt.Fprintf(&b, "Schema Valid: %s\n", mark(r.SchemaValid))
	for _, e := range r.SchemaErrors {
		fmt.Fprintf(&b, "  %s\n", e)
	}
	fmt.Fprintf(&b, "\nTag Distribution (min %d):\n", r.MinPerTag)
	for _, tc := range r.TagDistribution {
		fmt.Fprintf(&b, "  %s: %s (%d resources)\n", tc.Tag, mark(tc.Pass), tc.Count)
	}
	if r.OverallPass {
		b.WriteString("\nOverall: PASS\n")
	} else {
		b.WriteString("\nOverall: FAIL\n")
	}
	return b.String()
}
