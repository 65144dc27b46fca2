package store_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartfetcher/smartfetcher/internal/store"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

func TestValidateDataset_Failures(t *testing.T) {
	rs := testResources()
	rs = append(rs, rs[0]) // duplicate id
	rs = append(rs, models.Resource{ID: "nope", Name: "x", Description: "y", Tag: ""})

	rep := store.ValidateDataset(rs, 3, 2)

	assert.False(t, rep.TotalCountPass)
	assert.Equal(t, 5, rep.ActualCount)
	assert.False(t, rep.UniqueIDs)
	assert.False(t, rep.SingleTags)
	assert.False(t, rep.SchemaValid)
	assert.False(t, rep.OverallPass)

	summary := rep.Summary()
	assert.Contains(t, summary, "Overall: FAIL")
	assert.True(t, strings.Contains(summary, "invalid id \"nope\""), summary)
}

func TestValidateDataset_TagFloor(t *testing.T) {
	rep := store.ValidateDataset(testResources(), 3, 2)

	assert.True(t, rep.TotalCountPass)
	assert.True(t, rep.SchemaValid)
	assert.False(t, rep.OverallPass)
	assert.Equal(t, []store.TagCount{
		{Tag: "finance", Count: 1, Pass: false},
		{Tag: "hiking", Count: 2, Pass: true},
	}, rep.TagDistribution)
}
