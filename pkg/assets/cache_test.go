package assets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummaryCacheNilIsInert(t *testing.T) {
	var c *SummaryCache

	values, ok := c.Get(context.Background(), "type", "TRUE")
	assert.False(t, ok)
	assert.Nil(t, values)

	// Set on a nil cache must be a no-op, not a panic.
	c.Set(context.Background(), "type", "TRUE", []any{"feature"})
}

func TestSummaryCacheKeyIncludesQuery(t *testing.T) {
	c := &SummaryCache{}
	a := c.key("type", `(status EQ "hot")`)
	b := c.key("type", "TRUE")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "curator:summary:type:")
}
