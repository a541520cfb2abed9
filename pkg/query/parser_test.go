package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConditions(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []Condition
	}{
		{
			name:  "single equals",
			value: "hot",
			want:  []Condition{{Op: Equals, Value: "hot"}},
		},
		{
			name:  "or group",
			value: "hot|warm",
			want: []Condition{
				{Op: Equals, Value: "hot"},
				{Op: Equals, Value: "warm"},
			},
		},
		{
			name:  "leading negation then equals",
			value: "!v1|v2|v3",
			want: []Condition{
				{Op: NotEquals, Value: "v1"},
				{Op: Equals, Value: "v2"},
				{Op: Equals, Value: "v3"},
			},
		},
		{
			name:  "later negation is dropped",
			value: "v1|!v2",
			want:  []Condition{{Op: Equals, Value: "v1"}},
		},
		{
			name:  "only the first bang counts",
			value: "!v1|!v2|v3",
			want: []Condition{
				{Op: NotEquals, Value: "v1"},
				{Op: Equals, Value: "v3"},
			},
		},
		{
			name:  "trailing empty segment is kept",
			value: "a|",
			want: []Condition{
				{Op: Equals, Value: "a"},
				{Op: Equals, Value: ""},
			},
		},
		{
			name:  "bare negation",
			value: "!v1",
			want:  []Condition{{Op: NotEquals, Value: "v1"}},
		},
		{
			name:  "empty value",
			value: "",
			want:  []Condition{{Op: Equals, Value: ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseConditions(tt.value))
		})
	}
}

func TestParseFilters(t *testing.T) {
	params, err := Parse(map[string]string{"a": "1", "b": "2"})
	require.NoError(t, err)

	require.Len(t, params.Filters, 2)
	assert.Equal(t, []Condition{{Op: Equals, Value: "1"}}, params.Filters["a"])
	assert.Equal(t, []Condition{{Op: Equals, Value: "2"}}, params.Filters["b"])
}

func TestParseReservedKeysNeverFilter(t *testing.T) {
	params, err := Parse(map[string]string{
		"limit":  "10",
		"offset": "0",
		"q":      "term",
		"fields": "a,b",
		"apiKey": "secret",
		"sortBy": "name",
		"status": "hot",
	})
	require.NoError(t, err)

	require.Len(t, params.Filters, 1)
	assert.Contains(t, params.Filters, "status")
}

func TestParsePagination(t *testing.T) {
	t.Run("both present", func(t *testing.T) {
		params, err := Parse(map[string]string{"limit": "10", "offset": "5"})
		require.NoError(t, err)
		require.NotNil(t, params.Page)
		assert.Equal(t, 10, params.Page.Limit)
		assert.Equal(t, 5, params.Page.Offset)
	})

	t.Run("neither present means no pagination", func(t *testing.T) {
		params, err := Parse(map[string]string{"status": "hot"})
		require.NoError(t, err)
		assert.Nil(t, params.Page)
	})

	t.Run("limit without offset is an error", func(t *testing.T) {
		_, err := Parse(map[string]string{"limit": "10"})
		var paramErr *ErrBadParameter
		require.ErrorAs(t, err, &paramErr)
	})

	t.Run("malformed limit is an error, not a default", func(t *testing.T) {
		_, err := Parse(map[string]string{"limit": "ten", "offset": "0"})
		var paramErr *ErrBadParameter
		require.ErrorAs(t, err, &paramErr)
	})

	t.Run("negative offset is an error", func(t *testing.T) {
		_, err := Parse(map[string]string{"limit": "10", "offset": "-1"})
		var paramErr *ErrBadParameter
		require.ErrorAs(t, err, &paramErr)
	})
}

func TestParseSearchTerm(t *testing.T) {
	t.Run("empty q means no search", func(t *testing.T) {
		params, err := Parse(map[string]string{"q": ""})
		require.NoError(t, err)
		assert.Empty(t, params.Search)
	})

	t.Run("q is carried through", func(t *testing.T) {
		params, err := Parse(map[string]string{"q": "wibble"})
		require.NoError(t, err)
		assert.Equal(t, "wibble", params.Search)
	})
}

func TestParseFields(t *testing.T) {
	params, err := Parse(map[string]string{"fields": "name,type,info.version"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "type", "info.version"}, params.Fields)
}

func TestParseSort(t *testing.T) {
	t.Run("ascending", func(t *testing.T) {
		params, err := Parse(map[string]string{"sortBy": "name"})
		require.NoError(t, err)
		require.NotNil(t, params.Sort)
		assert.Equal(t, "name", params.Sort.Field)
		assert.False(t, params.Sort.Descending)
	})

	t.Run("descending", func(t *testing.T) {
		params, err := Parse(map[string]string{"sortBy": "-name"})
		require.NoError(t, err)
		require.NotNil(t, params.Sort)
		assert.Equal(t, "name", params.Sort.Field)
		assert.True(t, params.Sort.Descending)
	})

	t.Run("empty field is an error", func(t *testing.T) {
		_, err := Parse(map[string]string{"sortBy": "-"})
		var paramErr *ErrBadParameter
		require.ErrorAs(t, err, &paramErr)
	})
}
