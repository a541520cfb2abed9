package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Reserved parameter names. These control paging, projection, search and
// authentication and are never interpreted as filters.
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
	ParamFields = "fields"
	ParamAPIKey = "apiKey"
	ParamSearch = "q"
	ParamSortBy = "sortBy"
)

var reservedParams = map[string]bool{
	ParamLimit:  true,
	ParamOffset: true,
	ParamFields: true,
	ParamAPIKey: true,
	ParamSearch: true,
	ParamSortBy: true,
}

// Pagination is a skip/limit window applied after sorting.
type Pagination struct {
	Offset int
	Limit  int
}

// SortOptions is an explicit caller-supplied ordering.
type SortOptions struct {
	Field      string
	Descending bool
}

// Params is the parsed form of one request's query parameters.
type Params struct {
	Filters FilterSpec
	// Search is the free-text term; empty means no search was requested.
	Search string
	Page   *Pagination
	Sort   *SortOptions
	Fields []string
}

// ErrBadParameter marks client-side parameter errors. The message is intended
// for the caller, not the log.
type ErrBadParameter struct {
	Msg string
}

func (e *ErrBadParameter) Error() string { return e.Msg }

func badParam(format string, args ...any) error {
	return &ErrBadParameter{Msg: fmt.Sprintf(format, args...)}
}

// Parse turns a flat mapping of decoded request parameters into filters,
// search term, pagination, sort and projection fields.
//
// Filter value grammar: value segments are separated by "|". A leading "!" on
// the first segment makes that segment a NOT_EQUALS condition. A "!" on any
// later segment disables that segment entirely; only the first segment's "!"
// has effect. This asymmetry is long-standing observable behaviour and is
// preserved deliberately.
func Parse(params map[string]string) (*Params, error) {
	out := &Params{Filters: FilterSpec{}}

	for key, value := range params {
		if reservedParams[key] {
			continue
		}
		out.Filters[key] = parseConditions(value)
	}

	page, err := parsePagination(params)
	if err != nil {
		return nil, err
	}
	out.Page = page

	if term := params[ParamSearch]; term != "" {
		out.Search = term
	}

	if raw, ok := params[ParamFields]; ok {
		out.Fields = strings.Split(raw, ",")
	}

	if raw, ok := params[ParamSortBy]; ok {
		sort, err := parseSort(raw)
		if err != nil {
			return nil, err
		}
		out.Sort = sort
	}

	return out, nil
}

// parseConditions applies the pipe/bang micro-grammar to one filter value.
func parseConditions(value string) []Condition {
	segments := strings.Split(value, "|")

	var conditions []Condition
	if strings.HasPrefix(segments[0], "!") {
		conditions = append(conditions, Condition{Op: NotEquals, Value: segments[0][1:]})
		segments = segments[1:]
	}
	for _, seg := range segments {
		if strings.HasPrefix(seg, "!") {
			// Only the first segment's "!" counts; later ones void the segment.
			continue
		}
		conditions = append(conditions, Condition{Op: Equals, Value: seg})
	}
	return conditions
}

// parsePagination requires limit and offset together: both absent means no
// pagination, anything else than two well-formed non-negative integers is a
// parameter error, never a silent default.
func parsePagination(params map[string]string) (*Pagination, error) {
	rawLimit, haveLimit := params[ParamLimit]
	rawOffset, haveOffset := params[ParamOffset]

	if !haveLimit && !haveOffset {
		return nil, nil
	}
	if !haveLimit || !haveOffset {
		return nil, badParam("limit and offset must be supplied together")
	}

	limit, err := strconv.Atoi(rawLimit)
	if err != nil || limit < 0 {
		return nil, badParam("limit must be a non-negative integer, got %q", rawLimit)
	}
	offset, err := strconv.Atoi(rawOffset)
	if err != nil || offset < 0 {
		return nil, badParam("offset must be a non-negative integer, got %q", rawOffset)
	}

	return &Pagination{Offset: offset, Limit: limit}, nil
}

// parseSort reads the sortBy control: "field" ascending, "-field" descending.
func parseSort(raw string) (*SortOptions, error) {
	descending := strings.HasPrefix(raw, "-")
	field := strings.TrimPrefix(raw, "-")
	if field == "" {
		return nil, badParam("sortBy must name a field")
	}
	return &SortOptions{Field: field, Descending: descending}, nil
}
