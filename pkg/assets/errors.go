// Package assets orchestrates the asset repository: querying, lifecycle,
// attachments and their content.
package assets

import (
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/curator/pkg/lifecycle"
	"github.com/Mindburn-Labs/curator/pkg/query"
	"github.com/Mindburn-Labs/curator/pkg/store"
)

// Kind classifies service failures so callers can map them to a transport
// without inspecting store internals.
type Kind int

const (
	// KindInvalidParameter covers malformed caller input: bad pagination,
	// malformed filter values, a missing fields list on summarize.
	KindInvalidParameter Kind = iota + 1
	// KindNotFound covers retrieval, update or lifecycle action against an
	// unknown id.
	KindNotFound
	// KindInvalidState covers requests that are well-formed but illegal for
	// the target's current state: creating with an id already set, attachments
	// with both content and an external url, illegal lifecycle actions.
	KindInvalidState
	// KindInternal covers everything the store raises that is none of the
	// above. The service does not interpret store-specific failures further.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}

// Error is a classified service failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func invalidParamf(format string, args ...any) error {
	return &Error{Kind: KindInvalidParameter, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func invalidStatef(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf classifies any error surfaced by this package, including wrapped
// parser, store and lifecycle failures.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	var paramErr *query.ErrBadParameter
	if errors.As(err, &paramErr) {
		return KindInvalidParameter
	}
	var transitionErr *lifecycle.IllegalTransitionError
	if errors.As(err, &transitionErr) {
		return KindInvalidState
	}
	if errors.Is(err, store.ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}
