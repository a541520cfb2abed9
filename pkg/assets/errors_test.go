package assets

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mindburn-Labs/curator/pkg/lifecycle"
	"github.com/Mindburn-Labs/curator/pkg/query"
	"github.com/Mindburn-Labs/curator/pkg/store"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"service error", invalidParamf("bad"), KindInvalidParameter},
		{"wrapped service error", fmt.Errorf("outer: %w", notFoundf("gone")), KindNotFound},
		{"parser error", &query.ErrBadParameter{Msg: "bad limit"}, KindInvalidParameter},
		{"lifecycle error", &lifecycle.IllegalTransitionError{Action: "approve", State: "draft"}, KindInvalidState},
		{"store not found", fmt.Errorf("load: %w", store.ErrNotFound), KindNotFound},
		{"anything else", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestErrorMessageComposition(t *testing.T) {
	assert.Equal(t, "bad input", invalidParamf("bad input").Error())

	wrapped := internal("store failed", errors.New("disk full"))
	assert.Equal(t, "store failed: disk full", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "disk full")
}
