package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:  http.StatusBadRequest,
		KindAuth:        http.StatusUnauthorized,
		KindForbidden:   http.StatusForbidden,
		KindNotFound:    http.StatusNotFound,
		KindRateLimited: http.StatusTooManyRequests,
		KindUpstream:    http.StatusInternalServerError,
		KindInternal:    http.StatusInternalServerError,
	}
	for k, want := range cases {
		require.Equal(t, want, k.Status())
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := NotFound("No post found with this ID")
	wrapped := fmt.Errorf("delete post: %w", base)

	require.Equal(t, KindNotFound, KindOf(wrapped))
	require.True(t, Is(wrapped, KindNotFound))
	require.False(t, Is(wrapped, KindAuth))
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestUpstreamUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream("media upload failed", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "connection reset")
	require.Equal(t, KindUpstream, KindOf(err))
}
