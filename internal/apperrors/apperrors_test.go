package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"social-app-server/internal/apperrors"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperrors.Validation("empty content"), http.StatusBadRequest},
		{apperrors.NotFound("conversation not found"), http.StatusNotFound},
		{apperrors.StateConflict("conversation awaiting acceptance"), http.StatusForbidden},
		{apperrors.Unauthorized("no identity"), http.StatusUnauthorized},
		{apperrors.Internal("db down", errors.New("dial tcp")), http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := apperrors.HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("record not found")
	err := apperrors.Wrap(apperrors.CodeInternal, "failed to load conversation", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive errors.Is")
	}
	if apperrors.CodeOf(err) != apperrors.CodeInternal {
		t.Fatalf("unexpected code %s", apperrors.CodeOf(err))
	}
	if msg := err.Error(); msg != "failed to load conversation: record not found" {
		t.Fatalf("unexpected message %q", msg)
	}

	// Codes survive another layer of wrapping too.
	outer := fmt.Errorf("handler: %w", err)
	if apperrors.CodeOf(outer) != apperrors.CodeInternal {
		t.Fatalf("code lost through fmt wrapping")
	}
}
