package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInvalidInput, http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"wrapped invalid input", fmt.Errorf("parsing limit: %w", ErrInvalidInput), http.StatusBadRequest},
		{"unsupported source", ErrUnsupportedSource, http.StatusBadRequest},
		{"not ready", ErrIndexNotReady, http.StatusServiceUnavailable},
		{"corpus", fmt.Errorf("listing: %w", ErrCorpusUnavailable), http.StatusServiceUnavailable},
		{"cache disabled", ErrCacheDisabled, http.StatusServiceUnavailable},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("handler: %w", Newf(ErrInvalidInput, http.StatusBadRequest, "limit %d out of range", -1))
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("AppError should unwrap to its sentinel")
	}
	if got := Message(err); got != "limit -1 out of range" {
		t.Errorf("Message = %q", got)
	}
}

func TestMessageHidesInternals(t *testing.T) {
	if got := Message(errors.New("pq: password authentication failed")); got != ErrInternal.Error() {
		t.Errorf("Message leaked internal error: %q", got)
	}
	if got := Message(fmt.Errorf("x: %w", ErrIndexNotReady)); got != ErrIndexNotReady.Error() {
		t.Errorf("Message = %q", got)
	}
}
