package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := ErrConflict.WithMessage("charger busy").WithDetails([]string{"ABCD2345"})

	if !errors.Is(err, ErrConflict) {
		t.Error("errors.Is(conflict, ErrConflict) = false")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(conflict, ErrNotFound) = true")
	}

	wrapped := fmt.Errorf("create booking: %w", err)
	if !errors.Is(wrapped, ErrConflict) {
		t.Error("wrapped conflict lost its kind")
	}
}

func TestWithError_Unwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrTransient.WithError(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if ErrTransient.Err != nil {
		t.Error("builder mutated the sentinel")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", ErrValidation, http.StatusBadRequest},
		{"conflict", ErrConflict.WithMessage("taken"), http.StatusConflict},
		{"not found", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"already cancelled", ErrAlreadyCancelled, http.StatusBadRequest},
		{"transient", ErrTransient, http.StatusInternalServerError},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
