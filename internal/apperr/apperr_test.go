package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Run("WrappedChain", func(t *testing.T) {
		base := New(KindSchemaViolation, "weekly_plan.day_4 is missing")
		err := fmt.Errorf("generate plan: %w", base)

		if got := KindOf(err); got != KindSchemaViolation {
			t.Errorf("Expected kind %s, got %s", KindSchemaViolation, got)
		}
		if !Is(err, KindSchemaViolation) {
			t.Error("Expected Is to match the wrapped kind")
		}
		if MessageOf(err) != "weekly_plan.day_4 is missing" {
			t.Errorf("Unexpected message %q", MessageOf(err))
		}
	})

	t.Run("PlainError", func(t *testing.T) {
		if got := KindOf(errors.New("boom")); got != KindInternal {
			t.Errorf("Expected %s for an unclassified error, got %s", KindInternal, got)
		}
		if Is(nil, KindInternal) {
			t.Error("nil must not match any kind")
		}
	})

	t.Run("UnwrapKeepsCause", func(t *testing.T) {
		cause := errors.New("upstream 503")
		err := Wrap(KindGenerationFailed, cause, "generator call failed")
		if !errors.Is(err, cause) {
			t.Error("Expected the cause to be reachable through Unwrap")
		}
	})
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidInput:              http.StatusBadRequest,
		KindUnauthorized:              http.StatusUnauthorized,
		KindForbidden:                 http.StatusForbidden,
		KindNotFound:                  http.StatusNotFound,
		KindConflict:                  http.StatusConflict,
		KindGenerationTimeout:         http.StatusGatewayTimeout,
		KindGenerationFailed:          http.StatusBadGateway,
		KindNoJSONFound:               http.StatusBadGateway,
		KindIncompleteOrMalformedJSON: http.StatusBadGateway,
		KindSchemaViolation:           http.StatusBadGateway,
		KindInternal:                  http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}

	for _, kind := range []Kind{KindInvalidInput, KindForbidden, KindNotFound} {
		if IsUpstream(kind) {
			t.Errorf("%s must not be classified as upstream", kind)
		}
	}
	if !IsUpstream(KindNoJSONFound) {
		t.Error("NoJsonFound is an upstream failure")
	}
}
