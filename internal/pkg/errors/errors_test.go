package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := Conflict("scoring.Submit", ErrDuplicateSubmission)
	wrapped := fmt.Errorf("submit: %w", base)

	if !Is(wrapped, KindConflict) {
		t.Fatalf("expected conflict kind, got %s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, ErrDuplicateSubmission) {
		t.Fatal("sentinel should survive wrapping")
	}
	if got := HTTPStatus(wrapped); got != http.StatusConflict {
		t.Fatalf("status=%d", got)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{Validation("op", "bad %s", "x"), false},
		{Processing("op", errors.New("corrupt pdf")), false},
		{Cache("op", errors.New("redis down")), true},
		{errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v)=%v want %v", tc.err, got, tc.want)
		}
	}
}

func TestErrorStrings(t *testing.T) {
	err := Validation("textbooks.Register", "filename required")
	if err.Error() != "textbooks.Register: invalid argument: filename required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatal("validation errors wrap ErrInvalidArgument")
	}
	nf := NotFound("op", "textbook")
	if !errors.Is(nf, ErrNotFound) || HTTPStatus(nf) != http.StatusNotFound {
		t.Fatalf("not found mapping broken: %v", nf)
	}
	if (&Error{Kind: KindCache}).Error() != "cache error" {
		t.Fatal("bare error string")
	}
}
