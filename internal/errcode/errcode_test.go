package errcode

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	if got := KindOf(New(KindExtraction, "boom")); got != KindExtraction {
		t.Errorf("KindOf = %v, want KindExtraction", got)
	}

	// 包一层普通 error 后仍能取出类别。
	wrapped := fmt.Errorf("outer: %w", New(KindStructuring, "inner"))
	if got := KindOf(wrapped); got != KindStructuring {
		t.Errorf("KindOf wrapped = %v, want KindStructuring", got)
	}

	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf plain = %v, want KindInternal", got)
	}
}

func TestUserMessage(t *testing.T) {
	cause := errors.New("pq: duplicate key")
	err := Wrap(KindPersistence, "failed to create resume", cause)
	if got := UserMessage(err); got != "failed to create resume" {
		t.Errorf("UserMessage = %q, want the short message", got)
	}
	if got := UserMessage(errors.New("raw db error")); got != "internal error" {
		t.Errorf("UserMessage plain = %q, want fallback", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindUnauthorized, http.StatusUnauthorized},
		{KindBadRequest, http.StatusBadRequest},
		{KindInternal, http.StatusInternalServerError},
		{KindExtraction, http.StatusInternalServerError},
		{KindStructuring, http.StatusInternalServerError},
		{KindPersistence, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.kind); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindPersistence, "failed to query resume", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause should survive errors.Is")
	}
}
