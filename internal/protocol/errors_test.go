package protocol

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrUnknownProtocol,
		ErrNotRepresentable,
		ErrBadNetworkID,
		ErrBadBlockRuntimeID,
		ErrBadItemData,
		ErrEncodeFailed,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestTranslationError_CodeSurvivesWrapping(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(base, ErrBadNetworkID, "id %d", 7))
	if !IsCode(err, ErrBadNetworkID) {
		t.Fatalf("code lost: %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped cause lost")
	}
	if IsCode(nil, ErrBadNetworkID) || CodeOf(base) != "" {
		t.Fatalf("unexpected code on plain error")
	}
}

func TestAssumptionFailedPanics(t *testing.T) {
	defer func() {
		r := recover()
		ie, ok := r.(*InvariantError)
		if !ok {
			t.Fatalf("expected *InvariantError, got %T", r)
		}
		if ie.Msg != "gap 3" {
			t.Fatalf("msg=%q", ie.Msg)
		}
	}()
	AssumptionFailed("gap %d", 3)
}
