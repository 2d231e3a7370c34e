package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrValidation, "name is required")
	if got := err.Error(); got != "[VALIDATION_ERROR] name is required" {
		t.Errorf("unexpected error string: %s", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk I/O error")
	err := Wrap(ErrDatabase, "failed to insert item", cause)

	if !strings.Contains(err.Error(), "disk I/O error") {
		t.Errorf("wrapped cause missing from message: %s", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := Newf(ErrValidation, "invalid type %q", "bogus")

	if !Is(err, ErrValidation) {
		t.Error("Is should match VALIDATION_ERROR")
	}
	if Is(err, ErrDatabase) {
		t.Error("Is should not match DATABASE_ERROR")
	}
	if Is(stderrors.New("plain"), ErrValidation) {
		t.Error("Is should not match plain errors")
	}
}
