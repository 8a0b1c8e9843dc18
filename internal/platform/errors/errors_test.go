package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(CodeStorageWrite, "insert task", stderrors.New("disk full"))
	if got := err.Error(); got != "insert task: disk full" {
		t.Fatalf("Error() = %q, want %q", got, "insert task: disk full")
	}

	plain := New(CodeValidationFailed, "task is required")
	if got := plain.Error(); got != "task is required" {
		t.Fatalf("Error() = %q, want %q", got, "task is required")
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("handler: %w", Wrap(CodeStorageUnavailable, "open store", stderrors.New("no such file")))

	if !stderrors.Is(err, New(CodeStorageUnavailable, "")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if stderrors.Is(err, New(CodeStorageWrite, "")) {
		t.Fatal("expected errors.Is to reject a different code")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("database is locked")
	err := Wrap(CodeStorageWrite, "update task", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: stderrors.New("x"), want: CodeUnknown},
		{name: "domain", err: New(CodeNotFound, "missing"), want: CodeNotFound},
		{name: "wrapped", err: fmt.Errorf("outer: %w", New(CodeStorageWrite, "w")), want: CodeStorageWrite},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Fatalf("CodeOf() = %q, want %q", got, tc.want)
			}
		})
	}
}
