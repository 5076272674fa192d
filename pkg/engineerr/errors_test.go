package engineerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesWrappedKind(t *testing.T) {
	base := New(Corruption, "tablet.Load", errors.New("checksum mismatch"))
	wrapped := fmt.Errorf("reading tablet 3: %w", base)

	if !Is(wrapped, Corruption) {
		t.Fatalf("Is(wrapped, Corruption) = false, want true")
	}
	if Is(wrapped, OutOfSpace) {
		t.Fatalf("Is(wrapped, OutOfSpace) = true, want false")
	}
}

func TestIsRejectsPlainErrors(t *testing.T) {
	if Is(errors.New("boom"), Io) {
		t.Fatalf("Is(plain error, Io) = true, want false")
	}
}

func TestUnwrapReturnsUnderlyingCause(t *testing.T) {
	cause := errors.New("disk full")
	e := New(OutOfSpace, "dbfile.Grow", cause)
	if !errors.Is(e, cause) {
		t.Fatalf("errors.Is(e, cause) = false, want true")
	}
}

func TestErrorMessageIncludesOpKindAndCause(t *testing.T) {
	e := New(InvalidArgument, "catalog.AddColumn", errors.New("too many columns"))
	want := "catalog.AddColumn: invalid argument: too many columns"
	if got := e.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorMessageWithoutCause(t *testing.T) {
	e := New(Exhausted, "reader.Row", nil)
	want := "reader.Row: exhausted"
	if got := e.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestKindStringCoversEveryKind(t *testing.T) {
	kinds := []Kind{Io, Corruption, OutOfSpace, AllPinned, CompileError, InvalidArgument, Exhausted}
	for _, k := range kinds {
		if k.String() == "unknown" {
			t.Fatalf("Kind %d stringified as unknown", k)
		}
	}
}

func TestErrNotFoundIsASentinel(t *testing.T) {
	wrapped := fmt.Errorf("lookup table %q: %w", "widgets", ErrNotFound)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("errors.Is(wrapped, ErrNotFound) = false, want true")
	}
}
