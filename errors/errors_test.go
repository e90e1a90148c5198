package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhasePartial,
				Kind:      KindOperationFailed,
				Path:      []string{"user", "address", "zip"},
				Shape:     "Address",
				Operation: "begin_field",
				Detail:    "select a variant first",
			},
			contains: []string{"[partial]", "operation_failed", "user.address.zip", "shape Address", "operation begin_field", "select a variant first"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhasePeek,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[peek]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhasePartial,
				Kind:   KindInvariant,
				Detail: "invariant check failed",
				Cause:  errors.New("port must be positive"),
			},
			contains: []string{"[partial]", "invariant", "caused by", "port must be positive"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseConvert, KindConversion, cause, "try_from")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestError_Is(t *testing.T) {
	err := UninitializedValue([]string{"root"}, "Config", "field \"port\" is not initialized")

	if !errors.Is(err, ErrUninitializedValue) {
		t.Error("sentinel should match on kind")
	}
	if errors.Is(err, ErrUninitializedEnumField) {
		t.Error("different kind should not match")
	}

	samePhase := &Error{Phase: PhasePartial, Kind: KindUninitializedValue}
	if !errors.Is(err, samePhase) {
		t.Error("same phase and kind should match")
	}

	otherPhase := &Error{Phase: PhasePeek, Kind: KindUninitializedValue}
	if errors.Is(err, otherPhase) {
		t.Error("different phase should not match")
	}

	if errors.Is(err, errors.New("plain")) {
		t.Error("plain error should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("boom")
	err := New(PhasePartial, KindOperationFailed).
		Path("a", "b").
		Shape("Pair").
		Operation("end").
		Value(7).
		Cause(cause).
		Detail("frame %d still open", 2).
		Build()

	if err.Phase != PhasePartial {
		t.Errorf("Phase = %v, want %v", err.Phase, PhasePartial)
	}
	if err.Kind != KindOperationFailed {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOperationFailed)
	}
	if strings.Join(err.Path, ".") != "a.b" {
		t.Errorf("Path = %v, want a.b", err.Path)
	}
	if err.Shape != "Pair" || err.Operation != "end" {
		t.Errorf("Shape/Operation = %q/%q", err.Shape, err.Operation)
	}
	if err.Value != 7 {
		t.Errorf("Value = %v, want 7", err.Value)
	}
	if err.Detail != "frame 2 still open" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhasePartial, nil, 3, 3)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Error(), "index 3 out of bounds (length 3)") {
			t.Errorf("unexpected message %q", err.Error())
		}
		if err.Value != 3 {
			t.Errorf("Value = %v, want 3", err.Value)
		}
	})

	t.Run("UninitializedEnumField", func(t *testing.T) {
		err := UninitializedEnumField([]string{"shape"}, "Geometry", "Circle", "radius")
		if err.Kind != KindUninitializedEnumField {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Detail, `"radius"`) || !strings.Contains(err.Detail, `"Circle"`) {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Conversion", func(t *testing.T) {
		err := Conversion("string", "int32", nil)
		if err.Phase != PhaseConvert || err.Kind != KindConversion {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Error(), "cannot convert from string") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("Invariant", func(t *testing.T) {
		cause := errors.New("min > max")
		err := Invariant(nil, "Range", cause)
		if !errors.Is(err, ErrInvariant) {
			t.Error("should match ErrInvariant")
		}
		if !errors.Is(err, cause) {
			t.Error("should unwrap to cause")
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseConvert, nil, 300, "uint8")
		if err.Kind != KindOverflow || err.Value != 300 {
			t.Errorf("got %v/%v", err.Kind, err.Value)
		}
	})

	t.Run("BorrowScope", func(t *testing.T) {
		err := BorrowScope("input region closed")
		if !errors.Is(err, ErrBorrowScope) {
			t.Error("should match ErrBorrowScope")
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhasePeek, "func()", "compare")
		if !errors.Is(err, ErrUnsupported) {
			t.Error("should match ErrUnsupported")
		}
		if !strings.Contains(err.Error(), "operation compare") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})
}
