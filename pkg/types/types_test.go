package types

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseStack(t *testing.T) {
	tests := []struct {
		name  string
		want  Stack
		valid bool
	}{
		{"sae", StackSAE, true},
		{"wsmp", StackSAE, true},
		{"etsi", StackETSI, true},
		{"ETSI", StackETSI, true},
		{"dsrc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStack(tt.name)
			if ok != tt.valid {
				t.Fatalf("ParseStack(%q) ok = %v, want %v", tt.name, ok, tt.valid)
			}
			if ok && got != tt.want {
				t.Errorf("ParseStack(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestItsTime(t *testing.T) {
	ref := time.Date(2004, time.January, 1, 0, 1, 5, 500*int(time.Millisecond), time.UTC)
	its := FromTime(ref)
	if its != 65500 {
		t.Fatalf("FromTime = %d, want 65500", its)
	}
	if !its.ToTime().Equal(ref) {
		t.Errorf("ToTime = %v, want %v", its.ToTime(), ref)
	}
	if FromTime(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)) != 0 {
		t.Errorf("time before epoch should map to zero")
	}
}

func TestErrorWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: tailroom exhausted", ErrInsufficientRoom)
	if !errors.Is(wrapped, ErrInsufficientRoom) {
		t.Errorf("errors.Is lost the taxonomy sentinel")
	}
	if errors.Is(wrapped, ErrMalformedInput) {
		t.Errorf("wrapped error matched the wrong sentinel")
	}
}
