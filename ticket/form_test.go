package ticket

import (
	"errors"
	"strings"
	"testing"

	"nuvix-tickets/config"
)

func TestValidateForm(t *testing.T) {
	t.Parallel()

	specs := []config.FieldSpec{
		{Label: "Order ID", Required: true, MaxLength: 10},
		{Label: "Details", MaxLength: 50, Multiline: true},
		{Label: "Tracking", MaxLength: 20},
	}

	t.Run("valid submission preserves order", func(t *testing.T) {
		fm, err := ValidateForm(specs, map[string]string{
			"Order ID": "  A-123  ",
			"Details":  "line one\nline two",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fm) != 3 {
			t.Fatalf("got %d fields, want 3", len(fm))
		}
		if fm[0].Label != "Order ID" || fm[0].Value != "A-123" {
			t.Errorf("field 0 = %+v, want trimmed Order ID first", fm[0])
		}
		if fm[1].Value != "line one\nline two" {
			t.Errorf("multiline value mangled: %q", fm[1].Value)
		}
		if fm[2].Value != "" {
			t.Errorf("missing optional should be empty, got %q", fm[2].Value)
		}
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := ValidateForm(specs, map[string]string{"Order ID": "   "})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
		if verr.Field != "Order ID" || verr.Constraint != "required" {
			t.Errorf("got %+v", verr)
		}
	})

	t.Run("too long", func(t *testing.T) {
		_, err := ValidateForm(specs, map[string]string{"Order ID": strings.Repeat("x", 11)})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
		if verr.Field != "Order ID" {
			t.Errorf("wrong field: %+v", verr)
		}
	})

	t.Run("length is measured in runes", func(t *testing.T) {
		// Ten multi-byte runes fit a 10-rune limit.
		_, err := ValidateForm(specs, map[string]string{"Order ID": strings.Repeat("ß", 10)})
		if err != nil {
			t.Errorf("10 runes rejected: %v", err)
		}
	})

	t.Run("newline in single-line field", func(t *testing.T) {
		_, err := ValidateForm(specs, map[string]string{
			"Order ID": "A-1",
			"Tracking": "abc\ndef",
		})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("want ValidationError, got %v", err)
		}
		if verr.Field != "Tracking" {
			t.Errorf("wrong field: %+v", verr)
		}
	})
}

func TestFieldMapLines(t *testing.T) {
	t.Parallel()

	fm := FieldMap{
		{Label: "Order ID", Value: "A-1"},
		{Label: "Tracking", Value: ""},
	}
	got := fm.Lines()
	want := "**Order ID:** A-1\n**Tracking:** —\n"
	if got != want {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}
