package ticket

import (
	"fmt"
	"strings"

	"nuvix-tickets/config"
)

// FieldValue is one validated label/value pair of an intake submission.
type FieldValue struct {
	Label string
	Value string
}

// FieldMap preserves the declaration order of the category's field specs; the
// opening message renders it verbatim.
type FieldMap []FieldValue

// ValidateForm checks submitted values against the category's field specs and
// returns the ordered FieldMap. Submitted keys are the field labels.
func ValidateForm(specs []config.FieldSpec, submitted map[string]string) (FieldMap, error) {
	fm := make(FieldMap, 0, len(specs))
	for _, spec := range specs {
		raw := submitted[spec.Label]
		val := strings.TrimSpace(raw)

		if spec.Required && val == "" {
			return nil, &ValidationError{Field: spec.Label, Constraint: "required"}
		}
		if spec.MaxLength > 0 && len([]rune(val)) > spec.MaxLength {
			return nil, &ValidationError{
				Field:      spec.Label,
				Constraint: fmt.Sprintf("exceeds %d characters", spec.MaxLength),
			}
		}
		if !spec.Multiline && strings.ContainsAny(val, "\r\n") {
			return nil, &ValidationError{Field: spec.Label, Constraint: "must be a single line"}
		}
		fm = append(fm, FieldValue{Label: spec.Label, Value: val})
	}
	return fm, nil
}

// Lines renders the field map for the opening message, one field per line
// with em-dash placeholders for empty optional values.
func (fm FieldMap) Lines() string {
	var sb strings.Builder
	for _, fv := range fm {
		val := fv.Value
		if val == "" {
			val = "—"
		}
		fmt.Fprintf(&sb, "**%s:** %s\n", fv.Label, val)
	}
	return sb.String()
}
