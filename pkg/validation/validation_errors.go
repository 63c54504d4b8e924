package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to client-facing labels
var FieldLabels = map[string]string{
	"MountID":       "Mount ID",
	"Segments":      "Route segments",
	"NavigationKey": "Navigation key",
	"Role":          "Role",
	"Email":         "Email",
}

// FormatValidationErrors converts validator.ValidationErrors to readable messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.StructField())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", label)
	case "uuid":
		return fmt.Sprintf("%s: must be a UUID", label)
	case "email":
		return fmt.Sprintf("%s: invalid email format", label)
	case "oneof":
		return fmt.Sprintf("%s: must be one of: %s", label, strings.ReplaceAll(e.Param(), " ", ", "))
	case "valid_role":
		return fmt.Sprintf("%s: must be one of: admin, pharmacy_owner, delivery_person, customer", label)
	case "route_segment":
		return fmt.Sprintf("%s: %q is not a valid route segment", label, e.Value())
	default:
		return fmt.Sprintf("%s: validation failed (%s)", label, e.Tag())
	}
}

// getFieldLabel strips slice indexes such as Segments[2] before the lookup.
func getFieldLabel(fieldName string) string {
	if i := strings.IndexByte(fieldName, '['); i > 0 {
		fieldName = fieldName[:i]
	}
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
