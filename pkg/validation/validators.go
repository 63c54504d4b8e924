package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"pharmacy-guard-backend/internal/domain"
)

// Route path components as the app router produces them: plain names,
// parenthesised groups, dynamic [param] segments and +special screens.
var segmentRegex = regexp.MustCompile(`^[A-Za-z0-9()\[\]_+.\-]{1,64}$`)

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("valid_role", ValidRole)
	_ = v.RegisterValidation("route_segment", RouteSegment)
}

// ValidRole accepts only the four assignable roles.
func ValidRole(fl validator.FieldLevel) bool {
	return domain.Role(fl.Field().String()).Valid()
}

func RouteSegment(fl validator.FieldLevel) bool {
	return segmentRegex.MatchString(fl.Field().String())
}
