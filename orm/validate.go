package orm

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Field patterns carried over from the reference entity definitions.
// 'virtual' is the one single-component category Portage knows about.
var (
	categoryRe = regexp.MustCompile(`^(\w+-\w+|virtual)$`)
	tokenRe    = regexp.MustCompile(`^\S+$`)
	useFlagRe  = regexp.MustCompile(`^[+\-]?\w[\w@\-+]*$`)
	hostUUIDRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	patterns := map[string]*regexp.Regexp{
		"category": categoryRe,
		"token":    tokenRe,
		"useflag":  useFlagRe,
		"hostuuid": hostUUIDRe,
	}
	for tag, re := range patterns {
		re := re
		// the tag set is static, registration cannot fail
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
	}

	return v
}

// ValidateEntity checks an entity's field constraints (patterns, length
// limits) and wraps any failure in a ValidationError that aborts the
// enclosing submission. Validation runs before the row is written: shared
// reference rows are committed outside the submission transaction, so an
// invalid row must never reach the store in the first place.
func ValidateEntity(kind, value string, entity any) error {
	if err := validate.Struct(entity); err != nil {
		return &ValidationError{Kind: kind, Value: value, Reason: err}
	}
	return nil
}
