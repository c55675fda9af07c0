package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	emailTag    = "account_email"
	usernameTag = "account_username"

	MaxEmailLength    = 254
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	emailRules    = fmt.Sprintf("required,%s,max=%d", emailTag, MaxEmailLength)
	usernameRules = fmt.Sprintf("required,%s,min=%d,max=%d", usernameTag, MinUsernameLength, MaxUsernameLength)

	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the account tags registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation(emailTag, func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation(usernameTag, func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// ValidateEmail checks emptiness, grammar and length, in that order.
func ValidateEmail(email string) (bool, string) {
	err := Validator().Var(email, emailRules)
	switch failedTag(err) {
	case "":
		return true, "Email is valid"
	case "required":
		return false, "Email cannot be empty"
	case emailTag:
		return false, "Invalid email format"
	default:
		return false, "Email too long (max 254 chars)"
	}
}

// ValidateUsername checks emptiness, allowed characters and the 3..30 length
// window, in that order.
func ValidateUsername(username string) (bool, string) {
	err := Validator().Var(username, usernameRules)
	switch failedTag(err) {
	case "":
		return true, "Username is valid"
	case "required":
		return false, "Username cannot be empty"
	case usernameTag:
		return false, "Only alphanumeric, underscore and hyphen characters allowed"
	case "min":
		return false, "Username too short (min 3 chars)"
	default:
		return false, "Username too long (max 30 chars)"
	}
}

func failedTag(err error) string {
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return "invalid"
}
