package middleware

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/capitalize-ai/realtime-chat/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks v against its struct tags. Failures wrap model.ErrValidation
// and name the offending fields.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", model.ErrValidation, strings.Join(fields, ", "))
}

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) > 100000 {
		return fmt.Errorf("%w: content exceeds maximum length", model.ErrValidation)
	}
	if !utf8.ValidString(content) {
		return fmt.Errorf("%w: content must be valid UTF-8", model.ErrValidation)
	}
	return nil
}
