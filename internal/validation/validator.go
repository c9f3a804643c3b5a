// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package validation wraps go-playground/validator v10 with a shared instance
// and the custom tags used by job and restore requests:
//
//   - label: an archive-safe label (no path separators, no whitespace)
//   - hhmm:  an H:M or HH:MM time of day; range is not enforced here
//   - basename: a plain file name with no directory component
//   - remotename: an rclone remote name that cannot be read as a flag or path
//
// Field names in messages come from the json tag so that clients see the
// names they sent.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	labelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:=-]*$`)
	hhmmPattern  = regexp.MustCompile(`^[0-9]{1,2}:[0-9]{1,2}$`)

	// rclone allows letters, digits, _ . + @ - and inner spaces in remote
	// names. Spaces and a leading - are refused here.
	remoteNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.+@][A-Za-z0-9_.+@-]*$`)
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Value   interface{}
	Message string
}

// Error implements error.
func (e *FieldError) Error() string {
	return e.Message
}

// RequestValidationError collects every failed rule of one struct.
type RequestValidationError struct {
	errors []FieldError
}

// Errors returns the individual field failures.
func (ve *RequestValidationError) Errors() []FieldError {
	return ve.errors
}

// Error joins all messages.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.errors))
	for i := range ve.errors {
		messages = append(messages, ve.errors[i].Message)
	}
	return strings.Join(messages, "; ")
}

// Details renders the failures for the API error envelope.
func (ve *RequestValidationError) Details() map[string]interface{} {
	if len(ve.errors) == 1 {
		fe := ve.errors[0]
		return map[string]interface{}{
			"field": fe.Field,
			"tag":   fe.Tag,
		}
	}
	fields := make([]map[string]interface{}, len(ve.errors))
	for i, fe := range ve.errors {
		fields[i] = map[string]interface{}{
			"field":   fe.Field,
			"tag":     fe.Tag,
			"message": fe.Message,
		}
	}
	return map[string]interface{}{"fields": fields}
}

// GetValidator returns the shared validator, registering custom tags once.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		mustRegister(v, "label", func(fl validator.FieldLevel) bool {
			return IsLabel(fl.Field().String())
		})
		mustRegister(v, "hhmm", func(fl validator.FieldLevel) bool {
			return hhmmPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "basename", func(fl validator.FieldLevel) bool {
			return IsBaseName(fl.Field().String())
		})
		// Empty values are left to required/required_if.
		mustRegister(v, "remotename", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || IsRemoteName(s)
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// IsLabel reports whether s can be used as a label and archive prefix.
func IsLabel(s string) bool {
	return labelPattern.MatchString(s) && !strings.Contains(s, "..")
}

// IsBaseName reports whether s names a file without any directory part.
func IsBaseName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return false
	}
	return filepath.Base(s) == s
}

// IsRemoteName reports whether s is safe to pass to rclone as "<s>:/path".
// A leading '-' would be read as a flag; ':' and path separators would
// change the target. Whitespace is refused too.
func IsRemoteName(s string) bool {
	return len(s) <= maxRemoteNameLength && remoteNamePattern.MatchString(s)
}

const maxRemoteNameLength = 128

// ValidateStruct validates s. It returns nil or a *RequestValidationError.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{errors: []FieldError{{
			Field:   "unknown",
			Tag:     "unknown",
			Message: err.Error(),
		}}}
	}

	out := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: translateError(fe),
		}
	}
	return &RequestValidationError{errors: out}
}

var errorMessageTemplates = map[string]string{
	"required":    "%s is required",
	"required_if": "%s is required",
	"label":       "%s may only contain letters, digits and . _ : = - and must not start with a symbol",
	"hhmm":        "%s must be a time of day in HH:MM form",
	"basename":    "%s must be a plain file name",
	"remotename":  "%s may only contain letters, digits and _ . + @ - and must not start with - or contain spaces",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func translateError(fe validator.FieldError) string {
	field := fe.Field()
	if template, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(template, field, fe.Param())
	}

	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
