// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package validation provides struct validation using go-playground/validator
// v10 plus the client-side checks the remote API cannot perform for us early:
// reveal/event date ordering and image attachment constraints.
//
// Validation errors never leave the calling operation as network traffic;
// an input that fails here is rejected before any request is issued.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// singleton validator instance (thread-safe, caches struct info)
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Image attachment constraints for event creation.
const (
	// MaxImageSize is the largest accepted image attachment.
	MaxImageSize = 5 << 20 // 5MB
)

// allowedImageExtensions are the accepted attachment types.
var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	field   string
	tag     string
	message string
}

// Field returns the struct field name that failed validation.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string { return e.tag }

// Error returns a human-readable message.
func (e *ValidationError) Error() string { return e.message }

// ValidationErrors aggregates all field failures for one struct.
type ValidationErrors struct {
	Errors []*ValidationError
}

// Error joins the individual messages into one human-readable string, the
// same shape the server uses for its structured field errors.
func (e *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.message)
	}
	return strings.Join(msgs, ", ")
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates a struct using its `validate` tags. It returns
// *ValidationErrors on failure, nil on success.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: the input was not a validatable struct.
		return fmt.Errorf("validate: %w", err)
	}

	out := &ValidationErrors{}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, &ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			message: messageFor(fe),
		})
	}
	return out
}

// messageFor renders one field error in plain language.
func messageFor(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// CheckDateOrder enforces the creation-time invariant revealDate <= eventDate
// and that both dates are set.
func CheckDateOrder(eventDate, revealDate time.Time) error {
	if eventDate.IsZero() {
		return &ValidationErrors{Errors: []*ValidationError{{field: "EventDate", tag: "required", message: "event date is required"}}}
	}
	if revealDate.IsZero() {
		return &ValidationErrors{Errors: []*ValidationError{{field: "RevealDate", tag: "required", message: "reveal date is required"}}}
	}
	if revealDate.After(eventDate) {
		return &ValidationErrors{Errors: []*ValidationError{{field: "RevealDate", tag: "ltefield", message: "reveal date must not be after the event date"}}}
	}
	return nil
}

// CheckImage validates an image attachment's type and size.
func CheckImage(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExtensions[ext] {
		return &ValidationErrors{Errors: []*ValidationError{{
			field:   "Image",
			tag:     "filetype",
			message: fmt.Sprintf("image type %q is not supported (jpg, jpeg, png, webp)", ext),
		}}}
	}
	if size > MaxImageSize {
		return &ValidationErrors{Errors: []*ValidationError{{
			field:   "Image",
			tag:     "filesize",
			message: fmt.Sprintf("image is too large (%d bytes, max %d)", size, int64(MaxImageSize)),
		}}}
	}
	return nil
}
