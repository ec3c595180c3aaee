package model

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("validation error")

// ValidationError describes a rejected field value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ValidateField checks a raw form value for the named field and returns the
// patch that applies it.
func ValidateField(field, value string, granularity int) (TaskPatch, error) {
	var p TaskPatch
	switch field {
	case FieldContext:
		if value != "" && !IsContext(value) {
			return p, &ValidationError{Field: field, Reason: fmt.Sprintf("unknown context %q", value)}
		}
		p.Context = &value
	case FieldDescription:
		p.Description = &value
	case FieldNotes:
		p.Notes = &value
	case FieldLocation:
		p.Location = &value
	case FieldAttachment:
		p.Attachment = &value
	case FieldDeadline, FieldEventDate:
		if value != "" {
			if _, err := time.Parse(DateLayout, value); err != nil {
				return p, &ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
			}
		}
		if field == FieldDeadline {
			p.Deadline = &value
		} else {
			p.EventDate = &value
		}
	case FieldTime:
		if value != "" {
			if _, err := time.Parse(TimeLayout, value); err != nil {
				return p, &ValidationError{Field: field, Reason: "expected HH:MM"}
			}
		}
		p.Time = &value
	case FieldDuration:
		n, err := strconv.Atoi(value)
		if err != nil {
			return p, &ValidationError{Field: field, Reason: "not a number"}
		}
		if !IsValidDuration(n, granularity) {
			if granularity <= 0 {
				granularity = DurationGranularity
			}
			return p, &ValidationError{Field: field, Reason: fmt.Sprintf("must be a positive multiple of %d minutes", granularity)}
		}
		p.Duration = &n
	default:
		return p, &ValidationError{Field: field, Reason: "not editable"}
	}
	return p, nil
}

// CheckSchedule reports a ValidationError when exactly one of eventDate and time is set.
func CheckSchedule(t Task) error {
	if (t.EventDate == "") != (t.Time == "") {
		return &ValidationError{Field: FieldTime, Reason: "event date and time must be set together"}
	}
	return nil
}
