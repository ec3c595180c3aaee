package model

import (
	"time"
)

// Task is a single card on the board. ID and Timestamp are assigned by the store.
type Task struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36" firestore:"-" datastore:"-"`
	Context     string    `json:"context" gorm:"index" firestore:"context" datastore:"context"`
	Description string    `json:"description" firestore:"description" datastore:"description"`
	Notes       string    `json:"notes" firestore:"notes" datastore:"notes,noindex"`
	Deadline    string    `json:"deadline" firestore:"deadline" datastore:"deadline"`
	EventDate   string    `json:"eventDate" gorm:"column:event_date" firestore:"eventDate" datastore:"eventDate"`
	Time        string    `json:"time" firestore:"time" datastore:"time"`
	Duration    int       `json:"duration" gorm:"not null" firestore:"duration" datastore:"duration"`
	Location    string    `json:"location" firestore:"location" datastore:"location,noindex"`
	Attachment  string    `json:"attachment,omitempty" firestore:"attachment" datastore:"attachment,noindex"`
	Completed   bool      `json:"completed" gorm:"not null" firestore:"completed" datastore:"completed"`
	Timestamp   time.Time `json:"timestamp" gorm:"index;not null" firestore:"timestamp,serverTimestamp" datastore:"timestamp"`
}

// TaskPatch carries the fields of a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Context     *string `json:"context,omitempty"`
	Description *string `json:"description,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	EventDate   *string `json:"eventDate,omitempty"`
	Time        *string `json:"time,omitempty"`
	Duration    *int    `json:"duration,omitempty"`
	Location    *string `json:"location,omitempty"`
	Attachment  *string `json:"attachment,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Fields returns the patch keyed by stored field name.
func (p TaskPatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Context != nil {
		fields[FieldContext] = *p.Context
	}
	if p.Description != nil {
		fields[FieldDescription] = *p.Description
	}
	if p.Notes != nil {
		fields[FieldNotes] = *p.Notes
	}
	if p.Deadline != nil {
		fields[FieldDeadline] = *p.Deadline
	}
	if p.EventDate != nil {
		fields[FieldEventDate] = *p.EventDate
	}
	if p.Time != nil {
		fields[FieldTime] = *p.Time
	}
	if p.Duration != nil {
		fields[FieldDuration] = *p.Duration
	}
	if p.Location != nil {
		fields[FieldLocation] = *p.Location
	}
	if p.Attachment != nil {
		fields[FieldAttachment] = *p.Attachment
	}
	if p.Completed != nil {
		fields[FieldCompleted] = *p.Completed
	}
	return fields
}

// Apply merges the patch into t.
func (p TaskPatch) Apply(t *Task) {
	if p.Context != nil {
		t.Context = *p.Context
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Deadline != nil {
		t.Deadline = *p.Deadline
	}
	if p.EventDate != nil {
		t.EventDate = *p.EventDate
	}
	if p.Time != nil {
		t.Time = *p.Time
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.Attachment != nil {
		t.Attachment = *p.Attachment
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

// Stored field names, shared by all store backends.
const (
	FieldID          = "id"
	FieldContext     = "context"
	FieldDescription = "description"
	FieldNotes       = "notes"
	FieldDeadline    = "deadline"
	FieldEventDate   = "eventDate"
	FieldTime        = "time"
	FieldDuration    = "duration"
	FieldLocation    = "location"
	FieldAttachment  = "attachment"
	FieldCompleted   = "completed"
	FieldTimestamp   = "timestamp"
)

const (
	// DefaultDuration is the event length in minutes when none was chosen.
	DefaultDuration = 60

	// DurationGranularity is the step of the duration picker, in minutes.
	DurationGranularity = 15

	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// NewDraft returns an empty task for the create form.
func NewDraft(context string) Task {
	return Task{
		Context:  context,
		Duration: DefaultDuration,
	}
}

// IsSchedulable reports whether the task carries both an event date and a time.
func IsSchedulable(t Task) bool {
	return t.EventDate != "" && t.Time != ""
}

// IsValidDuration reports whether n is a positive multiple of granularity.
func IsValidDuration(n, granularity int) bool {
	if granularity <= 0 {
		granularity = DurationGranularity
	}
	return n > 0 && n%granularity == 0
}

// EffectiveDuration returns the task duration, falling back to DefaultDuration when unset.
func EffectiveDuration(t Task) int {
	if t.Duration == 0 {
		return DefaultDuration
	}
	return t.Duration
}
