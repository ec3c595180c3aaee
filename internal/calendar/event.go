package calendar

import (
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"thegrid/internal/model"
)

// EventTimes returns the start and end of the task's occurrence in loc.
func EventTimes(task model.Task, loc *time.Location, granularity int) (time.Time, time.Time, error) {
	if !model.IsSchedulable(task) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: event date and time are required", ErrInvalidEvent)
	}
	minutes := model.EffectiveDuration(task)
	if !model.IsValidDuration(minutes, granularity) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: duration %d is not a positive multiple of %d", ErrInvalidEvent, minutes, granularity)
	}

	start, err := time.ParseInLocation(model.DateLayout+" "+model.TimeLayout, task.EventDate+" "+task.Time, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	end := start.Add(time.Duration(minutes) * time.Minute)
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end is not after start", ErrInvalidEvent)
	}
	return start, end, nil
}

// BuildEvent converts a schedulable task into a Google Calendar event.
func BuildEvent(task model.Task, loc *time.Location, granularity int) (*gcal.Event, error) {
	start, end, err := EventTimes(task, loc, granularity)
	if err != nil {
		return nil, err
	}
	return &gcal.Event{
		Summary:     task.Description,
		Description: task.Notes,
		Location:    task.Location,
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
	}, nil
}
