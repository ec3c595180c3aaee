package board

import (
	"thegrid/internal/calendar"
	"thegrid/internal/model"
)

// Column is one context on the board.
type Column struct {
	Context string       `json:"context"`
	Tasks   []model.Task `json:"tasks"`
}

// View is everything the presentation layer renders.
type View struct {
	Columns       []Column     `json:"columns"`
	Unsorted      []model.Task `json:"unsorted,omitempty"`
	Draft         *model.Task  `json:"draft,omitempty"`
	Selected      *model.Task  `json:"selected,omitempty"`
	SignedIn      bool         `json:"signedIn"`
	CalendarState string       `json:"calendarState"`
	Saving        bool         `json:"saving"`
	Degraded      bool         `json:"degraded"`
	LastError     string       `json:"lastError,omitempty"`
}

// Partition groups tasks into the fixed columns, keeping snapshot order.
// Tasks without a known context are returned separately.
func Partition(tasks []model.Task) ([]Column, []model.Task) {
	columns := make([]Column, len(model.Contexts))
	index := make(map[string]int, len(model.Contexts))
	for i, ctx := range model.Contexts {
		columns[i] = Column{Context: ctx, Tasks: []model.Task{}}
		index[ctx] = i
	}

	var unsorted []model.Task
	for _, t := range tasks {
		if i, ok := index[t.Context]; ok {
			columns[i].Tasks = append(columns[i].Tasks, t)
		} else {
			unsorted = append(unsorted, t)
		}
	}
	return columns, unsorted
}

func (c *Controller) viewLocked() View {
	columns, unsorted := Partition(c.tasks)
	v := View{
		Columns:       columns,
		Unsorted:      unsorted,
		SignedIn:      c.calState == calendar.StateSignedIn,
		CalendarState: c.calState.String(),
		Saving:        c.saving,
		Degraded:      c.degraded,
		LastError:     c.lastErr,
	}
	if c.draft != nil {
		d := *c.draft
		v.Draft = &d
	}
	if c.selectedID != "" {
		for _, t := range c.tasks {
			if t.ID == c.selectedID {
				sel := t
				v.Selected = &sel
				break
			}
		}
	}
	return v
}
