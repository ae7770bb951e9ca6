package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Action is what a schedule does to the link when it fires.
type Action string

const (
	ActionOn  Action = "on"
	ActionOff Action = "off"
)

// Schedule is a persisted recurring on/off rule. Weekday numbering matches
// time.Weekday (0 = Sunday).
type Schedule struct {
	ID        string         `json:"id"`
	Hour      int            `json:"hour"`
	Minute    int            `json:"minute"`
	Action    Action         `json:"action"`
	Weekdays  []time.Weekday `json:"weekdays"`
	Enabled   bool           `json:"enabled"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (s Schedule) timeOfDay() string { return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute) }

// Annotated pairs a schedule with its computed next fire time for display
// ordering. NextRun is zero for disabled schedules.
type Annotated struct {
	Schedule
	NextRun time.Time `json:"next_run,omitzero"`
}

// Input is the caller-facing shape of a create/update request. It is
// validated before any mutation happens.
type Input struct {
	Hour     int    `json:"hour" validate:"min=0,max=23"`
	Minute   int    `json:"minute" validate:"min=0,max=59"`
	Action   string `json:"action" validate:"oneof=on off"`
	Weekdays []int  `json:"weekdays" validate:"required,min=1,unique,dive,min=0,max=6"`
	Enabled  bool   `json:"enabled"`
}

var ErrNotFound = errors.New("schedule not found")

// ValidationError marks malformed input, rejected before any mutation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid schedule: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

var validate = validator.New()

// parseInput validates and converts an Input into schedule fields.
func parseInput(in Input) (Schedule, error) {
	if err := validate.Struct(in); err != nil {
		return Schedule{}, &ValidationError{Err: err}
	}
	wd := make([]time.Weekday, 0, len(in.Weekdays))
	for _, d := range in.Weekdays {
		wd = append(wd, time.Weekday(d))
	}
	return Schedule{
		Hour:     in.Hour,
		Minute:   in.Minute,
		Action:   Action(in.Action),
		Weekdays: wd,
		Enabled:  in.Enabled,
	}, nil
}
