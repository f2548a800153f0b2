package domain

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time within a workshop day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(v string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", v, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// On returns the instant of t on the calendar day of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// WorkdayGrid describes the bookable hours of a workshop day.
type WorkdayGrid struct {
	Start        TimeOfDay
	End          TimeOfDay
	SlotDuration time.Duration
}

// DefaultWorkdayGrid is 09:00 to 19:00 in one-hour slots.
func DefaultWorkdayGrid() WorkdayGrid {
	return WorkdayGrid{
		Start:        TimeOfDay{Hour: 9},
		End:          TimeOfDay{Hour: 19},
		SlotDuration: 60 * time.Minute,
	}
}

// Validate rejects grids that cannot produce a slot.
func (g WorkdayGrid) Validate() error {
	if g.SlotDuration <= 0 || g.Start.minutes() >= g.End.minutes() {
		return ErrInvalidGrid
	}
	return nil
}

// SlotMinutes returns the slot length in whole minutes.
func (g WorkdayGrid) SlotMinutes() int {
	return int(g.SlotDuration / time.Minute)
}

// Slots enumerates every full-length slot start on day, in local workshop
// time. A trailing slot that would run past End is not offered.
func (g WorkdayGrid) Slots(day time.Time, loc *time.Location) []time.Time {
	if g.Validate() != nil {
		return nil
	}
	start := g.Start.On(day, loc)
	end := g.End.On(day, loc)

	var slots []time.Time
	for t := start; !t.Add(g.SlotDuration).After(end); t = t.Add(g.SlotDuration) {
		slots = append(slots, t)
	}
	return slots
}

// DayBounds returns [start of day, start of next day) for day in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	d := day.In(loc)
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, 1)
}
