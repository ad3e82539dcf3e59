package calendar

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/model"
)

// Resolution is a concrete calendar date derived from user input.
type Resolution struct {
	Date       time.Time
	DateString string
	Weekday    string
}

// Resolver turns an explicit date or a weekday name into a calendar date
// relative to "today" in a reference timezone.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

type Option func(*Resolver)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithLocation sets the reference timezone. Default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		loc: time.UTC,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadLocation wraps time.LoadLocation with a friendlier error.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load timezone", goerr.V("timezone", name))
	}
	return loc, nil
}

// Location returns the reference timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Now returns the current time in the reference timezone.
func (r *Resolver) Now() time.Time {
	return r.now().In(r.loc)
}

// Today returns today's date at midnight in the reference timezone.
func (r *Resolver) Today() Resolution {
	now := r.Now()
	return newResolution(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc))
}

// Resolve returns the date named by dateStr (YYYY-MM-DD, takes precedence) or
// the most recent occurrence of dayStr on or before today. ok is false when
// neither yields a date; callers must not guess in that case.
func (r *Resolver) Resolve(dateStr, dayStr string) (Resolution, bool) {
	if dateStr = strings.TrimSpace(dateStr); dateStr != "" {
		if d, err := time.ParseInLocation(model.DateLayout, dateStr, r.loc); err == nil {
			return newResolution(d), true
		}
	}

	weekday, ok := ParseWeekday(dayStr)
	if !ok {
		return Resolution{}, false
	}

	today := r.Today().Date
	back := (int(today.Weekday()) - int(weekday) + 7) % 7
	return newResolution(today.AddDate(0, 0, -back)), true
}

// ParseWeekday accepts full weekday names and three letter abbreviations,
// case-insensitively.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if s == name || s == name[:3] {
			return wd, true
		}
	}
	return 0, false
}

func newResolution(d time.Time) Resolution {
	return Resolution{
		Date:       d,
		DateString: d.Format(model.DateLayout),
		Weekday:    d.Weekday().String(),
	}
}
