package scheduler

import (
	"fmt"
	"math/rand"
	"time"
)

// Schedule decides when a job runs next.
type Schedule interface {
	Next(after time.Time) time.Time
}

type every time.Duration

// Every runs a job at a fixed period.
func Every(d time.Duration) Schedule { return every(d) }

func (e every) Next(after time.Time) time.Time { return after.Add(time.Duration(e)) }

type jitter struct {
	min, max time.Duration
	rnd      *rand.Rand
}

// Jitter waits a uniformly random delay in [min, max] between runs. Each
// call gets its own random source, so jobs do not share a sequence.
func Jitter(min, max time.Duration, seed int64) Schedule {
	if max < min {
		min, max = max, min
	}
	return &jitter{min: min, max: max, rnd: rand.New(rand.NewSource(seed))}
}

func (j *jitter) Next(after time.Time) time.Time {
	span := j.max - j.min
	if span <= 0 {
		return after.Add(j.min)
	}
	return after.Add(j.min + time.Duration(j.rnd.Int63n(int64(span)+1)))
}

type daily struct {
	hour, min int
	loc       *time.Location
}

// DailyAt runs a job once a day at the wall-clock time hh:mm in loc.
func DailyAt(hhmm string, loc *time.Location) (Schedule, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return nil, fmt.Errorf("daily time %q: %w", hhmm, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return daily{hour: t.Hour(), min: t.Minute(), loc: loc}, nil
}

func (d daily) Next(after time.Time) time.Time {
	a := after.In(d.loc)
	next := time.Date(a.Year(), a.Month(), a.Day(), d.hour, d.min, 0, 0, d.loc)
	if !next.After(a) {
		next = time.Date(a.Year(), a.Month(), a.Day()+1, d.hour, d.min, 0, 0, d.loc)
	}
	return next
}
