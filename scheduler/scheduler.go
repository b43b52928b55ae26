// Package scheduler runs the agent's single cooperative loop. Each pass
// handles at most one queued command, then every job that is due, then
// sleeps for a tick. Nothing here runs jobs in parallel.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"
)

// ErrShutdown returned by a Handler stops the loop.
var ErrShutdown = errors.New("shutdown requested")

// Handler processes one interactive command.
type Handler func(ctx context.Context, c Command) error

type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error

	// Immediate runs the job on the first pass instead of waiting for
	// its first scheduled time.
	Immediate bool

	next time.Time
}

// Next is when the job is due again. It is zero before Run starts.
func (j *Job) Next() time.Time { return j.next }

type Scheduler struct {
	Queue   *Queue
	Handler Handler
	Tick    time.Duration

	jobs  []*Job
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func New(q *Queue, h Handler) *Scheduler {
	if q == nil {
		q = NewQueue()
	}
	return &Scheduler{
		Queue:   q,
		Handler: h,
		Tick:    time.Second,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// SetClock replaces the time source and the sleep function.
func (s *Scheduler) SetClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration)) {
	s.now = now
	s.sleep = sleep
}

// Add registers a job. Jobs due in the same pass run in the order they
// were added.
func (s *Scheduler) Add(j *Job) {
	s.jobs = append(s.jobs, j)
}

func (s *Scheduler) Jobs() []*Job { return s.jobs }

// Run loops until an exit command, a handler returning ErrShutdown, or
// ctx is done. The last case returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	start := s.now()
	for _, j := range s.jobs {
		if j.Immediate {
			j.next = start
		} else {
			j.next = j.Schedule.Next(start)
		}
		log.Printf("[JOB] %s scheduled at %s", j.Name, j.next.Format(time.DateTime))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if stop := s.dispatch(ctx); stop {
			return nil
		}
		s.sleep(ctx, s.Tick)
	}
}

// dispatch runs a single pass and reports whether the loop must stop.
func (s *Scheduler) dispatch(ctx context.Context) bool {
	if c, ok := s.Queue.TryDequeue(); ok {
		if c.Exit {
			log.Printf("[CMD] exit requested")
			return true
		}
		if err := s.handle(ctx, c); err != nil {
			if errors.Is(err, ErrShutdown) {
				log.Printf("[CMD] %q: shutting down", c.Text)
				return true
			}
			log.Printf("[CMD] %q failed: %v", c.Text, err)
		}
	}

	for _, j := range s.jobs {
		if ctx.Err() != nil {
			return false
		}
		if s.now().Before(j.next) {
			continue
		}
		if err := runJob(ctx, j); err != nil {
			log.Printf("[JOB] %s failed: %v", j.Name, err)
		}
		j.next = j.Schedule.Next(s.now())
		log.Printf("[JOB] %s next run at %s", j.Name, j.next.Format(time.DateTime))
	}
	return false
}

func (s *Scheduler) handle(ctx context.Context, c Command) (err error) {
	if s.Handler == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return s.Handler(ctx, c)
}

func runJob(ctx context.Context, j *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return j.Run(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
