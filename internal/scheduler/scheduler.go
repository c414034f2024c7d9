// Package scheduler defers poll creation to a future time.
//
// One-shot entries are plain timers; recurring entries ride a cron
// runner. Both fire the same CreatePoll path the immediate command uses.
// A fired post runs to completion; cancellation only stops entries that
// have not fired yet.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pollbot/internal/poll"
	"pollbot/internal/twitter"
	"pollbot/pkg/logx"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule marks a fire time that is not strictly in the
// future. Nothing is registered when it is returned.
var ErrInvalidSchedule = errors.New("scheduler: fire time must be strictly in the future")

// Poster runs the posting orchestration for one definition.
type Poster interface {
	CreatePoll(ctx context.Context, def poll.Definition) (string, error)
}

// Verifier re-validates credentials before an entry is accepted, so a
// bad deploy fails at schedule time instead of silently at 3am.
type Verifier interface {
	VerifyCredentials(ctx context.Context) (*twitter.User, error)
}

type State int

const (
	StateScheduled State = iota
	StateFired
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateFired:
		return "fired"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Entry is a read-only snapshot of a pending one-shot entry.
type Entry struct {
	ID     string
	Title  string
	FireAt time.Time
	State  State
}

type timerHandle interface {
	Stop() bool
}

type entry struct {
	id     string
	def    poll.Definition
	fireAt time.Time
	timer  timerHandle
	state  State
}

type Service struct {
	poster   Poster
	verifier Verifier
	log      logx.Logger

	// now and newTimer are swappable so tests can drive virtual time.
	now      func() time.Time
	newTimer func(d time.Duration, fn func()) timerHandle

	mu      sync.Mutex
	entries map[string]*entry
	c       *cron.Cron
	cronIDs []cron.EntryID
}

func New(poster Poster, verifier Verifier, log logx.Logger) *Service {
	return &Service{
		poster:   poster,
		verifier: verifier,
		log:      log,
		now:      time.Now,
		newTimer: func(d time.Duration, fn func()) timerHandle {
			return time.AfterFunc(d, fn)
		},
		entries: map[string]*entry{},
	}
}

// ScheduleAt registers a one-shot deferred post. The fire time must be
// strictly after now; credentials are re-validated before anything is
// registered, with the same error mapping the verify path uses.
func (s *Service) ScheduleAt(ctx context.Context, def poll.Definition, at time.Time) (string, error) {
	if at.IsZero() || !at.After(s.now()) {
		return "", fmt.Errorf("%w (got %s)", ErrInvalidSchedule, at.Format(time.RFC3339))
	}
	if _, err := s.verifier.VerifyCredentials(ctx); err != nil {
		return "", err
	}

	e := &entry{
		id:     uuid.NewString(),
		def:    def,
		fireAt: at,
		state:  StateScheduled,
	}

	s.mu.Lock()
	e.timer = s.newTimer(at.Sub(s.now()), func() { s.fire(e) })
	s.entries[e.id] = e
	s.mu.Unlock()

	s.log.Info("poll scheduled",
		logx.String("id", e.id),
		logx.String("title", def.Title),
		logx.Time("fire_at", at))
	return e.id, nil
}

// ScheduleCron registers a recurring post on a standard 5-field cron
// spec (descriptors like "@daily" work too).
func (s *Service) ScheduleCron(ctx context.Context, def poll.Definition, spec string) (string, error) {
	if _, err := s.verifier.VerifyCredentials(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		s.c = cron.New()
		s.c.Start()
	}
	id, err := s.c.AddFunc(spec, func() { s.firePoll(def) })
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	s.cronIDs = append(s.cronIDs, id)

	s.log.Info("recurring poll scheduled",
		logx.String("title", def.Title),
		logx.String("spec", spec))
	return fmt.Sprintf("cron:%d", id), nil
}

// fire moves a one-shot entry to its terminal Fired state and posts.
// Entries cancelled between timer expiry and this callback do nothing.
func (s *Service) fire(e *entry) {
	s.mu.Lock()
	if e.state != StateScheduled {
		s.mu.Unlock()
		return
	}
	e.state = StateFired
	delete(s.entries, e.id)
	s.mu.Unlock()

	s.firePoll(e.def)
}

// firePoll is the deferred invocation itself. Errors are logged and
// dropped: there is nobody left to propagate them to.
func (s *Service) firePoll(def poll.Definition) {
	id, err := s.poster.CreatePoll(context.Background(), def)
	if err != nil {
		s.log.Error("scheduled poll failed",
			logx.String("title", def.Title),
			logx.Strings("options", def.Options),
			logx.Err(err))
		return
	}
	s.log.Info("scheduled poll posted",
		logx.String("title", def.Title),
		logx.String("tweet_id", id))
}

// CancelAll releases every pending timer and cron entry and empties the
// registry. Idempotent.
func (s *Service) CancelAll() {
	s.mu.Lock()
	n := len(s.entries)
	for id, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.state = StateCancelled
		delete(s.entries, id)
	}
	n += len(s.cronIDs)
	if s.c != nil {
		for _, id := range s.cronIDs {
			s.c.Remove(id)
		}
		s.c.Stop()
		s.c = nil
	}
	s.cronIDs = nil
	s.mu.Unlock()

	s.log.Info("all schedules cancelled", logx.Int("released", n))
}

// Entries snapshots the pending one-shot entries, soonest first.
func (s *Service) Entries() []Entry {
	s.mu.Lock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Entry{ID: e.id, Title: e.def.Title, FireAt: e.fireAt, State: e.state})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}
