package ledger

import (
	"errors"
	"log"
	"strings"
	"sync"
)

type Options struct {
	Store  Store
	Clock  Clock
	Logger *log.Logger

	// BestEffort logs storage failures instead of returning them: an
	// unreadable month reads as empty and a failed save still counts as done.
	BestEffort bool
}

// Ledger is the chore log. Mutations hold mu for the whole
// read-modify-write cycle of the month.
type Ledger struct {
	mu sync.Mutex

	store      Store
	clock      Clock
	logger     *log.Logger
	bestEffort bool
}

func New(opts Options) (*Ledger, error) {
	if opts.Store == nil {
		return nil, errors.New("ledger store is required")
	}
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Ledger{
		store:      opts.Store,
		clock:      opts.Clock,
		logger:     opts.Logger,
		bestEffort: opts.BestEffort,
	}, nil
}

func (l *Ledger) today() (Month, string) {
	now := l.clock.Now()
	return MonthOf(now), now.Format(DateLayout)
}

func noUser(user string) bool {
	return strings.TrimSpace(user) == ""
}

func (l *Ledger) load(m Month) ([]Record, error) {
	recs, err := l.store.Load(m)
	if err != nil {
		if l.bestEffort {
			l.logger.Printf("[ledger] load %s failed, treating as empty: %v", m, err)
			return []Record{}, nil
		}
		return nil, err
	}
	return recs, nil
}

func (l *Ledger) save(m Month, recs []Record) error {
	if err := l.store.Save(m, recs); err != nil {
		l.logger.Printf("[ledger] save %s failed: %v", m, err)
		if l.bestEffort {
			return nil
		}
		return err
	}
	return nil
}

// Add records that user completed task today. An empty user is a no-op.
func (l *Ledger) Add(user, task string) error {
	if noUser(user) {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	m, today := l.today()
	recs, err := l.load(m)
	if err != nil {
		return err
	}
	recs = append(recs, Record{User: user, Date: today, Task: task})
	return l.save(m, recs)
}

// TasksForToday returns the labels of user's records dated today, in the
// order they were added.
func (l *Ledger) TasksForToday(user string) ([]string, error) {
	out := []string{}
	if noUser(user) {
		return out, nil
	}
	m, today := l.today()
	recs, err := l.load(m)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.User == user && r.Date == today {
			out = append(out, r.Task)
		}
	}
	return out, nil
}

// AllUserTasks groups the current month's records by user as
// "<task> (<date>)" entries.
func (l *Ledger) AllUserTasks() (map[string][]string, error) {
	m, _ := l.today()
	recs, err := l.load(m)
	if err != nil {
		return nil, err
	}
	out := map[string][]string{}
	for _, r := range recs {
		out[r.User] = append(out[r.User], labelWithDate(r))
	}
	return out, nil
}

// AllTasksForUser lists user's records of the current month as
// "<task> (completed: <date>)". Earlier months are only reachable via History.
func (l *Ledger) AllTasksForUser(user string) ([]string, error) {
	out := []string{}
	if noUser(user) {
		return out, nil
	}
	m, _ := l.today()
	recs, err := l.load(m)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.User == user {
			out = append(out, labelCompleted(r))
		}
	}
	return out, nil
}

// History is AllTasksForUser across every stored month, oldest first.
func (l *Ledger) History(user string) ([]string, error) {
	out := []string{}
	if noUser(user) {
		return out, nil
	}
	months, err := l.store.Months()
	if err != nil {
		if l.bestEffort {
			l.logger.Printf("[ledger] list months failed: %v", err)
			return out, nil
		}
		return nil, err
	}
	for _, m := range months {
		recs, err := l.load(m)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if r.User == user {
				out = append(out, labelCompleted(r))
			}
		}
	}
	return out, nil
}

// RemoveLast removes user's most recently added record dated today. It
// reports false, without writing, when there is none.
func (l *Ledger) RemoveLast(user string) (bool, error) {
	if noUser(user) {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	m, today := l.today()
	recs, err := l.load(m)
	if err != nil {
		return false, err
	}
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].User != user || recs[i].Date != today {
			continue
		}
		recs = append(recs[:i], recs[i+1:]...)
		if err := l.save(m, recs); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (l *Ledger) Months() ([]Month, error) {
	return l.store.Months()
}

// Ping reports whether the current month can be read. It ignores BestEffort.
func (l *Ledger) Ping() error {
	m, _ := l.today()
	_, err := l.store.Load(m)
	return err
}
