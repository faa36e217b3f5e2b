// Package ledger records completed household chores.
//
// Records are grouped by calendar month. Each month is stored as a flat,
// insertion-ordered list; queries and undo only look at the current month
// unless stated otherwise.
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the on-disk and wire format of Record.Date.
const DateLayout = "2006-01-02"

var (
	// ErrUnreadable means a month's store exists but could not be read.
	ErrUnreadable = errors.New("task store unreadable")
	// ErrCorrupt means a month's store was read but does not hold a JSON array of records.
	ErrCorrupt = errors.New("task store corrupt")
)

// Record is one completed-task event. Records are never modified once
// appended; undo removes them.
type Record struct {
	User string `json:"user"`
	Date string `json:"date"`
	Task string `json:"task"`
}

// Month identifies the store a record belongs to.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// String returns the month key, e.g. "2025_01".
func (m Month) String() string {
	return fmt.Sprintf("%04d_%02d", m.Year, int(m.Month))
}

// FileName returns the name of the month's JSON file, e.g. "tasks_2025_01.json".
func (m Month) FileName() string {
	return "tasks_" + m.String() + ".json"
}

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// ParseMonthFileName is the inverse of Month.FileName.
func ParseMonthFileName(name string) (Month, bool) {
	if !strings.HasPrefix(name, "tasks_") || !strings.HasSuffix(name, ".json") {
		return Month{}, false
	}
	key := strings.TrimSuffix(strings.TrimPrefix(name, "tasks_"), ".json")
	y, mo, ok := strings.Cut(key, "_")
	if !ok || len(y) != 4 || len(mo) != 2 {
		return Month{}, false
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Month{}, false
	}
	month, err := strconv.Atoi(mo)
	if err != nil || month < 1 || month > 12 {
		return Month{}, false
	}
	return Month{Year: year, Month: time.Month(month)}, true
}

func labelWithDate(r Record) string {
	return r.Task + " (" + r.Date + ")"
}

func labelCompleted(r Record) string {
	return r.Task + " (completed: " + r.Date + ")"
}
