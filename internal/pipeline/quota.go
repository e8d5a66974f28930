package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

const (
	DefaultDailyQuota = 100
	dateLayout        = "2006-01-02"
)

// Quota counts downloads per calendar day in a small JSON ledger.
// A non-positive limit means unlimited.
type Quota struct {
	path  string
	limit int
	state quotaState
}

type quotaState struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// LoadQuota reads the ledger at path. A missing ledger or one from another day starts at zero.
func LoadQuota(path string, limit int, now time.Time) (*Quota, error) {
	q := &Quota{path: path, limit: limit}
	today := now.Format(dateLayout)

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read quota ledger: %w", err)
	default:
		if err := json.Unmarshal(raw, &q.state); err != nil {
			return nil, fmt.Errorf("parse quota ledger %q: %w", path, err)
		}
	}

	if q.state.Date != today {
		q.state = quotaState{Date: today}
	}

	return q, nil
}

// Remaining returns how many downloads are left today, or -1 when unlimited.
func (q *Quota) Remaining() int {
	if q.limit <= 0 {
		return -1
	}
	return max(q.limit-q.state.Count, 0)
}

func (q *Quota) Allow() bool {
	return q.limit <= 0 || q.state.Count < q.limit
}

// Use records one download and saves the ledger.
func (q *Quota) Use() error {
	q.state.Count++

	raw, err := json.Marshal(q.state)
	if err != nil {
		return err
	}
	if err := os.WriteFile(q.path, raw, 0o644); err != nil {
		return fmt.Errorf("save quota ledger: %w", err)
	}
	return nil
}
