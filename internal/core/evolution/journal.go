package evolution

import (
	"context"
	"time"
)

// EntryStatus classifies a journal entry.
type EntryStatus string

const (
	StatusSucceeded EntryStatus = "succeeded"
	StatusFailed    EntryStatus = "failed"
	StatusGivenUp   EntryStatus = "given_up"
	StatusPublished EntryStatus = "published"
)

// JournalEntry is the audit record of one attempt or task outcome.
type JournalEntry struct {
	ID        string        `json:"id"`
	Task      int           `json:"task"`
	Title     string        `json:"title"`
	Version   int           `json:"version"`
	Attempt   int           `json:"attempt"`
	Status    EntryStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	Script    string        `json:"script,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Journal records attempts and outcomes.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
}

// NopJournal discards every entry.
type NopJournal struct{}

func (NopJournal) Record(context.Context, JournalEntry) error { return nil }
