// Package progress keeps the per-epoch validation accuracy of each variant
// where an unrelated request can read it while training runs.
package progress

import (
	"context"
	"errors"
	"fmt"
)

// ErrEpochOrder is returned when an appended epoch does not increase.
var ErrEpochOrder = errors.New("epoch must be strictly increasing")

// Entry is one finished epoch. ValAccuracy is a fraction in [0, 1].
type Entry struct {
	Epoch       int     `json:"epoch"`
	ValAccuracy float64 `json:"val_accuracy"`
}

// Record is the ordered progress of one variant.
type Record struct {
	Variant string  `json:"variant"`
	Entries []Entry `json:"entries"`
}

// Len returns the number of recorded epochs.
func (r Record) Len() int {
	return len(r.Entries)
}

// Latest returns the most recent entry and whether one exists.
func (r Record) Latest() (Entry, bool) {
	if len(r.Entries) == 0 {
		return Entry{}, false
	}
	return r.Entries[len(r.Entries)-1], true
}

// Store persists progress records. Implementations must be safe for one
// writer and any number of concurrent readers.
type Store interface {
	// Reset drops the record of variant before a new run starts.
	Reset(ctx context.Context, variant string) error
	// Append adds an epoch. Epochs must be strictly increasing.
	Append(ctx context.Context, variant string, e Entry) error
	// Read returns the current record. A variant without progress yields
	// an empty record and no error.
	Read(ctx context.Context, variant string) (Record, error)
	Close() error
}

func checkOrder(last Entry, hasLast bool, next Entry) error {
	if hasLast && next.Epoch <= last.Epoch {
		return fmt.Errorf("%w: got %d after %d", ErrEpochOrder, next.Epoch, last.Epoch)
	}
	return nil
}
