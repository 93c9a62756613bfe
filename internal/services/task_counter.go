package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCounterUnavailable is returned while the highest stored number cannot be
// read. The counter never falls back to zero.
var ErrCounterUnavailable = errors.New("task number counter is unavailable")

// MaxNumberSource reports the highest task number in the record store.
type MaxNumberSource interface {
	MaxNumber(ctx context.Context) (int, error)
}

// NumberSource hands out task numbers.
type NumberSource interface {
	Next(ctx context.Context) (int, error)
}

// TaskCounter hands out increasing task numbers. It is seeded from the store
// on first use; a failed seed is retried by the next call.
type TaskCounter struct {
	mu       sync.Mutex
	source   MaxNumberSource
	seeded   bool
	storeMax int
	last     int
}

var _ NumberSource = (*TaskCounter)(nil)

// NewTaskCounter creates a new TaskCounter
func NewTaskCounter(source MaxNumberSource) *TaskCounter {
	return &TaskCounter{source: source}
}

// Next returns a number greater than any number returned before and than the
// store maximum seen at seeding time.
func (c *TaskCounter) Next(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.seeded {
		storeMax, err := c.source.MaxNumber(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrCounterUnavailable, err)
		}
		c.storeMax = storeMax
		c.seeded = true
	}

	c.last = max(c.last, c.storeMax) + 1
	return c.last, nil
}
