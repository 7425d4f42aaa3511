package sales

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"evdealer/backend/internal/apperr"
	"evdealer/backend/internal/store"
	"evdealer/backend/internal/xid"
)

// ledger stores at most one record of T per deposit. The deposit link is
// written before the record so an interrupted create is finished, not
// duplicated, by the next attempt.
type ledger[T any] struct {
	mu       sync.Mutex
	records  store.RecordStore
	entity   string
	idPrefix string
	now      func() time.Time
}

func newLedger[T any](records store.RecordStore, entity string, idPrefix string) *ledger[T] {
	return &ledger[T]{
		records:  records,
		entity:   entity,
		idPrefix: idPrefix,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *ledger[T]) key(id string) string {
	return l.entity + ":" + id
}

func (l *ledger[T]) linkKey(depositID string) string {
	return l.entity + "-link:" + depositID
}

// createOnce returns the record linked to depositID, building and storing it
// first when none exists. An existing record is returned as stored; callers
// compare its terms with what they asked for.
func (l *ledger[T]) createOnce(ctx context.Context, depositID string, build func(id string, now time.Time) T) (T, bool, error) {
	var zero T
	depositID = strings.TrimSpace(depositID)
	if depositID == "" {
		return zero, false, apperr.InvalidArgument("%s deposit id required", l.entity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var id string
	err := store.GetJSON(ctx, l.records, l.linkKey(depositID), &id)
	switch {
	case err == nil:
		var existing T
		getErr := store.GetJSON(ctx, l.records, l.key(id), &existing)
		if getErr == nil {
			return existing, false, nil
		}
		if !errors.Is(getErr, store.ErrNotFound) {
			return zero, false, getErr
		}
	case errors.Is(err, store.ErrNotFound):
		id = xid.New(l.idPrefix)
		if err := store.PutJSON(ctx, l.records, l.linkKey(depositID), id); err != nil {
			return zero, false, err
		}
	default:
		return zero, false, err
	}

	record := build(id, l.now())
	if err := store.PutJSON(ctx, l.records, l.key(id), record); err != nil {
		return zero, false, err
	}
	return record, true, nil
}

func (l *ledger[T]) get(ctx context.Context, id string) (T, error) {
	var out T
	err := store.GetJSON(ctx, l.records, l.key(id), &out)
	if errors.Is(err, store.ErrNotFound) {
		return out, apperr.NotFound("%s %s not found", l.entity, id)
	}
	return out, err
}

func (l *ledger[T]) byDeposit(ctx context.Context, depositID string) (T, error) {
	var id string
	err := store.GetJSON(ctx, l.records, l.linkKey(depositID), &id)
	if errors.Is(err, store.ErrNotFound) {
		var zero T
		return zero, apperr.NotFound("no %s for deposit %s", l.entity, depositID)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return l.get(ctx, id)
}
