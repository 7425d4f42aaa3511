package preorder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"evdealer/backend/internal/apperr"
	"evdealer/backend/internal/authz"
	"evdealer/backend/internal/domain"
	"evdealer/backend/internal/metrics"
	"evdealer/backend/internal/store"
	"evdealer/backend/internal/xid"
)

const indexKey = "task-index"

func taskKey(id string) string {
	return "task:" + id
}

func depositLinkKey(depositID string) string {
	return "task-link:" + depositID
}

// next lists the single forward step allowed from each non-terminal status.
var next = map[domain.TaskStatus]domain.TaskStatus{
	domain.TaskStatusRequested: domain.TaskStatusAccepted,
	domain.TaskStatusAccepted:  domain.TaskStatusInTransit,
	domain.TaskStatusInTransit: domain.TaskStatusDelivered,
}

type Option func(*Queue)

func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// Queue stores fulfillment tasks, one per pre-order deposit.
type Queue struct {
	mu      sync.Mutex
	records store.RecordStore
	now     func() time.Time
}

func NewQueue(records store.RecordStore, opts ...Option) *Queue {
	q := &Queue{
		records: records,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// CreateTask enqueues a task in status requested. When the deposit already has
// a task, that task is returned unchanged and created is false, unless it was
// cancelled: a cancelled task cannot carry the order.
func (q *Queue) CreateTask(ctx context.Context, draft domain.TaskDraft) (task domain.Task, created bool, err error) {
	draft.DepositID = strings.TrimSpace(draft.DepositID)
	if draft.DepositID == "" {
		return domain.Task{}, false, apperr.InvalidArgument("task deposit id required")
	}
	if draft.VehicleModel == "" || draft.VehicleColor == "" {
		return domain.Task{}, false, apperr.InvalidArgument("task vehicle model and color are required")
	}
	if draft.Quantity == 0 {
		draft.Quantity = 1
	}
	if draft.Quantity < 1 {
		return domain.Task{}, false, apperr.InvalidArgument("task quantity must be positive")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var taskID string
	linkErr := store.GetJSON(ctx, q.records, depositLinkKey(draft.DepositID), &taskID)
	switch {
	case linkErr == nil:
		existing, err := q.load(ctx, taskID)
		if err == nil && existing.Status == domain.TaskStatusCancelled {
			return domain.Task{}, false, apperr.Precondition(
				fmt.Sprintf("pre-order task %s for deposit %s was cancelled", existing.ID, draft.DepositID),
				"active task", existing.Status,
			)
		}
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return domain.Task{}, false, err
		}
		// link written but task record lost; recreate under the same id
	case errors.Is(linkErr, store.ErrNotFound):
		taskID = xid.New("task")
		if err := store.PutJSON(ctx, q.records, depositLinkKey(draft.DepositID), taskID); err != nil {
			return domain.Task{}, false, err
		}
	default:
		return domain.Task{}, false, linkErr
	}

	now := q.now()
	task = domain.Task{
		ID:           taskID,
		DepositID:    draft.DepositID,
		DealerID:     draft.DealerID,
		VehicleModel: draft.VehicleModel,
		VehicleColor: draft.VehicleColor,
		Quantity:     draft.Quantity,
		Status:       domain.TaskStatusRequested,
		Notes:        draft.Notes,
		RequestedBy:  draft.RequestedBy,
		RequestedAt:  now,
		LastModified: now,
	}
	if draft.VehicleID != "" {
		vehicleID := draft.VehicleID
		task.VehicleID = &vehicleID
	}

	if err := store.PutJSON(ctx, q.records, taskKey(task.ID), task); err != nil {
		return domain.Task{}, false, err
	}
	if err := store.AppendIndex(ctx, q.records, indexKey, task.ID); err != nil {
		return domain.Task{}, false, err
	}
	return task, true, nil
}

// Advance moves a task one step forward, or to cancelled from any
// non-terminal status. Only inventory staff may advance tasks.
func (q *Queue) Advance(ctx context.Context, taskID string, to domain.TaskStatus, actor domain.Actor) (domain.Task, error) {
	if !authz.Allowed(authz.OpAdvanceTask, actor.Role) {
		return domain.Task{}, apperr.Forbidden("role %s may not advance pre-order tasks", actor.Role)
	}
	if !to.Valid() {
		return domain.Task{}, apperr.InvalidArgument("unknown task status %q", to)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	task, err := q.load(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if task.Status.Terminal() {
		return domain.Task{}, apperr.InvalidTransition(task.Status, to)
	}
	if to != domain.TaskStatusCancelled && next[task.Status] != to {
		return domain.Task{}, &apperr.Error{
			Code:     apperr.CodeInvalidTransition,
			Message:  "task status must advance one step at a time",
			Expected: string(next[task.Status]) + " or " + string(domain.TaskStatusCancelled),
			Actual:   string(to),
		}
	}

	now := q.now()
	by := actor.Name
	switch to {
	case domain.TaskStatusAccepted:
		task.AcceptedBy, task.AcceptedAt = &by, &now
	case domain.TaskStatusInTransit:
		task.InTransitBy, task.InTransitAt = &by, &now
	case domain.TaskStatusDelivered:
		task.DeliveredBy, task.DeliveredAt = &by, &now
	case domain.TaskStatusCancelled:
		task.CancelledBy, task.CancelledAt = &by, &now
	}
	task.Status = to
	task.LastModified = now

	if err := store.PutJSON(ctx, q.records, taskKey(task.ID), task); err != nil {
		return domain.Task{}, err
	}
	metrics.TaskAdvances.WithLabelValues(string(to)).Inc()
	return task, nil
}

func (q *Queue) Get(ctx context.Context, taskID string) (domain.Task, error) {
	return q.load(ctx, taskID)
}

func (q *Queue) GetByDepositID(ctx context.Context, depositID string) (domain.Task, error) {
	var taskID string
	err := store.GetJSON(ctx, q.records, depositLinkKey(depositID), &taskID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Task{}, apperr.NotFound("no pre-order task for deposit %s", depositID)
	}
	if err != nil {
		return domain.Task{}, err
	}
	return q.load(ctx, taskID)
}

// ListByStatus returns tasks in status, or every task when status is empty,
// oldest request first.
func (q *Queue) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.InvalidArgument("unknown task status %q", status)
	}
	ids, err := store.LoadIndex(ctx, q.records, indexKey)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(ids))
	for _, id := range ids {
		task, err := q.load(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if status == "" || task.Status == status {
			out = append(out, task)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out, nil
}

func (q *Queue) load(ctx context.Context, taskID string) (domain.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.Task{}, apperr.InvalidArgument("task id required")
	}
	var task domain.Task
	err := store.GetJSON(ctx, q.records, taskKey(taskID), &task)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Task{}, apperr.NotFound("pre-order task %s not found", taskID)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("load task %s: %w", taskID, err)
	}
	return task, nil
}
