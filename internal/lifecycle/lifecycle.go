package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"evdealer/backend/internal/apperr"
	"evdealer/backend/internal/authz"
	"evdealer/backend/internal/deposit"
	"evdealer/backend/internal/domain"
	"evdealer/backend/internal/logger"
	"evdealer/backend/internal/metrics"
	"evdealer/backend/internal/notify"
	"evdealer/backend/internal/xid"
)

type Deposits interface {
	Create(ctx context.Context, draft domain.DepositDraft, createdBy string) (domain.Deposit, error)
	Get(ctx context.Context, id string) (domain.Deposit, error)
	List(ctx context.Context, filter domain.DepositFilter) ([]domain.Deposit, error)
	Update(ctx context.Context, d domain.Deposit) (domain.Deposit, error)
	Delete(ctx context.Context, id string) error
	Now() time.Time
}

type Tasks interface {
	CreateTask(ctx context.Context, draft domain.TaskDraft) (domain.Task, bool, error)
}

// Service drives a Deposit through its states. Every operation reads the
// acting user from the context.
type Service struct {
	deposits Deposits
	tasks    Tasks
	notifier notify.Notifier
	log      *zap.Logger
}

func New(deposits Deposits, tasks Tasks, notifier notify.Notifier, log *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		deposits: deposits,
		tasks:    tasks,
		notifier: notifier,
		log:      logger.OrNop(log),
	}
}

func (s *Service) CreateDeposit(ctx context.Context, draft domain.DepositDraft) (domain.Deposit, error) {
	actor, err := authz.Require(ctx, authz.OpCreateDeposit)
	if err != nil {
		return domain.Deposit{}, s.rejected(authz.OpCreateDeposit, err)
	}
	d, err := s.deposits.Create(ctx, draft, actor.Name)
	if err != nil {
		return domain.Deposit{}, s.rejected(authz.OpCreateDeposit, err)
	}
	s.committed(authz.OpCreateDeposit, d, actor)
	return d, nil
}

func (s *Service) GetDeposit(ctx context.Context, id string) (domain.Deposit, error) {
	if _, err := authz.Require(ctx, authz.OpRead); err != nil {
		return domain.Deposit{}, err
	}
	return s.deposits.Get(ctx, id)
}

func (s *Service) ListDeposits(ctx context.Context, filter domain.DepositFilter) ([]domain.Deposit, error) {
	if _, err := authz.Require(ctx, authz.OpRead); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.InvalidArgument("unknown deposit status %q", filter.Status)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperr.InvalidArgument("unknown deposit type %q", filter.Type)
	}
	return s.deposits.List(ctx, filter)
}

// Payable reports whether the remaining amount may be collected now.
func (s *Service) Payable(ctx context.Context, id string) (domain.Payability, error) {
	d, err := s.GetDeposit(ctx, id)
	if err != nil {
		return domain.Payability{}, err
	}
	result := domain.Payability{DepositID: d.ID, Payable: true}
	if err := deposit.CheckPayable(d); err != nil {
		result.Payable = false
		result.Reason = err.Error()
	}
	return result, nil
}

func (s *Service) Confirm(ctx context.Context, id string) (domain.Deposit, error) {
	return s.transition(ctx, id, authz.OpConfirm, func(d *domain.Deposit, actor domain.Actor, now time.Time) error {
		if d.Status != domain.DepositStatusPending {
			return apperr.Precondition("only pending deposits can be confirmed", domain.DepositStatusPending, d.Status)
		}
		d.Status = domain.DepositStatusConfirmed
		d.ConfirmedAt = &now
		d.ConfirmedBy = &actor.Name
		return nil
	})
}

// PlaceManufacturerOrder records the factory order on a pre-order deposit and
// enqueues its fulfillment task. The task is written before the deposit so a
// failed deposit write can be retried without duplicating the task.
func (s *Service) PlaceManufacturerOrder(ctx context.Context, id string) (domain.Deposit, domain.Task, error) {
	const op = authz.OpPlaceManufacturerOrder
	actor, err := authz.Require(ctx, op)
	if err != nil {
		return domain.Deposit{}, domain.Task{}, s.rejected(op, err)
	}
	d, err := s.deposits.Get(ctx, id)
	if err != nil {
		return domain.Deposit{}, domain.Task{}, s.rejected(op, err)
	}
	if err := requirePreOrder(d); err != nil {
		return domain.Deposit{}, domain.Task{}, s.rejected(op, err)
	}
	if d.ManufacturerOrderID != nil {
		return domain.Deposit{}, domain.Task{}, s.rejected(op, apperr.Precondition("manufacturer order already placed", "no manufacturer order", *d.ManufacturerOrderID))
	}
	if err := requireOpen(d); err != nil {
		return domain.Deposit{}, domain.Task{}, s.rejected(op, err)
	}

	draft := domain.TaskDraft{
		DepositID:    d.ID,
		DealerID:     d.DealerID,
		VehicleModel: d.VehicleModel,
		VehicleColor: d.VehicleColor,
		Quantity:     1,
		RequestedBy:  actor.Name,
		Notes:        fmt.Sprintf("Manufacturer order for deposit %s (%s, %s)", d.ID, d.CustomerName, d.CustomerPhone),
	}
	if d.VehicleID != nil {
		draft.VehicleID = *d.VehicleID
	}
	task, created, err := s.tasks.CreateTask(ctx, draft)
	if err != nil {
		return domain.Deposit{}, domain.Task{}, fmt.Errorf("enqueue pre-order task for %s: %w", d.ID, err)
	}
	if !created {
		s.log.Info("reusing pre-order task from earlier attempt",
			zap.String("deposit_id", d.ID),
			zap.String("task_id", task.ID),
		)
	}

	now := s.deposits.Now()
	orderID := xid.New("MO")
	ordered := domain.ManufacturerStatusOrdered
	d.ManufacturerOrderID = &orderID
	d.ManufacturerStatus = &ordered
	d.ManufacturerOrderedAt = &now
	d.ManufacturerOrderedBy = &actor.Name

	updated, err := s.deposits.Update(ctx, d)
	if err != nil {
		return domain.Deposit{}, domain.Task{}, fmt.Errorf("record manufacturer order for %s: %w", d.ID, err)
	}
	s.committed(op, updated, actor, zap.String("task_id", task.ID), zap.String("manufacturer_order_id", orderID))
	return updated, task, nil
}

// MarkArrived records the vehicle's arrival at the dealer. vehicleID binds the
// concrete unit when it is known.
func (s *Service) MarkArrived(ctx context.Context, id string, vehicleID string) (domain.Deposit, error) {
	vehicleID = strings.TrimSpace(vehicleID)
	return s.transition(ctx, id, authz.OpMarkArrived, func(d *domain.Deposit, actor domain.Actor, now time.Time) error {
		if err := requirePreOrder(*d); err != nil {
			return err
		}
		if err := requireOpen(*d); err != nil {
			return err
		}
		if d.ManufacturerStatus == nil || *d.ManufacturerStatus != domain.ManufacturerStatusOrdered {
			manufacturer, _ := deposit.StatusOf(*d)
			return apperr.Precondition("vehicle must be ordered before it can arrive", domain.ManufacturerStatusOrdered, manufacturer)
		}
		arrived := domain.ManufacturerStatusArrived
		d.ManufacturerStatus = &arrived
		d.ManufacturerArrivedAt = &now
		d.ManufacturerArrivedBy = &actor.Name
		if vehicleID != "" {
			d.VehicleID = &vehicleID
		}
		return nil
	})
}

// NotifyStaff marks the arrival notice as sent and then delivers it. Delivery
// failures are logged; the state change stands.
func (s *Service) NotifyStaff(ctx context.Context, id string) (domain.Deposit, error) {
	updated, err := s.transition(ctx, id, authz.OpNotifyStaff, func(d *domain.Deposit, actor domain.Actor, now time.Time) error {
		if err := requirePreOrder(*d); err != nil {
			return err
		}
		if err := requireOpen(*d); err != nil {
			return err
		}
		manufacturer, notification := deposit.StatusOf(*d)
		if d.ManufacturerStatus == nil || *d.ManufacturerStatus != domain.ManufacturerStatusArrived {
			return apperr.Precondition("vehicle has not arrived", domain.ManufacturerStatusArrived, manufacturer)
		}
		if d.NotificationStatus != nil {
			return apperr.Precondition("staff already notified", "null", notification)
		}
		notified := domain.NotificationStatusNotified
		d.NotificationStatus = &notified
		d.StaffNotifiedAt = &now
		d.StaffNotifiedBy = &actor.Name
		return nil
	})
	if err != nil {
		return domain.Deposit{}, err
	}

	if err := s.notifier.NotifyArrival(ctx, notify.NoticeFor(updated, *updated.StaffNotifiedBy)); err != nil {
		s.log.Warn("arrival notice delivery failed",
			zap.String("deposit_id", updated.ID),
			zap.Error(err),
		)
	}
	return updated, nil
}

func (s *Service) Acknowledge(ctx context.Context, id string) (domain.Deposit, error) {
	return s.transition(ctx, id, authz.OpAcknowledge, func(d *domain.Deposit, actor domain.Actor, now time.Time) error {
		if err := requirePreOrder(*d); err != nil {
			return err
		}
		if err := requireOpen(*d); err != nil {
			return err
		}
		if d.NotificationStatus == nil || *d.NotificationStatus != domain.NotificationStatusNotified {
			_, notification := deposit.StatusOf(*d)
			return apperr.Precondition("staff must be notified before acknowledging", domain.NotificationStatusNotified, notification)
		}
		acknowledged := domain.NotificationStatusAcknowledged
		d.NotificationStatus = &acknowledged
		d.StaffAcknowledgedAt = &now
		d.StaffAcknowledgedBy = &actor.Name
		return nil
	})
}

// Cancel closes a pending or confirmed deposit. Any pre-order task is left
// for inventory staff to cancel on their side.
func (s *Service) Cancel(ctx context.Context, id string, reason string) (domain.Deposit, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, id, authz.OpCancel, func(d *domain.Deposit, actor domain.Actor, now time.Time) error {
		if err := requireOpen(*d); err != nil {
			return err
		}
		d.Status = domain.DepositStatusCancelled
		d.CancelledAt = &now
		d.CancelledBy = &actor.Name
		if reason != "" {
			d.CancelNote = &reason
		}
		return nil
	})
}

// DeleteDeposit removes a deposit regardless of its state.
func (s *Service) DeleteDeposit(ctx context.Context, id string) error {
	actor, err := authz.Require(ctx, authz.OpDeleteDeposit)
	if err != nil {
		return s.rejected(authz.OpDeleteDeposit, err)
	}
	d, err := s.deposits.Get(ctx, id)
	if err != nil {
		return s.rejected(authz.OpDeleteDeposit, err)
	}
	if err := s.deposits.Delete(ctx, id); err != nil {
		return err
	}
	s.committed(authz.OpDeleteDeposit, d, actor, zap.String("status", string(d.Status)))
	return nil
}

// transition runs a single-record read-validate-write. apply mutates a fresh
// copy; when it returns an error nothing is written.
func (s *Service) transition(ctx context.Context, id string, op authz.Operation, apply func(*domain.Deposit, domain.Actor, time.Time) error) (domain.Deposit, error) {
	actor, err := authz.Require(ctx, op)
	if err != nil {
		return domain.Deposit{}, s.rejected(op, err)
	}
	d, err := s.deposits.Get(ctx, id)
	if err != nil {
		return domain.Deposit{}, s.rejected(op, err)
	}
	if err := apply(&d, actor, s.deposits.Now()); err != nil {
		return domain.Deposit{}, s.rejected(op, err)
	}
	updated, err := s.deposits.Update(ctx, d)
	if err != nil {
		return domain.Deposit{}, fmt.Errorf("%s %s: %w", op, id, err)
	}
	s.committed(op, updated, actor)
	return updated, nil
}

func (s *Service) committed(op authz.Operation, d domain.Deposit, actor domain.Actor, extra ...zap.Field) {
	metrics.DepositTransitions.WithLabelValues(string(op)).Inc()
	fields := append([]zap.Field{
		zap.String("deposit_id", d.ID),
		zap.String("actor", actor.Name),
		zap.String("role", string(actor.Role)),
		zap.String("transition", string(op)),
		zap.String("status", string(d.Status)),
	}, extra...)
	s.log.Info("deposit transition committed", fields...)
}

func (s *Service) rejected(op authz.Operation, err error) error {
	if code, ok := apperr.CodeOf(err); ok {
		metrics.DepositTransitionsRejected.WithLabelValues(string(op), string(code)).Inc()
	}
	return err
}

func requirePreOrder(d domain.Deposit) error {
	if d.Type != domain.DepositTypePreOrder {
		return &apperr.Error{
			Code:     apperr.CodeInvalidOperation,
			Message:  "operation applies to pre-order deposits only",
			Expected: string(domain.DepositTypePreOrder),
			Actual:   string(d.Type),
		}
	}
	return nil
}

func requireOpen(d domain.Deposit) error {
	if d.Status != domain.DepositStatusPending && d.Status != domain.DepositStatusConfirmed {
		return apperr.Precondition("deposit is closed", "pending or confirmed", d.Status)
	}
	return nil
}
