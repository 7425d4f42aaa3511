package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evdealer/backend/internal/apperr"
	"evdealer/backend/internal/authz"
	"evdealer/backend/internal/deposit"
	"evdealer/backend/internal/domain"
	"evdealer/backend/internal/notify"
	"evdealer/backend/internal/preorder"
	"evdealer/backend/internal/store/memory"
	"evdealer/backend/internal/store/storetest"
)

type spyNotifier struct {
	mu      sync.Mutex
	notices []notify.ArrivalNotice
	err     error
}

func (s *spyNotifier) NotifyArrival(_ context.Context, notice notify.ArrivalNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice)
	return s.err
}

type fixture struct {
	svc      *Service
	deposits *deposit.Repository
	queue    *preorder.Queue
	records  *storetest.FailingStore
	notifier *spyNotifier
}

func newFixture() fixture {
	records := storetest.NewFailingStore(memory.New())
	deposits := deposit.NewRepository(records)
	queue := preorder.NewQueue(records)
	notifier := &spyNotifier{}
	return fixture{
		svc:      New(deposits, queue, notifier, nil),
		deposits: deposits,
		queue:    queue,
		records:  records,
		notifier: notifier,
	}
}

func as(role domain.Role) context.Context {
	return authz.WithActor(context.Background(), domain.Actor{Name: strings.ToLower(string(role)), Role: role})
}

var (
	staff   = as(domain.RoleDealerStaff)
	manager = as(domain.RoleDealerManager)
	admin   = as(domain.RoleEVMAdmin)
	evm     = as(domain.RoleEVMStaff)
)

func newDraft(kind domain.DepositType) domain.DepositDraft {
	return domain.DepositDraft{
		Type:              kind,
		DealerID:          "dealer-sby-02",
		CustomerID:        "cus-77",
		CustomerName:      "Agus Santoso",
		CustomerPhone:     "+62812555777",
		VehicleModel:      "VF 9",
		VehicleColor:      "Jet Black",
		VehiclePrice:      1_250_000_000,
		DepositPercentage: 20,
	}
}

func (f fixture) confirmedPreOrder(t *testing.T) domain.Deposit {
	t.Helper()
	d, err := f.svc.CreateDeposit(staff, newDraft(domain.DepositTypePreOrder))
	require.NoError(t, err)
	d, err = f.svc.Confirm(staff, d.ID)
	require.NoError(t, err)
	return d
}

func TestPreOrderHappyPath(t *testing.T) {
	f := newFixture()
	d := f.confirmedPreOrder(t)
	assert.Equal(t, domain.DepositStatusConfirmed, d.Status)
	require.NotNil(t, d.ConfirmedBy)
	assert.Equal(t, "dealer_staff", *d.ConfirmedBy)

	d, task, err := f.svc.PlaceManufacturerOrder(manager, d.ID)
	require.NoError(t, err)
	require.NotNil(t, d.ManufacturerOrderID)
	assert.True(t, strings.HasPrefix(*d.ManufacturerOrderID, "MO-"))
	assert.Equal(t, domain.ManufacturerStatusOrdered, *d.ManufacturerStatus)
	assert.Equal(t, domain.TaskStatusRequested, task.Status)
	assert.Equal(t, d.ID, task.DepositID)
	assert.Equal(t, 1, task.Quantity)
	assert.Equal(t, "VF 9", task.VehicleModel)
	assert.Contains(t, task.Notes, d.ID)

	d, err = f.svc.MarkArrived(manager, d.ID, "VIN-RLLV9A0001")
	require.NoError(t, err)
	assert.Equal(t, domain.ManufacturerStatusArrived, *d.ManufacturerStatus)
	require.NotNil(t, d.VehicleID)
	assert.Equal(t, "VIN-RLLV9A0001", *d.VehicleID)

	payable, err := f.svc.Payable(staff, d.ID)
	require.NoError(t, err)
	assert.False(t, payable.Payable)

	d, err = f.svc.NotifyStaff(manager, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusNotified, *d.NotificationStatus)
	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, d.ID, f.notifier.notices[0].DepositID)

	d, err = f.svc.Acknowledge(staff, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusAcknowledged, *d.NotificationStatus)
	assert.NotNil(t, d.StaffAcknowledgedAt)

	payable, err = f.svc.Payable(evm, d.ID)
	require.NoError(t, err)
	assert.True(t, payable.Payable)
	assert.Equal(t, d.VehiclePrice, d.DepositAmount+d.RemainingAmount)
}

func TestPlaceManufacturerOrderTwiceKeepsSingleTask(t *testing.T) {
	f := newFixture()
	d := f.confirmedPreOrder(t)

	_, first, err := f.svc.PlaceManufacturerOrder(manager, d.ID)
	require.NoError(t, err)

	_, _, err = f.svc.PlaceManufacturerOrder(manager, d.ID)
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)

	tasks, err := f.queue.ListByStatus(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, first.ID, tasks[0].ID)
}

func TestPlaceManufacturerOrderRejections(t *testing.T) {
	f := newFixture()
	available, err := f.svc.CreateDeposit(staff, newDraft(domain.DepositTypeAvailable))
	require.NoError(t, err)
	preOrder := f.confirmedPreOrder(t)

	_, _, err = f.svc.PlaceManufacturerOrder(manager, available.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)

	_, _, err = f.svc.PlaceManufacturerOrder(staff, preOrder.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, _, err = f.svc.PlaceManufacturerOrder(manager, "dep-missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := f.deposits.Get(context.Background(), preOrder.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ManufacturerOrderID)
	_, err = f.queue.GetByDepositID(context.Background(), preOrder.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTaskFailureLeavesDepositUntouched(t *testing.T) {
	f := newFixture()
	d := f.confirmedPreOrder(t)

	f.records.FailPuts("task:", -1)
	_, _, err := f.svc.PlaceManufacturerOrder(manager, d.ID)
	require.ErrorIs(t, err, storetest.ErrInjected)
	f.records.Heal()

	stored, err := f.deposits.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ManufacturerOrderID)
	assert.Equal(t, domain.ManufacturerStatusRequested, *stored.ManufacturerStatus)
	assert.True(t, stored.LastModified.Equal(d.LastModified))
}

func TestDepositWriteFailureIsRetryableWithoutDuplicateTask(t *testing.T) {
	f := newFixture()
	d := f.confirmedPreOrder(t)

	f.records.FailPuts("deposit:"+d.ID, 1)
	_, _, err := f.svc.PlaceManufacturerOrder(manager, d.ID)
	require.ErrorIs(t, err, storetest.ErrInjected)

	stored, err := f.deposits.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ManufacturerOrderID)
	orphan, err := f.queue.GetByDepositID(context.Background(), d.ID)
	require.NoError(t, err)

	updated, task, err := f.svc.PlaceManufacturerOrder(manager, d.ID)
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, task.ID)
	assert.NotNil(t, updated.ManufacturerOrderID)

	tasks, err := f.queue.ListByStatus(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestRetryAfterTaskCancelledIsRejected(t *testing.T) {
	f := newFixture()
	d := f.confirmedPreOrder(t)

	f.records.FailPuts("deposit:"+d.ID, 1)
	_, _, err := f.svc.PlaceManufacturerOrder(manager, d.ID)
	require.ErrorIs(t, err, storetest.ErrInjected)
	orphan, err := f.queue.GetByDepositID(context.Background(), d.ID)
	require.NoError(t, err)
	_, err = f.queue.Advance(context.Background(), orphan.ID, domain.TaskStatusCancelled, domain.Actor{Name: "gudang", Role: domain.RoleEVMStaff})
	require.NoError(t, err)

	_, _, err = f.svc.PlaceManufacturerOrder(manager, d.ID)
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)

	stored, err := f.deposits.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ManufacturerOrderID)
	assert.Equal(t, domain.ManufacturerStatusRequested, *stored.ManufacturerStatus)
}

func TestPreOrderStepPreconditions(t *testing.T) {
	f := newFixture()
	d := f.confirmedPreOrder(t)

	_, err := f.svc.MarkArrived(manager, d.ID, "")
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)

	_, err = f.svc.NotifyStaff(manager, d.ID)
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)

	_, err = f.svc.Acknowledge(staff, d.ID)
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)

	_, _, err = f.svc.PlaceManufacturerOrder(manager, d.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkArrived(manager, d.ID, "")
	require.NoError(t, err)
	_, err = f.svc.NotifyStaff(manager, d.ID)
	require.NoError(t, err)

	_, err = f.svc.NotifyStaff(manager, d.ID)
	var typed *apperr.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, apperr.CodePreconditionFailed, typed.Code)
	assert.Equal(t, "notified", typed.Actual)
	assert.Len(t, f.notifier.notices, 1)

	_, err = f.svc.MarkArrived(manager, d.ID, "")
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)
}

func TestPreOrderStepsRejectAvailableDeposits(t *testing.T) {
	f := newFixture()
	d, err := f.svc.CreateDeposit(staff, newDraft(domain.DepositTypeAvailable))
	require.NoError(t, err)

	_, err = f.svc.MarkArrived(manager, d.ID, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
	_, err = f.svc.NotifyStaff(manager, d.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
	_, err = f.svc.Acknowledge(staff, d.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestNotificationFailureDoesNotUndoTransition(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("sns down")
	d := f.confirmedPreOrder(t)
	_, _, err := f.svc.PlaceManufacturerOrder(manager, d.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkArrived(manager, d.ID, "")
	require.NoError(t, err)

	d, err = f.svc.NotifyStaff(manager, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusNotified, *d.NotificationStatus)
}

func TestConfirmAndCancelOnlyMoveForward(t *testing.T) {
	f := newFixture()
	d, err := f.svc.CreateDeposit(staff, newDraft(domain.DepositTypeAvailable))
	require.NoError(t, err)

	_, err = f.svc.Confirm(manager, d.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	d, err = f.svc.Confirm(staff, d.ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(staff, d.ID)
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)

	d, err = f.svc.Cancel(manager, d.ID, "customer withdrew")
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusCancelled, d.Status)
	require.NotNil(t, d.CancelNote)
	assert.Equal(t, "customer withdrew", *d.CancelNote)

	_, err = f.svc.Confirm(staff, d.ID)
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)
	_, err = f.svc.Cancel(staff, d.ID, "")
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)
	_, err = f.svc.Cancel(evm, d.ID, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	stored, err := f.deposits.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusCancelled, stored.Status)
}

func TestCreateDepositRequiresDealerStaff(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateDeposit(manager, newDraft(domain.DepositTypeAvailable))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.CreateDeposit(context.Background(), newDraft(domain.DepositTypeAvailable))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	bad := newDraft(domain.DepositTypeAvailable)
	bad.VehiclePrice = -5
	_, err = f.svc.CreateDeposit(staff, bad)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestDeleteDeposit(t *testing.T) {
	f := newFixture()
	d, err := f.svc.CreateDeposit(staff, newDraft(domain.DepositTypeAvailable))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteDeposit(staff, d.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.DeleteDeposit(admin, d.ID))
	assert.ErrorIs(t, f.svc.DeleteDeposit(manager, d.ID), apperr.ErrNotFound)

	_, err = f.svc.GetDeposit(staff, d.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListDeposits(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateDeposit(staff, newDraft(domain.DepositTypeAvailable))
	require.NoError(t, err)
	_ = f.confirmedPreOrder(t)

	confirmed, err := f.svc.ListDeposits(manager, domain.DepositFilter{Status: domain.DepositStatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, domain.DepositTypePreOrder, confirmed[0].Type)

	_, err = f.svc.ListDeposits(manager, domain.DepositFilter{Status: "archived"})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}
