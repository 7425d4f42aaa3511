package deposit

import (
	"context"
	"errors"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"evdealer/backend/internal/apperr"
	"evdealer/backend/internal/domain"
	"evdealer/backend/internal/store"
	"evdealer/backend/internal/xid"
)

// Kept outside the "deposit:" namespace so no deposit id can address it.
const indexKey = "deposit-index"

func recordKey(id string) string {
	return "deposit:" + id
}

type Option func(*Repository)

// WithClock overrides the time source used for createdAt and lastModified.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// Repository owns Deposit records, their ids and the lastModified stamp.
type Repository struct {
	mu      sync.Mutex
	records store.RecordStore
	now     func() time.Time
}

func NewRepository(records store.RecordStore, opts ...Option) *Repository {
	r := &Repository{
		records: records,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) Now() time.Time {
	return r.now()
}

func (r *Repository) Create(ctx context.Context, draft domain.DepositDraft, createdBy string) (domain.Deposit, error) {
	draft, err := normalizeDraft(draft)
	if err != nil {
		return domain.Deposit{}, err
	}

	now := r.now()
	depositAmount := draft.VehiclePrice * int64(draft.DepositPercentage) / 100
	d := domain.Deposit{
		ID:                   xid.New("dep"),
		Type:                 draft.Type,
		DealerID:             draft.DealerID,
		CustomerID:           draft.CustomerID,
		CustomerName:         draft.CustomerName,
		CustomerPhone:        draft.CustomerPhone,
		CustomerEmail:        draft.CustomerEmail,
		VehicleModel:         draft.VehicleModel,
		VehicleColor:         draft.VehicleColor,
		VehiclePrice:         draft.VehiclePrice,
		DepositPercentage:    draft.DepositPercentage,
		DepositAmount:        depositAmount,
		RemainingAmount:      draft.VehiclePrice - depositAmount,
		Status:               domain.DepositStatusPending,
		CreatedBy:            createdBy,
		CreatedAt:            now,
		LastModified:         now,
		DepositDate:          now,
		ExpectedDeliveryDate: draft.ExpectedDeliveryDate,
		FinalPaymentDueDate:  draft.FinalPaymentDueDate,
	}
	if draft.DepositDate != nil {
		d.DepositDate = draft.DepositDate.UTC()
	}
	if draft.VehicleID != "" {
		vehicleID := draft.VehicleID
		d.VehicleID = &vehicleID
	}
	if d.Type == domain.DepositTypePreOrder {
		requested := domain.ManufacturerStatusRequested
		d.ManufacturerStatus = &requested
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := store.PutJSON(ctx, r.records, recordKey(d.ID), d); err != nil {
		return domain.Deposit{}, err
	}
	if err := store.AppendIndex(ctx, r.records, indexKey, d.ID); err != nil {
		return domain.Deposit{}, err
	}
	return d, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Deposit, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Deposit{}, apperr.InvalidArgument("deposit id required")
	}
	var d domain.Deposit
	err := store.GetJSON(ctx, r.records, recordKey(id), &d)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Deposit{}, apperr.NotFound("deposit %s not found", id)
	}
	if err != nil {
		return domain.Deposit{}, err
	}
	return d, nil
}

// List returns deposits matching filter ordered by creation time.
func (r *Repository) List(ctx context.Context, filter domain.DepositFilter) ([]domain.Deposit, error) {
	ids, err := store.LoadIndex(ctx, r.records, indexKey)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Deposit, 0, len(ids))
	for _, id := range ids {
		var d domain.Deposit
		err := store.GetJSON(ctx, r.records, recordKey(id), &d)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Match(d) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update writes d over the stored record and stamps lastModified. Identity,
// type, creation time and the money triple cannot change.
func (r *Repository) Update(ctx context.Context, d domain.Deposit) (domain.Deposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.Get(ctx, d.ID)
	if err != nil {
		return domain.Deposit{}, err
	}
	if err := checkImmutable(current, d); err != nil {
		return domain.Deposit{}, err
	}
	if !d.Status.Valid() {
		return domain.Deposit{}, apperr.InvalidArgument("unknown deposit status %q", d.Status)
	}

	d.LastModified = r.now()
	if !d.LastModified.After(current.LastModified) {
		d.LastModified = current.LastModified.Add(time.Nanosecond)
	}
	if err := store.PutJSON(ctx, r.records, recordKey(d.ID), d); err != nil {
		return domain.Deposit{}, err
	}
	return d, nil
}

// Delete removes a deposit without consulting its status.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	if err := r.records.Delete(ctx, recordKey(id)); err != nil {
		return err
	}
	return store.RemoveFromIndex(ctx, r.records, indexKey, id)
}

func checkImmutable(current, next domain.Deposit) error {
	switch {
	case next.Type != current.Type:
		return apperr.InvalidOperation("deposit type is fixed at creation")
	case !next.CreatedAt.Equal(current.CreatedAt):
		return apperr.InvalidOperation("createdAt is immutable")
	case next.VehiclePrice != current.VehiclePrice,
		next.DepositAmount != current.DepositAmount,
		next.RemainingAmount != current.RemainingAmount:
		return apperr.InvalidOperation("deposit amounts are immutable")
	}
	return nil
}

func normalizeDraft(draft domain.DepositDraft) (domain.DepositDraft, error) {
	draft.DealerID = strings.TrimSpace(draft.DealerID)
	draft.CustomerID = strings.TrimSpace(draft.CustomerID)
	draft.CustomerName = strings.TrimSpace(draft.CustomerName)
	draft.CustomerPhone = strings.TrimSpace(draft.CustomerPhone)
	draft.CustomerEmail = strings.TrimSpace(draft.CustomerEmail)
	draft.VehicleID = strings.TrimSpace(draft.VehicleID)
	draft.VehicleModel = strings.TrimSpace(draft.VehicleModel)
	draft.VehicleColor = strings.TrimSpace(draft.VehicleColor)

	switch {
	case !draft.Type.Valid():
		return draft, apperr.InvalidArgument("deposit type must be available or pre_order")
	case draft.DealerID == "":
		return draft, apperr.InvalidArgument("dealer id required")
	case draft.CustomerID == "" || draft.CustomerName == "" || draft.CustomerPhone == "":
		return draft, apperr.InvalidArgument("customer id, name and phone are required")
	case draft.VehicleModel == "" || draft.VehicleColor == "":
		return draft, apperr.InvalidArgument("vehicle model and color are required")
	case draft.VehiclePrice < 1:
		return draft, apperr.InvalidArgument("vehicle price must be positive")
	case draft.DepositPercentage < 1 || draft.DepositPercentage > 100:
		return draft, apperr.InvalidArgument("deposit percentage must be within 1..100")
	}
	if draft.CustomerEmail != "" {
		if _, err := mail.ParseAddress(draft.CustomerEmail); err != nil {
			return draft, apperr.InvalidArgument("customer email is invalid")
		}
	}
	return draft, nil
}
