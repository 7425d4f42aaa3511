package deposit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evdealer/backend/internal/apperr"
	"evdealer/backend/internal/domain"
	"evdealer/backend/internal/store/memory"
)

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newRepo() *Repository {
	return NewRepository(memory.New(), WithClock(fixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))))
}

func draft(kind domain.DepositType) domain.DepositDraft {
	return domain.DepositDraft{
		Type:              kind,
		DealerID:          "dealer-jkt-01",
		CustomerID:        "cus-1",
		CustomerName:      "Sari Wulandari",
		CustomerPhone:     "+62811000111",
		CustomerEmail:     "sari@example.com",
		VehicleModel:      "VF 8",
		VehicleColor:      "Crimson",
		VehiclePrice:      1_250_000_000,
		DepositPercentage: 20,
	}
}

func TestCreateDerivesAmounts(t *testing.T) {
	repo := newRepo()
	d, err := repo.Create(context.Background(), draft(domain.DepositTypeAvailable), "rina")
	require.NoError(t, err)

	assert.Equal(t, int64(250_000_000), d.DepositAmount)
	assert.Equal(t, int64(1_000_000_000), d.RemainingAmount)
	assert.Equal(t, d.VehiclePrice, d.DepositAmount+d.RemainingAmount)
	assert.Equal(t, domain.DepositStatusPending, d.Status)
	assert.Nil(t, d.ManufacturerStatus)
	assert.Contains(t, d.ID, "dep-")
	assert.Equal(t, d.CreatedAt, d.LastModified)
}

func TestCreateRoundingKeepsSum(t *testing.T) {
	repo := newRepo()
	in := draft(domain.DepositTypeAvailable)
	in.VehiclePrice = 999_999_999
	in.DepositPercentage = 33

	d, err := repo.Create(context.Background(), in, "rina")
	require.NoError(t, err)
	assert.Equal(t, int64(329_999_999), d.DepositAmount)
	assert.Equal(t, in.VehiclePrice, d.DepositAmount+d.RemainingAmount)
}

func TestCreatePreOrderStartsRequested(t *testing.T) {
	repo := newRepo()
	d, err := repo.Create(context.Background(), draft(domain.DepositTypePreOrder), "rina")
	require.NoError(t, err)
	require.NotNil(t, d.ManufacturerStatus)
	assert.Equal(t, domain.ManufacturerStatusRequested, *d.ManufacturerStatus)
	assert.Nil(t, d.ManufacturerOrderID)
	assert.Nil(t, d.NotificationStatus)
}

func TestCreateRejectsInvalidDrafts(t *testing.T) {
	cases := map[string]func(*domain.DepositDraft){
		"unknown type":     func(d *domain.DepositDraft) { d.Type = "lease" },
		"missing customer": func(d *domain.DepositDraft) { d.CustomerName = "  " },
		"zero price":       func(d *domain.DepositDraft) { d.VehiclePrice = 0 },
		"percentage zero":  func(d *domain.DepositDraft) { d.DepositPercentage = 0 },
		"percentage 101":   func(d *domain.DepositDraft) { d.DepositPercentage = 101 },
		"bad email":        func(d *domain.DepositDraft) { d.CustomerEmail = "not-an-email" },
		"missing dealer":   func(d *domain.DepositDraft) { d.DealerID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := draft(domain.DepositTypeAvailable)
			mutate(&in)
			_, err := newRepo().Create(context.Background(), in, "rina")
			assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
		})
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	_, err := newRepo().Get(context.Background(), "dep-nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIDsCannotReachTheIndex(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	_, err := repo.Create(ctx, draft(domain.DepositTypeAvailable), "rina")
	require.NoError(t, err)

	for _, id := range []string{"index", "-index", "dep:index"} {
		_, err := repo.Get(ctx, id)
		assert.ErrorIs(t, err, apperr.ErrNotFound, "id=%s", id)
	}
}

func TestUpdateStampsLastModifiedAndGuardsImmutables(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	d, err := repo.Create(ctx, draft(domain.DepositTypeAvailable), "rina")
	require.NoError(t, err)

	d.Status = domain.DepositStatusConfirmed
	updated, err := repo.Update(ctx, d)
	require.NoError(t, err)
	assert.True(t, updated.LastModified.After(d.CreatedAt))

	tampered := updated
	tampered.RemainingAmount = 1
	_, err = repo.Update(ctx, tampered)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)

	tampered = updated
	tampered.Type = domain.DepositTypePreOrder
	_, err = repo.Update(ctx, tampered)
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)

	stored, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), stored.RemainingAmount)
	assert.Equal(t, domain.DepositTypeAvailable, stored.Type)
}

func TestListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	first, err := repo.Create(ctx, draft(domain.DepositTypeAvailable), "rina")
	require.NoError(t, err)
	second, err := repo.Create(ctx, draft(domain.DepositTypePreOrder), "rina")
	require.NoError(t, err)
	other := draft(domain.DepositTypeAvailable)
	other.CustomerID = "cus-2"
	_, err = repo.Create(ctx, other, "rina")
	require.NoError(t, err)

	all, err := repo.List(ctx, domain.DepositFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first.ID, all[0].ID)

	preOrders, err := repo.List(ctx, domain.DepositFilter{Type: domain.DepositTypePreOrder})
	require.NoError(t, err)
	require.Len(t, preOrders, 1)
	assert.Equal(t, second.ID, preOrders[0].ID)

	byCustomer, err := repo.List(ctx, domain.DepositFilter{CustomerID: "cus-1", Status: domain.DepositStatusPending})
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	d, err := repo.Create(ctx, draft(domain.DepositTypeAvailable), "rina")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, d.ID))
	_, err = repo.Get(ctx, d.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, d.ID), apperr.ErrNotFound)

	all, err := repo.List(ctx, domain.DepositFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}
