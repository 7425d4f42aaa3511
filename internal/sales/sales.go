// Package sales keeps the customer, quotation and installment records that a
// settled deposit produces.
package sales

import (
	"context"
	"time"

	"go.uber.org/zap"

	"evdealer/backend/internal/domain"
	"evdealer/backend/internal/logger"
	"evdealer/backend/internal/store"
)

type Customers struct {
	ledger *ledger[domain.Customer]
	log    *zap.Logger
}

func NewCustomers(records store.RecordStore, log *zap.Logger) *Customers {
	return &Customers{ledger: newLedger[domain.Customer](records, "customer", "cus"), log: logger.OrNop(log)}
}

// CreateCustomerFromSettlement is idempotent per deposit: a second call
// returns the customer created by the first.
func (c *Customers) CreateCustomerFromSettlement(ctx context.Context, snapshot domain.CustomerSnapshot) (domain.Customer, error) {
	customer, created, err := c.ledger.createOnce(ctx, snapshot.DepositID, func(id string, now time.Time) domain.Customer {
		return domain.Customer{ID: id, CustomerSnapshot: snapshot, CreatedAt: now}
	})
	if err != nil {
		return domain.Customer{}, err
	}
	if created {
		c.log.Info("customer created from settlement", zap.String("deposit_id", snapshot.DepositID), zap.String("customer_id", customer.ID))
	}
	return customer, nil
}

func (c *Customers) FindByDeposit(ctx context.Context, depositID string) (domain.Customer, error) {
	return c.ledger.byDeposit(ctx, depositID)
}

type Quotations struct {
	ledger *ledger[domain.Quotation]
	log    *zap.Logger
}

func NewQuotations(records store.RecordStore, log *zap.Logger) *Quotations {
	return &Quotations{ledger: newLedger[domain.Quotation](records, "quotation", "QT"), log: logger.OrNop(log)}
}

// CreateQuotation is idempotent per deposit.
func (q *Quotations) CreateQuotation(ctx context.Context, draft domain.QuotationDraft) (domain.Quotation, error) {
	quotation, created, err := q.ledger.createOnce(ctx, draft.DepositID, func(id string, now time.Time) domain.Quotation {
		return domain.Quotation{ID: id, QuotationDraft: draft, CreatedAt: now}
	})
	if err != nil {
		return domain.Quotation{}, err
	}
	if created {
		q.log.Info("quotation created", zap.String("deposit_id", draft.DepositID), zap.String("quotation_id", quotation.ID))
	}
	return quotation, nil
}

func (q *Quotations) Get(ctx context.Context, id string) (domain.Quotation, error) {
	return q.ledger.get(ctx, id)
}

func (q *Quotations) FindByDeposit(ctx context.Context, depositID string) (domain.Quotation, error) {
	return q.ledger.byDeposit(ctx, depositID)
}

type Installments struct {
	ledger *ledger[domain.InstallmentPlan]
	log    *zap.Logger
}

func NewInstallments(records store.RecordStore, log *zap.Logger) *Installments {
	return &Installments{ledger: newLedger[domain.InstallmentPlan](records, "installment", "INS"), log: logger.OrNop(log)}
}

// CreateInstallmentPlan is idempotent per deposit. The returned plan may carry
// different terms than draft when one already existed.
func (i *Installments) CreateInstallmentPlan(ctx context.Context, draft domain.InstallmentDraft) (domain.InstallmentPlan, error) {
	plan, created, err := i.ledger.createOnce(ctx, draft.DepositID, func(id string, now time.Time) domain.InstallmentPlan {
		return domain.InstallmentPlan{ID: id, InstallmentDraft: draft, CreatedAt: now}
	})
	if err != nil {
		return domain.InstallmentPlan{}, err
	}
	if created {
		i.log.Info("installment plan created", zap.String("deposit_id", draft.DepositID), zap.String("installment_id", plan.ID))
	}
	return plan, nil
}

func (i *Installments) Get(ctx context.Context, id string) (domain.InstallmentPlan, error) {
	return i.ledger.get(ctx, id)
}

func (i *Installments) FindByDeposit(ctx context.Context, depositID string) (domain.InstallmentPlan, error) {
	return i.ledger.byDeposit(ctx, depositID)
}
