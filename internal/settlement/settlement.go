package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"evdealer/backend/internal/apperr"
	"evdealer/backend/internal/authz"
	"evdealer/backend/internal/deposit"
	"evdealer/backend/internal/domain"
	"evdealer/backend/internal/logger"
	"evdealer/backend/internal/metrics"
)

type Deposits interface {
	Get(ctx context.Context, id string) (domain.Deposit, error)
	Update(ctx context.Context, d domain.Deposit) (domain.Deposit, error)
	Now() time.Time
}

type CustomerCreator interface {
	CreateCustomerFromSettlement(ctx context.Context, snapshot domain.CustomerSnapshot) (domain.Customer, error)
}

type QuotationCreator interface {
	CreateQuotation(ctx context.Context, draft domain.QuotationDraft) (domain.Quotation, error)
	FindByDeposit(ctx context.Context, depositID string) (domain.Quotation, error)
}

type InstallmentCreator interface {
	CreateInstallmentPlan(ctx context.Context, draft domain.InstallmentDraft) (domain.InstallmentPlan, error)
	FindByDeposit(ctx context.Context, depositID string) (domain.InstallmentPlan, error)
}

type Result struct {
	Deposit       domain.Deposit `json:"deposit"`
	QuotationID   string         `json:"quotation_id,omitempty"`
	CustomerID    string         `json:"customer_id,omitempty"`
	InstallmentID string         `json:"installment_id,omitempty"`
	Amortization  *Amortization  `json:"amortization,omitempty"`
}

type Option func(*Service)

func WithAnnualRate(rate float64) Option {
	return func(s *Service) {
		s.rate = rate
	}
}

func WithPaymentConfirmer(c PaymentConfirmer) Option {
	return func(s *Service) {
		s.payments = c
	}
}

// Service collects the remaining balance on a deposit and closes it.
// Downstream records are created before the deposit is marked completed, and
// each creator returns the existing record for a deposit on retry. A retry
// must ask for the same payment type and terms as the attempt that left
// those records behind.
type Service struct {
	deposits     Deposits
	customers    CustomerCreator
	quotations   QuotationCreator
	installments InstallmentCreator
	payments     PaymentConfirmer
	rate         float64
	log          *zap.Logger
}

func New(deposits Deposits, customers CustomerCreator, quotations QuotationCreator, installments InstallmentCreator, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		deposits:     deposits,
		customers:    customers,
		quotations:   quotations,
		installments: installments,
		payments:     ManualConfirmer{},
		rate:         DefaultAnnualRate,
		log:          logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QuoteInstallment previews an installment plan without touching any record.
func (s *Service) QuoteInstallment(principal int64, months int) (Amortization, error) {
	return Amortize(principal, months, s.rate)
}

func (s *Service) SettleFull(ctx context.Context, depositID string) (Result, error) {
	actor, err := authz.Require(ctx, authz.OpSettleFull)
	if err != nil {
		return Result{}, rejected(authz.OpSettleFull, err)
	}
	d, err := s.payable(ctx, depositID)
	if err != nil {
		return Result{}, rejected(authz.OpSettleFull, err)
	}
	if err := s.noInstallmentPlan(ctx, d.ID); err != nil {
		return Result{}, rejected(authz.OpSettleFull, err)
	}

	reference, err := s.payments.ConfirmPayment(ctx, PaymentRequest{
		DepositID:   d.ID,
		Amount:      d.RemainingAmount,
		PaymentType: domain.PaymentTypeFull,
	})
	if err != nil {
		return Result{}, fmt.Errorf("confirm payment for %s: %w", d.ID, err)
	}

	quotation, err := s.quotations.CreateQuotation(ctx, domain.QuotationDraft{
		DepositID:     d.ID,
		CustomerID:    d.CustomerID,
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		CustomerEmail: d.CustomerEmail,
		Vehicle:       vehicleSnapshot(d),
		Pricing: domain.Pricing{
			BasePrice:     d.VehiclePrice,
			DepositAmount: d.DepositAmount,
			FinalAmount:   d.RemainingAmount,
		},
		PaymentType: domain.PaymentTypeFull,
		Status:      domain.QuotationStatusPaid,
		CreatedBy:   actor.Name,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create quotation for %s: %w", d.ID, err)
	}
	quotationID := quotation.ID

	customer, err := s.customers.CreateCustomerFromSettlement(ctx, domain.CustomerSnapshot{
		DepositID:     d.ID,
		CustomerID:    d.CustomerID,
		Name:          d.CustomerName,
		Phone:         d.CustomerPhone,
		Email:         d.CustomerEmail,
		QuotationID:   quotationID,
		VehicleModel:  d.VehicleModel,
		PurchasedFrom: d.DealerID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create customer for %s: %w", d.ID, err)
	}
	customerID := customer.ID

	now := s.deposits.Now()
	full := domain.PaymentTypeFull
	d.Status = domain.DepositStatusCompleted
	d.FinalPaymentType = &full
	d.FinalPaymentDate = &now
	d.QuotationID = &quotationID
	d.PaymentReference = &reference

	updated, err := s.deposits.Update(ctx, d)
	if err != nil {
		return Result{}, fmt.Errorf("complete deposit %s: %w", d.ID, err)
	}
	s.completed(updated, actor, zap.String("quotation_id", quotationID), zap.String("customer_id", customerID))
	return Result{Deposit: updated, QuotationID: quotationID, CustomerID: customerID}, nil
}

// SettleInstallment finances the remaining amount over months. Unlike the full
// payment path it produces no customer or quotation record.
func (s *Service) SettleInstallment(ctx context.Context, depositID string, months int) (Result, error) {
	actor, err := authz.Require(ctx, authz.OpSettleInstallment)
	if err != nil {
		return Result{}, rejected(authz.OpSettleInstallment, err)
	}
	if !ValidTerm(months) {
		return Result{}, rejected(authz.OpSettleInstallment, termError(months))
	}
	d, err := s.payable(ctx, depositID)
	if err != nil {
		return Result{}, rejected(authz.OpSettleInstallment, err)
	}
	plan, err := Amortize(d.RemainingAmount, months, s.rate)
	if err != nil {
		return Result{}, rejected(authz.OpSettleInstallment, err)
	}
	if err := s.noQuotation(ctx, d.ID); err != nil {
		return Result{}, rejected(authz.OpSettleInstallment, err)
	}
	existing, err := s.installments.FindByDeposit(ctx, d.ID)
	switch {
	case err == nil:
		if err := s.sameTerms(existing, d.RemainingAmount, months); err != nil {
			return Result{}, rejected(authz.OpSettleInstallment, err)
		}
	case !errors.Is(err, apperr.ErrNotFound):
		return Result{}, fmt.Errorf("look up installment plan for %s: %w", d.ID, err)
	}

	reference, err := s.payments.ConfirmPayment(ctx, PaymentRequest{
		DepositID:   d.ID,
		Amount:      d.RemainingAmount,
		PaymentType: domain.PaymentTypeInstallment,
		Months:      months,
	})
	if err != nil {
		return Result{}, fmt.Errorf("confirm payment for %s: %w", d.ID, err)
	}

	stored, err := s.installments.CreateInstallmentPlan(ctx, domain.InstallmentDraft{
		DepositID:         d.ID,
		CustomerID:        d.CustomerID,
		TotalAmount:       d.RemainingAmount,
		InstallmentMonths: months,
		InterestRate:      s.rate,
		MonthlyPayment:    plan.MonthlyPayment,
		TotalPayable:      plan.TotalPayable,
		InterestAmount:    plan.InterestAmount,
		CreatedBy:         actor.Name,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create installment plan for %s: %w", d.ID, err)
	}
	// A concurrent attempt may have stored its plan after the lookup above.
	if err := s.sameTerms(stored, d.RemainingAmount, months); err != nil {
		return Result{}, rejected(authz.OpSettleInstallment, err)
	}
	installmentID := stored.ID

	now := s.deposits.Now()
	installment := domain.PaymentTypeInstallment
	d.Status = domain.DepositStatusCompleted
	d.FinalPaymentType = &installment
	d.InstallmentMonths = &months
	d.InstallmentID = &installmentID
	d.FinalPaymentDate = &now
	d.PaymentReference = &reference

	updated, err := s.deposits.Update(ctx, d)
	if err != nil {
		return Result{}, fmt.Errorf("complete deposit %s: %w", d.ID, err)
	}
	s.completed(updated, actor, zap.String("installment_id", installmentID), zap.Int("months", months))
	return Result{Deposit: updated, InstallmentID: installmentID, Amortization: &plan}, nil
}

func (s *Service) payable(ctx context.Context, depositID string) (domain.Deposit, error) {
	d, err := s.deposits.Get(ctx, depositID)
	if err != nil {
		return domain.Deposit{}, err
	}
	if err := deposit.CheckPayable(d); err != nil {
		return domain.Deposit{}, err
	}
	return d, nil
}

// noInstallmentPlan rejects a full settlement for a deposit that an earlier
// attempt already started settling by installment.
func (s *Service) noInstallmentPlan(ctx context.Context, depositID string) error {
	plan, err := s.installments.FindByDeposit(ctx, depositID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up installment plan for %s: %w", depositID, err)
	}
	return apperr.Precondition(
		fmt.Sprintf("deposit %s already has installment plan %s", depositID, plan.ID),
		domain.PaymentTypeInstallment, domain.PaymentTypeFull,
	)
}

func (s *Service) noQuotation(ctx context.Context, depositID string) error {
	q, err := s.quotations.FindByDeposit(ctx, depositID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up quotation for %s: %w", depositID, err)
	}
	return apperr.Precondition(
		fmt.Sprintf("deposit %s already has quotation %s", depositID, q.ID),
		domain.PaymentTypeFull, domain.PaymentTypeInstallment,
	)
}

func (s *Service) sameTerms(plan domain.InstallmentPlan, amount int64, months int) error {
	if plan.InstallmentMonths != months {
		return apperr.Precondition(
			fmt.Sprintf("installment plan %s was drawn for %d months", plan.ID, plan.InstallmentMonths),
			plan.InstallmentMonths, months,
		)
	}
	if plan.TotalAmount != amount || plan.InterestRate != s.rate {
		return apperr.Precondition(
			fmt.Sprintf("installment plan %s was drawn on different terms", plan.ID),
			fmt.Sprintf("%d at %g%%", plan.TotalAmount, plan.InterestRate),
			fmt.Sprintf("%d at %g%%", amount, s.rate),
		)
	}
	return nil
}

func (s *Service) completed(d domain.Deposit, actor domain.Actor, extra ...zap.Field) {
	paymentType := string(*d.FinalPaymentType)
	metrics.Settlements.WithLabelValues(paymentType).Inc()
	metrics.DepositTransitions.WithLabelValues("settle_" + paymentType).Inc()
	fields := append([]zap.Field{
		zap.String("deposit_id", d.ID),
		zap.String("actor", actor.Name),
		zap.String("role", string(actor.Role)),
		zap.String("transition", "settle_"+paymentType),
		zap.Int64("amount", d.RemainingAmount),
	}, extra...)
	s.log.Info("deposit settled", fields...)
}

func rejected(op authz.Operation, err error) error {
	if code, ok := apperr.CodeOf(err); ok {
		metrics.DepositTransitionsRejected.WithLabelValues(string(op), string(code)).Inc()
	}
	return err
}

func vehicleSnapshot(d domain.Deposit) domain.VehicleSnapshot {
	v := domain.VehicleSnapshot{VehicleModel: d.VehicleModel, VehicleColor: d.VehicleColor}
	if d.VehicleID != nil {
		v.VehicleID = *d.VehicleID
	}
	return v
}
