package settlement

import (
	"context"

	"evdealer/backend/internal/domain"
)

type PaymentRequest struct {
	DepositID   string
	Amount      int64
	PaymentType domain.PaymentType
	Months      int
}

// PaymentConfirmer stands in for a payment gateway. It returns a reference
// that is stored on the completed deposit.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, req PaymentRequest) (string, error)
}

// ManualConfirmer accepts every payment as collected at the counter.
type ManualConfirmer struct{}

func (ManualConfirmer) ConfirmPayment(_ context.Context, req PaymentRequest) (string, error) {
	return "MANUAL-" + string(req.PaymentType) + "-" + req.DepositID, nil
}
