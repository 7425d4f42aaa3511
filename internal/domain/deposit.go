package domain

import "time"

type DepositType string

const (
	DepositTypeAvailable DepositType = "available"
	DepositTypePreOrder  DepositType = "pre_order"
)

func (t DepositType) Valid() bool {
	return t == DepositTypeAvailable || t == DepositTypePreOrder
}

type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusCompleted DepositStatus = "completed"
	DepositStatusCancelled DepositStatus = "cancelled"
)

func (s DepositStatus) Valid() bool {
	switch s {
	case DepositStatusPending, DepositStatusConfirmed, DepositStatusCompleted, DepositStatusCancelled:
		return true
	}
	return false
}

func (s DepositStatus) Terminal() bool {
	return s == DepositStatusCompleted || s == DepositStatusCancelled
}

type ManufacturerStatus string

const (
	ManufacturerStatusRequested ManufacturerStatus = "requested"
	ManufacturerStatusOrdered   ManufacturerStatus = "ordered"
	ManufacturerStatusArrived   ManufacturerStatus = "arrived"
)

type NotificationStatus string

const (
	NotificationStatusNotified     NotificationStatus = "notified"
	NotificationStatusAcknowledged NotificationStatus = "acknowledged"
)

type PaymentType string

const (
	PaymentTypeFull        PaymentType = "full"
	PaymentTypeInstallment PaymentType = "installment"
)

// Deposit reserves a vehicle for a customer. Amount fields are minor currency
// units and DepositAmount+RemainingAmount always equals VehiclePrice.
type Deposit struct {
	ID       string      `json:"id"`
	Type     DepositType `json:"type"`
	DealerID string      `json:"dealer_id"`

	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`

	VehicleID    *string `json:"vehicle_id,omitempty"`
	VehicleModel string  `json:"vehicle_model"`
	VehicleColor string  `json:"vehicle_color"`
	VehiclePrice int64   `json:"vehicle_price"`

	DepositPercentage int   `json:"deposit_percentage"`
	DepositAmount     int64 `json:"deposit_amount"`
	RemainingAmount   int64 `json:"remaining_amount"`

	Status      DepositStatus `json:"status"`
	CreatedBy   string        `json:"created_by"`
	ConfirmedAt *time.Time    `json:"confirmed_at,omitempty"`
	ConfirmedBy *string       `json:"confirmed_by,omitempty"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	CancelledBy *string       `json:"cancelled_by,omitempty"`
	CancelNote  *string       `json:"cancel_note,omitempty"`

	ManufacturerOrderID   *string             `json:"manufacturer_order_id,omitempty"`
	ManufacturerStatus    *ManufacturerStatus `json:"manufacturer_status,omitempty"`
	ManufacturerOrderedAt *time.Time          `json:"manufacturer_ordered_at,omitempty"`
	ManufacturerOrderedBy *string             `json:"manufacturer_ordered_by,omitempty"`
	ManufacturerArrivedAt *time.Time          `json:"manufacturer_arrived_at,omitempty"`
	ManufacturerArrivedBy *string             `json:"manufacturer_arrived_by,omitempty"`
	NotificationStatus    *NotificationStatus `json:"notification_status,omitempty"`
	StaffNotifiedAt       *time.Time          `json:"staff_notified_at,omitempty"`
	StaffNotifiedBy       *string             `json:"staff_notified_by,omitempty"`
	StaffAcknowledgedAt   *time.Time          `json:"staff_acknowledged_at,omitempty"`
	StaffAcknowledgedBy   *string             `json:"staff_acknowledged_by,omitempty"`

	FinalPaymentType  *PaymentType `json:"final_payment_type,omitempty"`
	InstallmentMonths *int         `json:"installment_months,omitempty"`
	InstallmentID     *string      `json:"installment_id,omitempty"`
	FinalPaymentDate  *time.Time   `json:"final_payment_date,omitempty"`
	QuotationID       *string      `json:"quotation_id,omitempty"`
	PaymentReference  *string      `json:"payment_reference,omitempty"`

	CreatedAt            time.Time  `json:"created_at"`
	LastModified         time.Time  `json:"last_modified"`
	DepositDate          time.Time  `json:"deposit_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date,omitempty"`
	FinalPaymentDueDate  *time.Time `json:"final_payment_due_date,omitempty"`
}

// DepositDraft is the closed set of caller-supplied fields accepted when a
// deposit is created. Everything else is derived.
type DepositDraft struct {
	Type                 DepositType `json:"type"`
	DealerID             string      `json:"dealer_id"`
	CustomerID           string      `json:"customer_id"`
	CustomerName         string      `json:"customer_name"`
	CustomerPhone        string      `json:"customer_phone"`
	CustomerEmail        string      `json:"customer_email,omitempty"`
	VehicleID            string      `json:"vehicle_id,omitempty"`
	VehicleModel         string      `json:"vehicle_model"`
	VehicleColor         string      `json:"vehicle_color"`
	VehiclePrice         int64       `json:"vehicle_price"`
	DepositPercentage    int         `json:"deposit_percentage"`
	DepositDate          *time.Time  `json:"deposit_date,omitempty"`
	ExpectedDeliveryDate *time.Time  `json:"expected_delivery_date,omitempty"`
	FinalPaymentDueDate  *time.Time  `json:"final_payment_due_date,omitempty"`
}

type DepositFilter struct {
	Status     DepositStatus
	Type       DepositType
	CustomerID string
	DealerID   string
}

func (f DepositFilter) Match(d Deposit) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	if f.CustomerID != "" && d.CustomerID != f.CustomerID {
		return false
	}
	if f.DealerID != "" && d.DealerID != f.DealerID {
		return false
	}
	return true
}

// Payability is the answer to "may the remaining amount be collected now".
type Payability struct {
	DepositID string `json:"deposit_id"`
	Payable   bool   `json:"payable"`
	Reason    string `json:"reason,omitempty"`
}
