package domain

import "time"

const QuotationStatusPaid = "paid"

type Pricing struct {
	BasePrice     int64 `json:"base_price"`
	DepositAmount int64 `json:"deposit_amount"`
	FinalAmount   int64 `json:"final_amount"`
}

type VehicleSnapshot struct {
	VehicleID    string `json:"vehicle_id,omitempty"`
	VehicleModel string `json:"vehicle_model"`
	VehicleColor string `json:"vehicle_color"`
}

type CustomerSnapshot struct {
	DepositID     string `json:"deposit_id"`
	CustomerID    string `json:"customer_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	QuotationID   string `json:"quotation_id"`
	VehicleModel  string `json:"vehicle_model"`
	PurchasedFrom string `json:"purchased_from,omitempty"`
}

type QuotationDraft struct {
	DepositID     string          `json:"deposit_id"`
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Vehicle       VehicleSnapshot `json:"vehicle"`
	Pricing       Pricing         `json:"pricing"`
	PaymentType   PaymentType     `json:"payment_type"`
	Status        string          `json:"status"`
	CreatedBy     string          `json:"created_by"`
}

type Quotation struct {
	ID string `json:"id"`
	QuotationDraft
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID string `json:"id"`
	CustomerSnapshot
	CreatedAt time.Time `json:"created_at"`
}

type InstallmentDraft struct {
	DepositID         string  `json:"deposit_id"`
	CustomerID        string  `json:"customer_id"`
	TotalAmount       int64   `json:"total_amount"`
	InstallmentMonths int     `json:"installment_months"`
	InterestRate      float64 `json:"interest_rate"`
	MonthlyPayment    float64 `json:"monthly_payment"`
	TotalPayable      float64 `json:"total_payable"`
	InterestAmount    float64 `json:"interest_amount"`
	CreatedBy         string  `json:"created_by"`
}

type InstallmentPlan struct {
	ID string `json:"id"`
	InstallmentDraft
	CreatedAt time.Time `json:"created_at"`
}
