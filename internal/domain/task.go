package domain

import "time"

type TaskStatus string

const (
	TaskStatusRequested TaskStatus = "requested"
	TaskStatusAccepted  TaskStatus = "accepted"
	TaskStatusInTransit TaskStatus = "in_transit"
	TaskStatusDelivered TaskStatus = "delivered"
	TaskStatusCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusRequested, TaskStatusAccepted, TaskStatusInTransit, TaskStatusDelivered, TaskStatusCancelled:
		return true
	}
	return false
}

func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDelivered || s == TaskStatusCancelled
}

// Task tracks the handoff of a manufacturer-ordered vehicle to the dealer.
type Task struct {
	ID           string     `json:"id"`
	DepositID    string     `json:"deposit_id"`
	DealerID     string     `json:"dealer_id"`
	VehicleID    *string    `json:"vehicle_id,omitempty"`
	VehicleModel string     `json:"vehicle_model"`
	VehicleColor string     `json:"vehicle_color"`
	Quantity     int        `json:"quantity"`
	Status       TaskStatus `json:"status"`
	Notes        string     `json:"notes"`

	RequestedBy string     `json:"requested_by"`
	RequestedAt time.Time  `json:"requested_at"`
	AcceptedBy  *string    `json:"accepted_by,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	InTransitBy *string    `json:"in_transit_by,omitempty"`
	InTransitAt *time.Time `json:"in_transit_at,omitempty"`
	DeliveredBy *string    `json:"delivered_by,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledBy *string    `json:"cancelled_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	LastModified time.Time `json:"last_modified"`
}

type TaskDraft struct {
	DepositID    string
	DealerID     string
	VehicleID    string
	VehicleModel string
	VehicleColor string
	Quantity     int
	RequestedBy  string
	Notes        string
}
