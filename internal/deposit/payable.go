package deposit

import (
	"evdealer/backend/internal/apperr"
	"evdealer/backend/internal/domain"
)

// CheckPayable reports whether the remaining amount may be collected. A
// pre-order deposit additionally needs the vehicle arrived and the arrival
// notice acknowledged by dealer staff.
func CheckPayable(d domain.Deposit) error {
	if d.Status != domain.DepositStatusConfirmed {
		return apperr.Precondition("deposit must be confirmed before final payment", domain.DepositStatusConfirmed, d.Status)
	}
	if d.Type != domain.DepositTypePreOrder {
		return nil
	}
	if d.ManufacturerStatus == nil || *d.ManufacturerStatus != domain.ManufacturerStatusArrived {
		return apperr.Precondition("pre-order vehicle has not arrived", domain.ManufacturerStatusArrived, manufacturerStatus(d))
	}
	if d.NotificationStatus == nil || *d.NotificationStatus != domain.NotificationStatusAcknowledged {
		return apperr.Precondition("arrival notice not acknowledged", domain.NotificationStatusAcknowledged, notificationStatus(d))
	}
	return nil
}

func manufacturerStatus(d domain.Deposit) string {
	if d.ManufacturerStatus == nil {
		return "null"
	}
	return string(*d.ManufacturerStatus)
}

func notificationStatus(d domain.Deposit) string {
	if d.NotificationStatus == nil {
		return "null"
	}
	return string(*d.NotificationStatus)
}

// StatusOf renders the nullable pre-order fields for error messages.
func StatusOf(d domain.Deposit) (manufacturer, notification string) {
	return manufacturerStatus(d), notificationStatus(d)
}
