package enums

import "fmt"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeOrderPlaced      NotificationType = "order_placed"
	NotificationTypePaymentConfirmed NotificationType = "payment_confirmed"
	NotificationTypePaymentFailed    NotificationType = "payment_failed"
	NotificationTypeShipmentUpdate   NotificationType = "shipment_update"
	NotificationTypeOrderCancelled   NotificationType = "order_cancelled"
	NotificationTypeAnnouncement     NotificationType = "announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPlaced,
	NotificationTypePaymentConfirmed,
	NotificationTypePaymentFailed,
	NotificationTypeShipmentUpdate,
	NotificationTypeOrderCancelled,
	NotificationTypeAnnouncement,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
