package messaging

import (
	"context"
)

// Broker defines the interface for message brokers. Publish is
// fire-and-forget: there is no acknowledgement from subscribers and
// messages published to a channel with no subscriber are dropped.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Event names for the real-time channel.
const (
	// ChannelAppointments carries workflow-wide broadcast events
	// consumed by staff dashboards.
	ChannelAppointments = "appointments:updated"

	// notificationPrefix keys per-recipient channels.
	notificationPrefix = "notification:"
)

// NotificationChannel returns the per-recipient channel name.
func NotificationChannel(recipientID string) string {
	return notificationPrefix + recipientID
}
