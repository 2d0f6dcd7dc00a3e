package quotev1

import "context"

// QuotePublisher defines the interface for publishing quote updates.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=quotev1_mock
type QuotePublisher interface {
	// PublishQuote publishes a changed quote downstream.
	PublishQuote(ctx context.Context, quote *Quote) error
	// Close closes the publisher
	Close() error
}
