package model

import "context"

// Notifier delivers a rendered notification out-of-band. Template rendering
// and transport are external concerns; the flows only depend on this contract
// and treat any returned error as a failed send.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

// Notification is the payload handed to a Notifier.
type Notification struct {
	To        string
	Subject   string
	Template  string
	Variables map[string]string
}
