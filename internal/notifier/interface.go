// Package notifier sends short text alerts about desk activity.
package notifier

import "context"

// TextNotifier is the minimal sending side, so callers do not depend on a
// concrete transport.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}
