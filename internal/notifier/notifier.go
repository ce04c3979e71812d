package notifier

import (
	"context"
	"errors"
	"fmt"

	"sentinel-signals/internal/model"
)

// Message is one report ready for delivery.
type Message struct {
	Text   string
	Signal *model.Signal // nil for command replies and plain text
}

// Notifier delivers a formatted report to one channel.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
	Name() string
}

// Multi fans a message out to every notifier.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

// Notify delivers to all channels and joins their errors. A failing channel
// does not stop delivery to the others.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
