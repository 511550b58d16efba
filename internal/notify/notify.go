// Package notify delivers stream state transition messages.
package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Field is one labelled value shown with a message.
type Field struct {
	Name  string
	Value string
}

// Message describes a single stream transition.
type Message struct {
	Title   string
	Healthy bool
	Fields  []Field
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Multi fans a message out to every notifier and combines their errors.
// nil entries are skipped.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, msg))
	}
	return err
}
