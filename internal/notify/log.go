package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log writes every message as a structured log line. It is always wired so
// transitions are visible without a chat integration.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Send(_ context.Context, msg Message) error {
	fields := make([]zap.Field, 0, len(msg.Fields)+2)
	fields = append(fields, zap.String("title", msg.Title), zap.Bool("healthy", msg.Healthy))
	for _, f := range msg.Fields {
		fields = append(fields, zap.String(f.Name, f.Value))
	}
	if msg.Healthy {
		l.Logger.Info("stream_transition", fields...)
	} else {
		l.Logger.Warn("stream_transition", fields...)
	}
	return nil
}
