package kafkax

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MessageReader is the part of *kafka.Reader the consume loop needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Handler processes one message. A returned error is logged and recorded on the span;
// the message is not retried.
type Handler func(ctx context.Context, msg kafka.Message) error

func NewReader(brokers []string, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Consume reads until ctx is cancelled or the reader is closed.
func Consume(ctx context.Context, r MessageReader, logger *slog.Logger, handle Handler) error {
	tracer := otel.Tracer("kafka")
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || err == io.EOF {
				return nil
			}
			logger.Error("kafka read failed", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		meta := ExtractEventMeta(msg)
		msgCtx := ExtractTraceContext(ctx, msg)
		msgCtx, span := tracer.Start(msgCtx, "kafka.consume",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination.name", msg.Topic),
				attribute.String("messaging.message.id", meta.EventID),
			),
		)
		if err := handle(msgCtx, msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("kafka handler failed",
				"topic", msg.Topic,
				"event_id", meta.EventID,
				"event_type", meta.EventType,
				"err", err,
			)
		}
		span.End()
	}
}
