// Package notify carries outbound events (payment confirmations) to the
// outside world. Delivery is best effort: callers log failures and move on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/tembichat/internal/cache"
)

const EventPaymentCompleted = "payment.completed"

// Event is one outbound notification.
type Event struct {
	Type       string
	UserID     string
	OccurredAt time.Time
	// Data must hold JSON-compatible values (string, bool, numbers, maps, slices).
	Data map[string]any
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Encode renders ev as protobuf JSON of a google.protobuf.Struct.
func Encode(ev Event) ([]byte, error) {
	payload := map[string]any{
		"type":       ev.Type,
		"userId":     ev.UserID,
		"occurredAt": ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if ev.Data != nil {
		payload["data"] = ev.Data
	}
	st, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return protojson.Marshal(st)
}

// Decode is the inverse of Encode.
func Decode(b []byte) (Event, error) {
	var st structpb.Struct
	if err := protojson.Unmarshal(b, &st); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	m := st.AsMap()

	ev := Event{}
	ev.Type, _ = m["type"].(string)
	ev.UserID, _ = m["userId"].(string)
	if ts, ok := m["occurredAt"].(string); ok {
		ev.OccurredAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	ev.Data, _ = m["data"].(map[string]any)
	return ev, nil
}

// RedisNotifier publishes events on a Redis pub/sub channel.
type RedisNotifier struct {
	cache   *cache.RedisCache
	channel string
}

func NewRedisNotifier(c *cache.RedisCache, channel string) *RedisNotifier {
	return &RedisNotifier{cache: c, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, ev Event) error {
	b, err := Encode(ev)
	if err != nil {
		return err
	}
	if _, err := n.cache.Publish(ctx, n.channel, b); err != nil {
		return fmt.Errorf("publish %s: %w", n.channel, err)
	}
	return nil
}

// LogNotifier writes the message an operator would forward on WhatsApp.
type LogNotifier struct {
	logger *slog.Logger
	phone  string
}

func NewLogNotifier(logger *slog.Logger, whatsAppPhone string) *LogNotifier {
	return &LogNotifier{logger: logger, phone: whatsAppPhone}
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	attrs := []any{"type", ev.Type, "user_id", ev.UserID, "at", ev.OccurredAt}
	if n.phone != "" {
		attrs = append(attrs, "whatsapp_to", n.phone)
	}
	for k, v := range ev.Data {
		attrs = append(attrs, k, v)
	}
	n.logger.Info("outbound notification", attrs...)
	return nil
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
