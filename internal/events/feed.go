// Package events republishes store change events on a watermill pub/sub so
// any number of HTTP clients can follow them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/soochol/appcfg/internal/store"
)

// Topic carries every store event.
const Topic = "appcfg.document"

const (
	eventTypeMetadataKey = "event_type"
	sessionMetadataKey   = "session_id"
)

// Feed is an in-process publish/subscribe channel for store events.
type Feed struct {
	pubsub  *gochannel.GoChannel
	logger  *slog.Logger
	bufSize int
}

// NewFeed creates a feed whose subscribers buffer up to bufSize events.
// Subscribers that fall further behind miss events.
func NewFeed(logger *slog.Logger, bufSize int) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            int64(bufSize),
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: true, // keeps events in version order
		},
		watermill.NewSlogLogger(logger),
	)
	return &Feed{pubsub: pubsub, logger: logger, bufSize: bufSize}
}

// Attach forwards every event of s to the feed. The returned function
// detaches it.
func (f *Feed) Attach(s *store.Store) func() {
	return s.Subscribe(func(e store.Event) {
		if err := f.Publish(e); err != nil {
			f.logger.Warn("publish document event failed", "type", e.Type, "version", e.Version, "err", err)
		}
	})
}

// Publish sends e to all current subscribers.
func (f *Feed) Publish(e store.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(eventTypeMetadataKey, string(e.Type))
	msg.Metadata.Set(sessionMetadataKey, e.SessionID)
	return f.pubsub.Publish(Topic, msg)
}

// Subscribe returns a channel of events published after the call. The
// channel is closed when ctx is done or the feed is closed.
func (f *Feed) Subscribe(ctx context.Context) (<-chan store.Event, error) {
	messages, err := f.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", Topic, err)
	}
	out := make(chan store.Event, f.bufSize)
	go func() {
		defer close(out)
		for msg := range messages {
			var e store.Event
			err := json.Unmarshal(msg.Payload, &e)
			msg.Ack()
			if err != nil {
				f.logger.Warn("dropping malformed document event", "uuid", msg.UUID, "err", err)
				continue
			}
			select {
			case out <- e:
			default:
				f.logger.Warn("subscriber too slow, dropping event", "version", e.Version)
			}
		}
	}()
	return out, nil
}

// Close stops the feed and closes all subscriber channels.
func (f *Feed) Close() error {
	return f.pubsub.Close()
}
