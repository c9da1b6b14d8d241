package events

import (
	"context"
	"encoding/json"
	"rentflow/pkg/logger"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

type Channel string

func (c Channel) String() string {
	return string(c)
}

const (
	INSPECTION_CHANNEL Channel = "inspections"
	AMENDMENT_CHANNEL  Channel = "amendments"
)

type MessageType string

const (
	LINK_SHARED         MessageType = "inspection.link_shared"
	INSPECTION_SIGNED   MessageType = "inspection.signed"
	INSPECTION_EXPORTED MessageType = "inspection.exported"
	AMENDMENT_CREATED   MessageType = "amendment.created"
	AMENDMENT_RESPONDED MessageType = "amendment.responded"
)

type Event struct {
	ID           string         `json:"id"`
	Type         MessageType    `json:"type"`
	Channel      Channel        `json:"channel"`
	InspectionID uuid.UUID      `json:"inspectionId"`
	UserID       *uuid.UUID     `json:"userId,omitempty"`
	Data         map[string]any `json:"data"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Publisher hands events to the notification and delivery side.
type Publisher interface {
	Publish(channel Channel, event Event) error
}

type EventHandler func(event Event) error

type EventBus struct {
	client   valkey.Client
	logger   logger.Logger
	handlers map[Channel][]EventHandler
	mutex    sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(client valkey.Client) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	return &EventBus{
		client:   client,
		logger:   logger.New("EventBus"),
		handlers: make(map[Channel][]EventHandler),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// NewInspectionEvent builds an event about one inspection, attributed to
// actor when set.
func NewInspectionEvent(
	eventType MessageType,
	inspectionID uuid.UUID,
	actor uuid.UUID,
	data map[string]any,
) Event {
	event := Event{
		Type:         eventType,
		InspectionID: inspectionID,
		Data:         data,
	}
	if actor != uuid.Nil {
		event.UserID = &actor
	}
	if event.Data == nil {
		event.Data = map[string]any{}
	}
	return event
}

func prepare(channel Channel, event Event, now time.Time) Event {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now.UTC()
	}
	if event.Channel == "" {
		event.Channel = channel
	}
	return event
}

func (eb *EventBus) Publish(channel Channel, event Event) error {
	log := eb.logger.Function("Publish")

	event = prepare(channel, event, time.Now())

	eventData, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "eventID", event.ID)
	}

	ctx, cancel := context.WithTimeout(eb.ctx, 5*time.Second)
	defer cancel()

	err = eb.client.Do(ctx, eb.client.B().Publish().Channel(channel.String()).Message(string(eventData)).Build()).
		Error()
	if err != nil {
		return log.Err(
			"failed to publish event to valkey",
			err,
			"channel",
			channel,
			"eventID",
			event.ID,
		)
	}

	log.Info("Event published", "channel", channel, "eventID", event.ID, "eventType", event.Type)

	return nil
}

// Subscribe delivers every event seen on channel, including this process's
// own publications, to handler.
func (eb *EventBus) Subscribe(channel Channel, handler EventHandler) error {
	log := eb.logger.Function("Subscribe")

	eb.mutex.Lock()
	first := len(eb.handlers[channel]) == 0
	eb.handlers[channel] = append(eb.handlers[channel], handler)
	eb.mutex.Unlock()

	log.Info("Handler subscribed to channel", "channel", channel)

	if first {
		go eb.listenToChannel(channel)
	}

	return nil
}

// Audit records every notification handed to the delivery side.
func Audit(log logger.Logger) EventHandler {
	return func(event Event) error {
		log.Info(
			"Notification handed off",
			"eventType", event.Type,
			"inspectionID", event.InspectionID,
			"eventID", event.ID,
		)
		return nil
	}
}

func (eb *EventBus) notifyLocalHandlers(channel Channel, event Event) {
	log := eb.logger.Function("notifyLocalHandlers")

	eb.mutex.RLock()
	handlers := append([]EventHandler(nil), eb.handlers[channel]...)
	eb.mutex.RUnlock()

	for i, handler := range handlers {
		go func(h EventHandler, handlerIndex int) {
			if err := h(event); err != nil {
				log.Er(
					"handler failed",
					err,
					"channel",
					channel,
					"eventID",
					event.ID,
					"handlerIndex",
					handlerIndex,
				)
			}
		}(handler, i)
	}
}

func (eb *EventBus) listenToChannel(channel Channel) {
	log := eb.logger.Function("listenToChannel")

	ctx, cancel := context.WithCancel(eb.ctx)
	defer cancel()

	log.Info("Starting to listen to channel", "channel", channel)

	err := eb.client.Receive(
		ctx,
		eb.client.B().Subscribe().Channel(channel.String()).Build(),
		func(msg valkey.PubSubMessage) {
			var event Event
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				log.Er("failed to unmarshal event", err, "channel", channel)
				return
			}
			log.Debug("Received event from valkey", "channel", channel, "eventID", event.ID, "eventType", event.Type)
			eb.notifyLocalHandlers(channel, event)
		},
	)
	if err != nil && ctx.Err() == nil {
		log.Er("failed to listen to channel", err, "channel", channel)
	}
}

func (eb *EventBus) Close() error {
	log := eb.logger.Function("Close")

	eb.cancel()

	log.Info("EventBus closed")
	return nil
}
