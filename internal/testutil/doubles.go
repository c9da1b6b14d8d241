package testutil

import (
	"context"
	"errors"
	"rentflow/internal/events"
	"rentflow/internal/models"
	"sync"

	"github.com/google/uuid"
)

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

func (p *Publisher) Publish(channel events.Channel, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	if event.Channel == "" {
		event.Channel = channel
	}
	p.events = append(p.events, event)
	return nil
}

func (p *Publisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// Count returns how many events of eventType were published.
func (p *Publisher) Count(eventType events.MessageType) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, event := range p.events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

// Locker is an in-process export lock.
type Locker struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

func (l *Locker) Acquire(ctx context.Context, inspectionID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held == nil {
		l.held = make(map[uuid.UUID]bool)
	}
	if l.held[inspectionID] {
		return false, nil
	}
	l.held[inspectionID] = true
	return true, nil
}

func (l *Locker) Release(ctx context.Context, inspectionID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, inspectionID)
	return nil
}

// ErrExporterDown is returned by an Exporter told to fail.
var ErrExporterDown = errors.New("exporter unavailable")

// Exporter returns a stable memory:// reference per inspection, or fails
// while Fail is set.
type Exporter struct {
	mu    sync.Mutex
	Fail  bool
	calls map[uuid.UUID]int
}

func (e *Exporter) Export(ctx context.Context, inspection *models.Inspection) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.calls == nil {
		e.calls = make(map[uuid.UUID]int)
	}
	e.calls[inspection.ID]++
	if e.Fail {
		return "", ErrExporterDown
	}
	return "memory://inspections/" + inspection.ID.String(), nil
}

func (e *Exporter) SetFail(fail bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Fail = fail
}

func (e *Exporter) Calls(inspectionID uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[inspectionID]
}
