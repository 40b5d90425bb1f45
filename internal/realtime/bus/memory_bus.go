package bus

import (
	"context"
	"sync"

	"github.com/yungbote/tray-validation-backend/internal/realtime"
)

// MemoryBus delivers events in-process. It records every published event,
// which tests use to assert on emitted events.
type MemoryBus struct {
	mu     sync.Mutex
	events []realtime.WorkEvent
	subs   []func(realtime.WorkEvent)
}

func NewMemoryBus() *MemoryBus { return &MemoryBus{} }

func (b *MemoryBus) Publish(ctx context.Context, ev realtime.WorkEvent) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	subs := append([]func(realtime.WorkEvent){}, b.subs...)
	b.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

func (b *MemoryBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.WorkEvent)) error {
	if onEvent == nil {
		return nil
	}
	b.mu.Lock()
	b.subs = append(b.subs, onEvent)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBus) Close() error { return nil }

func (b *MemoryBus) Events() []realtime.WorkEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.WorkEvent(nil), b.events...)
}

// Types returns the types of recorded events in publish order.
func (b *MemoryBus) Types() []realtime.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.EventType, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

type noopBus struct{}

func NewNoopBus() Bus { return noopBus{} }

func (noopBus) Publish(ctx context.Context, ev realtime.WorkEvent) error { return nil }
func (noopBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.WorkEvent)) error {
	return nil
}
func (noopBus) Close() error { return nil }
