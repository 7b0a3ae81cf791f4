package services

import (
	"context"
	"errors"
	"sync"

	"creatorfin/internal/amqp"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type recordingInvalidator struct {
	calls map[string][]int
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userID string, years ...int) {
	if r.calls == nil {
		r.calls = map[string][]int{}
	}
	r.calls[userID] = append(r.calls[userID], years...)
}

var errBoom = errors.New("boom")
