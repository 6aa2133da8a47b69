package fakes

import (
	"context"
	"errors"
	"sync"

	"github.com/dhima/proactive-scheduler/internal/notify"
)

// FakePlatform captures notification requests and can simulate failures.
// Set Gate to make Send block until the channel is closed.
type FakePlatform struct {
	mu       sync.Mutex
	Requests []notify.Request
	AuthErr  error
	FailNext bool
	FailAll  bool
	Gate     chan struct{}
}

func (p *FakePlatform) RequestAuthorization(context.Context) error {
	return p.AuthErr
}

func (p *FakePlatform) Send(_ context.Context, req notify.Request) error {
	if p.Gate != nil {
		<-p.Gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailAll {
		return errors.New("send failed")
	}
	if p.FailNext {
		p.FailNext = false
		return errors.New("send failed")
	}
	p.Requests = append(p.Requests, req)
	return nil
}

// Sent returns a copy of the captured requests.
func (p *FakePlatform) Sent() []notify.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.Request, len(p.Requests))
	copy(out, p.Requests)
	return out
}
