// Package bus publishes committed job transitions to NATS.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sumire/homestead/internal/domain"
)

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends job events on <prefix>.<event type>.
type Publisher struct {
	nc     conn
	closer func()
	prefix string
}

// Connect dials NATS and returns a Publisher that keeps reconnecting in the background.
func Connect(url, prefix string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("homestead-jobs"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	p := newPublisher(nc, prefix)
	p.closer = func() { _ = nc.Drain() }
	return p, nil
}

func newPublisher(nc conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = "jobs"
	}
	return &Publisher{nc: nc, prefix: prefix}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p.closer != nil {
		p.closer()
	}
}

// Subject returns the subject events of type t are published on.
func (p *Publisher) Subject(t domain.JobEventType) string {
	return p.prefix + "." + string(t)
}

// Publish sends evt as JSON. NATS publishes are buffered, so ctx is only checked up front.
func (p *Publisher) Publish(ctx context.Context, evt domain.JobEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.PublishJSON(p.Subject(evt.Type), evt)
}

// PublishJSON marshals v and publishes it on subject.
func (p *Publisher) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, b); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
