package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/homestead/internal/domain"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestPublish(t *testing.T) {
	nc := &recordingConn{}
	p := newPublisher(nc, "game.jobs")

	evt := domain.JobEvent{
		Type:    domain.JobEventCollected,
		JobID:   "job-1",
		OwnerID: 42,
		Kind:    domain.JobKindCrafting,
		At:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), evt))

	require.Len(t, nc.subjects, 1)
	assert.Equal(t, "game.jobs.collected", nc.subjects[0])

	var got domain.JobEvent
	require.NoError(t, json.Unmarshal(nc.payloads[0], &got))
	assert.Equal(t, evt, got)
}

func TestPublish_DefaultPrefix(t *testing.T) {
	p := newPublisher(&recordingConn{}, "")
	assert.Equal(t, "jobs.started", p.Subject(domain.JobEventStarted))
}

func TestPublish_Errors(t *testing.T) {
	nc := &recordingConn{err: errors.New("connection closed")}
	p := newPublisher(nc, "jobs")

	err := p.Publish(context.Background(), domain.JobEvent{Type: domain.JobEventStarted})
	assert.ErrorContains(t, err, "publish jobs.started")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, domain.JobEvent{Type: domain.JobEventStarted}), context.Canceled)
}
