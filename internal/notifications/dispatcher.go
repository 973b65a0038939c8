package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kjannette/trahn-tracker/internal/metrics"
)

const deliverTimeout = 45 * time.Second

// Dispatcher queues messages and delivers them on a single worker so the
// calling job never waits on SMTP or chat latency. A full queue drops the message.
type Dispatcher struct {
	queue    chan Message
	channels []Channel
	log      zerolog.Logger
	metrics  *metrics.Recorder

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(size int, log zerolog.Logger, rec *metrics.Recorder, channels ...Channel) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		queue:    make(chan Message, size),
		channels: channels,
		log:      log,
		metrics:  rec,
		done:     make(chan struct{}),
	}
}

// Start runs the worker until Close drains the queue.
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for m := range d.queue {
			d.deliver(m)
		}
	}()
}

func (d *Dispatcher) Notify(to, subject, body string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("subject", subject).Msg("dispatcher closed, notification dropped")
		return
	}
	select {
	case d.queue <- Message{To: to, Subject: subject, Body: body}:
	default:
		d.log.Warn().Str("to", to).Str("subject", subject).Msg("notification queue full, dropped")
		for _, c := range d.channels {
			d.metrics.Dropped(c.Name())
		}
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) deliver(m Message) {
	for _, c := range d.channels {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		err := c.Deliver(ctx, m)
		cancel()
		d.metrics.Notification(c.Name(), err)
		if err != nil {
			d.log.Error().Err(err).Str("channel", c.Name()).Str("subject", m.Subject).Msg("notification failed")
		}
	}
}
