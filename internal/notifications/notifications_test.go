package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestEmailSenderBuildsMessage(t *testing.T) {
	d := &fakeDialer{}
	s := &EmailSender{from: "no-reply@tracker.com", dialer: d}

	err := s.Deliver(context.Background(), Message{To: "u@example.com", Subject: "Asset Alert: BTC - HIGH", Body: "body"})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"u@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Asset Alert: BTC - HIGH"}, d.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"no-reply@tracker.com"}, d.sent[0].GetHeader("From"))
}

func TestEmailSenderErrors(t *testing.T) {
	s := &EmailSender{from: "x@y", dialer: &fakeDialer{err: errors.New("smtp down")}}
	assert.Error(t, s.Deliver(context.Background(), Message{To: "u@example.com"}))
	assert.Error(t, s.Deliver(context.Background(), Message{}))
}

type recordingChannel struct {
	mu   sync.Mutex
	msgs []Message
	err  error
	gate chan struct{}
}

func (c *recordingChannel) Name() string { return "test" }

func (c *recordingChannel) Deliver(_ context.Context, m Message) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return c.err
}

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestDispatcherDeliversToEveryChannel(t *testing.T) {
	a := &recordingChannel{}
	b := &recordingChannel{err: errors.New("fails")}
	d := NewDispatcher(10, zerolog.Nop(), nil, a, b)
	d.Start()

	d.Notify("u@example.com", "s1", "b1")
	d.Notify("u@example.com", "s2", "b2")
	d.Close()

	assert.Equal(t, 2, a.count())
	assert.Equal(t, 2, b.count(), "a failing channel still sees every message")
	assert.Equal(t, "s1", a.msgs[0].Subject)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	gate := make(chan struct{})
	c := &recordingChannel{gate: gate}
	d := NewDispatcher(1, zerolog.Nop(), nil, c)

	// Not started: the single slot fills and the rest drop.
	d.Notify("u", "kept", "")
	d.Notify("u", "dropped", "")
	d.Notify("u", "dropped", "")

	d.Start()
	close(gate)
	d.Close()

	require.Equal(t, 1, c.count())
	assert.Equal(t, "kept", c.msgs[0].Subject)
}

func TestDispatcherNotifyAfterCloseIsSafe(t *testing.T) {
	d := NewDispatcher(1, zerolog.Nop(), nil)
	d.Start()
	d.Close()
	assert.NotPanics(t, func() { d.Notify("u", "late", "") })
	assert.NotPanics(t, d.Close)
}
