package carbon

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeConn records writes; Write fails while broken is set.
type fakeConn struct {
	net.Conn

	mu     sync.Mutex
	broken bool
	closed bool
	lines  []string
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken || c.closed {
		return 0, errors.New("broken pipe")
	}
	c.lines = append(c.lines, string(p))
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// fakeDialer hands out conns in order; failures counts dial errors returned first.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	conns    []*fakeConn
	dials    int
}

func (d *fakeDialer) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection refused")
	}
	if len(d.conns) == 0 {
		return nil, errors.New("no more conns")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func newTestStream(t *testing.T, d Dialer) *stream {
	return &stream{
		addr:           "carbon:2003",
		dialer:         d,
		clock:          clock.New(),
		logger:         zaptest.NewLogger(t),
		dialTimeout:    time.Second,
		writeTimeout:   time.Second,
		reconnectDelay: time.Millisecond,
	}
}

func TestStream_ConnectStates(t *testing.T) {
	d := &fakeDialer{failures: 1, conns: []*fakeConn{{}}}
	s := newTestStream(t, d)
	assert.Equal(t, Disconnected, s.state())

	err := s.connect(context.Background())
	require.ErrorIs(t, err, ErrConnectionFailure)
	assert.Equal(t, Disconnected, s.state())

	require.NoError(t, s.connect(context.Background()))
	assert.Equal(t, Connected, s.state())

	require.NoError(t, s.close())
	assert.Equal(t, Disconnected, s.state())
	assert.Equal(t, "connected", Connected.String())
}

func TestStream_WriteRetriesSameLineAfterFailure(t *testing.T) {
	first := &fakeConn{broken: true}
	second := &fakeConn{}
	d := &fakeDialer{conns: []*fakeConn{first, second}}
	s := newTestStream(t, d)
	require.NoError(t, s.connect(context.Background()))

	require.NoError(t, s.write(context.Background(), "app.c 1 1\n"))
	require.NoError(t, s.write(context.Background(), "app.c 2 1\n"))

	assert.Empty(t, first.written())
	assert.Equal(t, []string{"app.c 1 1\n", "app.c 2 1\n"}, second.written())
	assert.Equal(t, 2, d.dialCount())
	assert.Equal(t, Connected, s.state())
}

func TestStream_WriteReconnectsWhenDisconnected(t *testing.T) {
	c := &fakeConn{}
	d := &fakeDialer{failures: 3, conns: []*fakeConn{c}}
	s := newTestStream(t, d)

	require.NoError(t, s.write(context.Background(), "x 1 1\n"))
	assert.Equal(t, []string{"x 1 1\n"}, c.written())
	assert.Equal(t, 4, d.dialCount())
}

func TestStream_ReconnectStopsOnCancel(t *testing.T) {
	mock := clock.NewMock()
	d := &fakeDialer{failures: 1 << 30}
	s := newTestStream(t, d)
	s.clock = mock
	s.reconnectDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.write(ctx, "x 1 1\n") }()

	// each reconnect attempt waits one delay on the mock clock
	for i := 0; i < 3; i++ {
		require.Eventually(t, func() bool {
			mock.Add(time.Second)
			return d.dialCount() > i
		}, time.Second, time.Millisecond)
	}
	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("write did not return after cancel")
	}
	assert.Equal(t, Disconnected, s.state())
}
