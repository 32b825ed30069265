package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/model"
)

type statusCall struct {
	userID string
	online bool
}

type fakePresence struct {
	mu    sync.Mutex
	calls []statusCall
	err   error
}

func (f *fakePresence) Set(_ context.Context, userID string, online bool) (model.StatusUpdated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, statusCall{userID, online})
	return model.StatusUpdated{UserID: userID, After: &model.UserStatus{IsOnline: online}}, f.err
}

func startHub(t *testing.T, p presenceSetter) (*Hub, context.CancelFunc) {
	t.Helper()
	h := NewHub(p, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func newClient(h *Hub, userID, connID string) *Client {
	return &Client{hub: h, send: make(chan []byte, 16), UserID: userID, ConnID: connID, log: zap.NewNop()}
}

func stop(h *Hub, cancel context.CancelFunc) {
	cancel()
	<-h.done
}

func TestHubFirstAndLastConnection(t *testing.T) {
	p := &fakePresence{}
	h, cancel := startHub(t, p)
	phone, tablet := newClient(h, "u1", "c1"), newClient(h, "u1", "c2")

	require.True(t, send(h, h.register, phone))
	require.True(t, send(h, h.register, tablet))
	require.True(t, send(h, h.unregister, phone))
	require.True(t, send(h, h.unregister, tablet))
	stop(h, cancel)

	assert.Equal(t, []statusCall{{"u1", true}, {"u1", false}}, p.calls)
}

func TestHubStatusFrames(t *testing.T) {
	p := &fakePresence{}
	h, cancel := startHub(t, p)
	c := newClient(h, "u1", "c1")
	stranger := newClient(h, "u2", "c9")

	require.True(t, send(h, h.register, c))
	require.True(t, send(h, h.statuses, statusChange{client: c, online: false}))
	require.True(t, send(h, h.statuses, statusChange{client: stranger, online: true}))
	require.True(t, send(h, h.unregister, stranger))
	stop(h, cancel)

	// Shutdown marks every connected user offline.
	assert.Equal(t, []statusCall{{"u1", true}, {"u1", false}, {"u1", false}}, p.calls)

	ack, ok := <-c.send
	require.True(t, ok)
	var f frame
	require.NoError(t, json.Unmarshal(ack, &f))
	assert.Equal(t, frameStatus, f.Type)
	require.NotNil(t, f.IsOnline)
	assert.False(t, *f.IsOnline)

	_, ok = <-c.send
	assert.False(t, ok, "send channel closed on shutdown")
}

func TestHubSeparateUsers(t *testing.T) {
	p := &fakePresence{}
	h, cancel := startHub(t, p)

	require.True(t, send(h, h.register, newClient(h, "doctor", "c1")))
	require.True(t, send(h, h.register, newClient(h, "patient", "c2")))
	stop(h, cancel)

	assert.ElementsMatch(t, []statusCall{
		{"doctor", true}, {"patient", true},
		{"doctor", false}, {"patient", false},
	}, p.calls)
}

func TestHubKeepsRunningWhenPresenceFails(t *testing.T) {
	p := &fakePresence{err: errors.New("redis down")}
	h, cancel := startHub(t, p)
	c := newClient(h, "u1", "c1")

	require.True(t, send(h, h.register, c))
	require.True(t, send(h, h.unregister, c))
	stop(h, cancel)

	assert.Len(t, p.calls, 2)
}

func TestSendAfterStop(t *testing.T) {
	h, cancel := startHub(t, &fakePresence{})
	stop(h, cancel)

	assert.False(t, send(h, h.register, newClient(h, "u1", "c1")))
}
