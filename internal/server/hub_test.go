package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, cfg *Config) *Hub {
	t.Helper()

	SetConfig(cfg)
	t.Cleanup(func() { SetConfig(nil) })

	h := NewHub()
	go h.Run()
	t.Cleanup(func() { _ = h.Shutdown(2 * time.Second) })
	return h
}

func receiveMessage(t *testing.T, c *Client) Message {
	t.Helper()

	select {
	case payload := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
		return Message{}
	}
}

func expectNoMessage(t *testing.T, c *Client, wait time.Duration) {
	t.Helper()

	select {
	case payload := <-c.send:
		t.Fatalf("expected no message, got %s", payload)
	case <-time.After(wait):
	}
}

func TestHubChannels(t *testing.T) {
	h := NewHub()

	assert.NotNil(t, h.GetRegisterChan())
	assert.NotNil(t, h.GetUnregisterChan())
	assert.NotNil(t, h.GetBroadcastChan())
}

func TestHubRegisterSendsWelcome(t *testing.T) {
	h := startHub(t, nil)

	a := newTestClient()
	h.GetRegisterChan() <- a

	welcome := receiveMessage(t, a)
	assert.Equal(t, TypeSystem, welcome.Type)
	assert.Contains(t, welcome.Content, "Welcome")
	assert.Contains(t, welcome.Content, "1 client(s) online")
	assert.NotEmpty(t, welcome.Timestamp)
	assert.Equal(t, 1, h.ClientCount())
}

func TestHubJoinNotices(t *testing.T) {
	h := startHub(t, nil)

	a := newTestClient()
	h.GetRegisterChan() <- a
	receiveMessage(t, a)

	b := newTestClient()
	h.GetRegisterChan() <- b

	welcome := receiveMessage(t, b)
	assert.Contains(t, welcome.Content, "Welcome")
	assert.Contains(t, welcome.Content, "2 client(s) online")

	joined := receiveMessage(t, a)
	assert.Equal(t, TypeSystem, joined.Type)
	assert.Contains(t, joined.Content, "joined")
	assert.Contains(t, joined.Content, "2 client(s) online")
}

func TestHubBroadcastExcludesSender(t *testing.T) {
	h := startHub(t, nil)

	a := newTestClient()
	b := newTestClient()
	c := newTestClient()
	for _, client := range []*Client{a, b, c} {
		h.GetRegisterChan() <- client
	}

	// Clear welcome and join notices before the interesting part.
	receiveMessage(t, a) // welcome
	receiveMessage(t, a) // b joined
	receiveMessage(t, a) // c joined
	receiveMessage(t, b) // welcome
	receiveMessage(t, b) // c joined
	receiveMessage(t, c) // welcome

	payload, err := h.codec.Encode(Message{Type: TypeMessage, Sender: "A", Content: "hi"})
	require.NoError(t, err)
	h.GetBroadcastChan() <- BroadcastMessage{Sender: a, Payload: payload}

	for _, receiver := range []*Client{b, c} {
		msg := receiveMessage(t, receiver)
		assert.Equal(t, TypeMessage, msg.Type)
		assert.Equal(t, "A", msg.Sender)
		assert.Equal(t, "hi", msg.Content)
		assert.NotEmpty(t, msg.Timestamp)
	}

	expectNoMessage(t, a, 200*time.Millisecond)
}

func TestHubUnregisterAnnouncesDepartureOnce(t *testing.T) {
	h := startHub(t, nil)

	a := newTestClient()
	b := newTestClient()
	h.GetRegisterChan() <- a
	receiveMessage(t, a)
	h.GetRegisterChan() <- b
	receiveMessage(t, a)
	receiveMessage(t, b)

	h.GetUnregisterChan() <- b

	left := receiveMessage(t, a)
	assert.Equal(t, TypeSystem, left.Type)
	assert.Contains(t, left.Content, "left")
	assert.Contains(t, left.Content, "1 client(s) online")
	assert.Equal(t, 1, h.ClientCount())

	select {
	case <-b.done:
	case <-time.After(time.Second):
		t.Fatal("departed client was not marked closed")
	}

	// Racing cleanup paths may unregister again; no second notice fires.
	h.GetUnregisterChan() <- b
	expectNoMessage(t, a, 200*time.Millisecond)
	assert.Equal(t, 1, h.ClientCount())
}

func TestHubEvictsConnectionThatFailsDelivery(t *testing.T) {
	h := startHub(t, &Config{SendTimeout: 50 * time.Millisecond})

	a := newTestClient()
	h.GetRegisterChan() <- a
	receiveMessage(t, a)

	dead := deadClient()
	h.GetRegisterChan() <- dead
	receiveMessage(t, a) // dead joined

	payload, err := h.codec.Encode(Message{Type: TypeMessage, Sender: "A", Content: "hi"})
	require.NoError(t, err)
	h.GetBroadcastChan() <- BroadcastMessage{Sender: a, Payload: payload}

	left := receiveMessage(t, a)
	assert.Equal(t, TypeSystem, left.Type)
	assert.Contains(t, left.Content, "left")

	require.Eventually(t, func() bool { return h.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	select {
	case <-dead.done:
	case <-time.After(time.Second):
		t.Fatal("evicted client was not marked closed")
	}
}

func TestHubRefusesDuplicateRegistration(t *testing.T) {
	h := startHub(t, nil)

	a := newTestClient()
	h.GetRegisterChan() <- a
	receiveMessage(t, a)

	h.GetRegisterChan() <- a

	require.Eventually(t, func() bool {
		select {
		case <-a.done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, h.ClientCount())
}

func TestHubNilRegistrationIsIgnored(t *testing.T) {
	h := startHub(t, nil)

	h.GetRegisterChan() <- nil

	a := newTestClient()
	h.GetRegisterChan() <- a
	receiveMessage(t, a)
	assert.Equal(t, 1, h.ClientCount())
}

func TestHubShutdown(t *testing.T) {
	SetConfig(nil)
	h := NewHub()

	hubStopped := make(chan struct{})
	go func() {
		h.Run()
		close(hubStopped)
	}()

	a := newTestClient()
	h.GetRegisterChan() <- a
	receiveMessage(t, a)

	err := h.Shutdown(2 * time.Second)
	assert.NoError(t, err)

	select {
	case <-hubStopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after shutdown")
	}

	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("client was not closed during shutdown")
	}
}
