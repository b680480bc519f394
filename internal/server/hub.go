// Package server coordinates client registration, message fan-out, and
// connection cleanup for the hubcast broadcast system via the Hub type.
package server

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// BroadcastMessage encapsulates an encoded frame being fanned out by the hub,
// including the originating client so it can be excluded from delivery. A nil
// Sender delivers to every live connection.
type BroadcastMessage struct {
	Sender  *Client
	Payload []byte
}

// Hub owns the connection registry and drives all lifecycle transitions:
// registration with welcome/joined notices, message fan-out, and departure
// announcements. All registry mutations funnel through its run loop, so
// sessions only interact with shared state through the hub's channels.
type Hub struct {
	registry *Registry
	engine   *Broadcaster
	codec    *Codec

	register   chan *Client
	unregister chan *Client
	broadcast  chan BroadcastMessage

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates and initializes a new Hub ready to manage connections.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   NewRegistry(),
		engine:     NewBroadcaster(0),
		codec:      NewCodec(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan BroadcastMessage),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

var hub = NewHub()

// GetHub returns the global hub instance for shutdown coordination.
func GetHub() *Hub {
	return hub
}

// GetRegisterChan returns the channel used for registering new clients.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// GetBroadcastChan returns the channel used for fanning out encoded frames.
func (h *Hub) GetBroadcastChan() chan<- BroadcastMessage {
	return h.broadcast
}

// ClientCount returns the number of currently registered connections.
func (h *Hub) ClientCount() int {
	return h.registry.Count()
}

// requestUnregister hands a connection to the run loop for cleanup. During
// shutdown the loop is gone, so the send also waits on the hub context to
// avoid wedging read pumps that are winding down.
func (h *Hub) requestUnregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and message broadcasting. This method should be called in
// a separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	// Pick up the send timeout configured by main before the loop starts.
	h.engine = NewBroadcaster(currentConfig().SendTimeout)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			h.handleRegister(client)

		case client := <-h.unregister:
			if h.evict(client, "disconnected") {
				h.announceDeparture()
			}

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// handleRegister admits a new connection, starts its pumps, and announces it:
// a welcome notice to the newcomer alone, then a joined notice to everyone
// else.
func (h *Hub) handleRegister(client *Client) {
	if err := h.registry.Register(client); err != nil {
		log.Printf("Refusing client %s from %s: %v", client.id, client.addr, err)
		client.close()
		if client.conn != nil {
			_ = client.conn.Close()
		}
		return
	}

	count := h.registry.Count()
	log.Printf("Client %s registered from %s. Total clients: %d", client.id, client.addr, count)

	if client.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			client.writePump()
		}()
		go func() {
			defer h.wg.Done()
			client.readPump()
		}()
	}

	welcome := fmt.Sprintf("Welcome to the server! %d client(s) online", count)
	if payload, err := h.codec.Encode(SystemNotice(welcome)); err == nil {
		if err := h.engine.ToOne(client, payload); err != nil {
			log.Printf("Failed to deliver welcome notice to %s: %v", client.addr, err)
		}
	}

	joined := fmt.Sprintf("A new client has joined the chat. %d client(s) online", count)
	if payload, err := h.codec.Encode(SystemNotice(joined)); err == nil {
		report := h.engine.ToOthers(h.registry.Snapshot(), payload, client)
		h.evictFailed(report.Failed)
	}
}

// handleBroadcast fans an encoded frame out to every connection except the
// sender, then evicts any connection that could not take delivery.
func (h *Hub) handleBroadcast(msg BroadcastMessage) {
	snapshot := h.registry.Snapshot()
	report := h.engine.ToOthers(snapshot, msg.Payload, msg.Sender)
	log.Printf("Broadcast delivered to %d client(s), %d failed", report.Delivered, len(report.Failed))
	h.evictFailed(report.Failed)
}

// evictFailed removes connections that failed a broadcast sweep. They are not
// trusted to still be live; their own read loops will find the registry entry
// already gone and announce nothing.
func (h *Hub) evictFailed(failed []*Client) {
	for _, client := range failed {
		if h.evict(client, "send failure") {
			h.announceDeparture()
		}
	}
}

// evict removes a connection from the registry and marks it closed. It
// reports whether this call removed it, so racing cleanup paths produce
// exactly one departure announcement.
func (h *Hub) evict(client *Client, reason string) bool {
	if !h.registry.Unregister(client) {
		return false
	}
	client.close()
	log.Printf("Client %s from %s unregistered (%s). Total clients: %d",
		client.id, client.addr, reason, h.registry.Count())
	return true
}

// announceDeparture tells the remaining connections that a client has left.
// Connections that fail this sweep are evicted without a further
// announcement to keep the cascade bounded.
func (h *Hub) announceDeparture() {
	count := h.registry.Count()
	left := fmt.Sprintf("A client has left the chat. %d client(s) online", count)
	payload, err := h.codec.Encode(SystemNotice(left))
	if err != nil {
		return
	}

	report := h.engine.ToAll(h.registry.Snapshot(), payload)
	for _, client := range report.Failed {
		h.evict(client, "send failure during departure notice")
	}
}

// shutdownClients closes all active client connections.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	snapshot := h.registry.Snapshot()
	for _, client := range snapshot {
		h.registry.Unregister(client)
		client.close()
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(snapshot))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to complete
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
