// Package server implements the fan-out broadcast engine. A broadcast sweep
// attempts delivery to every connection in a registry snapshot independently;
// one dead peer never aborts delivery to the rest.
package server

import (
	"errors"
	"time"
)

// Delivery errors reported per connection by the Broadcaster.
var (
	ErrClientClosed = errors.New("client connection closed")
	ErrSendTimeout  = errors.New("send timed out")
)

// DeliveryReport records the outcome of one broadcast sweep. Failed lists the
// connections that did not accept the payload; the caller is expected to
// evict them rather than trust them to still be live.
type DeliveryReport struct {
	Delivered int
	Failed    []*Client
}

// Ok reports whether every attempted delivery succeeded.
func (r DeliveryReport) Ok() bool {
	return len(r.Failed) == 0
}

// Broadcaster delivers encoded frames to snapshots of the registry. It never
// touches the live registry, so registrations racing a sweep cannot corrupt
// the iteration.
type Broadcaster struct {
	sendTimeout time.Duration
}

// NewBroadcaster creates a Broadcaster whose per-connection sends block for
// at most sendTimeout before the connection is counted as failed.
func NewBroadcaster(sendTimeout time.Duration) *Broadcaster {
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Broadcaster{sendTimeout: sendTimeout}
}

// ToAll attempts delivery of payload to every connection in the snapshot.
func (b *Broadcaster) ToAll(snapshot []*Client, payload []byte) DeliveryReport {
	return b.sweep(snapshot, payload, nil)
}

// ToOthers attempts delivery to every connection in the snapshot except the
// excluded one, typically the sender of the message being relayed.
func (b *Broadcaster) ToOthers(snapshot []*Client, payload []byte, exclude *Client) DeliveryReport {
	return b.sweep(snapshot, payload, exclude)
}

func (b *Broadcaster) sweep(snapshot []*Client, payload []byte, exclude *Client) DeliveryReport {
	var report DeliveryReport
	for _, c := range snapshot {
		if c == exclude {
			continue
		}
		if err := b.ToOne(c, payload); err != nil {
			report.Failed = append(report.Failed, c)
			continue
		}
		report.Delivered++
	}
	return report
}

// ToOne queues payload on a single connection's send channel. The fast path
// is non-blocking; if the buffer is full the send waits up to the configured
// timeout before the connection is declared failed. A connection that closed
// mid-wait fails immediately instead of stalling the sweep.
func (b *Broadcaster) ToOne(c *Client, payload []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
	}

	timer := time.NewTimer(b.sendTimeout)
	defer timer.Stop()

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}
