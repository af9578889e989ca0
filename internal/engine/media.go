package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/classmeet/sfu/internal/core"
	"github.com/pion/webrtc/v3"
)

// Producer is one published track bound to a send transport. Its identity
// is stable for its whole life: screen share swaps the underlying track
// parameters in place so attached consumers never re-subscribe.
type Producer struct {
	ID   core.ProducerID
	Kind webrtc.RTPCodecType

	transport *Transport

	mu         sync.RWMutex
	parameters webrtc.RTPParameters
	paused     bool
	closed     bool
}

func newProducer(transport *Transport, kind webrtc.RTPCodecType, parameters webrtc.RTPParameters) *Producer {
	return &Producer{
		ID:         core.ProducerID(uuid.New().String()),
		Kind:       kind,
		transport:  transport,
		parameters: parameters,
	}
}

func (p *Producer) Parameters() webrtc.RTPParameters {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.parameters
}

// Pause stops forwarding without tearing anything down. Used for mute and
// camera-off toggles.
func (p *Producer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrProducerClosed
	}
	p.paused = true

	return nil
}

func (p *Producer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrProducerClosed
	}
	p.paused = false

	return nil
}

func (p *Producer) Paused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.paused
}

// ReplaceTrack swaps the published track parameters while keeping the
// producer identity.
func (p *Producer) ReplaceTrack(parameters webrtc.RTPParameters) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrProducerClosed
	}
	p.parameters = parameters

	return nil
}

func (p *Producer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.transport.router.forgetProducer(p.ID)
	p.transport.forgetProducer(p.ID)
}

func (p *Producer) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.closed
}

// Consumer is one remotely consumed track, bound to a receive transport
// and a specific producer. Created paused: media flows only after an
// explicit resume, so a client is never fed frames before its UI is ready
// to render them.
type Consumer struct {
	ID core.ConsumerID

	transport *Transport
	producer  *Producer

	mu     sync.RWMutex
	paused bool
	closed bool
}

func newConsumer(transport *Transport, producer *Producer) *Consumer {
	return &Consumer{
		ID:        core.ConsumerID(uuid.New().String()),
		transport: transport,
		producer:  producer,
		paused:    true,
	}
}

func (c *Consumer) Producer() *Producer {
	return c.producer
}

func (c *Consumer) Kind() webrtc.RTPCodecType {
	return c.producer.Kind
}

func (c *Consumer) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	c.paused = false

	return nil
}

func (c *Consumer) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.paused
}

func (c *Consumer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.transport.forgetConsumer(c.ID)
}

func (c *Consumer) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.closed
}
