package engine

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/classmeet/sfu/internal/core"
	"github.com/pion/webrtc/v3"
)

// ConnectionParams is what a client needs to establish the ICE/DTLS path
// for one transport. Returned from transport creation over the signaling
// channel.
type ConnectionParams struct {
	ID         core.TransportID          `json:"transport_id"`
	Direction  Direction                 `json:"direction"`
	ICE        webrtc.ICEParameters      `json:"ice_parameters"`
	Candidates []webrtc.ICECandidateInit `json:"ice_candidates"`
	DTLS       webrtc.DTLSParameters     `json:"dtls_parameters"`
}

// Transport is one negotiated media path for one participant in one
// direction. Send transports carry producers, receive transports carry
// consumers; a transport never carries both.
type Transport struct {
	ID        core.TransportID
	Direction Direction

	router *Router
	params ConnectionParams

	mu        sync.Mutex
	connected bool
	closed    bool
	producers map[core.ProducerID]*Producer
	consumers map[core.ConsumerID]*Consumer
}

func newTransport(router *Router, direction Direction) *Transport {
	id := core.TransportID(uuid.New().String())

	t := &Transport{
		ID:        id,
		Direction: direction,
		router:    router,
		producers: make(map[core.ProducerID]*Producer),
		consumers: make(map[core.ConsumerID]*Consumer),
	}
	t.params = ConnectionParams{
		ID:        id,
		Direction: direction,
		ICE: webrtc.ICEParameters{
			UsernameFragment: randomToken(8),
			Password:         randomToken(24),
		},
		Candidates: []webrtc.ICECandidateInit{
			{Candidate: "candidate:1 1 udp 2130706431 0.0.0.0 0 typ host"},
		},
		DTLS: webrtc.DTLSParameters{
			Role: webrtc.DTLSRoleAuto,
			Fingerprints: []webrtc.DTLSFingerprint{
				{Algorithm: "sha-256", Value: randomFingerprint()},
			},
		},
	}

	return t
}

func (t *Transport) ConnectionParams() ConnectionParams {
	return t.params
}

// Connect completes the DTLS handshake with the client's parameters.
func (t *Transport) Connect(dtls webrtc.DTLSParameters) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	if t.connected {
		return ErrTransportConnected
	}
	if len(dtls.Fingerprints) == 0 {
		return ErrTransportUnconnected
	}

	t.connected = true

	return nil
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.connected
}

// Produce binds a new producer for one published track to this send
// transport.
func (t *Transport) Produce(kind webrtc.RTPCodecType, parameters webrtc.RTPParameters) (*Producer, error) {
	if t.Direction != DirectionSend {
		return nil, ErrWrongDirection
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTransportClosed
	}
	if !t.connected {
		return nil, ErrTransportUnconnected
	}

	producer := newProducer(t, kind, parameters)
	t.producers[producer.ID] = producer
	t.router.registerProducer(producer)

	return producer, nil
}

// Consume attaches a new consumer to the given producer. The router
// verifies capability compatibility first; the consumer starts paused and
// delivers nothing until resumed.
func (t *Transport) Consume(producerID core.ProducerID, capabilities []webrtc.RTPCodecCapability) (*Consumer, error) {
	if t.Direction != DirectionRecv {
		return nil, ErrWrongDirection
	}

	if !t.router.CanConsume(producerID, capabilities) {
		return nil, ErrCannotConsume
	}

	producer, ok := t.router.Producer(producerID)
	if !ok {
		return nil, ErrProducerNotFound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTransportClosed
	}

	consumer := newConsumer(t, producer)
	t.consumers[consumer.ID] = consumer

	return consumer, nil
}

// Close invalidates the transport and everything bound to it. New
// operations fail immediately even though the underlying teardown may
// still be completing.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.connected = false
	producers := make([]*Producer, 0, len(t.producers))
	for _, p := range t.producers {
		producers = append(producers, p)
	}
	consumers := make([]*Consumer, 0, len(t.consumers))
	for _, c := range t.consumers {
		consumers = append(consumers, c)
	}
	t.producers = make(map[core.ProducerID]*Producer)
	t.consumers = make(map[core.ConsumerID]*Consumer)
	t.mu.Unlock()

	for _, c := range consumers {
		c.Close()
	}
	for _, p := range producers {
		p.Close()
	}

	t.router.forgetTransport(t.ID)
}

func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

func (t *Transport) forgetProducer(id core.ProducerID) {
	t.mu.Lock()
	delete(t.producers, id)
	t.mu.Unlock()
}

func (t *Transport) forgetConsumer(id core.ConsumerID) {
	t.mu.Lock()
	delete(t.consumers, id)
	t.mu.Unlock()
}

func randomToken(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)

	return hex.EncodeToString(buf)
}

func randomFingerprint() string {
	digest := sha256.Sum256([]byte(uuid.New().String()))
	parts := make([]string, len(digest))
	for i, b := range digest {
		parts[i] = strings.ToUpper(hex.EncodeToString([]byte{b}))
	}

	return strings.Join(parts, ":")
}
