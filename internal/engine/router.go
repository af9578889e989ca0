package engine

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/classmeet/sfu/internal/core"
	"github.com/pion/webrtc/v3"
)

type RouterID string

// Router is the per-room scope inside the engine. It owns the room's
// codec set, brokers which producers a consumer may attach to, and is the
// parent of every transport created for the room.
type Router struct {
	ID     RouterID
	worker *Worker

	mu         sync.RWMutex
	closed     bool
	codecs     []webrtc.RTPCodecParameters
	transports map[core.TransportID]*Transport
	producers  map[core.ProducerID]*Producer
}

func newRouter(worker *Worker, codecs []webrtc.RTPCodecParameters) *Router {
	return &Router{
		ID:         RouterID(uuid.New().String()),
		worker:     worker,
		codecs:     codecs,
		transports: make(map[core.TransportID]*Transport),
		producers:  make(map[core.ProducerID]*Producer),
	}
}

// Capabilities returns the codec set clients must negotiate against.
func (r *Router) Capabilities() []webrtc.RTPCodecParameters {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codecs := make([]webrtc.RTPCodecParameters, len(r.codecs))
	copy(codecs, r.codecs)

	return codecs
}

func (r *Router) CreateTransport(direction Direction) (*Transport, error) {
	if !direction.Valid() {
		return nil, ErrWrongDirection
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRouterClosed
	}

	transport := newTransport(r, direction)
	r.transports[transport.ID] = transport

	return transport, nil
}

// CanConsume reports whether a consumer declaring the given receive
// capabilities may attach to the producer. The producer must exist, be
// open, and share at least one compatible codec with the capabilities.
func (r *Router) CanConsume(producerID core.ProducerID, capabilities []webrtc.RTPCodecCapability) bool {
	r.mu.RLock()
	producer, ok := r.producers[producerID]
	r.mu.RUnlock()

	if !ok || producer.Closed() {
		return false
	}

	for _, codec := range producer.Parameters().Codecs {
		if capabilitiesInclude(capabilities, codec.RTPCodecCapability) {
			return true
		}
	}

	return false
}

func (r *Router) Producer(producerID core.ProducerID) (*Producer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	producer, ok := r.producers[producerID]

	return producer, ok
}

// Close releases the router and everything under it. Called exactly once,
// when the owning room's participant set becomes empty.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	transports := make([]*Transport, 0, len(r.transports))
	for _, t := range r.transports {
		transports = append(transports, t)
	}
	r.transports = make(map[core.TransportID]*Transport)
	r.producers = make(map[core.ProducerID]*Producer)
	r.mu.Unlock()

	for _, t := range transports {
		t.Close()
	}

	r.worker.forgetRouter(r)

	log.Debug().Str("service", "engine").Str("routerID", string(r.ID)).Msg("router closed")
}

func (r *Router) registerProducer(p *Producer) {
	r.mu.Lock()
	r.producers[p.ID] = p
	r.mu.Unlock()
}

func (r *Router) forgetProducer(id core.ProducerID) {
	r.mu.Lock()
	delete(r.producers, id)
	r.mu.Unlock()
}

func (r *Router) forgetTransport(id core.TransportID) {
	r.mu.Lock()
	delete(r.transports, id)
	r.mu.Unlock()
}

// capabilitiesInclude matches mime type and clock rate, and the fmtp line
// when the capability declares one.
func capabilitiesInclude(capabilities []webrtc.RTPCodecCapability, codec webrtc.RTPCodecCapability) bool {
	for _, capability := range capabilities {
		if !strings.EqualFold(capability.MimeType, codec.MimeType) {
			continue
		}
		if capability.ClockRate != codec.ClockRate {
			continue
		}
		if capability.SDPFmtpLine == "" || strings.EqualFold(capability.SDPFmtpLine, codec.SDPFmtpLine) {
			return true
		}
	}
	return false
}
