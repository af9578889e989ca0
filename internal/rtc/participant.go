package rtc

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/engine"
	"github.com/pion/webrtc/v3"
)

// Participant is one admitted peer's server-side state: identity, media
// flags, declared receive capabilities and every engine object created on
// its behalf.
type Participant struct {
	ID     core.PeerID
	Name   string
	Avatar string
	IsHost bool

	mu           sync.RWMutex
	muted        bool
	videoOn      bool
	screenShared bool
	capabilities []webrtc.RTPCodecCapability
	transports   map[core.TransportID]*engine.Transport
	producers    map[core.ProducerID]*engine.Producer
	consumers    map[core.ConsumerID]*engine.Consumer
	closed       bool
}

func NewParticipant(peerID core.PeerID, name string, avatar string, isHost bool) *Participant {
	return &Participant{
		ID:         peerID,
		Name:       name,
		Avatar:     avatar,
		IsHost:     isHost,
		muted:      true,
		transports: make(map[core.TransportID]*engine.Transport),
		producers:  make(map[core.ProducerID]*engine.Producer),
		consumers:  make(map[core.ConsumerID]*engine.Consumer),
	}
}

func (p *Participant) Info() core.ParticipantInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return core.ParticipantInfo{
		ID:             p.ID,
		Name:           p.Name,
		Avatar:         p.Avatar,
		IsHost:         p.IsHost,
		IsMuted:        p.muted,
		IsVideoOn:      p.videoOn,
		IsScreenShared: p.screenShared,
		Online:         !p.closed,
	}
}

// SetCapabilities stores what the client declared it can receive. Must
// happen before the first consume.
func (p *Participant) SetCapabilities(codecs []webrtc.RTPCodecCapability) {
	p.mu.Lock()
	p.capabilities = codecs
	p.mu.Unlock()
}

func (p *Participant) Capabilities() []webrtc.RTPCodecCapability {
	p.mu.RLock()
	defer p.mu.RUnlock()

	codecs := make([]webrtc.RTPCodecCapability, len(p.capabilities))
	copy(codecs, p.capabilities)

	return codecs
}

func (p *Participant) AddTransport(t *engine.Transport) {
	p.mu.Lock()
	p.transports[t.ID] = t
	p.mu.Unlock()
}

func (p *Participant) Transport(id core.TransportID) (*engine.Transport, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, ok := p.transports[id]

	return t, ok
}

func (p *Participant) AddProducer(producer *engine.Producer) {
	p.mu.Lock()
	p.producers[producer.ID] = producer
	p.mu.Unlock()
}

func (p *Participant) Producer(id core.ProducerID) (*engine.Producer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	producer, ok := p.producers[id]

	return producer, ok
}

// ProducerByKind returns the participant's open producer of the given
// kind, if any. A participant publishes at most one track per kind.
func (p *Participant) ProducerByKind(kind webrtc.RTPCodecType) (*engine.Producer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, producer := range p.producers {
		if producer.Kind == kind && !producer.Closed() {
			return producer, true
		}
	}

	return nil, false
}

func (p *Participant) Producers() []*engine.Producer {
	p.mu.RLock()
	defer p.mu.RUnlock()

	producers := make([]*engine.Producer, 0, len(p.producers))
	for _, producer := range p.producers {
		producers = append(producers, producer)
	}

	return producers
}

func (p *Participant) AddConsumer(consumer *engine.Consumer) {
	p.mu.Lock()
	p.consumers[consumer.ID] = consumer
	p.mu.Unlock()
}

func (p *Participant) Consumer(id core.ConsumerID) (*engine.Consumer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	consumer, ok := p.consumers[id]

	return consumer, ok
}

func (p *Participant) SetMuted(muted bool) {
	p.mu.Lock()
	p.muted = muted
	p.mu.Unlock()
}

func (p *Participant) SetVideoOn(on bool) {
	p.mu.Lock()
	p.videoOn = on
	p.mu.Unlock()
}

func (p *Participant) SetScreenShared(shared bool) {
	p.mu.Lock()
	p.screenShared = shared
	p.mu.Unlock()
}

func (p *Participant) ScreenShared() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.screenShared
}

// Close tears down everything the participant created in the engine.
// Closing the transports cascades into their producers and consumers, so
// a second call finds nothing left to do.
func (p *Participant) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	transports := make([]*engine.Transport, 0, len(p.transports))
	for _, t := range p.transports {
		transports = append(transports, t)
	}
	p.transports = make(map[core.TransportID]*engine.Transport)
	p.producers = make(map[core.ProducerID]*engine.Producer)
	p.consumers = make(map[core.ConsumerID]*engine.Consumer)
	p.mu.Unlock()

	for _, t := range transports {
		t.Close()
	}

	log.Debug().Str("service", "participant").Str("ID", string(p.ID)).Msg("close participant")
}

func (p *Participant) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.closed
}
