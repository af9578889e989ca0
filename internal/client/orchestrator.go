// Package client is the reference signaling client: it drives the full
// join, publish and subscribe sequence against a running server and is
// what the bot command embeds.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/eventbus"
	"github.com/classmeet/sfu/internal/eventbus/rpc"
	"github.com/pion/webrtc/v3"
)

var (
	ErrNotConnected = errors.New("orchestrator is not connected")
	ErrCallTimeout  = errors.New("call timed out")
	ErrClosed       = errors.New("orchestrator is closed")
)

// JoinDeniedError carries the server's denial reason.
type JoinDeniedError struct {
	Reason string
}

func (e *JoinDeniedError) Error() string {
	return fmt.Sprintf("join denied: %s", e.Reason)
}

// RpcCallError is a correlated call answered with an error frame.
type RpcCallError struct {
	Code    int
	Message string
}

func (e *RpcCallError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type EventKind string

const (
	EventJoinRequest        EventKind = "join_request"
	EventUserJoined         EventKind = "user_joined"
	EventUserLeft           EventKind = "user_left"
	EventParticipantUpdated EventKind = "participant_updated"
	EventNewProducer        EventKind = "new_producer"
	EventProducerClosed     EventKind = "producer_closed"
	EventChatMessage        EventKind = "chat_message"
)

// Event is one server notification surfaced to the embedding app. Only
// the field matching Kind is set.
type Event struct {
	Kind        EventKind
	Peer        core.ParticipantInfo
	PeerID      core.PeerID
	Producer    eventbus.NewProducerParams
	ProducerID  core.ProducerID
	ChatMessage core.ChatMessage
}

type callResult struct {
	result json.RawMessage
	err    *eventbus.RpcError
}

type joinOutcome struct {
	approved *eventbus.JoinApprovedParams
	reason   string
}

// Options configures an Orchestrator.
type Options struct {
	// URL is the websocket endpoint, e.g. ws://localhost:3001/ws.
	URL string
	// CallTimeout bounds every correlated call.
	CallTimeout time.Duration
	// AutoSubscribe consumes every producer announced while connected.
	AutoSubscribe bool
}

// Orchestrator drives the client side of the signaling protocol: one
// websocket, a correlation table for calls, and an event stream for
// everything else.
type Orchestrator struct {
	opts Options

	conn    *websocket.Conn
	writeMu sync.Mutex

	peerID  core.PeerID
	welcome chan struct{}
	joinCh  chan joinOutcome

	mu            sync.Mutex
	nextID        int
	pending       map[string]chan callResult
	sendTransport core.TransportID
	recvTransport core.TransportID
	producers     map[string]core.ProducerID
	consumers     map[core.ProducerID]core.ConsumerID
	closed        bool

	events chan Event
	done   chan struct{}
}

func New(opts Options) *Orchestrator {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}

	return &Orchestrator{
		opts:      opts,
		welcome:   make(chan struct{}),
		joinCh:    make(chan joinOutcome, 1),
		pending:   make(map[string]chan callResult),
		producers: make(map[string]core.ProducerID),
		consumers: make(map[core.ProducerID]core.ConsumerID),
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
	}
}

// Events delivers server notifications. The channel closes when the
// connection ends.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// PeerID is the server-assigned identity, valid after Connect returns.
func (o *Orchestrator) PeerID() core.PeerID {
	return o.peerID
}

// Connect dials the server and waits for the welcome.
func (o *Orchestrator) Connect(ctx context.Context) error {
	dialer := &websocket.Dialer{HandshakeTimeout: 45 * time.Second}

	conn, resp, err := dialer.DialContext(ctx, o.opts.URL, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	o.conn = conn

	go o.readLoop()

	select {
	case <-o.welcome:
		return nil
	case <-o.done:
		return ErrClosed
	case <-ctx.Done():
		o.Close()
		return ctx.Err()
	}
}

// Join asks for admission and blocks until the verdict arrives. The
// server admits the first joiner of an empty room immediately as its
// host; everyone else waits for the host's decision.
func (o *Orchestrator) Join(ctx context.Context, roomID core.RoomID, name string) (*eventbus.JoinApprovedParams, error) {
	if err := o.send(rpc.NewJoinRpc(rpc.JoinParams{RoomID: roomID, Name: name})); err != nil {
		return nil, err
	}

	select {
	case outcome := <-o.joinCh:
		if outcome.approved == nil {
			return nil, &JoinDeniedError{Reason: outcome.reason}
		}
		return outcome.approved, nil
	case <-o.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DeclareCapabilities announces what this client can receive. Done once,
// right after admission, from the router capabilities in join_approved.
func (o *Orchestrator) DeclareCapabilities(capabilities eventbus.RouterCapabilities) error {
	codecs := make([]webrtc.RTPCodecCapability, 0, len(capabilities.Codecs))
	for _, codec := range capabilities.Codecs {
		codecs = append(codecs, codec.RTPCodecCapability)
	}

	return o.send(rpc.NewSetCapabilitiesRpc(codecs))
}

// EstablishTransports creates and connects the send and receive paths.
func (o *Orchestrator) EstablishTransports(ctx context.Context) error {
	send, err := o.createTransport(ctx, "send")
	if err != nil {
		return err
	}
	recv, err := o.createTransport(ctx, "recv")
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.sendTransport = send.ID
	o.recvTransport = recv.ID
	o.mu.Unlock()

	if err := o.connectTransport(ctx, send); err != nil {
		return err
	}

	return o.connectTransport(ctx, recv)
}

func (o *Orchestrator) createTransport(ctx context.Context, direction string) (*engineConnectionParams, error) {
	raw, err := o.call(ctx, func(id string) eventbus.Rpc {
		return rpc.NewCreateTransportRpc(id, direction)
	})
	if err != nil {
		return nil, err
	}

	params := &engineConnectionParams{}
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, err
	}

	return params, nil
}

func (o *Orchestrator) connectTransport(ctx context.Context, params *engineConnectionParams) error {
	_, err := o.call(ctx, func(id string) eventbus.Rpc {
		return rpc.NewConnectTransportRpc(id, params.ID, params.DTLS)
	})

	return err
}

// engineConnectionParams mirrors the transport creation result.
type engineConnectionParams struct {
	ID         core.TransportID          `json:"transport_id"`
	Direction  string                    `json:"direction"`
	ICE        webrtc.ICEParameters      `json:"ice_parameters"`
	Candidates []webrtc.ICECandidateInit `json:"ice_candidates"`
	DTLS       webrtc.DTLSParameters     `json:"dtls_parameters"`
}

// Publish creates a producer for one local track on the send transport.
func (o *Orchestrator) Publish(ctx context.Context, kind string, parameters webrtc.RTPParameters, screenShare bool) (core.ProducerID, error) {
	o.mu.Lock()
	transportID := o.sendTransport
	o.mu.Unlock()

	if transportID == "" {
		return "", ErrNotConnected
	}

	raw, err := o.call(ctx, func(id string) eventbus.Rpc {
		return rpc.NewProduceRpc(id, rpc.ProduceParams{
			TransportID: transportID,
			Kind:        kind,
			Parameters:  parameters,
			ScreenShare: screenShare,
		})
	})
	if err != nil {
		return "", err
	}

	var result struct {
		ProducerID core.ProducerID `json:"producer_id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", err
	}

	o.mu.Lock()
	o.producers[kind] = result.ProducerID
	o.mu.Unlock()

	return result.ProducerID, nil
}

// SubscribeAll fetches every producer already live in the room and
// consumes each one. Late joiners call this once after the transports
// are up; producers announced later arrive via new_producer.
func (o *Orchestrator) SubscribeAll(ctx context.Context) error {
	raw, err := o.call(ctx, func(id string) eventbus.Rpc {
		return rpc.NewGetProducersRpc(id)
	})
	if err != nil {
		return err
	}

	var producers []struct {
		ProducerID core.ProducerID `json:"producer_id"`
	}
	if err := json.Unmarshal(raw, &producers); err != nil {
		return err
	}

	for _, producer := range producers {
		if err := o.Subscribe(ctx, producer.ProducerID); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe consumes one producer and resumes the consumer so media
// starts flowing.
func (o *Orchestrator) Subscribe(ctx context.Context, producerID core.ProducerID) error {
	o.mu.Lock()
	transportID := o.recvTransport
	o.mu.Unlock()

	if transportID == "" {
		return ErrNotConnected
	}

	raw, err := o.call(ctx, func(id string) eventbus.Rpc {
		return rpc.NewConsumeRpc(id, transportID, producerID)
	})
	if err != nil {
		return err
	}

	var result struct {
		ConsumerID core.ConsumerID `json:"consumer_id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}

	o.mu.Lock()
	o.consumers[producerID] = result.ConsumerID
	o.mu.Unlock()

	_, err = o.call(ctx, func(id string) eventbus.Rpc {
		return rpc.NewResumeConsumerRpc(id, result.ConsumerID)
	})

	return err
}

func (o *Orchestrator) ApproveJoin(peerID core.PeerID) error {
	return o.send(rpc.NewApproveJoinRpc(peerID))
}

func (o *Orchestrator) RejectJoin(peerID core.PeerID) error {
	return o.send(rpc.NewRejectJoinRpc(peerID))
}

func (o *Orchestrator) ToggleAudio(enabled bool) error {
	return o.send(rpc.NewToggleAudioRpc(enabled))
}

func (o *Orchestrator) ToggleVideo(enabled bool) error {
	return o.send(rpc.NewToggleVideoRpc(enabled))
}

func (o *Orchestrator) StartScreenShare(parameters webrtc.RTPParameters) error {
	return o.send(rpc.NewScreenShareStartRpc(parameters))
}

func (o *Orchestrator) StopScreenShare() error {
	return o.send(rpc.NewScreenShareStopRpc())
}

func (o *Orchestrator) SendChat(text string) error {
	return o.send(rpc.NewChatMessageRpc(text))
}

// Leave announces departure and closes the connection.
func (o *Orchestrator) Leave() error {
	err := o.send(rpc.NewLeaveRpc())
	o.Close()

	return err
}

func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	if o.conn != nil {
		_ = o.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		o.conn.Close()
	}
}

func (o *Orchestrator) send(r eventbus.Rpc) error {
	if o.conn == nil {
		return ErrNotConnected
	}

	payload, err := r.ToJSON()
	if err != nil {
		return err
	}

	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	return o.conn.WriteMessage(websocket.TextMessage, payload)
}

// call sends a correlated rpc and waits for its result or error frame.
func (o *Orchestrator) call(ctx context.Context, build func(id string) eventbus.Rpc) (json.RawMessage, error) {
	o.mu.Lock()
	o.nextID++
	id := strconv.Itoa(o.nextID)
	ch := make(chan callResult, 1)
	o.pending[id] = ch
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.pending, id)
		o.mu.Unlock()
	}()

	if err := o.send(build(id)); err != nil {
		return nil, err
	}

	select {
	case result := <-ch:
		if result.err != nil {
			return nil, &RpcCallError{Code: result.err.Code, Message: result.err.Message}
		}
		return result.result, nil
	case <-time.After(o.opts.CallTimeout):
		return nil, ErrCallTimeout
	case <-o.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// serverFrame is the lax decode of anything the server sends: a
// notification (method set) or a call answer (id set, method empty).
type serverFrame struct {
	ID     string             `json:"id"`
	Method eventbus.Method    `json:"method"`
	Params json.RawMessage    `json:"params"`
	Result json.RawMessage    `json:"result"`
	Error  *eventbus.RpcError `json:"error"`
}

func (o *Orchestrator) readLoop() {
	defer close(o.done)
	defer close(o.events)

	for {
		_, message, err := o.conn.ReadMessage()
		if err != nil {
			return
		}

		frame := &serverFrame{}
		if err := json.Unmarshal(message, frame); err != nil {
			log.Error().Err(err).Str("service", "client").Msg("parse server frame")
			continue
		}

		if frame.Method == "" && frame.ID != "" {
			o.settle(frame)
			continue
		}

		o.handleNotification(frame)
	}
}

func (o *Orchestrator) settle(frame *serverFrame) {
	o.mu.Lock()
	ch, ok := o.pending[frame.ID]
	o.mu.Unlock()

	if !ok {
		// The call already timed out.
		return
	}

	ch <- callResult{result: frame.Result, err: frame.Error}
}

func (o *Orchestrator) handleNotification(frame *serverFrame) {
	switch frame.Method {
	case eventbus.WelcomeMethod:
		var params struct {
			PeerID core.PeerID `json:"peer_id"`
		}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			log.Error().Err(err).Str("service", "client").Msg("parse welcome")
			return
		}
		o.peerID = params.PeerID
		close(o.welcome)
	case eventbus.JoinApprovedMethod:
		params := &eventbus.JoinApprovedParams{}
		if err := json.Unmarshal(frame.Params, params); err != nil {
			log.Error().Err(err).Str("service", "client").Msg("parse join_approved")
			return
		}
		o.joinCh <- joinOutcome{approved: params}
	case eventbus.JoinDeniedMethod:
		params := &eventbus.JoinDeniedParams{}
		if err := json.Unmarshal(frame.Params, params); err != nil {
			log.Error().Err(err).Str("service", "client").Msg("parse join_denied")
			return
		}
		o.joinCh <- joinOutcome{reason: params.Reason}
	case eventbus.JoinRequestMethod:
		var params struct {
			Peer core.ParticipantInfo `json:"peer"`
		}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			return
		}
		o.emit(Event{Kind: EventJoinRequest, Peer: params.Peer})
	case eventbus.UserJoinedMethod:
		var params struct {
			Participant core.ParticipantInfo `json:"participant"`
		}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			return
		}
		o.emit(Event{Kind: EventUserJoined, Peer: params.Participant})
	case eventbus.UserLeftMethod:
		var params struct {
			PeerID core.PeerID `json:"peer_id"`
		}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			return
		}
		o.emit(Event{Kind: EventUserLeft, PeerID: params.PeerID})
	case eventbus.ParticipantUpdatedMethod:
		var params struct {
			Participant core.ParticipantInfo `json:"participant"`
		}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			return
		}
		o.emit(Event{Kind: EventParticipantUpdated, Peer: params.Participant})
	case eventbus.NewProducerMethod:
		params := eventbus.NewProducerParams{}
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			return
		}
		o.emit(Event{Kind: EventNewProducer, Producer: params})
		if o.opts.AutoSubscribe {
			// Subscribe from another goroutine: the call answer arrives
			// on this loop.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), o.opts.CallTimeout)
				defer cancel()
				if err := o.Subscribe(ctx, params.ProducerID); err != nil {
					log.Error().Err(err).Str("service", "client").Str("producerID", string(params.ProducerID)).Msg("auto subscribe")
				}
			}()
		}
	case eventbus.ProducerClosedMethod:
		params := &eventbus.ProducerClosedParams{}
		if err := json.Unmarshal(frame.Params, params); err != nil {
			return
		}
		o.emit(Event{Kind: EventProducerClosed, PeerID: params.PeerID, ProducerID: params.ProducerID})
	case eventbus.ChatMessageMethod:
		message := core.ChatMessage{}
		if err := json.Unmarshal(frame.Params, &message); err != nil {
			return
		}
		o.emit(Event{Kind: EventChatMessage, ChatMessage: message})
	default:
		log.Debug().Str("service", "client").Str("rpcMethod", string(frame.Method)).Msg("unhandled notification")
	}
}

func (o *Orchestrator) emit(event Event) {
	select {
	case o.events <- event:
	default:
		log.Warn().Str("service", "client").Str("kind", string(event.Kind)).Msg("event dropped, consumer too slow")
	}
}
