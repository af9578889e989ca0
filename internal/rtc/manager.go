package rtc

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/engine"
	"github.com/classmeet/sfu/internal/eventbus"
	"github.com/classmeet/sfu/internal/eventbus/rpc"
	"github.com/classmeet/sfu/internal/telemetry"
	"github.com/pion/webrtc/v3"
)

const (
	codeServerError   = -32000
	codeInvalidParams = -32602
)

var (
	errNotInRoom     = errors.New("peer is not in a room")
	errNotHost       = errors.New("peer is not the host")
	errUnknownKind   = errors.New("unknown media kind")
	errRoomMismatch  = errors.New("pending join belongs to another room")
	errNoSuchEntity  = errors.New("no such entity")
	errAlreadyInRoom = errors.New("peer is already in a room")
)

// Manager connects the signaling surface to room and engine state. Every
// client request dispatched by the eventbus router lands in one of its
// handlers.
type Manager struct {
	registry         *RoomsRegistry
	admission        *AdmissionController
	sink             eventbus.Publisher
	meetings         core.MeetingsStorer
	headerExtensions []string
}

func NewManager(
	registry *RoomsRegistry,
	admission *AdmissionController,
	sink eventbus.Publisher,
	meetings core.MeetingsStorer,
	headerExtensions []string,
) *Manager {
	return &Manager{
		registry:         registry,
		admission:        admission,
		sink:             sink,
		meetings:         meetings,
		headerExtensions: headerExtensions,
	}
}

// Register binds every signaling method to its handler.
func (m *Manager) Register(router *eventbus.Router) {
	router.OnJoin(m.HandleJoin)
	router.OnApproveJoin(m.HandleApproveJoin)
	router.OnRejectJoin(m.HandleRejectJoin)
	router.OnSetCapabilities(m.HandleSetCapabilities)
	router.OnCreateTransport(m.HandleCreateTransport)
	router.OnConnectTransport(m.HandleConnectTransport)
	router.OnProduce(m.HandleProduce)
	router.OnConsume(m.HandleConsume)
	router.OnResumeConsumer(m.HandleResumeConsumer)
	router.OnGetProducers(m.HandleGetProducers)
	router.OnToggleAudio(m.HandleToggleAudio)
	router.OnToggleVideo(m.HandleToggleVideo)
	router.OnScreenShareStart(m.HandleScreenShareStart)
	router.OnScreenShareStop(m.HandleScreenShareStop)
	router.OnChatMessage(m.HandleChatMessage)
	router.OnLeave(m.HandleLeave)

	m.admission.OnExpire(m.handleJoinExpired)
}

// HandleJoin admits the first joiner of an empty room immediately as its
// host and parks everyone else behind the host's verdict. Host status is
// derived here, never taken from the client.
func (m *Manager) HandleJoin(peerID core.PeerID, params rpc.JoinParams) error {
	if _, _, ok := m.registry.FindPeer(peerID); ok {
		return errAlreadyInRoom
	}

	room, ok := m.registry.Get(params.RoomID)
	isHost := !ok || room.Empty()

	participant := NewParticipant(peerID, params.Name, params.Avatar, isHost)

	if isHost {
		return m.joinAsHost(params.RoomID, participant)
	}

	return m.joinAsGuest(params.RoomID, participant)
}

func (m *Manager) joinAsHost(roomID core.RoomID, participant *Participant) error {
	room, err := m.registry.GetOrCreate(roomID)
	if err != nil {
		telemetry.ServiceOperationCounter.WithLabelValues("join", "error", "create_room").Add(1)
		return err
	}

	if err := room.AddParticipant(participant); err != nil {
		m.registry.RemoveIfEmpty(roomID)
		return err
	}
	m.registry.BindPeer(participant.ID, roomID)

	if m.meetings != nil {
		if err := m.meetings.MeetingStarted(roomID, participant.Name); err != nil {
			log.Error().Err(err).Str("service", "manager").Str("roomID", string(roomID)).Msg("record meeting start")
		}
	}

	telemetry.ServiceOperationCounter.WithLabelValues("join", "success", "").Add(1)

	return m.sendJoinApproved(room, participant.ID)
}

func (m *Manager) joinAsGuest(roomID core.RoomID, participant *Participant) error {
	room, ok := m.registry.Get(roomID)
	if !ok {
		return m.sink.PublishClient(participant.ID, eventbus.NewJoinDeniedRpc(roomID, DenyReasonNoHost))
	}

	host, ok := room.Host()
	if !ok {
		return m.sink.PublishClient(participant.ID, eventbus.NewJoinDeniedRpc(roomID, DenyReasonNoHost))
	}

	if room.maxParticipants > 0 && room.Size() >= room.maxParticipants {
		return m.sink.PublishClient(participant.ID, eventbus.NewJoinDeniedRpc(roomID, DenyReasonRoomFull))
	}

	m.admission.Request(roomID, participant)

	return m.sink.PublishClient(host.ID, eventbus.NewJoinRequestRpc(participant.Info()))
}

func (m *Manager) HandleApproveJoin(hostID core.PeerID, peerID core.PeerID) error {
	room, host, ok := m.registry.FindPeer(hostID)
	if !ok {
		return errNotInRoom
	}
	if !host.IsHost {
		return errNotHost
	}

	roomID, participant, ok := m.admission.Take(peerID)
	if !ok {
		// Approval raced the peer's disconnect or the TTL sweep.
		return nil
	}
	if roomID != room.ID {
		return errRoomMismatch
	}

	if err := room.AddParticipant(participant); err != nil {
		if errors.Is(err, ErrRoomFull) {
			return m.sink.PublishClient(peerID, eventbus.NewJoinDeniedRpc(roomID, DenyReasonRoomFull))
		}
		return err
	}
	m.registry.BindPeer(peerID, roomID)

	m.broadcast(room, eventbus.NewUserJoinedRpc(participant.Info()), peerID)

	telemetry.ServiceOperationCounter.WithLabelValues("join", "success", "").Add(1)

	return m.sendJoinApproved(room, peerID)
}

func (m *Manager) HandleRejectJoin(hostID core.PeerID, peerID core.PeerID) error {
	room, host, ok := m.registry.FindPeer(hostID)
	if !ok {
		return errNotInRoom
	}
	if !host.IsHost {
		return errNotHost
	}

	roomID, _, ok := m.admission.Take(peerID)
	if !ok {
		return nil
	}
	if roomID != room.ID {
		return errRoomMismatch
	}

	telemetry.ServiceOperationCounter.WithLabelValues("join", "rejected", "").Add(1)

	return m.sink.PublishClient(peerID, eventbus.NewJoinDeniedRpc(roomID, DenyReasonRejected))
}

func (m *Manager) handleJoinExpired(peerID core.PeerID, roomID core.RoomID) {
	if err := m.sink.PublishClient(peerID, eventbus.NewJoinDeniedRpc(roomID, DenyReasonExpired)); err != nil {
		log.Error().Err(err).Str("service", "manager").Str("peerID", string(peerID)).Msg("send expiry denial")
	}
}

func (m *Manager) HandleSetCapabilities(peerID core.PeerID, codecs []webrtc.RTPCodecCapability) error {
	_, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return errNotInRoom
	}

	participant.SetCapabilities(codecs)

	return nil
}

func (m *Manager) HandleCreateTransport(peerID core.PeerID, correlationID string, direction string) error {
	room, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return m.respondError(peerID, correlationID, codeServerError, errNotInRoom)
	}

	transport, err := room.Router().CreateTransport(engine.Direction(direction))
	if err != nil {
		telemetry.ServiceOperationCounter.WithLabelValues("create_transport", "error", "engine").Add(1)
		return m.respondError(peerID, correlationID, codeInvalidParams, err)
	}
	participant.AddTransport(transport)

	telemetry.ServiceOperationCounter.WithLabelValues("create_transport", "success", "").Add(1)

	return m.respond(peerID, correlationID, transport.ConnectionParams())
}

func (m *Manager) HandleConnectTransport(peerID core.PeerID, correlationID string, params rpc.ConnectTransportParams) error {
	_, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return m.respondError(peerID, correlationID, codeServerError, errNotInRoom)
	}

	transport, ok := participant.Transport(params.TransportID)
	if !ok {
		return m.respondError(peerID, correlationID, codeInvalidParams, errNoSuchEntity)
	}

	if err := transport.Connect(params.DTLS); err != nil {
		telemetry.ServiceOperationCounter.WithLabelValues("connect_transport", "error", "engine").Add(1)
		return m.respondError(peerID, correlationID, codeInvalidParams, err)
	}

	telemetry.ServiceOperationCounter.WithLabelValues("connect_transport", "success", "").Add(1)

	return m.respond(peerID, correlationID, map[string]bool{"connected": true})
}

func (m *Manager) HandleProduce(peerID core.PeerID, correlationID string, params rpc.ProduceParams) error {
	room, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return m.respondError(peerID, correlationID, codeServerError, errNotInRoom)
	}

	transport, ok := participant.Transport(params.TransportID)
	if !ok {
		return m.respondError(peerID, correlationID, codeInvalidParams, errNoSuchEntity)
	}

	kind, err := parseKind(params.Kind)
	if err != nil {
		return m.respondError(peerID, correlationID, codeInvalidParams, err)
	}

	producer, err := transport.Produce(kind, params.Parameters)
	if err != nil {
		telemetry.ServiceOperationCounter.WithLabelValues("produce", "error", "engine").Add(1)
		return m.respondError(peerID, correlationID, codeInvalidParams, err)
	}
	participant.AddProducer(producer)

	switch kind {
	case webrtc.RTPCodecTypeAudio:
		participant.SetMuted(false)
	case webrtc.RTPCodecTypeVideo:
		participant.SetVideoOn(true)
	}
	if params.ScreenShare {
		participant.SetScreenShared(true)
	}

	m.broadcast(room, eventbus.NewNewProducerRpc(eventbus.NewProducerParams{
		PeerID:      peerID,
		ProducerID:  producer.ID,
		Kind:        params.Kind,
		ScreenShare: params.ScreenShare,
	}), peerID)

	telemetry.ServiceOperationCounter.WithLabelValues("produce", "success", "").Add(1)

	return m.respond(peerID, correlationID, map[string]core.ProducerID{"producer_id": producer.ID})
}

// ConsumeResult is what a consumer needs to attach on the client side.
// Paused is always true at creation: media flows after resume_consumer.
type ConsumeResult struct {
	ConsumerID core.ConsumerID      `json:"consumer_id"`
	ProducerID core.ProducerID      `json:"producer_id"`
	Kind       string               `json:"kind"`
	Parameters webrtc.RTPParameters `json:"rtp_parameters"`
	Paused     bool                 `json:"paused"`
}

func (m *Manager) HandleConsume(peerID core.PeerID, correlationID string, params rpc.ConsumeParams) error {
	_, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return m.respondError(peerID, correlationID, codeServerError, errNotInRoom)
	}

	transport, ok := participant.Transport(params.TransportID)
	if !ok {
		return m.respondError(peerID, correlationID, codeInvalidParams, errNoSuchEntity)
	}

	consumer, err := transport.Consume(params.ProducerID, participant.Capabilities())
	if err != nil {
		telemetry.ServiceOperationCounter.WithLabelValues("consume", "error", "engine").Add(1)
		return m.respondError(peerID, correlationID, codeInvalidParams, err)
	}
	participant.AddConsumer(consumer)

	telemetry.ServiceOperationCounter.WithLabelValues("consume", "success", "").Add(1)

	return m.respond(peerID, correlationID, ConsumeResult{
		ConsumerID: consumer.ID,
		ProducerID: consumer.Producer().ID,
		Kind:       kindString(consumer.Kind()),
		Parameters: consumer.Producer().Parameters(),
		Paused:     consumer.Paused(),
	})
}

func (m *Manager) HandleResumeConsumer(peerID core.PeerID, correlationID string, consumerID core.ConsumerID) error {
	_, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return m.respondError(peerID, correlationID, codeServerError, errNotInRoom)
	}

	consumer, ok := participant.Consumer(consumerID)
	if !ok {
		return m.respondError(peerID, correlationID, codeInvalidParams, errNoSuchEntity)
	}

	if err := consumer.Resume(); err != nil {
		return m.respondError(peerID, correlationID, codeInvalidParams, err)
	}

	return m.respond(peerID, correlationID, map[string]bool{"resumed": true})
}

// ProducerDescription is one live producer in the get_producers listing.
type ProducerDescription struct {
	PeerID      core.PeerID     `json:"peer_id"`
	ProducerID  core.ProducerID `json:"producer_id"`
	Kind        string          `json:"kind"`
	ScreenShare bool            `json:"screen_share,omitempty"`
}

// HandleGetProducers lists every live producer in the room except the
// caller's own, so a late joiner can subscribe to what is already
// playing.
func (m *Manager) HandleGetProducers(peerID core.PeerID, correlationID string) error {
	room, _, ok := m.registry.FindPeer(peerID)
	if !ok {
		return m.respondError(peerID, correlationID, codeServerError, errNotInRoom)
	}

	producers := make([]ProducerDescription, 0)
	for _, other := range room.Participants() {
		if other.ID == peerID {
			continue
		}
		for _, producer := range other.Producers() {
			if producer.Closed() {
				continue
			}
			producers = append(producers, ProducerDescription{
				PeerID:      other.ID,
				ProducerID:  producer.ID,
				Kind:        kindString(producer.Kind),
				ScreenShare: producer.Kind == webrtc.RTPCodecTypeVideo && other.ScreenShared(),
			})
		}
	}

	return m.respond(peerID, correlationID, producers)
}

func (m *Manager) HandleToggleAudio(peerID core.PeerID, enabled bool) error {
	return m.toggleProducer(peerID, webrtc.RTPCodecTypeAudio, enabled)
}

func (m *Manager) HandleToggleVideo(peerID core.PeerID, enabled bool) error {
	return m.toggleProducer(peerID, webrtc.RTPCodecTypeVideo, enabled)
}

func (m *Manager) toggleProducer(peerID core.PeerID, kind webrtc.RTPCodecType, enabled bool) error {
	room, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return errNotInRoom
	}

	if producer, ok := participant.ProducerByKind(kind); ok {
		var err error
		if enabled {
			err = producer.Resume()
		} else {
			err = producer.Pause()
		}
		if err != nil {
			return err
		}
	}

	if kind == webrtc.RTPCodecTypeAudio {
		participant.SetMuted(!enabled)
	} else {
		participant.SetVideoOn(enabled)
	}

	m.broadcast(room, eventbus.NewParticipantUpdatedRpc(participant.Info()), peerID)

	return nil
}

// HandleScreenShareStart swaps the publisher's video source in place.
// Subscribers keep their consumers: the producer identity never changes.
func (m *Manager) HandleScreenShareStart(peerID core.PeerID, parameters webrtc.RTPParameters) error {
	room, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return errNotInRoom
	}

	producer, ok := participant.ProducerByKind(webrtc.RTPCodecTypeVideo)
	if !ok {
		return errNoSuchEntity
	}

	if err := producer.ReplaceTrack(parameters); err != nil {
		return err
	}
	participant.SetScreenShared(true)

	m.broadcast(room, eventbus.NewParticipantUpdatedRpc(participant.Info()), peerID)

	return nil
}

func (m *Manager) HandleScreenShareStop(peerID core.PeerID) error {
	room, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return errNotInRoom
	}

	participant.SetScreenShared(false)

	m.broadcast(room, eventbus.NewParticipantUpdatedRpc(participant.Info()), peerID)

	return nil
}

func (m *Manager) HandleChatMessage(peerID core.PeerID, text string) error {
	room, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return errNotInRoom
	}

	message := core.ChatMessage{
		ID:         uuid.New().String(),
		Sender:     peerID,
		SenderName: participant.Name,
		Text:       text,
		SentAt:     time.Now(),
	}
	room.AppendMessage(message)

	m.broadcast(room, eventbus.NewChatMessageRpc(message), "")

	return nil
}

// HandleLeave runs the full departure cascade. It is the single teardown
// path: an explicit leave and a dropped signaling connection both end
// here, and a second call for the same peer is a no-op.
func (m *Manager) HandleLeave(peerID core.PeerID) error {
	if roomID, _, ok := m.admission.Take(peerID); ok {
		log.Debug().Str("service", "manager").Str("roomID", string(roomID)).Str("peerID", string(peerID)).Msg("pending join withdrawn")
		return nil
	}

	room, participant, ok := m.registry.FindPeer(peerID)
	if !ok {
		return nil
	}

	producers := participant.Producers()
	participant.Close()

	if _, err := room.RemoveParticipant(peerID); err != nil {
		return nil
	}
	m.registry.UnbindPeer(peerID)

	for _, producer := range producers {
		m.broadcast(room, eventbus.NewProducerClosedRpc(peerID, producer.ID), peerID)
	}
	m.broadcast(room, eventbus.NewUserLeftRpc(peerID), peerID)

	if participant.IsHost {
		m.denyPendingJoins(room.ID)
	}

	if room.Empty() {
		peak := room.Peak()
		if m.registry.RemoveIfEmpty(room.ID) && m.meetings != nil {
			if err := m.meetings.MeetingFinished(room.ID, peak); err != nil {
				log.Error().Err(err).Str("service", "manager").Str("roomID", string(room.ID)).Msg("record meeting finish")
			}
		}
	}

	telemetry.ServiceOperationCounter.WithLabelValues("leave", "success", "").Add(1)

	return nil
}

// denyPendingJoins clears the queue when the host is gone: nobody is left
// to approve.
func (m *Manager) denyPendingJoins(roomID core.RoomID) {
	for _, pending := range m.admission.PendingForRoom(roomID) {
		if _, _, ok := m.admission.Take(pending.ID); !ok {
			continue
		}
		if err := m.sink.PublishClient(pending.ID, eventbus.NewJoinDeniedRpc(roomID, DenyReasonNoHost)); err != nil {
			log.Error().Err(err).Str("service", "manager").Str("peerID", string(pending.ID)).Msg("deny pending join")
		}
	}
}

func (m *Manager) sendJoinApproved(room *Room, peerID core.PeerID) error {
	return m.sink.PublishClient(peerID, eventbus.NewJoinApprovedRpc(eventbus.JoinApprovedParams{
		RoomID: room.ID,
		Capabilities: eventbus.RouterCapabilities{
			Codecs:           room.Router().Capabilities(),
			HeaderExtensions: m.headerExtensions,
		},
		Participants: room.ParticipantInfos(),
		Messages:     room.Messages(),
	}))
}

func (m *Manager) broadcast(room *Room, rpc eventbus.Rpc, exclude core.PeerID) {
	for _, participant := range room.Participants() {
		if participant.ID == exclude {
			continue
		}
		if err := m.sink.PublishClient(participant.ID, rpc); err != nil {
			log.Error().Err(err).Str("service", "manager").Str("peerID", string(participant.ID)).Msg("broadcast")
		}
	}
}

func (m *Manager) respond(peerID core.PeerID, correlationID string, result interface{}) error {
	if correlationID == "" {
		return nil
	}

	return m.sink.PublishClient(peerID, eventbus.NewResultRpc(correlationID, result))
}

func (m *Manager) respondError(peerID core.PeerID, correlationID string, code int, err error) error {
	if correlationID == "" {
		return err
	}

	if pubErr := m.sink.PublishClient(peerID, eventbus.NewErrorRpc(correlationID, code, err.Error())); pubErr != nil {
		return fmt.Errorf("publish error response: %w", pubErr)
	}

	return err
}

func parseKind(kind string) (webrtc.RTPCodecType, error) {
	switch kind {
	case "audio":
		return webrtc.RTPCodecTypeAudio, nil
	case "video":
		return webrtc.RTPCodecTypeVideo, nil
	default:
		return webrtc.RTPCodecType(0), errUnknownKind
	}
}

func kindString(kind webrtc.RTPCodecType) string {
	if kind == webrtc.RTPCodecTypeAudio {
		return "audio"
	}

	return "video"
}
