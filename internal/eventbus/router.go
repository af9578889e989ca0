package eventbus

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/eventbus/rpc"
	"github.com/pion/webrtc/v3"
)

var (
	errUndefinedMethod = errors.New("undefined method")
	errNoCallback      = errors.New("no callback registered")
	errConvertRpc      = errors.New("can't convert RPC to its method type")
)

// Router subscribes to the shared server channel and dispatches every
// client request to the callback registered for its method. One router
// instance runs per process.
type Router struct {
	EventsSubscriber Subscriber
	subscription     RedisBus

	stopped chan struct{}

	onJoin             func(core.PeerID, rpc.JoinParams) error
	onApproveJoin      func(core.PeerID, core.PeerID) error
	onRejectJoin       func(core.PeerID, core.PeerID) error
	onSetCapabilities  func(core.PeerID, []webrtc.RTPCodecCapability) error
	onCreateTransport  func(core.PeerID, string, string) error
	onConnectTransport func(core.PeerID, string, rpc.ConnectTransportParams) error
	onProduce          func(core.PeerID, string, rpc.ProduceParams) error
	onConsume          func(core.PeerID, string, rpc.ConsumeParams) error
	onResumeConsumer   func(core.PeerID, string, core.ConsumerID) error
	onGetProducers     func(core.PeerID, string) error
	onToggleAudio      func(core.PeerID, bool) error
	onToggleVideo      func(core.PeerID, bool) error
	onScreenShareStart func(core.PeerID, webrtc.RTPParameters) error
	onScreenShareStop  func(core.PeerID) error
	onChatMessage      func(core.PeerID, string) error
	onLeave            func(core.PeerID) error
}

func NewRouter(sub Subscriber) (*Router, error) {
	router := &Router{
		EventsSubscriber: sub,
	}
	subscription, err := router.EventsSubscriber.SubscribeServer()
	if err != nil {
		return nil, err
	}
	router.subscription = subscription

	return router, nil
}

// Start launches the dispatch loop. The returned channel is closed once
// the loop is running.
func (router *Router) Start() <-chan struct{} {
	log.Debug().Str("service", "router").Msg("start")

	started := make(chan struct{})
	router.stopped = make(chan struct{})

	go func() {
		defer close(router.stopped)

		channel := router.subscription.Channel()
		close(started)

		for msg := range channel {
			peerID, r, err := parseRpc(msg.Payload)
			if err != nil {
				log.Error().Err(err).Str("service", "router").Msg("")
				continue
			}

			if err := router.dispatch(peerID, r); err != nil {
				log.Error().Err(err).Str("service", "router").Str("peerID", string(peerID)).Str("rpcMethod", string(r.GetMethod())).Msg("")
			}
		}
	}()

	return started
}

// Stop closes the subscription and waits for the dispatch loop to drain.
func (router *Router) Stop() <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := router.subscription.Close(); err != nil {
			log.Error().Err(err).Str("service", "router").Msg("close subscription")
		}
		if router.stopped != nil {
			<-router.stopped
		}
	}()

	return done
}

func (router *Router) dispatch(peerID core.PeerID, r rpc.Rpc) error {
	switch r.GetMethod() {
	case rpc.JoinMethod:
		msg, ok := r.(*rpc.JoinRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onJoin == nil {
			return errNoCallback
		}

		return router.onJoin(peerID, msg.Params)
	case rpc.ApproveJoinMethod:
		msg, ok := r.(*rpc.ApproveJoinRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onApproveJoin == nil {
			return errNoCallback
		}

		return router.onApproveJoin(peerID, msg.Params.PeerID)
	case rpc.RejectJoinMethod:
		msg, ok := r.(*rpc.RejectJoinRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onRejectJoin == nil {
			return errNoCallback
		}

		return router.onRejectJoin(peerID, msg.Params.PeerID)
	case rpc.SetCapabilitiesMethod:
		msg, ok := r.(*rpc.SetCapabilitiesRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onSetCapabilities == nil {
			return errNoCallback
		}

		return router.onSetCapabilities(peerID, msg.Params.Codecs)
	case rpc.CreateTransportMethod:
		msg, ok := r.(*rpc.CreateTransportRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onCreateTransport == nil {
			return errNoCallback
		}

		return router.onCreateTransport(peerID, msg.CorrelationID(), msg.Params.Direction)
	case rpc.ConnectTransportMethod:
		msg, ok := r.(*rpc.ConnectTransportRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onConnectTransport == nil {
			return errNoCallback
		}

		return router.onConnectTransport(peerID, msg.CorrelationID(), msg.Params)
	case rpc.ProduceMethod:
		msg, ok := r.(*rpc.ProduceRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onProduce == nil {
			return errNoCallback
		}

		return router.onProduce(peerID, msg.CorrelationID(), msg.Params)
	case rpc.ConsumeMethod:
		msg, ok := r.(*rpc.ConsumeRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onConsume == nil {
			return errNoCallback
		}

		return router.onConsume(peerID, msg.CorrelationID(), msg.Params)
	case rpc.ResumeConsumerMethod:
		msg, ok := r.(*rpc.ResumeConsumerRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onResumeConsumer == nil {
			return errNoCallback
		}

		return router.onResumeConsumer(peerID, msg.CorrelationID(), msg.Params.ConsumerID)
	case rpc.GetProducersMethod:
		msg, ok := r.(*rpc.GetProducersRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onGetProducers == nil {
			return errNoCallback
		}

		return router.onGetProducers(peerID, msg.CorrelationID())
	case rpc.ToggleAudioMethod:
		msg, ok := r.(*rpc.ToggleAudioRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onToggleAudio == nil {
			return errNoCallback
		}

		return router.onToggleAudio(peerID, msg.Params.Enabled)
	case rpc.ToggleVideoMethod:
		msg, ok := r.(*rpc.ToggleVideoRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onToggleVideo == nil {
			return errNoCallback
		}

		return router.onToggleVideo(peerID, msg.Params.Enabled)
	case rpc.ScreenShareStartMethod:
		msg, ok := r.(*rpc.ScreenShareStartRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onScreenShareStart == nil {
			return errNoCallback
		}

		return router.onScreenShareStart(peerID, msg.Params.Parameters)
	case rpc.ScreenShareStopMethod:
		if router.onScreenShareStop == nil {
			return errNoCallback
		}

		return router.onScreenShareStop(peerID)
	case rpc.ChatMessageMethod:
		msg, ok := r.(*rpc.ChatMessageRpc)
		if !ok {
			return errConvertRpc
		}
		if router.onChatMessage == nil {
			return errNoCallback
		}

		return router.onChatMessage(peerID, msg.Params.Text)
	case rpc.LeaveMethod:
		if router.onLeave == nil {
			return errNoCallback
		}

		return router.onLeave(peerID)
	default:
		return errUndefinedMethod
	}
}

func parseRpc(payload string) (core.PeerID, rpc.Rpc, error) {
	serverMessage := &ServerMessage{}
	if err := json.Unmarshal([]byte(payload), serverMessage); err != nil {
		return "", nil, err
	}
	if serverMessage.PeerID == "" {
		return "", nil, errors.New("can't get peer id")
	}

	r, err := rpc.RpcFromReader(bytes.NewReader(serverMessage.Message))
	if err != nil {
		return "", nil, err
	}

	return serverMessage.PeerID, r, nil
}

func (router *Router) OnJoin(callback func(core.PeerID, rpc.JoinParams) error) {
	router.onJoin = callback
}

func (router *Router) OnApproveJoin(callback func(core.PeerID, core.PeerID) error) {
	router.onApproveJoin = callback
}

func (router *Router) OnRejectJoin(callback func(core.PeerID, core.PeerID) error) {
	router.onRejectJoin = callback
}

func (router *Router) OnSetCapabilities(callback func(core.PeerID, []webrtc.RTPCodecCapability) error) {
	router.onSetCapabilities = callback
}

func (router *Router) OnCreateTransport(callback func(core.PeerID, string, string) error) {
	router.onCreateTransport = callback
}

func (router *Router) OnConnectTransport(callback func(core.PeerID, string, rpc.ConnectTransportParams) error) {
	router.onConnectTransport = callback
}

func (router *Router) OnProduce(callback func(core.PeerID, string, rpc.ProduceParams) error) {
	router.onProduce = callback
}

func (router *Router) OnConsume(callback func(core.PeerID, string, rpc.ConsumeParams) error) {
	router.onConsume = callback
}

func (router *Router) OnResumeConsumer(callback func(core.PeerID, string, core.ConsumerID) error) {
	router.onResumeConsumer = callback
}

func (router *Router) OnGetProducers(callback func(core.PeerID, string) error) {
	router.onGetProducers = callback
}

func (router *Router) OnToggleAudio(callback func(core.PeerID, bool) error) {
	router.onToggleAudio = callback
}

func (router *Router) OnToggleVideo(callback func(core.PeerID, bool) error) {
	router.onToggleVideo = callback
}

func (router *Router) OnScreenShareStart(callback func(core.PeerID, webrtc.RTPParameters) error) {
	router.onScreenShareStart = callback
}

func (router *Router) OnScreenShareStop(callback func(core.PeerID) error) {
	router.onScreenShareStop = callback
}

func (router *Router) OnChatMessage(callback func(core.PeerID, string) error) {
	router.onChatMessage = callback
}

func (router *Router) OnLeave(callback func(core.PeerID) error) {
	router.onLeave = callback
}
