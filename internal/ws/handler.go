package ws

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/isqad/melody"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/eventbus"
	"github.com/classmeet/sfu/internal/eventbus/rpc"
)

const (
	wsPeerIDSessionKey       = "peerId"
	wsSubscriptionSessionKey = "subscription"
)

// WsHandler upgrades the connection. Every connection gets a fresh peer
// ID and its own client-channel subscription, created before the upgrade
// so no signaling frame can be lost.
func WsHandler(eventsSubscriber eventbus.Subscriber, websocket *melody.Melody) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		peerID := core.PeerID(uuid.New().String())

		subscription, err := eventsSubscriber.SubscribeClient(peerID)
		if err != nil {
			log.Error().Err(err).Str("service", "ws").Msg("can't subscribe the peer to signaling channel")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		sessKeys := make(map[string]interface{})
		sessKeys[wsPeerIDSessionKey] = peerID
		sessKeys[wsSubscriptionSessionKey] = subscription

		if err := websocket.HandleRequestWithKeys(w, r, sessKeys); err != nil {
			log.Error().Err(err).Str("service", "ws").Msg("can't handle request")
		}
	}
}

// ConnectHandler starts the pump that forwards the peer's client channel
// to the socket, then sends the welcome with the assigned peer ID.
func ConnectHandler(eventsPublisher eventbus.Publisher) func(session *melody.Session) {
	return func(session *melody.Session) {
		peerID, err := getPeerIDFromSession(session)
		if err != nil {
			log.Error().Err(err).Str("service", "ws").Msg("extract peer ID")
			closeWsSession(session)
			return
		}

		subscription, err := getSubscription(session)
		if err != nil {
			log.Error().Err(err).Str("service", "ws").Str("peerID", string(peerID)).Msg("extract subscription")
			closeWsSession(session)
			return
		}

		ready := make(chan struct{})

		go func() {
			ch := subscription.Channel()

			close(ready)
			for msg := range ch {
				if err := session.Write([]byte(msg.Payload)); err != nil {
					// there's only session closed error can be
					log.Error().Err(err).Str("service", "ws").Str("peerID", string(peerID)).Msg("")
					return
				}
			}
		}()

		<-ready

		if err := eventsPublisher.PublishClient(peerID, eventbus.NewWelcomeRpc(peerID)); err != nil {
			log.Error().Err(err).Str("service", "ws").Str("peerID", string(peerID)).Msg("send welcome")
			if err := subscription.Close(); err != nil {
				log.Error().Err(err).Str("service", "ws").Str("peerID", string(peerID)).Msg("close subscription")
			}
			closeWsSession(session)
		}
	}
}

// DisconnectHandler closes the subscription and turns the drop into a
// leave, so an abrupt disconnect runs the same teardown as an orderly
// one.
func DisconnectHandler(eventsPublisher eventbus.Publisher) func(session *melody.Session) {
	return func(session *melody.Session) {
		peerID, err := getPeerIDFromSession(session)
		if err != nil {
			log.Error().Err(err).Str("service", "ws").Msg("extract peer ID")
			return
		}

		if subscription, err := getSubscription(session); err == nil {
			if err := subscription.Close(); err != nil {
				log.Error().Err(err).Str("service", "ws").Str("peerID", string(peerID)).Msg("close subscription")
			}
		}

		if err := eventsPublisher.PublishServer(peerID, rpc.NewLeaveRpc()); err != nil {
			log.Error().Err(err).Str("service", "ws").Str("peerID", string(peerID)).Msg("publish leave")
		}
	}
}

// HandleMessage validates the inbound frame and relays it to the shared
// server channel.
func HandleMessage(eventsPublisher eventbus.Publisher) func(s *melody.Session, msg []byte) {
	return func(s *melody.Session, msg []byte) {
		peerID, err := getPeerIDFromSession(s)
		if err != nil {
			log.Error().Err(err).Str("service", "ws").Msg("extract peer ID")
			closeWsSession(s)
			return
		}

		reader := bytes.NewReader(msg)
		r, err := rpc.RpcFromReader(reader)
		if err != nil {
			log.Error().Err(err).Str("service", "ws").Str("peerID", string(peerID)).Msg("rpc parse")
			return
		}

		if err := eventsPublisher.PublishServer(peerID, r); err != nil {
			log.Error().Err(err).Str("service", "ws").Str("peerID", string(peerID)).Msg("publish rpc")
			closeWsSession(s)
		}
	}
}

func getSubscription(s *melody.Session) (eventbus.RedisBus, error) {
	value, ok := s.Keys[wsSubscriptionSessionKey]
	if !ok {
		return nil, fmt.Errorf("no subscription for given session: %+v", s)
	}
	subscription, ok := value.(eventbus.RedisBus)
	if !ok {
		return nil, fmt.Errorf("can't convert subscription: %+v", value)
	}
	return subscription, nil
}

func getPeerIDFromSession(s *melody.Session) (core.PeerID, error) {
	value, ok := s.Keys[wsPeerIDSessionKey]
	if !ok {
		return "", fmt.Errorf("no peer ID for given session: %+v", s)
	}
	peerID, ok := value.(core.PeerID)
	if !ok {
		return "", fmt.Errorf("can't convert peer ID: %+v", value)
	}
	return peerID, nil
}

func closeWsSession(s *melody.Session) {
	if err := s.Close(); err != nil {
		log.Error().Err(err).Str("service", "ws").Msg("close websocket session")
	}
}
