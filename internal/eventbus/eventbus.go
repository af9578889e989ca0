package eventbus

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"github.com/classmeet/sfu/internal/core"
)

type Channel string

const (
	// ClientMessages carries server-to-client signaling, one redis channel
	// per connected peer.
	ClientMessages Channel = "signal:client"
	// ServerMessages is the shared channel every client request lands on,
	// wrapped in a ServerMessage envelope.
	ServerMessages Channel = "signal:server"
)

func (c Channel) buildChannel(peerID core.PeerID) string {
	if c == ServerMessages {
		return string(c)
	}
	return string(c) + ":" + string(peerID)
}

// ServerMessage is the envelope for client requests on the shared server
// channel: the signaling frame plus the peer it came from.
type ServerMessage struct {
	PeerID  core.PeerID     `json:"peer_id"`
	Message json.RawMessage `json:"message"`
}

// Rpc is anything publishable on the bus. Inbound requests and outbound
// notifications both satisfy it.
type Rpc interface {
	ToJSON() ([]byte, error)
}

type Publisher interface {
	PublishClient(peerID core.PeerID, rpc Rpc) error
	PublishServer(peerID core.PeerID, rpc Rpc) error
}

type Subscriber interface {
	SubscribeClient(peerID core.PeerID) (RedisBus, error)
	SubscribeServer() (RedisBus, error)
}

type RedisBus interface {
	Channel() <-chan *redis.Message
	Close() error
}

type Subscription struct {
	pubsub *redis.PubSub
}

func (s *Subscription) Channel() <-chan *redis.Message {
	return s.pubsub.Channel()
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

type Eventbus struct {
	rdb *redis.Client
}

// RedisPubSub is factory for building Eventbus based on redis pubsub
func RedisPubSub(rdb *redis.Client) *Eventbus {
	return &Eventbus{rdb: rdb}
}

func (e *Eventbus) PublishClient(peerID core.PeerID, rpc Rpc) error {
	msg, err := rpc.ToJSON()
	if err != nil {
		return err
	}

	return e.rdb.Publish(context.Background(), ClientMessages.buildChannel(peerID), msg).Err()
}

func (e *Eventbus) PublishServer(peerID core.PeerID, rpc Rpc) error {
	msg, err := rpc.ToJSON()
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(&ServerMessage{PeerID: peerID, Message: msg})
	if err != nil {
		return err
	}

	return e.rdb.Publish(context.Background(), ServerMessages.buildChannel(peerID), envelope).Err()
}

func (e *Eventbus) SubscribeClient(peerID core.PeerID) (RedisBus, error) {
	return e.subscribe(ClientMessages.buildChannel(peerID))
}

func (e *Eventbus) SubscribeServer() (RedisBus, error) {
	return e.subscribe(ServerMessages.buildChannel(""))
}

func (e *Eventbus) subscribe(channel string) (RedisBus, error) {
	ctx := context.Background()
	pubsub := e.rdb.Subscribe(ctx, channel)
	// Wait until subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}

	return &Subscription{pubsub: pubsub}, nil
}
