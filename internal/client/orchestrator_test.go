package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/eventbus"
	"github.com/pion/webrtc/v3"
)

const testServerPeerID = core.PeerID("peer-test")

type clientFrame struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type serverConn struct {
	conn *websocket.Conn
}

func (s *serverConn) push(t *testing.T, rpc eventbus.Rpc) {
	t.Helper()

	payload, err := rpc.ToJSON()
	assert.Nil(t, err)
	assert.Nil(t, s.conn.WriteMessage(websocket.TextMessage, payload))
}

// newSignalingStub upgrades incoming connections, greets them with a
// welcome and feeds every client frame to handle on the read goroutine.
func newSignalingStub(t *testing.T, handle func(s *serverConn, frame clientFrame)) string {
	t.Helper()

	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		s := &serverConn{conn: conn}
		s.push(t, eventbus.NewWelcomeRpc(testServerPeerID))

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}

			frame := clientFrame{}
			if err := json.Unmarshal(message, &frame); err != nil {
				continue
			}
			if handle != nil {
				handle(s, frame)
			}
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func connectedOrchestrator(t *testing.T, url string, opts Options) *Orchestrator {
	t.Helper()

	opts.URL = url
	orchestrator := New(opts)
	t.Cleanup(orchestrator.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Nil(t, orchestrator.Connect(ctx))

	return orchestrator
}

func TestConnectWaitsForWelcome(t *testing.T) {
	url := newSignalingStub(t, nil)

	orchestrator := connectedOrchestrator(t, url, Options{})

	assert.Equal(t, testServerPeerID, orchestrator.PeerID())
}

func TestJoinApproved(t *testing.T) {
	url := newSignalingStub(t, func(s *serverConn, frame clientFrame) {
		if frame.Method != "join" {
			return
		}
		s.push(t, eventbus.NewJoinApprovedRpc(eventbus.JoinApprovedParams{
			RoomID: "classroom-1",
			Participants: []core.ParticipantInfo{
				{ID: testServerPeerID, Name: "Bot", IsHost: true},
			},
		}))
	})

	orchestrator := connectedOrchestrator(t, url, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	approved, err := orchestrator.Join(ctx, "classroom-1", "Bot")
	assert.Nil(t, err)
	assert.Equal(t, core.RoomID("classroom-1"), approved.RoomID)
	assert.Len(t, approved.Participants, 1)
}

func TestJoinDenied(t *testing.T) {
	url := newSignalingStub(t, func(s *serverConn, frame clientFrame) {
		if frame.Method != "join" {
			return
		}
		s.push(t, eventbus.NewJoinDeniedRpc("classroom-1", "The host rejected your join request."))
	})

	orchestrator := connectedOrchestrator(t, url, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := orchestrator.Join(ctx, "classroom-1", "Bot")

	denied := &JoinDeniedError{}
	assert.True(t, errors.As(err, &denied))
	assert.Equal(t, "The host rejected your join request.", denied.Reason)
}

func TestEstablishTransportsAndPublish(t *testing.T) {
	url := newSignalingStub(t, func(s *serverConn, frame clientFrame) {
		switch frame.Method {
		case "create_transport":
			var params struct {
				Direction string `json:"direction"`
			}
			assert.Nil(t, json.Unmarshal(frame.Params, &params))
			s.push(t, eventbus.NewResultRpc(frame.ID, engineConnectionParams{
				ID:        core.TransportID("t-" + params.Direction),
				Direction: params.Direction,
				DTLS: webrtc.DTLSParameters{
					Fingerprints: []webrtc.DTLSFingerprint{{Algorithm: "sha-256", Value: "aa:bb"}},
				},
			}))
		case "connect_transport":
			s.push(t, eventbus.NewResultRpc(frame.ID, map[string]bool{"connected": true}))
		case "produce":
			var params struct {
				TransportID core.TransportID `json:"transport_id"`
				Kind        string           `json:"kind"`
			}
			assert.Nil(t, json.Unmarshal(frame.Params, &params))
			assert.Equal(t, core.TransportID("t-send"), params.TransportID)
			assert.Equal(t, "audio", params.Kind)
			s.push(t, eventbus.NewResultRpc(frame.ID, map[string]string{"producer_id": "p-1"}))
		}
	})

	orchestrator := connectedOrchestrator(t, url, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Nil(t, orchestrator.EstablishTransports(ctx))

	producerID, err := orchestrator.Publish(ctx, "audio", webrtc.RTPParameters{}, false)
	assert.Nil(t, err)
	assert.Equal(t, core.ProducerID("p-1"), producerID)
}

func TestPublishWithoutTransportFails(t *testing.T) {
	url := newSignalingStub(t, nil)

	orchestrator := connectedOrchestrator(t, url, Options{})

	_, err := orchestrator.Publish(context.Background(), "audio", webrtc.RTPParameters{}, false)
	assert.Equal(t, ErrNotConnected, err)
}

func TestCallErrorFrame(t *testing.T) {
	url := newSignalingStub(t, func(s *serverConn, frame clientFrame) {
		if frame.Method != "create_transport" {
			return
		}
		s.push(t, eventbus.NewErrorRpc(frame.ID, -32602, "engine: operation not allowed for transport direction"))
	})

	orchestrator := connectedOrchestrator(t, url, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := orchestrator.EstablishTransports(ctx)

	callErr := &RpcCallError{}
	assert.True(t, errors.As(err, &callErr))
	assert.Equal(t, -32602, callErr.Code)
}

func TestCallTimeout(t *testing.T) {
	// The stub swallows every call.
	url := newSignalingStub(t, func(s *serverConn, frame clientFrame) {})

	orchestrator := connectedOrchestrator(t, url, Options{CallTimeout: 50 * time.Millisecond})

	err := orchestrator.EstablishTransports(context.Background())
	assert.Equal(t, ErrCallTimeout, err)
}

func TestNotificationsSurfaceAsEvents(t *testing.T) {
	url := newSignalingStub(t, func(s *serverConn, frame clientFrame) {
		if frame.Method != "chat_message" {
			return
		}
		s.push(t, eventbus.NewUserJoinedRpc(core.ParticipantInfo{ID: "peer-bob", Name: "Bob"}))
		s.push(t, eventbus.NewChatMessageRpc(core.ChatMessage{ID: "m1", Sender: "peer-bob", Text: "hi"}))
	})

	orchestrator := connectedOrchestrator(t, url, Options{})

	assert.Nil(t, orchestrator.SendChat("hi"))

	deadline := time.After(2 * time.Second)
	events := make([]Event, 0, 2)
	for len(events) < 2 {
		select {
		case event := <-orchestrator.Events():
			events = append(events, event)
		case <-deadline:
			t.Fatal("timed out waiting for events")
		}
	}

	assert.Equal(t, EventUserJoined, events[0].Kind)
	assert.Equal(t, "Bob", events[0].Peer.Name)
	assert.Equal(t, EventChatMessage, events[1].Kind)
	assert.Equal(t, "hi", events[1].ChatMessage.Text)
}
