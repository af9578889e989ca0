package rtc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/engine"
	"github.com/pion/webrtc/v3"
)

func testEngineCodecs() []webrtc.RTPCodecParameters {
	return []webrtc.RTPCodecParameters{
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			PayloadType:        111,
		},
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			PayloadType:        96,
		},
	}
}

func testPool() *engine.Pool {
	return engine.NewPool(engine.PoolOptions{NumWorkers: 1})
}

func testRoom(t *testing.T, maxParticipants int) *Room {
	t.Helper()

	router, err := testPool().CreateRouter(testEngineCodecs())
	assert.Nil(t, err)

	return NewRoom(core.RoomID("classroom-1"), router, maxParticipants)
}

func TestAddParticipantKeepsJoinOrder(t *testing.T) {
	room := testRoom(t, 0)

	host := NewParticipant("peer-host", "Alice", "", true)
	guest := NewParticipant("peer-guest", "Bob", "", false)

	assert.Nil(t, room.AddParticipant(host))
	assert.Nil(t, room.AddParticipant(guest))

	participants := room.Participants()
	assert.Len(t, participants, 2)
	assert.Equal(t, host, participants[0])
	assert.Equal(t, guest, participants[1])
}

func TestAddParticipantRejectsDuplicate(t *testing.T) {
	room := testRoom(t, 0)

	participant := NewParticipant("peer-1", "Alice", "", true)
	assert.Nil(t, room.AddParticipant(participant))
	assert.Equal(t, errDuplicatePeer, room.AddParticipant(participant))
}

func TestAddParticipantRejectsWhenFull(t *testing.T) {
	room := testRoom(t, 2)

	assert.Nil(t, room.AddParticipant(NewParticipant("peer-1", "Alice", "", true)))
	assert.Nil(t, room.AddParticipant(NewParticipant("peer-2", "Bob", "", false)))
	assert.Equal(t, ErrRoomFull, room.AddParticipant(NewParticipant("peer-3", "Carol", "", false)))
}

func TestHost(t *testing.T) {
	room := testRoom(t, 0)

	_, ok := room.Host()
	assert.False(t, ok)

	assert.Nil(t, room.AddParticipant(NewParticipant("peer-guest", "Bob", "", false)))
	assert.Nil(t, room.AddParticipant(NewParticipant("peer-host", "Alice", "", true)))

	host, ok := room.Host()
	assert.True(t, ok)
	assert.Equal(t, core.PeerID("peer-host"), host.ID)

	_, err := room.RemoveParticipant("peer-host")
	assert.Nil(t, err)

	_, ok = room.Host()
	assert.False(t, ok)
}

func TestRemoveParticipantReportsRemaining(t *testing.T) {
	room := testRoom(t, 0)

	assert.Nil(t, room.AddParticipant(NewParticipant("peer-1", "Alice", "", true)))
	assert.Nil(t, room.AddParticipant(NewParticipant("peer-2", "Bob", "", false)))

	remaining, err := room.RemoveParticipant("peer-1")
	assert.Nil(t, err)
	assert.Equal(t, 1, remaining)

	remaining, err = room.RemoveParticipant("peer-1")
	assert.Equal(t, errNoParticipant, err)
	assert.Equal(t, 1, remaining)
}

func TestPeakSurvivesDepartures(t *testing.T) {
	room := testRoom(t, 0)

	assert.Nil(t, room.AddParticipant(NewParticipant("peer-1", "Alice", "", true)))
	assert.Nil(t, room.AddParticipant(NewParticipant("peer-2", "Bob", "", false)))
	assert.Nil(t, room.AddParticipant(NewParticipant("peer-3", "Carol", "", false)))

	_, err := room.RemoveParticipant("peer-2")
	assert.Nil(t, err)
	_, err = room.RemoveParticipant("peer-3")
	assert.Nil(t, err)

	assert.Equal(t, 1, room.Size())
	assert.Equal(t, 3, room.Peak())
}

func TestMessagesReplayInOrder(t *testing.T) {
	room := testRoom(t, 0)

	room.AppendMessage(core.ChatMessage{ID: "m1", Text: "hello"})
	room.AppendMessage(core.ChatMessage{ID: "m2", Text: "world"})

	messages := room.Messages()
	assert.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Text)
	assert.Equal(t, "world", messages[1].Text)
}

func TestCloseIsIdempotent(t *testing.T) {
	room := testRoom(t, 0)

	participant := NewParticipant("peer-1", "Alice", "", true)
	assert.Nil(t, room.AddParticipant(participant))

	room.Close()
	room.Close()

	assert.True(t, room.Closed())
	assert.True(t, participant.Closed())
	assert.Equal(t, ErrRoomClosed, room.AddParticipant(NewParticipant("peer-2", "Bob", "", false)))

	_, err := room.Router().CreateTransport(engine.DirectionSend)
	assert.Equal(t, engine.ErrRouterClosed, err)
}
