package rtc

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/engine"
	"github.com/classmeet/sfu/internal/telemetry"
	"github.com/pion/webrtc/v3"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomsRegistry is the authoritative map of live rooms plus the reverse
// index from a peer to the room it is in.
type RoomsRegistry struct {
	pool            *engine.Pool
	codecs          []webrtc.RTPCodecParameters
	maxParticipants int

	mu    sync.RWMutex
	rooms map[core.RoomID]*Room
	peers map[core.PeerID]core.RoomID
}

func NewRoomsRegistry(pool *engine.Pool, codecs []webrtc.RTPCodecParameters, maxParticipants int) *RoomsRegistry {
	return &RoomsRegistry{
		pool:            pool,
		codecs:          codecs,
		maxParticipants: maxParticipants,
		rooms:           make(map[core.RoomID]*Room),
		peers:           make(map[core.PeerID]core.RoomID),
	}
}

// GetOrCreate returns the room, creating it with a fresh engine router
// when it does not exist yet. Concurrent callers for the same ID get the
// same room.
func (reg *RoomsRegistry) GetOrCreate(roomID core.RoomID) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[roomID]; ok {
		return room, nil
	}

	router, err := reg.pool.CreateRouter(reg.codecs)
	if err != nil {
		return nil, err
	}

	room := NewRoom(roomID, router, reg.maxParticipants)
	reg.rooms[roomID] = room

	telemetry.RoomStarted()
	log.Info().Str("service", "registry").Str("roomID", string(roomID)).Msg("room created")

	return room, nil
}

func (reg *RoomsRegistry) Get(roomID core.RoomID) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[roomID]

	return room, ok
}

func (reg *RoomsRegistry) Exists(roomID core.RoomID) bool {
	_, ok := reg.Get(roomID)

	return ok
}

func (reg *RoomsRegistry) BindPeer(peerID core.PeerID, roomID core.RoomID) {
	reg.mu.Lock()
	reg.peers[peerID] = roomID
	reg.mu.Unlock()

	telemetry.ParticipantJoined()
}

func (reg *RoomsRegistry) UnbindPeer(peerID core.PeerID) {
	reg.mu.Lock()
	_, bound := reg.peers[peerID]
	delete(reg.peers, peerID)
	reg.mu.Unlock()

	if bound {
		telemetry.ParticipantLeft()
	}
}

// FindPeer resolves a peer to its room and participant state.
func (reg *RoomsRegistry) FindPeer(peerID core.PeerID) (*Room, *Participant, bool) {
	reg.mu.RLock()
	roomID, ok := reg.peers[peerID]
	if !ok {
		reg.mu.RUnlock()
		return nil, nil, false
	}
	room, ok := reg.rooms[roomID]
	reg.mu.RUnlock()

	if !ok {
		return nil, nil, false
	}

	participant, ok := room.Participant(peerID)
	if !ok {
		return nil, nil, false
	}

	return room, participant, true
}

// RemoveIfEmpty closes and drops the room when its last participant is
// gone. Safe to call more than once for the same room.
func (reg *RoomsRegistry) RemoveIfEmpty(roomID core.RoomID) bool {
	reg.mu.Lock()
	room, ok := reg.rooms[roomID]
	if !ok || !room.Empty() {
		reg.mu.Unlock()
		return false
	}
	delete(reg.rooms, roomID)
	reg.mu.Unlock()

	room.Close()

	telemetry.RoomFinished()
	log.Info().Str("service", "registry").Str("roomID", string(roomID)).Msg("room removed")

	return true
}

func (reg *RoomsRegistry) Rooms() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}

	return rooms
}

// Counts reports live rooms and admitted participants.
func (reg *RoomsRegistry) Counts() (int, int) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.rooms), len(reg.peers)
}
