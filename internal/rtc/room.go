package rtc

import (
	"errors"
	"sync"
	"time"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/engine"
)

var (
	ErrRoomFull      = errors.New("room is full")
	ErrRoomClosed    = errors.New("room is closed")
	errNoParticipant = errors.New("participant is not in the room")
	errDuplicatePeer = errors.New("participant is already in the room")
)

// Room is one live session: its engine router, the admitted participants
// in join order, and the chat history.
type Room struct {
	ID        core.RoomID
	CreatedAt time.Time

	router          *engine.Router
	maxParticipants int

	mu           sync.RWMutex
	closed       bool
	participants map[core.PeerID]*Participant
	order        []core.PeerID
	messages     []core.ChatMessage
	peak         int
}

func NewRoom(roomID core.RoomID, router *engine.Router, maxParticipants int) *Room {
	return &Room{
		ID:              roomID,
		CreatedAt:       time.Now(),
		router:          router,
		maxParticipants: maxParticipants,
		participants:    make(map[core.PeerID]*Participant),
	}
}

func (r *Room) Router() *engine.Router {
	return r.router
}

func (r *Room) AddParticipant(participant *Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if _, ok := r.participants[participant.ID]; ok {
		return errDuplicatePeer
	}
	if r.maxParticipants > 0 && len(r.participants) >= r.maxParticipants {
		return ErrRoomFull
	}

	r.participants[participant.ID] = participant
	r.order = append(r.order, participant.ID)
	if len(r.participants) > r.peak {
		r.peak = len(r.participants)
	}

	return nil
}

// RemoveParticipant drops the peer and reports how many remain.
func (r *Room) RemoveParticipant(peerID core.PeerID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[peerID]; !ok {
		return len(r.participants), errNoParticipant
	}

	delete(r.participants, peerID)
	for i, id := range r.order {
		if id == peerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return len(r.participants), nil
}

func (r *Room) Participant(peerID core.PeerID) (*Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participant, ok := r.participants[peerID]

	return participant, ok
}

// Host returns the room's host if it is still present.
func (r *Room) Host() (*Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if p := r.participants[id]; p != nil && p.IsHost {
			return p, true
		}
	}

	return nil, false
}

// Participants returns everyone in join order.
func (r *Room) Participants() []*Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participants := make([]*Participant, 0, len(r.order))
	for _, id := range r.order {
		if p := r.participants[id]; p != nil {
			participants = append(participants, p)
		}
	}

	return participants
}

func (r *Room) ParticipantInfos() []core.ParticipantInfo {
	participants := r.Participants()

	infos := make([]core.ParticipantInfo, 0, len(participants))
	for _, p := range participants {
		infos = append(infos, p.Info())
	}

	return infos
}

func (r *Room) AppendMessage(message core.ChatMessage) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()
}

func (r *Room) Messages() []core.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := make([]core.ChatMessage, len(r.messages))
	copy(messages, r.messages)

	return messages
}

func (r *Room) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.participants)
}

func (r *Room) Empty() bool {
	return r.Size() == 0
}

// Peak is the highest participant count the room has seen. Recorded into
// the meetings history when the room winds down.
func (r *Room) Peak() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.peak
}

// Close releases the engine router. Idempotent: the registry may race a
// late leave against the empty-room sweep.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	participants := make([]*Participant, 0, len(r.participants))
	for _, p := range r.participants {
		participants = append(participants, p)
	}
	r.participants = make(map[core.PeerID]*Participant)
	r.order = nil
	r.mu.Unlock()

	for _, p := range participants {
		p.Close()
	}
	r.router.Close()
}

func (r *Room) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.closed
}
