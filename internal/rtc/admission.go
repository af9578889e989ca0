package rtc

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/classmeet/sfu/internal/core"
)

// Denial reasons sent to the waiting peer verbatim.
const (
	DenyReasonNoHost   = "Waiting for the host to start the session."
	DenyReasonRejected = "The host rejected your join request."
	DenyReasonRoomFull = "The session is full."
	DenyReasonExpired  = "Your join request timed out."
)

type pendingJoin struct {
	roomID      core.RoomID
	participant *Participant
	requestedAt time.Time
}

// AdmissionController holds peers waiting for a host verdict. A pending
// join leaves the set exactly once: approved, rejected, withdrawn, or
// expired by the TTL sweep.
type AdmissionController struct {
	ttl time.Duration

	mu      sync.Mutex
	pending map[core.PeerID]pendingJoin

	onExpire func(core.PeerID, core.RoomID)
	stop     chan struct{}
	done     chan struct{}
}

func NewAdmissionController(ttl time.Duration) *AdmissionController {
	return &AdmissionController{
		ttl:     ttl,
		pending: make(map[core.PeerID]pendingJoin),
	}
}

// OnExpire registers the callback fired for every join the sweep drops.
// Must be set before Start.
func (a *AdmissionController) OnExpire(callback func(core.PeerID, core.RoomID)) {
	a.onExpire = callback
}

func (a *AdmissionController) Request(roomID core.RoomID, participant *Participant) {
	a.mu.Lock()
	a.pending[participant.ID] = pendingJoin{
		roomID:      roomID,
		participant: participant,
		requestedAt: time.Now(),
	}
	a.mu.Unlock()

	log.Debug().Str("service", "admission").Str("roomID", string(roomID)).Str("peerID", string(participant.ID)).Msg("join pending")
}

// Take removes and returns the pending join for the peer. The second
// return is false when there is nothing pending, which makes a duplicate
// verdict a no-op for the caller.
func (a *AdmissionController) Take(peerID core.PeerID) (core.RoomID, *Participant, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, ok := a.pending[peerID]
	if !ok {
		return "", nil, false
	}
	delete(a.pending, peerID)

	return record.roomID, record.participant, true
}

func (a *AdmissionController) Forget(peerID core.PeerID) {
	a.mu.Lock()
	delete(a.pending, peerID)
	a.mu.Unlock()
}

// PendingForRoom lists who is waiting at the given room's door, oldest
// first.
func (a *AdmissionController) PendingForRoom(roomID core.RoomID) []*Participant {
	a.mu.Lock()
	defer a.mu.Unlock()

	records := make([]pendingJoin, 0)
	for _, record := range a.pending {
		if record.roomID == roomID {
			records = append(records, record)
		}
	}
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j].requestedAt.Before(records[j-1].requestedAt); j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}

	participants := make([]*Participant, 0, len(records))
	for _, record := range records {
		participants = append(participants, record.participant)
	}

	return participants
}

// Start launches the TTL sweep. A zero TTL disables expiry.
func (a *AdmissionController) Start() {
	if a.ttl <= 0 {
		return
	}

	a.stop = make(chan struct{})
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)

		ticker := time.NewTicker(a.ttl / 4)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.sweep()
			case <-a.stop:
				return
			}
		}
	}()
}

func (a *AdmissionController) Stop() {
	if a.stop == nil {
		return
	}
	close(a.stop)
	<-a.done
	a.stop = nil
}

func (a *AdmissionController) sweep() {
	deadline := time.Now().Add(-a.ttl)

	a.mu.Lock()
	expired := make([]pendingJoin, 0)
	for peerID, record := range a.pending {
		if record.requestedAt.Before(deadline) {
			expired = append(expired, record)
			delete(a.pending, peerID)
		}
	}
	a.mu.Unlock()

	for _, record := range expired {
		log.Debug().Str("service", "admission").Str("roomID", string(record.roomID)).Str("peerID", string(record.participant.ID)).Msg("join request expired")

		if a.onExpire != nil {
			a.onExpire(record.participant.ID, record.roomID)
		}
	}
}
