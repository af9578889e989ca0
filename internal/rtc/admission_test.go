package rtc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classmeet/sfu/internal/core"
)

func TestTake(t *testing.T) {
	admission := NewAdmissionController(time.Minute)

	participant := NewParticipant("peer-1", "Bob", "", false)
	admission.Request("classroom-1", participant)

	roomID, taken, ok := admission.Take("peer-1")
	assert.True(t, ok)
	assert.Equal(t, core.RoomID("classroom-1"), roomID)
	assert.Equal(t, participant, taken)

	// A second verdict for the same peer finds nothing.
	_, _, ok = admission.Take("peer-1")
	assert.False(t, ok)
}

func TestForget(t *testing.T) {
	admission := NewAdmissionController(time.Minute)

	admission.Request("classroom-1", NewParticipant("peer-1", "Bob", "", false))
	admission.Forget("peer-1")

	_, _, ok := admission.Take("peer-1")
	assert.False(t, ok)
}

func TestPendingForRoomOldestFirst(t *testing.T) {
	admission := NewAdmissionController(time.Minute)

	first := NewParticipant("peer-1", "Bob", "", false)
	second := NewParticipant("peer-2", "Carol", "", false)
	other := NewParticipant("peer-3", "Dave", "", false)

	admission.Request("classroom-1", first)
	time.Sleep(time.Millisecond)
	admission.Request("classroom-1", second)
	admission.Request("classroom-2", other)

	pending := admission.PendingForRoom("classroom-1")
	assert.Len(t, pending, 2)
	assert.Equal(t, first, pending[0])
	assert.Equal(t, second, pending[1])
}

func TestSweepExpiresStaleJoins(t *testing.T) {
	admission := NewAdmissionController(20 * time.Millisecond)

	var mu sync.Mutex
	expired := make([]core.PeerID, 0)
	admission.OnExpire(func(peerID core.PeerID, roomID core.RoomID) {
		mu.Lock()
		expired = append(expired, peerID)
		mu.Unlock()

		assert.Equal(t, core.RoomID("classroom-1"), roomID)
	})

	admission.Request("classroom-1", NewParticipant("peer-1", "Bob", "", false))

	admission.Start()
	defer admission.Stop()

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		done := len(expired) == 1
		mu.Unlock()
		if done || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []core.PeerID{"peer-1"}, expired)

	_, _, ok := admission.Take("peer-1")
	assert.False(t, ok)
}

func TestZeroTTLDisablesSweep(t *testing.T) {
	admission := NewAdmissionController(0)

	admission.Request("classroom-1", NewParticipant("peer-1", "Bob", "", false))

	admission.Start()
	admission.Stop()

	_, _, ok := admission.Take("peer-1")
	assert.True(t, ok)
}
