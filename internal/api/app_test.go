package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/engine"
	"github.com/classmeet/sfu/internal/rtc"
	"github.com/pion/webrtc/v3"
)

type MockMeetingsLister struct {
	Meetings []*core.Meeting
	Err      error

	Page    int
	PerPage int
}

func (m *MockMeetingsLister) GetRecent(page int, perPage int) ([]*core.Meeting, error) {
	m.Page = page
	m.PerPage = perPage

	return m.Meetings, m.Err
}

func testApp(meetings core.MeetingsLister) (http.Handler, *rtc.RoomsRegistry) {
	pool := engine.NewPool(engine.PoolOptions{NumWorkers: 2})
	codecs := []webrtc.RTPCodecParameters{
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			PayloadType:        111,
		},
	}
	registry := rtc.NewRoomsRegistry(pool, codecs, 0)

	app := NewApp(AppOptions{
		Registry: registry,
		Pool:     pool,
		Meetings: meetings,
	})

	return app.Router(), registry
}

func TestHealthHandler(t *testing.T) {
	router, registry := testApp(nil)

	_, err := registry.GetOrCreate("classroom-1")
	assert.Nil(t, err)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var health healthResponse
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Workers)
	assert.Equal(t, 1, health.Rooms)
	assert.Equal(t, 0, health.Participants)
}

func TestRoomsHandler(t *testing.T) {
	router, registry := testApp(nil)

	room, err := registry.GetOrCreate("classroom-1")
	assert.Nil(t, err)
	assert.Nil(t, room.AddParticipant(rtc.NewParticipant("peer-1", "Alice", "", true)))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/rooms", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)

	var rooms []roomResponse
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &rooms))
	assert.Len(t, rooms, 1)
	assert.Equal(t, core.RoomID("classroom-1"), rooms[0].ID)
	assert.Len(t, rooms[0].Participants, 1)
	assert.Equal(t, "Alice", rooms[0].Participants[0].Name)
}

func TestRoomExistsHandler(t *testing.T) {
	router, registry := testApp(nil)

	_, err := registry.GetOrCreate("classroom-1")
	assert.Nil(t, err)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/rooms/classroom-1", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"exists":true}`, recorder.Body.String())

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/rooms/unknown", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"exists":false}`, recorder.Body.String())
}

func TestMeetingsHandler(t *testing.T) {
	startedAt := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	lister := &MockMeetingsLister{
		Meetings: []*core.Meeting{
			{ID: 1, RoomID: "classroom-1", HostName: "Alice", StartedAt: startedAt, PeakParticipants: 5},
		},
	}
	router, _ := testApp(lister)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/meetings?page=2&per_page=10", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 2, lister.Page)
	assert.Equal(t, 10, lister.PerPage)

	var meetings []*core.Meeting
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &meetings))
	assert.Len(t, meetings, 1)
	assert.Equal(t, "classroom-1", meetings[0].RoomID)
}

func TestMeetingsHandlerStorageError(t *testing.T) {
	lister := &MockMeetingsLister{Err: errors.New("db is down")}
	router, _ := testApp(lister)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/meetings", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestMeetingsRouteAbsentWithoutStorage(t *testing.T) {
	router, _ := testApp(nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/meetings", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := testApp(nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
}
