package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/engine"
	"github.com/classmeet/sfu/internal/rtc"
)

type healthResponse struct {
	Status       string `json:"status"`
	Workers      int    `json:"workers"`
	Rooms        int    `json:"rooms"`
	Participants int    `json:"participants"`
	Timestamp    string `json:"timestamp"`
}

func HealthHandler(registry *rtc.RoomsRegistry, pool *engine.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, participants := registry.Counts()

		writeJSON(w, http.StatusOK, healthResponse{
			Status:       "ok",
			Workers:      pool.WorkerCount(),
			Rooms:        rooms,
			Participants: participants,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
		})
	}
}

type roomResponse struct {
	ID           core.RoomID            `json:"room_id"`
	CreatedAt    time.Time              `json:"created_at"`
	Participants []core.ParticipantInfo `json:"participants"`
}

func RoomsHandler(registry *rtc.RoomsRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := registry.Rooms()

		response := make([]roomResponse, 0, len(rooms))
		for _, room := range rooms {
			response = append(response, roomResponse{
				ID:           room.ID,
				CreatedAt:    room.CreatedAt,
				Participants: room.ParticipantInfos(),
			})
		}

		writeJSON(w, http.StatusOK, response)
	}
}

func RoomExistsHandler(registry *rtc.RoomsRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := core.RoomID(chi.URLParam(r, "roomID"))

		writeJSON(w, http.StatusOK, map[string]bool{
			"exists": registry.Exists(roomID),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Str("service", "api").Msg("encode response")
	}
}
