package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/classmeet/sfu/internal/core"
)

// MeetingsHandler serves the finished-meetings history, newest first.
func MeetingsHandler(meetings core.MeetingsLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

		records, err := meetings.GetRecent(page, perPage)
		if err != nil {
			log.Error().Err(err).Str("service", "api").Msg("list meetings")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, records)
	}
}
