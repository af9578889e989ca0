package core

import (
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	meetingsPageDefault    int = 1
	meetingsPerPageDefault int = 50
)

// Meeting is a history row for one lifetime of a room. Purely advisory:
// the live control plane never reads these back.
type Meeting struct {
	ID               int64      `json:"id,omitempty" db:"id"`
	RoomID           string     `json:"room_id" db:"room_id"`
	HostName         string     `json:"host_name" db:"host_name"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	PeakParticipants int        `json:"peak_participants" db:"peak_participants"`
}

type MeetingsStorer interface {
	MeetingStarted(roomID RoomID, hostName string) error
	MeetingFinished(roomID RoomID, peakParticipants int) error
}

type MeetingsLister interface {
	GetRecent(page int, perPage int) ([]*Meeting, error)
}

type MeetingsRepository struct {
	db *sqlx.DB
}

func NewMeetingsRepository(db *sqlx.DB) *MeetingsRepository {
	return &MeetingsRepository{
		db: db,
	}
}

func (r *MeetingsRepository) MeetingStarted(roomID RoomID, hostName string) error {
	_, err := r.db.Exec(
		`INSERT INTO meetings (room_id, host_name, started_at, peak_participants)
		VALUES ($1, $2, NOW(), 1)`,
		string(roomID),
		hostName,
	)
	return err
}

func (r *MeetingsRepository) MeetingFinished(roomID RoomID, peakParticipants int) error {
	_, err := r.db.Exec(
		`UPDATE meetings SET
			finished_at = NOW(),
			peak_participants = $1
		WHERE room_id = $2 AND finished_at IS NULL`,
		peakParticipants,
		string(roomID),
	)
	return err
}

func (r *MeetingsRepository) GetRecent(page int, perPage int) ([]*Meeting, error) {
	if page == 0 {
		page = meetingsPageDefault
	}
	if perPage == 0 {
		perPage = meetingsPerPageDefault
	}

	meetings := []*Meeting{}
	err := r.db.Select(&meetings,
		`SELECT id, room_id, host_name, started_at, finished_at, peak_participants
		FROM meetings
		ORDER BY started_at DESC LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, err
	}

	return meetings, nil
}
