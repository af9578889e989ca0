package core

import "time"

// ParticipantInfo is the JSON snapshot of a participant's public state,
// sent in admission payloads and state-change broadcasts.
type ParticipantInfo struct {
	ID             PeerID `json:"peer_id"`
	Name           string `json:"name"`
	Avatar         string `json:"avatar,omitempty"`
	IsHost         bool   `json:"is_host"`
	IsMuted        bool   `json:"is_muted"`
	IsVideoOn      bool   `json:"is_video_on"`
	IsScreenShared bool   `json:"is_screen_shared"`
	Online         bool   `json:"online"`
}

// ChatMessage is one entry of a room's append-only message log. The log
// is broadcast entry by entry and replayed in full to new joiners.
type ChatMessage struct {
	ID         string    `json:"id"`
	Sender     PeerID    `json:"sender"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}
