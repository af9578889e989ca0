package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pion/webrtc/v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "test")
	assert.Nil(t, err)

	assert.Equal(t, ":3001", cfg.Address)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 4, cfg.Engine.NumWorkers)
	assert.Equal(t, 0, cfg.Rooms.MaxParticipants)
	assert.Equal(t, 60*time.Second, cfg.Rooms.JoinRequestTTL)
	assert.Len(t, cfg.Peer.EnabledCodecs, 4)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
address: ":4000"
redis_addr: "redis:6379"
database_url: "postgres://localhost/classmeet"
engine:
  num_workers: 8
rooms:
  max_participants: 25
  join_request_ttl: 30s
peer:
  enabled_codecs:
    - mime: audio/opus
    - mime: video/VP8
`)
	err := os.WriteFile(filepath.Join(dir, "config.test.yaml"), content, 0644)
	assert.Nil(t, err)

	cfg, err := Load(dir, "test")
	assert.Nil(t, err)

	assert.Equal(t, ":4000", cfg.Address)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "postgres://localhost/classmeet", cfg.DatabaseURL)
	assert.Equal(t, 8, cfg.Engine.NumWorkers)
	assert.Equal(t, 25, cfg.Rooms.MaxParticipants)
	assert.Equal(t, 30*time.Second, cfg.Rooms.JoinRequestTTL)
	assert.Len(t, cfg.Peer.EnabledCodecs, 2)
}

func TestRouterCodecsFollowEnabledList(t *testing.T) {
	cfg := &Config{
		Peer: PeerConfig{
			EnabledCodecs: []CodecSpec{
				{Mime: "audio/opus"},
				{Mime: "video/VP8"},
			},
		},
	}

	codecs := cfg.RouterCodecs()
	assert.Len(t, codecs, 2)
	assert.Equal(t, webrtc.MimeTypeOpus, codecs[0].MimeType)
	assert.Equal(t, webrtc.MimeTypeVP8, codecs[1].MimeType)
}

func TestRouterCodecsFmtpFilter(t *testing.T) {
	cfg := &Config{
		Peer: PeerConfig{
			EnabledCodecs: []CodecSpec{
				{Mime: "video/VP9", FmtpLine: "profile-id=0"},
				{Mime: "video/H264", FmtpLine: "profile-id=99"},
			},
		},
	}

	codecs := cfg.RouterCodecs()
	assert.Len(t, codecs, 1)
	assert.Equal(t, webrtc.MimeTypeVP9, codecs[0].MimeType)
}

func TestHeaderExtensionURIs(t *testing.T) {
	uris := HeaderExtensionURIs()

	assert.Contains(t, uris, "urn:ietf:params:rtp-hdrext:sdes:mid")
	assert.Contains(t, uris, "urn:ietf:params:rtp-hdrext:ssrc-audio-level")
}
