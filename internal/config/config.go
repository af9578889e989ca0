package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v3"
)

const frameMarking = "urn:ietf:params:rtp-hdrext:framemarking"

type Config struct {
	Address     string       `mapstructure:"address"`
	RedisAddr   string       `mapstructure:"redis_addr"`
	RedisDB     int          `mapstructure:"redis_db"`
	DatabaseURL string       `mapstructure:"database_url"`
	Engine      EngineConfig `mapstructure:"engine"`
	Rooms       RoomsConfig  `mapstructure:"rooms"`
	Peer        PeerConfig   `mapstructure:"peer"`
}

type EngineConfig struct {
	NumWorkers int `mapstructure:"num_workers"`
}

type RoomsConfig struct {
	// MaxParticipants caps a room's size; 0 means unlimited.
	MaxParticipants int `mapstructure:"max_participants"`
	// JoinRequestTTL bounds how long a pending join waits for the host.
	JoinRequestTTL time.Duration `mapstructure:"join_request_ttl"`
}

type CodecSpec struct {
	Mime     string `mapstructure:"mime"`
	FmtpLine string `mapstructure:"fmtp_line"`
}

type PeerConfig struct {
	EnabledCodecs []CodecSpec `mapstructure:"enabled_codecs"`
}

// Load reads config.<env>.yaml from dir. A missing file is not an error:
// the defaults describe a runnable local setup.
func Load(dir string, env string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fmt.Sprintf("%s/config.%s.yaml", dir, env))

	v.SetDefault("address", ":3001")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("engine.num_workers", 4)
	v.SetDefault("rooms.max_participants", 0)
	v.SetDefault("rooms.join_request_ttl", "60s")

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if len(cfg.Peer.EnabledCodecs) == 0 {
		cfg.Peer.EnabledCodecs = []CodecSpec{
			{Mime: webrtc.MimeTypeOpus},
			{Mime: webrtc.MimeTypeVP8},
			{Mime: webrtc.MimeTypeVP9},
			{Mime: webrtc.MimeTypeH264},
		}
	}

	return cfg, nil
}

// RouterCodecs builds the codec set every room router is created with,
// filtered down to the enabled-codec specs.
func (c *Config) RouterCodecs() []webrtc.RTPCodecParameters {
	all := []webrtc.RTPCodecParameters{
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{
				MimeType:    webrtc.MimeTypeOpus,
				ClockRate:   48000,
				Channels:    2,
				SDPFmtpLine: "minptime=10;useinbandfec=1",
			},
			PayloadType: 111,
		},
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{
				MimeType:  webrtc.MimeTypeVP8,
				ClockRate: 90000,
			},
			PayloadType: 96,
		},
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{
				MimeType:    webrtc.MimeTypeVP9,
				ClockRate:   90000,
				SDPFmtpLine: "profile-id=0",
			},
			PayloadType: 98,
		},
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{
				MimeType:    webrtc.MimeTypeH264,
				ClockRate:   90000,
				SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f",
			},
			PayloadType: 125,
		},
	}

	enabled := make([]webrtc.RTPCodecParameters, 0, len(all))
	for _, codec := range all {
		if c.codecEnabled(codec.RTPCodecCapability) {
			enabled = append(enabled, codec)
		}
	}

	return enabled
}

// HeaderExtensionURIs is advertised alongside the codec set in the
// router capability description.
func HeaderExtensionURIs() []string {
	return []string{
		sdp.SDESMidURI,
		sdp.SDESRTPStreamIDURI,
		sdp.AudioLevelURI,
		sdp.TransportCCURI,
		frameMarking,
	}
}

func (c *Config) codecEnabled(capability webrtc.RTPCodecCapability) bool {
	for _, spec := range c.Peer.EnabledCodecs {
		if !strings.EqualFold(spec.Mime, capability.MimeType) {
			continue
		}
		if spec.FmtpLine == "" || strings.EqualFold(spec.FmtpLine, capability.SDPFmtpLine) {
			return true
		}
	}
	return false
}
