package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/classmeet/sfu/internal/client"
	"github.com/classmeet/sfu/internal/core"
	"github.com/pion/webrtc/v3"
)

func main() {
	app := &cli.App{
		Name:        "classmeet-bot",
		Usage:       "Smoke-test client: joins a room, publishes and subscribes",
		Description: "",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Value: "ws://localhost:3001/ws",
				Usage: "signaling endpoint",
			},
			&cli.StringFlag{
				Name:     "room",
				Usage:    "room to join",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "name",
				Value: "bot",
				Usage: "display name",
			},
			&cli.StringFlag{
				Name:  "say",
				Usage: "chat message to send after joining",
			},
			&cli.DurationFlag{
				Name:  "call-timeout",
				Value: 10 * time.Second,
				Usage: "how long to wait for each signaling reply",
			},
		},
		Action: startBot,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Printf("%v\n", err)
	}
}

func startBot(c *cli.Context) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	orchestrator := client.New(client.Options{
		URL:           c.String("url"),
		CallTimeout:   c.Duration("call-timeout"),
		AutoSubscribe: true,
	})
	defer orchestrator.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := orchestrator.Connect(ctx); err != nil {
		return err
	}
	log.Info().Str("peerID", string(orchestrator.PeerID())).Msg("connected")

	approved, err := orchestrator.Join(ctx, core.RoomID(c.String("room")), c.String("name"))
	if err != nil {
		return err
	}
	log.Info().Str("roomID", string(approved.RoomID)).Int("participants", len(approved.Participants)).Msg("joined")

	if err := orchestrator.DeclareCapabilities(approved.Capabilities); err != nil {
		return err
	}
	if err := orchestrator.EstablishTransports(ctx); err != nil {
		return err
	}

	if _, err := orchestrator.Publish(ctx, "audio", audioParameters(approved.Capabilities.Codecs), false); err != nil {
		return err
	}
	if err := orchestrator.SubscribeAll(ctx); err != nil {
		return err
	}

	if text := c.String("say"); text != "" {
		if err := orchestrator.SendChat(text); err != nil {
			return err
		}
	}

	// Auto-approve join requests when the server made us the host.
	autoApprove := false
	for _, p := range approved.Participants {
		if p.ID == orchestrator.PeerID() && p.IsHost {
			autoApprove = true
		}
	}

	for {
		select {
		case event, ok := <-orchestrator.Events():
			if !ok {
				return nil
			}
			log.Info().Str("kind", string(event.Kind)).Interface("event", event).Msg("event")

			if event.Kind == client.EventJoinRequest && autoApprove {
				if err := orchestrator.ApproveJoin(event.Peer.ID); err != nil {
					log.Error().Err(err).Msg("approve join")
				}
			}
		case <-interrupt:
			log.Info().Msg("interrupt")
			return orchestrator.Leave()
		}
	}
}

func audioParameters(codecs []webrtc.RTPCodecParameters) webrtc.RTPParameters {
	for _, codec := range codecs {
		if codec.MimeType == webrtc.MimeTypeOpus {
			return webrtc.RTPParameters{Codecs: []webrtc.RTPCodecParameters{codec}}
		}
	}

	return webrtc.RTPParameters{}
}
