package main

import (
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/classmeet/sfu/internal/api"
	"github.com/classmeet/sfu/internal/config"
	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/engine"
	"github.com/classmeet/sfu/internal/eventbus"
	"github.com/classmeet/sfu/internal/rtc"
	"github.com/classmeet/sfu/internal/ws"
)

func main() {
	app := &cli.App{
		Name:        "classmeet-sfu",
		Usage:       "Session control plane for multi-party classrooms",
		Description: "",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "env",
				Usage:    "environment: either 'development' or 'production'",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "config-dir",
				Usage: "directory with config.<env>.yaml",
				Value: "configs",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "listen IP and port, example: ':3001', overrides the config file",
			},
		},
		Action: startServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}

func startServer(c *cli.Context) error {
	env := core.Environment(c.String("env"))

	cfg, err := config.Load(c.String("config-dir"), string(env))
	if err != nil {
		return err
	}
	if address := c.String("address"); address != "" {
		cfg.Address = address
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	bus := eventbus.RedisPubSub(rdb)

	var (
		meetingsStorer core.MeetingsStorer
		meetingsLister core.MeetingsLister
	)
	if cfg.DatabaseURL != "" {
		db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		meetings := core.NewMeetingsRepository(db)
		meetingsStorer = meetings
		meetingsLister = meetings
	} else {
		log.Warn().Msg("no database configured, meetings history disabled")
	}

	pool := engine.NewPool(engine.PoolOptions{
		NumWorkers: cfg.Engine.NumWorkers,
		// Worker loss is unrecoverable: exit and let the supervisor
		// restart the process.
		OnFatal: func(err error) {
			log.Fatal().Err(err).Msg("engine worker died")
		},
	})

	registry := rtc.NewRoomsRegistry(pool, cfg.RouterCodecs(), cfg.Rooms.MaxParticipants)

	admission := rtc.NewAdmissionController(cfg.Rooms.JoinRequestTTL)
	manager := rtc.NewManager(registry, admission, bus, meetingsStorer, config.HeaderExtensionURIs())

	router, err := eventbus.NewRouter(bus)
	if err != nil {
		return err
	}
	manager.Register(router)

	admission.Start()
	defer admission.Stop()

	<-router.Start()
	defer func() { <-router.Stop() }()

	apiApp := api.NewApp(api.AppOptions{
		Registry: registry,
		Pool:     pool,
		Meetings: meetingsLister,
	})

	wsApp := ws.New(ws.AppOptions{
		Env:              env,
		Address:          cfg.Address,
		EventsPublisher:  bus,
		EventsSubscriber: bus,
		API:              apiApp.Router(),
	})

	return wsApp.Start()
}
