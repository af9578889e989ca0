package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/classmeet/sfu/internal/core"
	"github.com/classmeet/sfu/internal/engine"
	"github.com/classmeet/sfu/internal/rtc"
)

// AppOptions is options of the application
type AppOptions struct {
	Registry *rtc.RoomsRegistry
	Pool     *engine.Pool
	Meetings core.MeetingsLister

	router *chi.Mux
}

// App is the HTTP surface next to the signaling socket: liveness, room
// introspection and the meetings history.
type App struct {
	AppOptions
}

// NewApp creates a new API application
func NewApp(options AppOptions) *App {
	options.router = chi.NewRouter()

	app := &App{
		options,
	}
	return app
}

// Router is function for construct http router
func (app *App) Router() http.Handler {
	app.router.Get("/health", HealthHandler(app.Registry, app.Pool))
	app.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/rooms", RoomsHandler(app.Registry))
		r.Get("/rooms/{roomID}", RoomExistsHandler(app.Registry))
		if app.Meetings != nil {
			r.Get("/meetings", MeetingsHandler(app.Meetings))
		}
	})
	app.router.Handle("/metrics", promhttp.Handler())

	return app.router
}
