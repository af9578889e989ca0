package engine

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pion/webrtc/v3"
)

type WorkerID string

// Worker is an opaque handle to one media-engine process. Workers are
// created once at startup and never replaced: losing one takes the media
// path of every session routed through it.
type Worker struct {
	ID WorkerID

	mu      sync.Mutex
	dead    bool
	routers map[string]*Router
	onDied  func(*Worker, error)
}

func newWorker(onDied func(*Worker, error)) *Worker {
	return &Worker{
		ID:      WorkerID(uuid.New().String()),
		routers: make(map[string]*Router),
		onDied:  onDied,
	}
}

func (w *Worker) Healthy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return !w.dead
}

// CreateRouter allocates a new capability scope on this worker.
func (w *Worker) CreateRouter(codecs []webrtc.RTPCodecParameters) (*Router, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dead {
		return nil, ErrWorkerDead
	}

	router := newRouter(w, codecs)
	w.routers[string(router.ID)] = router

	log.Debug().Str("service", "engine").Str("workerID", string(w.ID)).Str("routerID", string(router.ID)).Msg("router created")

	return router, nil
}

// Kill marks the worker dead and reports the failure upstream. Used by
// tests and by driver integrations relaying a fatal engine signal.
func (w *Worker) Kill(err error) {
	w.mu.Lock()
	if w.dead {
		w.mu.Unlock()
		return
	}
	w.dead = true
	routers := make([]*Router, 0, len(w.routers))
	for _, r := range w.routers {
		routers = append(routers, r)
	}
	w.routers = make(map[string]*Router)
	w.mu.Unlock()

	for _, r := range routers {
		r.Close()
	}

	if w.onDied != nil {
		w.onDied(w, err)
	}
}

func (w *Worker) forgetRouter(router *Router) {
	w.mu.Lock()
	delete(w.routers, string(router.ID))
	w.mu.Unlock()
}

func (w *Worker) routerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.routers)
}
