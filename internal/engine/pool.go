package engine

import (
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pion/webrtc/v3"
)

// Pool owns a fixed set of long-lived engine workers and spreads new
// routers across them. A worker death is unrecoverable: in-memory session
// state cannot be reconciled with a dead media engine, so the pool reports
// it through OnFatal and the process is expected to restart.
type Pool struct {
	mu      sync.RWMutex
	workers []*Worker
	onFatal func(error)
}

type PoolOptions struct {
	NumWorkers int
	// OnFatal is invoked once per dead worker. The default handler only
	// logs; cmd/server installs one that exits the process.
	OnFatal func(error)
}

func NewPool(options PoolOptions) *Pool {
	if options.NumWorkers <= 0 {
		options.NumWorkers = 1
	}

	pool := &Pool{
		onFatal: options.OnFatal,
	}

	for i := 0; i < options.NumWorkers; i++ {
		pool.workers = append(pool.workers, newWorker(pool.workerDied))
	}

	log.Info().Str("service", "engine").Int("workers", options.NumWorkers).Msg("worker pool initialized")

	return pool
}

// SelectWorker picks a worker uniformly at random. Sessions are
// independent, so no affinity is needed.
func (p *Pool) SelectWorker() (*Worker, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.workers) == 0 {
		return nil, ErrNoWorkers
	}

	return p.workers[rand.Intn(len(p.workers))], nil
}

// CreateRouter allocates a router on a freshly selected worker.
func (p *Pool) CreateRouter(codecs []webrtc.RTPCodecParameters) (*Router, error) {
	worker, err := p.SelectWorker()
	if err != nil {
		return nil, err
	}

	return worker.CreateRouter(codecs)
}

func (p *Pool) WorkerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.workers)
}

func (p *Pool) Workers() []*Worker {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workers := make([]*Worker, len(p.workers))
	copy(workers, p.workers)

	return workers
}

func (p *Pool) workerDied(w *Worker, err error) {
	log.Error().Err(err).Str("service", "engine").Str("workerID", string(w.ID)).Msg("worker died")

	if p.onFatal != nil {
		p.onFatal(err)
	}
}
