package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pion/webrtc/v3"
)

func testCodecs() []webrtc.RTPCodecParameters {
	return []webrtc.RTPCodecParameters{
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			PayloadType:        111,
		},
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			PayloadType:        96,
		},
	}
}

func TestNewPoolDefaultsToOneWorker(t *testing.T) {
	pool := NewPool(PoolOptions{})

	assert.Equal(t, 1, pool.WorkerCount())
}

func TestSelectWorker(t *testing.T) {
	pool := NewPool(PoolOptions{NumWorkers: 4})

	worker, err := pool.SelectWorker()
	assert.Nil(t, err)
	assert.NotNil(t, worker)
	assert.True(t, worker.Healthy())
}

func TestCreateRouter(t *testing.T) {
	pool := NewPool(PoolOptions{NumWorkers: 2})

	router, err := pool.CreateRouter(testCodecs())
	assert.Nil(t, err)
	assert.Len(t, router.Capabilities(), 2)
}

func TestWorkerKillClosesRouters(t *testing.T) {
	var fatalErr error
	pool := NewPool(PoolOptions{
		NumWorkers: 1,
		OnFatal: func(err error) {
			fatalErr = err
		},
	})

	router, err := pool.CreateRouter(testCodecs())
	assert.Nil(t, err)

	worker, err := pool.SelectWorker()
	assert.Nil(t, err)

	cause := errors.New("simulated crash")
	worker.Kill(cause)

	assert.False(t, worker.Healthy())
	assert.Equal(t, cause, fatalErr)
	assert.Equal(t, 0, worker.routerCount())

	_, err = router.CreateTransport(DirectionSend)
	assert.Equal(t, ErrRouterClosed, err)

	_, err = worker.CreateRouter(testCodecs())
	assert.Equal(t, ErrWorkerDead, err)
}

func TestWorkerKillIsIdempotent(t *testing.T) {
	fired := 0
	pool := NewPool(PoolOptions{
		NumWorkers: 1,
		OnFatal: func(err error) {
			fired++
		},
	})

	worker, err := pool.SelectWorker()
	assert.Nil(t, err)

	worker.Kill(errors.New("first"))
	worker.Kill(errors.New("second"))

	assert.Equal(t, 1, fired)
}
