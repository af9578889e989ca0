// Package engine is the boundary to the media-routing engine. The control
// plane consumes it only through capability negotiation and transport
// creation; packet forwarding happens below this interface.
package engine

import "errors"

type Direction string

const (
	DirectionSend Direction = "send"
	DirectionRecv Direction = "recv"
)

func (d Direction) Valid() bool {
	return d == DirectionSend || d == DirectionRecv
}

var (
	ErrNoWorkers            = errors.New("engine: no workers in pool")
	ErrWorkerDead           = errors.New("engine: worker is dead")
	ErrRouterClosed         = errors.New("engine: router is closed")
	ErrTransportClosed      = errors.New("engine: transport is closed")
	ErrTransportConnected   = errors.New("engine: transport is already connected")
	ErrTransportUnconnected = errors.New("engine: transport is not connected")
	ErrWrongDirection       = errors.New("engine: operation not allowed for transport direction")
	ErrProducerClosed       = errors.New("engine: producer is closed")
	ErrProducerNotFound     = errors.New("engine: producer not found")
	ErrConsumerClosed       = errors.New("engine: consumer is closed")
	ErrCannotConsume        = errors.New("engine: capabilities incompatible with producer")
)
