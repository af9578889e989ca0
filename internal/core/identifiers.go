package core

// RoomID identifies a meeting room. Exactly one live room may exist
// per identifier at a time.
type RoomID string

// PeerID is the signaling-channel identifier of a connected client and,
// once admitted, of its participant record.
type PeerID string

type TransportID string

type ProducerID string

type ConsumerID string

type Environment string

const (
	DevelopmentEnv Environment = "development"
	ProductionEnv  Environment = "production"
)

func (e Environment) IsProduction() bool {
	return e == ProductionEnv
}

func (e Environment) IsDevelopment() bool {
	return e == DevelopmentEnv
}
