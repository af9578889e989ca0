package rpc

import (
	"encoding/json"

	"github.com/classmeet/sfu/internal/core"
	"github.com/pion/webrtc/v3"
)

type ProduceParams struct {
	TransportID core.TransportID     `json:"transport_id"`
	Kind        string               `json:"kind"`
	Parameters  webrtc.RTPParameters `json:"rtp_parameters"`
	ScreenShare bool                 `json:"screen_share,omitempty"`
}

type ProduceRpc struct {
	jsonRpcHead
	Params ProduceParams `json:"params"`
}

func NewProduceRpc(id string, params ProduceParams) *ProduceRpc {
	return &ProduceRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			ID:      id,
			Method:  ProduceMethod,
		},
		Params: params,
	}
}

func (r ProduceRpc) GetMethod() Method {
	return r.Method
}

func (r ProduceRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ConsumeParams struct {
	TransportID core.TransportID `json:"transport_id"`
	ProducerID  core.ProducerID  `json:"producer_id"`
}

type ConsumeRpc struct {
	jsonRpcHead
	Params ConsumeParams `json:"params"`
}

func NewConsumeRpc(id string, transportID core.TransportID, producerID core.ProducerID) *ConsumeRpc {
	return &ConsumeRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			ID:      id,
			Method:  ConsumeMethod,
		},
		Params: ConsumeParams{TransportID: transportID, ProducerID: producerID},
	}
}

func (r ConsumeRpc) GetMethod() Method {
	return r.Method
}

func (r ConsumeRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ResumeConsumerParams struct {
	ConsumerID core.ConsumerID `json:"consumer_id"`
}

type ResumeConsumerRpc struct {
	jsonRpcHead
	Params ResumeConsumerParams `json:"params"`
}

func NewResumeConsumerRpc(id string, consumerID core.ConsumerID) *ResumeConsumerRpc {
	return &ResumeConsumerRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			ID:      id,
			Method:  ResumeConsumerMethod,
		},
		Params: ResumeConsumerParams{ConsumerID: consumerID},
	}
}

func (r ResumeConsumerRpc) GetMethod() Method {
	return r.Method
}

func (r ResumeConsumerRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// GetProducersRpc asks for every producer currently live in the room,
// so a late joiner can subscribe to streams published before it arrived.
type GetProducersRpc struct {
	jsonRpcHead
}

func NewGetProducersRpc(id string) *GetProducersRpc {
	return &GetProducersRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			ID:      id,
			Method:  GetProducersMethod,
		},
	}
}

func (r GetProducersRpc) GetMethod() Method {
	return r.Method
}

func (r GetProducersRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
