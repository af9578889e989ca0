package rpc

import (
	"encoding/json"

	"github.com/classmeet/sfu/internal/core"
	"github.com/pion/webrtc/v3"
)

type CreateTransportParams struct {
	Direction string `json:"direction"`
}

type CreateTransportRpc struct {
	jsonRpcHead
	Params CreateTransportParams `json:"params"`
}

func NewCreateTransportRpc(id string, direction string) *CreateTransportRpc {
	return &CreateTransportRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			ID:      id,
			Method:  CreateTransportMethod,
		},
		Params: CreateTransportParams{Direction: direction},
	}
}

func (r CreateTransportRpc) GetMethod() Method {
	return r.Method
}

func (r CreateTransportRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ConnectTransportParams struct {
	TransportID core.TransportID      `json:"transport_id"`
	DTLS        webrtc.DTLSParameters `json:"dtls_parameters"`
}

type ConnectTransportRpc struct {
	jsonRpcHead
	Params ConnectTransportParams `json:"params"`
}

func NewConnectTransportRpc(id string, transportID core.TransportID, dtls webrtc.DTLSParameters) *ConnectTransportRpc {
	return &ConnectTransportRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			ID:      id,
			Method:  ConnectTransportMethod,
		},
		Params: ConnectTransportParams{TransportID: transportID, DTLS: dtls},
	}
}

func (r ConnectTransportRpc) GetMethod() Method {
	return r.Method
}

func (r ConnectTransportRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
