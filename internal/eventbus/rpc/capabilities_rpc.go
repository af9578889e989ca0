package rpc

import (
	"encoding/json"

	"github.com/pion/webrtc/v3"
)

type SetCapabilitiesParams struct {
	Codecs []webrtc.RTPCodecCapability `json:"codecs"`
}

// SetCapabilitiesRpc declares what the client can receive. Sent once,
// after admission and before any consume.
type SetCapabilitiesRpc struct {
	jsonRpcHead
	Params SetCapabilitiesParams `json:"params"`
}

func NewSetCapabilitiesRpc(codecs []webrtc.RTPCodecCapability) *SetCapabilitiesRpc {
	return &SetCapabilitiesRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  SetCapabilitiesMethod,
		},
		Params: SetCapabilitiesParams{Codecs: codecs},
	}
}

func (r SetCapabilitiesRpc) GetMethod() Method {
	return r.Method
}

func (r SetCapabilitiesRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
