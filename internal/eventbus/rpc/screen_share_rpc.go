package rpc

import (
	"encoding/json"

	"github.com/pion/webrtc/v3"
)

type ScreenShareStartParams struct {
	Parameters webrtc.RTPParameters `json:"rtp_parameters"`
}

// ScreenShareStartRpc swaps the publisher's video source to the screen
// track. The video producer keeps its identity so subscribers follow the
// switch without renegotiating.
type ScreenShareStartRpc struct {
	jsonRpcHead
	Params ScreenShareStartParams `json:"params"`
}

func NewScreenShareStartRpc(parameters webrtc.RTPParameters) *ScreenShareStartRpc {
	return &ScreenShareStartRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ScreenShareStartMethod,
		},
		Params: ScreenShareStartParams{Parameters: parameters},
	}
}

func (r ScreenShareStartRpc) GetMethod() Method {
	return r.Method
}

func (r ScreenShareStartRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ScreenShareStopRpc struct {
	jsonRpcHead
}

func NewScreenShareStopRpc() *ScreenShareStopRpc {
	return &ScreenShareStopRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ScreenShareStopMethod,
		},
	}
}

func (r ScreenShareStopRpc) GetMethod() Method {
	return r.Method
}

func (r ScreenShareStopRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
