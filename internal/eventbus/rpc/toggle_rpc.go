package rpc

import "encoding/json"

type ToggleParams struct {
	Enabled bool `json:"enabled"`
}

type ToggleAudioRpc struct {
	jsonRpcHead
	Params ToggleParams `json:"params"`
}

func NewToggleAudioRpc(enabled bool) *ToggleAudioRpc {
	return &ToggleAudioRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ToggleAudioMethod,
		},
		Params: ToggleParams{Enabled: enabled},
	}
}

func (r ToggleAudioRpc) GetMethod() Method {
	return r.Method
}

func (r ToggleAudioRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ToggleVideoRpc struct {
	jsonRpcHead
	Params ToggleParams `json:"params"`
}

func NewToggleVideoRpc(enabled bool) *ToggleVideoRpc {
	return &ToggleVideoRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ToggleVideoMethod,
		},
		Params: ToggleParams{Enabled: enabled},
	}
}

func (r ToggleVideoRpc) GetMethod() Method {
	return r.Method
}

func (r ToggleVideoRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
