package rpc

import (
	"encoding/json"

	"github.com/classmeet/sfu/internal/core"
)

type JoinParams struct {
	RoomID core.RoomID `json:"room_id"`
	Name   string      `json:"name"`
	Avatar string      `json:"avatar,omitempty"`
}

// JoinRpc asks for admission into a room. The first joiner of an empty
// room is admitted immediately as its host; everyone else waits for the
// host's verdict. Host status is assigned by the server.
type JoinRpc struct {
	jsonRpcHead
	Params JoinParams `json:"params"`
}

func NewJoinRpc(params JoinParams) *JoinRpc {
	return &JoinRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  JoinMethod,
		},
		Params: params,
	}
}

func (r JoinRpc) GetMethod() Method {
	return r.Method
}

func (r JoinRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
