package rpc

import (
	"encoding/json"

	"github.com/classmeet/sfu/internal/core"
)

// AdmissionParams names the pending peer a host verdict applies to.
type AdmissionParams struct {
	PeerID core.PeerID `json:"peer_id"`
}

type ApproveJoinRpc struct {
	jsonRpcHead
	Params AdmissionParams `json:"params"`
}

func NewApproveJoinRpc(peerID core.PeerID) *ApproveJoinRpc {
	return &ApproveJoinRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ApproveJoinMethod,
		},
		Params: AdmissionParams{PeerID: peerID},
	}
}

func (r ApproveJoinRpc) GetMethod() Method {
	return r.Method
}

func (r ApproveJoinRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type RejectJoinRpc struct {
	jsonRpcHead
	Params AdmissionParams `json:"params"`
}

func NewRejectJoinRpc(peerID core.PeerID) *RejectJoinRpc {
	return &RejectJoinRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  RejectJoinMethod,
		},
		Params: AdmissionParams{PeerID: peerID},
	}
}

func (r RejectJoinRpc) GetMethod() Method {
	return r.Method
}

func (r RejectJoinRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
