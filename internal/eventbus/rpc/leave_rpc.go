package rpc

import "encoding/json"

// LeaveRpc announces an orderly departure. The same teardown runs when
// the signaling connection drops without one.
type LeaveRpc struct {
	jsonRpcHead
}

func NewLeaveRpc() *LeaveRpc {
	return &LeaveRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  LeaveMethod,
		},
	}
}

func (r LeaveRpc) GetMethod() Method {
	return r.Method
}

func (r LeaveRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
