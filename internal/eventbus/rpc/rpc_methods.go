package rpc

import (
	"encoding/json"
	"errors"
	"io"
)

const jsonRpcVersion = "2.0"

type Method string

const (
	JoinMethod             Method = "join"
	ApproveJoinMethod      Method = "approve_join"
	RejectJoinMethod       Method = "reject_join"
	SetCapabilitiesMethod  Method = "set_capabilities"
	CreateTransportMethod  Method = "create_transport"
	ConnectTransportMethod Method = "connect_transport"
	ProduceMethod          Method = "produce"
	ConsumeMethod          Method = "consume"
	ResumeConsumerMethod   Method = "resume_consumer"
	GetProducersMethod     Method = "get_producers"
	ToggleAudioMethod      Method = "toggle_audio"
	ToggleVideoMethod      Method = "toggle_video"
	ScreenShareStartMethod Method = "screen_share_start"
	ScreenShareStopMethod  Method = "screen_share_stop"
	ChatMessageMethod      Method = "chat_message"
	LeaveMethod            Method = "leave"
)

var (
	ErrUnknownRpcType = errors.New("unknown RPC type")
	ErrMalformedRpc   = errors.New("malformed RPC")
)

type Rpc interface {
	GetMethod() Method
	CorrelationID() string
	ToJSON() ([]byte, error)
}

// jsonRpcHead carries the envelope fields shared by every message. ID is
// the correlation token: set on calls that expect a result or error back,
// empty on fire-and-forget events.
type jsonRpcHead struct {
	Version string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  Method `json:"method"`
}

func (h jsonRpcHead) CorrelationID() string {
	return h.ID
}

type jsonRpc struct {
	jsonRpcHead
	Params json.RawMessage `json:"params"`
}

func RpcFromReader(reader io.Reader) (Rpc, error) {
	envelope := &jsonRpc{}

	err := json.NewDecoder(reader).Decode(envelope)
	if err != nil {
		return nil, err
	}

	head := jsonRpcHead{
		Version: jsonRpcVersion,
		ID:      envelope.ID,
		Method:  envelope.Method,
	}

	switch envelope.Method {
	case JoinMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p JoinParams) Rpc {
			return &JoinRpc{jsonRpcHead: h, Params: p}
		})
	case ApproveJoinMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p AdmissionParams) Rpc {
			return &ApproveJoinRpc{jsonRpcHead: h, Params: p}
		})
	case RejectJoinMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p AdmissionParams) Rpc {
			return &RejectJoinRpc{jsonRpcHead: h, Params: p}
		})
	case SetCapabilitiesMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p SetCapabilitiesParams) Rpc {
			return &SetCapabilitiesRpc{jsonRpcHead: h, Params: p}
		})
	case CreateTransportMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p CreateTransportParams) Rpc {
			return &CreateTransportRpc{jsonRpcHead: h, Params: p}
		})
	case ConnectTransportMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p ConnectTransportParams) Rpc {
			return &ConnectTransportRpc{jsonRpcHead: h, Params: p}
		})
	case ProduceMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p ProduceParams) Rpc {
			return &ProduceRpc{jsonRpcHead: h, Params: p}
		})
	case ConsumeMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p ConsumeParams) Rpc {
			return &ConsumeRpc{jsonRpcHead: h, Params: p}
		})
	case ResumeConsumerMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p ResumeConsumerParams) Rpc {
			return &ResumeConsumerRpc{jsonRpcHead: h, Params: p}
		})
	case GetProducersMethod:
		return &GetProducersRpc{jsonRpcHead: head}, nil
	case ToggleAudioMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p ToggleParams) Rpc {
			return &ToggleAudioRpc{jsonRpcHead: h, Params: p}
		})
	case ToggleVideoMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p ToggleParams) Rpc {
			return &ToggleVideoRpc{jsonRpcHead: h, Params: p}
		})
	case ScreenShareStartMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p ScreenShareStartParams) Rpc {
			return &ScreenShareStartRpc{jsonRpcHead: h, Params: p}
		})
	case ScreenShareStopMethod:
		return &ScreenShareStopRpc{jsonRpcHead: head}, nil
	case ChatMessageMethod:
		return decodeParams(head, envelope.Params, func(h jsonRpcHead, p ChatMessageParams) Rpc {
			return &ChatMessageRpc{jsonRpcHead: h, Params: p}
		})
	case LeaveMethod:
		return &LeaveRpc{jsonRpcHead: head}, nil
	default:
		return nil, ErrUnknownRpcType
	}
}

func decodeParams[P any](head jsonRpcHead, raw json.RawMessage, build func(jsonRpcHead, P) Rpc) (Rpc, error) {
	var params P
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, ErrMalformedRpc
		}
	}

	return build(head, params), nil
}
