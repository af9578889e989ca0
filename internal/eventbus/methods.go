package eventbus

import (
	"encoding/json"

	"github.com/classmeet/sfu/internal/core"
	"github.com/pion/webrtc/v3"
)

const jsonRpcVersion = "2.0"

type Method string

const (
	WelcomeMethod            Method = "welcome"
	JoinApprovedMethod       Method = "join_approved"
	JoinDeniedMethod         Method = "join_denied"
	JoinRequestMethod        Method = "join_request"
	UserJoinedMethod         Method = "user_joined"
	UserLeftMethod           Method = "user_left"
	ParticipantUpdatedMethod Method = "participant_updated"
	NewProducerMethod        Method = "new_producer"
	ProducerClosedMethod     Method = "producer_closed"
	ChatMessageMethod        Method = "chat_message"
)

type jsonRpcHead struct {
	Version string `json:"jsonrpc"`
	Method  Method `json:"method"`
}

// RouterCapabilities describes what the room's router can route. Sent in
// join_approved so the client negotiates its device against it.
type RouterCapabilities struct {
	Codecs           []webrtc.RTPCodecParameters `json:"codecs"`
	HeaderExtensions []string                    `json:"header_extensions"`
}

type WelcomeRpc struct {
	jsonRpcHead
	Params struct {
		PeerID core.PeerID `json:"peer_id"`
	} `json:"params"`
}

func NewWelcomeRpc(peerID core.PeerID) *WelcomeRpc {
	rpc := &WelcomeRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  WelcomeMethod,
		},
	}
	rpc.Params.PeerID = peerID

	return rpc
}

func (r WelcomeRpc) GetMethod() Method {
	return r.Method
}

func (r WelcomeRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// JoinApprovedParams is the full room snapshot an admitted peer needs to
// start: who is present, the chat so far, and the router capabilities.
type JoinApprovedParams struct {
	RoomID       core.RoomID            `json:"room_id"`
	Capabilities RouterCapabilities     `json:"router_capabilities"`
	Participants []core.ParticipantInfo `json:"participants"`
	Messages     []core.ChatMessage     `json:"messages"`
}

type JoinApprovedRpc struct {
	jsonRpcHead
	Params JoinApprovedParams `json:"params"`
}

func NewJoinApprovedRpc(params JoinApprovedParams) *JoinApprovedRpc {
	return &JoinApprovedRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  JoinApprovedMethod,
		},
		Params: params,
	}
}

func (r JoinApprovedRpc) GetMethod() Method {
	return r.Method
}

func (r JoinApprovedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type JoinDeniedParams struct {
	RoomID core.RoomID `json:"room_id"`
	Reason string      `json:"reason"`
}

type JoinDeniedRpc struct {
	jsonRpcHead
	Params JoinDeniedParams `json:"params"`
}

func NewJoinDeniedRpc(roomID core.RoomID, reason string) *JoinDeniedRpc {
	return &JoinDeniedRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  JoinDeniedMethod,
		},
		Params: JoinDeniedParams{RoomID: roomID, Reason: reason},
	}
}

func (r JoinDeniedRpc) GetMethod() Method {
	return r.Method
}

func (r JoinDeniedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// JoinRequestRpc goes to the host when someone is waiting at the door.
type JoinRequestRpc struct {
	jsonRpcHead
	Params struct {
		Peer core.ParticipantInfo `json:"peer"`
	} `json:"params"`
}

func NewJoinRequestRpc(peer core.ParticipantInfo) *JoinRequestRpc {
	rpc := &JoinRequestRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  JoinRequestMethod,
		},
	}
	rpc.Params.Peer = peer

	return rpc
}

func (r JoinRequestRpc) GetMethod() Method {
	return r.Method
}

func (r JoinRequestRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type UserJoinedRpc struct {
	jsonRpcHead
	Params struct {
		Participant core.ParticipantInfo `json:"participant"`
	} `json:"params"`
}

func NewUserJoinedRpc(participant core.ParticipantInfo) *UserJoinedRpc {
	rpc := &UserJoinedRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  UserJoinedMethod,
		},
	}
	rpc.Params.Participant = participant

	return rpc
}

func (r UserJoinedRpc) GetMethod() Method {
	return r.Method
}

func (r UserJoinedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type UserLeftRpc struct {
	jsonRpcHead
	Params struct {
		PeerID core.PeerID `json:"peer_id"`
	} `json:"params"`
}

func NewUserLeftRpc(peerID core.PeerID) *UserLeftRpc {
	rpc := &UserLeftRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  UserLeftMethod,
		},
	}
	rpc.Params.PeerID = peerID

	return rpc
}

func (r UserLeftRpc) GetMethod() Method {
	return r.Method
}

func (r UserLeftRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ParticipantUpdatedRpc broadcasts a media-state flip: mute, camera,
// screen share.
type ParticipantUpdatedRpc struct {
	jsonRpcHead
	Params struct {
		Participant core.ParticipantInfo `json:"participant"`
	} `json:"params"`
}

func NewParticipantUpdatedRpc(participant core.ParticipantInfo) *ParticipantUpdatedRpc {
	rpc := &ParticipantUpdatedRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ParticipantUpdatedMethod,
		},
	}
	rpc.Params.Participant = participant

	return rpc
}

func (r ParticipantUpdatedRpc) GetMethod() Method {
	return r.Method
}

func (r ParticipantUpdatedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type NewProducerParams struct {
	PeerID      core.PeerID     `json:"peer_id"`
	ProducerID  core.ProducerID `json:"producer_id"`
	Kind        string          `json:"kind"`
	ScreenShare bool            `json:"screen_share,omitempty"`
}

type NewProducerRpc struct {
	jsonRpcHead
	Params NewProducerParams `json:"params"`
}

func NewNewProducerRpc(params NewProducerParams) *NewProducerRpc {
	return &NewProducerRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  NewProducerMethod,
		},
		Params: params,
	}
}

func (r NewProducerRpc) GetMethod() Method {
	return r.Method
}

func (r NewProducerRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ProducerClosedParams struct {
	PeerID     core.PeerID     `json:"peer_id"`
	ProducerID core.ProducerID `json:"producer_id"`
}

type ProducerClosedRpc struct {
	jsonRpcHead
	Params ProducerClosedParams `json:"params"`
}

func NewProducerClosedRpc(peerID core.PeerID, producerID core.ProducerID) *ProducerClosedRpc {
	return &ProducerClosedRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ProducerClosedMethod,
		},
		Params: ProducerClosedParams{PeerID: peerID, ProducerID: producerID},
	}
}

func (r ProducerClosedRpc) GetMethod() Method {
	return r.Method
}

func (r ProducerClosedRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type ChatMessageRpc struct {
	jsonRpcHead
	Params core.ChatMessage `json:"params"`
}

func NewChatMessageRpc(message core.ChatMessage) *ChatMessageRpc {
	return &ChatMessageRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ChatMessageMethod,
		},
		Params: message,
	}
}

func (r ChatMessageRpc) GetMethod() Method {
	return r.Method
}

func (r ChatMessageRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ResultRpc answers a correlated call. ID echoes the call's correlation
// token.
type ResultRpc struct {
	Version string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Result  interface{} `json:"result"`
}

func NewResultRpc(id string, result interface{}) *ResultRpc {
	return &ResultRpc{
		Version: jsonRpcVersion,
		ID:      id,
		Result:  result,
	}
}

func (r ResultRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

type RpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ErrorRpc struct {
	Version string   `json:"jsonrpc"`
	ID      string   `json:"id"`
	Error   RpcError `json:"error"`
}

func NewErrorRpc(id string, code int, message string) *ErrorRpc {
	return &ErrorRpc{
		Version: jsonRpcVersion,
		ID:      id,
		Error:   RpcError{Code: code, Message: message},
	}
}

func (r ErrorRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
