package rpc

import "encoding/json"

type ChatMessageParams struct {
	Text string `json:"text"`
}

type ChatMessageRpc struct {
	jsonRpcHead
	Params ChatMessageParams `json:"params"`
}

func NewChatMessageRpc(text string) *ChatMessageRpc {
	return &ChatMessageRpc{
		jsonRpcHead: jsonRpcHead{
			Version: jsonRpcVersion,
			Method:  ChatMessageMethod,
		},
		Params: ChatMessageParams{Text: text},
	}
}

func (r ChatMessageRpc) GetMethod() Method {
	return r.Method
}

func (r ChatMessageRpc) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
