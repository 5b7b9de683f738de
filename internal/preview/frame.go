package preview

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Message is a client frame. Source and Value update a named signal;
// Event and Path dispatch an event. A frame may carry both, the update is
// applied first.
type Message struct {
	Source string `json:"source,omitempty" msgpack:"source,omitempty"`
	Value  any    `json:"value,omitempty" msgpack:"value,omitempty"`
	Event  string `json:"event,omitempty" msgpack:"event,omitempty"`
	Path   string `json:"path,omitempty" msgpack:"path,omitempty"`
}

// Reply is a server frame carrying the serialized DOM.
type Reply struct {
	HTML    string        `json:"html" msgpack:"html"`
	Handled bool          `json:"handled,omitempty" msgpack:"handled,omitempty"`
	Events  []EventRecord `json:"events,omitempty" msgpack:"events,omitempty"`
	Error   string        `json:"error,omitempty" msgpack:"error,omitempty"`
}

// DecodeMessage decodes a websocket frame. Text frames are JSON and binary
// frames are msgpack.
func DecodeMessage(messageType int, data []byte) (Message, error) {
	var m Message
	var err error
	switch messageType {
	case websocket.TextMessage:
		err = json.Unmarshal(data, &m)
	case websocket.BinaryMessage:
		err = msgpack.Unmarshal(data, &m)
	default:
		return m, fmt.Errorf("preview: unsupported frame type %d", messageType)
	}
	if err != nil {
		return m, fmt.Errorf("preview: decode frame: %w", err)
	}
	return m, nil
}

// EncodeReply encodes r in the same format as the client's frame.
func EncodeReply(messageType int, r Reply) ([]byte, error) {
	if messageType == websocket.BinaryMessage {
		return msgpack.Marshal(r)
	}
	return json.Marshal(r)
}
