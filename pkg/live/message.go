package live

import (
	"encoding/json"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Kind classifies a stream message.
type Kind string

const (
	KindSnapshot  Kind = "snapshot"
	KindUpdate    Kind = "update"
	KindHeartbeat Kind = "heartbeat"
	KindUnknown   Kind = "unknown"
)

const updateSuffix = "_update"

// ErrMalformedMessage is returned for frames that are not JSON objects with a type.
var ErrMalformedMessage = errors.New("live: malformed message")

// Message is one JSON text frame received from an analytics stream.
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Slice     string          `json:"slice,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Kind reports how the message should be applied.
func (m Message) Kind() Kind {
	switch {
	case m.Type == "snapshot":
		return KindSnapshot
	case m.Type == "pong" || m.Type == "ping":
		return KindHeartbeat
	case strings.HasSuffix(m.Type, updateSuffix) && len(m.Type) > len(updateSuffix):
		return KindUpdate
	default:
		return KindUnknown
	}
}

// Entity returns the entity name of an update message ("risk" for "risk_update").
func (m Message) Entity() string {
	if m.Kind() != KindUpdate {
		return ""
	}
	return strings.TrimSuffix(m.Type, updateSuffix)
}

// DedupKey identifies a message for replay suppression: the id when present,
// otherwise type, timestamp and a digest of the payload. Messages without an
// id or timestamp have no key.
func (m Message) DedupKey() string {
	if m.ID != "" {
		return "id:" + m.ID
	}
	if m.Timestamp == "" {
		return ""
	}
	h := fnv.New64a()
	_, _ = h.Write(m.Data)
	return m.Type + "@" + m.Timestamp + "#" + strconv.FormatUint(h.Sum64(), 16)
}

// ParseMessage decodes a frame. Ids and timestamps may be strings or numbers.
func ParseMessage(data []byte) (Message, error) {
	var frame struct {
		Type      string          `json:"type"`
		ID        any             `json:"id"`
		Timestamp any             `json:"timestamp"`
		Slice     string          `json:"slice"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return Message{}, errors.Join(ErrMalformedMessage, err)
	}
	if strings.TrimSpace(frame.Type) == "" {
		return Message{}, ErrMalformedMessage
	}
	return Message{
		Type:      strings.TrimSpace(frame.Type),
		ID:        cast.ToString(frame.ID),
		Timestamp: cast.ToString(frame.Timestamp),
		Slice:     frame.Slice,
		Data:      frame.Data,
	}, nil
}
