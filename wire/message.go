package wire

import "github.com/computesdk/computesdk-sub001/fserrors"

// PayloadKind discriminates the four payload shapes a Message can carry.
type PayloadKind uint8

const (
	PayloadEmpty PayloadKind = iota
	PayloadString
	PayloadBytes
	PayloadMap
)

// Payload is the resolved content of a Message, per §4.1's payload
// resolution rule: empty, raw UTF-8 string, opaque bytes, or a structured map.
type Payload struct {
	Kind  PayloadKind
	Str   string
	Bytes []byte
	Map   Map
}

// EmptyPayload is the zero-value payload.
var EmptyPayload = Payload{Kind: PayloadEmpty}

// StringPayload builds a string payload.
func StringPayload(s string) Payload { return Payload{Kind: PayloadString, Str: s} }

// BytesPayload builds a bytes payload.
func BytesPayload(b []byte) Payload { return Payload{Kind: PayloadBytes, Bytes: b} }

// MapPayload builds a structured map payload.
func MapPayload(m Map) Payload { return Payload{Kind: PayloadMap, Map: m} }

// Message is the logical frame content before the binary/JSON encoding
// decision is made; it is what channel clients and the transport build
// and consume.
type Message struct {
	Kind    Kind
	Channel string
	Type    string
	Payload Payload
}

// Subscribe builds a subscribe control message for channel.
func Subscribe(channel string) Message {
	return Message{Kind: KindSubscribe, Channel: channel, Type: "subscribe"}
}

// Unsubscribe builds an unsubscribe control message for channel.
func Unsubscribe(channel string) Message {
	return Message{Kind: KindUnsubscribe, Channel: channel, Type: "unsubscribe"}
}

// Data builds a data message with an already-resolved payload.
func Data(channel, msgType string, payload Payload) Message {
	return Message{Kind: KindData, Channel: channel, Type: msgType, Payload: payload}
}

// structuredTypes lists the msg_type values that are known to carry a
// key-value payload on the inbound path (§4.1).
var structuredTypes = map[string]bool{
	"terminal:input":  true,
	"terminal:resize": true,
	"terminal:output":  true,
	"terminal:error":   true,
	"file:changed":     true,
	"signal":           true,
	"command:start":    true,
	"command:stdout":   true,
	"command:stderr":   true,
	"command:exit":     true,
	"test":             true,
}

// IsStructuredType reports whether msgType is known to carry a key-value payload.
func IsStructuredType(msgType string) bool { return structuredTypes[msgType] }

func effectiveType(msg Message) string {
	switch msg.Kind {
	case KindSubscribe:
		return "subscribe"
	case KindUnsubscribe:
		return "unsubscribe"
	default:
		return msg.Type
	}
}

// EncodeBinary resolves msg.Payload to bytes and serializes the result as
// a binary Frame.
func EncodeBinary(msg Message) ([]byte, error) {
	var payloadBytes []byte
	switch msg.Payload.Kind {
	case PayloadEmpty:
		payloadBytes = nil
	case PayloadString:
		payloadBytes = []byte(msg.Payload.Str)
	case PayloadBytes:
		payloadBytes = msg.Payload.Bytes
	case PayloadMap:
		b, err := EncodeMap(msg.Payload.Map)
		if err != nil {
			return nil, err
		}
		payloadBytes = b
	default:
		return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeUnknownTag, errUnknownTag)
	}
	return EncodeFrame(Frame{
		Kind:    msg.Kind,
		Channel: msg.Channel,
		Type:    effectiveType(msg),
		Payload: payloadBytes,
	})
}

// DecodeBinary parses a binary Frame and resolves its payload back into a
// Message. A structured msg_type whose payload fails to decode as a
// key-value map is downgraded to a PayloadBytes result rather than
// returning an error; the transport's inbound path dispatches such a
// message like any other, with its raw payload bytes.
func DecodeBinary(b []byte) (Message, error) {
	f, err := DecodeFrame(b)
	if err != nil {
		return Message{}, err
	}
	msg := Message{Kind: f.Kind, Channel: f.Channel, Type: f.Type}
	if len(f.Payload) == 0 {
		msg.Payload = EmptyPayload
		return msg, nil
	}
	if IsStructuredType(f.Type) {
		if m, decErr := DecodeMap(f.Payload); decErr == nil {
			msg.Payload = MapPayload(m)
			return msg, nil
		}
	}
	msg.Payload = BytesPayload(f.Payload)
	return msg, nil
}
