package wire

import (
	"encoding/base64"
	"encoding/json"

	"github.com/computesdk/computesdk-sub001/fserrors"
)

// jsonEnvelope is the wire shape of the JSON fallback mode: a flat
// {type, channel, data} object. It is used when a deployment cannot
// negotiate the binary subprotocol.
type jsonEnvelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// jsonMapValue is the JSON rendering of a single key-value Field. Number
// and bool values round-trip natively through encoding/json; bytes values
// are base64-encoded since JSON has no binary type, and the tag keeps them
// distinct from strings on decode. A top-level bytes payload carries no
// such tag: EncodeJSON writes it as a base64 string, so DecodeJSON returns
// it as a string payload — an accepted limitation of the fallback mode.
type jsonMapValue struct {
	Tag   string `json:"tag"`
	Value any    `json:"value"`
}

// EncodeJSON resolves msg.Payload to a JSON envelope.
func EncodeJSON(msg Message) ([]byte, error) {
	env := jsonEnvelope{Type: effectiveType(msg), Channel: msg.Channel}
	switch msg.Payload.Kind {
	case PayloadEmpty:
		// leave Data nil
	case PayloadString:
		raw, err := json.Marshal(msg.Payload.Str)
		if err != nil {
			return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeInvalidInput, err)
		}
		env.Data = raw
	case PayloadBytes:
		raw, err := json.Marshal(base64.StdEncoding.EncodeToString(msg.Payload.Bytes))
		if err != nil {
			return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeInvalidInput, err)
		}
		env.Data = raw
	case PayloadMap:
		fields := make(map[string]jsonMapValue, len(msg.Payload.Map))
		for _, f := range msg.Payload.Map {
			jv, err := jsonValue(f.Value)
			if err != nil {
				return nil, err
			}
			fields[f.Key] = jv
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeInvalidInput, err)
		}
		env.Data = raw
	default:
		return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeUnknownTag, errUnknownTag)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeInvalidInput, err)
	}
	return b, nil
}

func jsonValue(v Value) (jsonMapValue, error) {
	switch v.Tag {
	case TagString:
		s, _ := v.AsString()
		return jsonMapValue{Tag: "string", Value: s}, nil
	case TagNumber:
		n, _ := v.AsNumber()
		return jsonMapValue{Tag: "number", Value: n}, nil
	case TagBool:
		b, _ := v.AsBool()
		return jsonMapValue{Tag: "bool", Value: b}, nil
	case TagBytes:
		b, _ := v.AsBytes()
		return jsonMapValue{Tag: "bytes", Value: base64.StdEncoding.EncodeToString(b)}, nil
	default:
		return jsonMapValue{}, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeUnknownTag, errUnknownTag)
	}
}

// DecodeJSON parses a JSON envelope back into a Message. A structured
// msg_type attempts to decode Data as a field map, mirroring
// DecodeBinary's downgrade behavior for the binary mode; the decoded
// fields come back in no defined order, because the envelope carries them
// as a JSON object. Otherwise Data that is a JSON string becomes a string
// payload and any other Data is kept as its raw JSON bytes.
func DecodeJSON(b []byte) (Message, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Message{}, fserrors.Wrap(fserrors.PathCodec, fserrors.StageDecode, fserrors.CodeInvalidInput, err)
	}
	msg := Message{Channel: env.Channel, Type: env.Type}
	switch env.Type {
	case "subscribe":
		msg.Kind = KindSubscribe
	case "unsubscribe":
		msg.Kind = KindUnsubscribe
	default:
		msg.Kind = KindData
	}
	if len(env.Data) == 0 {
		msg.Payload = EmptyPayload
		return msg, nil
	}
	if IsStructuredType(env.Type) {
		var fields map[string]jsonMapValue
		if err := json.Unmarshal(env.Data, &fields); err == nil {
			m, decErr := mapFromJSON(fields)
			if decErr == nil {
				msg.Payload = MapPayload(m)
				return msg, nil
			}
		}
	}
	var s string
	if err := json.Unmarshal(env.Data, &s); err == nil {
		msg.Payload = StringPayload(s)
		return msg, nil
	}
	msg.Payload = BytesPayload(append([]byte(nil), env.Data...))
	return msg, nil
}

func mapFromJSON(fields map[string]jsonMapValue) (Map, error) {
	m := make(Map, 0, len(fields))
	for key, jv := range fields {
		var v Value
		switch jv.Tag {
		case "string":
			s, _ := jv.Value.(string)
			v = String(s)
		case "number":
			n, _ := jv.Value.(float64)
			v = Number(n)
		case "bool":
			bv, _ := jv.Value.(bool)
			v = Bool(bv)
		case "bytes":
			s, _ := jv.Value.(string)
			raw, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageDecode, fserrors.CodeInvalidInput, err)
			}
			v = Bytes(raw)
		default:
			return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageDecode, fserrors.CodeUnknownTag, errUnknownTag)
		}
		m = append(m, Field{Key: key, Value: v})
	}
	return m, nil
}
