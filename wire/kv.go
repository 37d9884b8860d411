package wire

import (
	"math"

	"github.com/computesdk/computesdk-sub001/fserrors"
	"github.com/computesdk/computesdk-sub001/internal/bin"
)

// ValueTag identifies the type of a key-value field's value.
type ValueTag uint8

const (
	TagString ValueTag = 0x01
	TagNumber ValueTag = 0x02
	TagBool   ValueTag = 0x03
	TagBytes  ValueTag = 0x04
)

// Value is a single tagged value in a key-value payload.
type Value struct {
	Tag   ValueTag
	str   string
	num   float64
	boo   bool
	bytes []byte
}

// String builds a string-tagged value.
func String(s string) Value { return Value{Tag: TagString, str: s} }

// Number builds a number-tagged value.
func Number(n float64) Value { return Value{Tag: TagNumber, num: n} }

// Bool builds a boolean-tagged value.
func Bool(b bool) Value { return Value{Tag: TagBool, boo: b} }

// Bytes builds a bytes-tagged value.
func Bytes(b []byte) Value { return Value{Tag: TagBytes, bytes: b} }

// AsString returns the string payload; ok is false if Tag != TagString.
func (v Value) AsString() (string, bool) {
	if v.Tag != TagString {
		return "", false
	}
	return v.str, true
}

// AsNumber returns the number payload; ok is false if Tag != TagNumber.
func (v Value) AsNumber() (float64, bool) {
	if v.Tag != TagNumber {
		return 0, false
	}
	return v.num, true
}

// AsBool returns the boolean payload; ok is false if Tag != TagBool.
func (v Value) AsBool() (bool, bool) {
	if v.Tag != TagBool {
		return false, false
	}
	return v.boo, true
}

// AsBytes returns the bytes payload; ok is false if Tag != TagBytes.
func (v Value) AsBytes() ([]byte, bool) {
	if v.Tag != TagBytes {
		return nil, false
	}
	return v.bytes, true
}

// Equal reports whether v and other carry the same tag and value.
func (v Value) Equal(other Value) bool {
	if v.Tag != other.Tag {
		return false
	}
	switch v.Tag {
	case TagString:
		return v.str == other.str
	case TagNumber:
		return v.num == other.num
	case TagBool:
		return v.boo == other.boo
	case TagBytes:
		return string(v.bytes) == string(other.bytes)
	default:
		return false
	}
}

// Field is one key-value pair in a Map.
type Field struct {
	Key   string
	Value Value
}

// Map is an ordered sequence of fields. Insertion order is preserved; the
// grammar permits duplicate keys, and lookups resolve them last-write-wins.
type Map []Field

// With returns a copy of m with (key, v) appended.
func (m Map) With(key string, v Value) Map {
	return append(append(Map(nil), m...), Field{Key: key, Value: v})
}

// WithString is a convenience wrapper around With(key, String(v)).
func (m Map) WithString(key, v string) Map { return m.With(key, String(v)) }

// WithNumber is a convenience wrapper around With(key, Number(v)).
func (m Map) WithNumber(key string, v float64) Map { return m.With(key, Number(v)) }

// WithBool is a convenience wrapper around With(key, Bool(v)).
func (m Map) WithBool(key string, v bool) Map { return m.With(key, Bool(v)) }

// WithBytes is a convenience wrapper around With(key, Bytes(v)).
func (m Map) WithBytes(key string, v []byte) Map { return m.With(key, Bytes(v)) }

// Get resolves key to its last-written value.
func (m Map) Get(key string) (Value, bool) {
	var v Value
	ok := false
	for _, f := range m {
		if f.Key == key {
			v, ok = f.Value, true
		}
	}
	return v, ok
}

// GetString resolves key to a string value.
func (m Map) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// GetNumber resolves key to a number value.
func (m Map) GetNumber(key string) (float64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsNumber()
}

// GetBool resolves key to a boolean value.
func (m Map) GetBool(key string) (bool, bool) {
	v, ok := m.Get(key)
	if !ok {
		return false, false
	}
	return v.AsBool()
}

// GetBytes resolves key to a bytes value.
func (m Map) GetBytes(key string) ([]byte, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	return v.AsBytes()
}

// Equal reports whether m and other contain the same fields in the same order.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}
	for i := range m {
		if m[i].Key != other[i].Key || !m[i].Value.Equal(other[i].Value) {
			return false
		}
	}
	return true
}

// EncodeMap serializes m per the bit-exact key-value payload layout.
func EncodeMap(m Map) ([]byte, error) {
	if len(m) > math.MaxUint16 {
		return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeInvalidInput, errTooManyFields)
	}
	buf := make([]byte, 2, 2+len(m)*8)
	bin.PutU16BE(buf, uint16(len(m)))
	for _, f := range m {
		if len(f.Key) > math.MaxUint16 {
			return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeInvalidInput, errKeyTooLong)
		}
		var valBytes []byte
		switch f.Value.Tag {
		case TagString:
			valBytes = []byte(f.Value.str)
		case TagNumber:
			valBytes = make([]byte, 8)
			bin.PutU64BE(valBytes, math.Float64bits(f.Value.num))
		case TagBool:
			valBytes = []byte{0x00}
			if f.Value.boo {
				valBytes[0] = 0x01
			}
		case TagBytes:
			valBytes = f.Value.bytes
		default:
			return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeUnknownTag, errUnknownTag)
		}
		if uint64(len(valBytes)) > math.MaxUint32 {
			return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeInvalidInput, errValueTooLong)
		}

		var hdr [2]byte
		bin.PutU16BE(hdr[:], uint16(len(f.Key)))
		buf = append(buf, hdr[:]...)
		buf = append(buf, f.Key...)
		buf = append(buf, byte(f.Value.Tag))
		var lenHdr [4]byte
		bin.PutU32BE(lenHdr[:], uint32(len(valBytes)))
		buf = append(buf, lenHdr[:]...)
		buf = append(buf, valBytes...)
	}
	return buf, nil
}

// DecodeMap parses b per the bit-exact key-value payload layout.
func DecodeMap(b []byte) (Map, error) {
	if len(b) < 2 {
		return nil, shortBuf()
	}
	numFields := bin.U16BE(b[:2])
	b = b[2:]
	out := make(Map, 0, numFields)
	for i := 0; i < int(numFields); i++ {
		if len(b) < 2 {
			return nil, shortBuf()
		}
		keyLen := bin.U16BE(b[:2])
		b = b[2:]
		if len(b) < int(keyLen) {
			return nil, shortBuf()
		}
		key := string(b[:keyLen])
		b = b[keyLen:]

		if len(b) < 1 {
			return nil, shortBuf()
		}
		tag := ValueTag(b[0])
		b = b[1:]

		if len(b) < 4 {
			return nil, shortBuf()
		}
		valLen := bin.U32BE(b[:4])
		b = b[4:]
		if uint64(len(b)) < uint64(valLen) {
			return nil, shortBuf()
		}
		valBytes := b[:valLen]
		b = b[valLen:]

		var v Value
		switch tag {
		case TagString:
			v = String(string(valBytes))
		case TagNumber:
			if valLen != 8 {
				return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageDecode, fserrors.CodeLengthMismatch, errLengthMismatch)
			}
			v = Number(math.Float64frombits(bin.U64BE(valBytes)))
		case TagBool:
			if valLen != 1 {
				return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageDecode, fserrors.CodeLengthMismatch, errLengthMismatch)
			}
			v = Bool(valBytes[0] != 0x00)
		case TagBytes:
			cp := append([]byte(nil), valBytes...)
			v = Bytes(cp)
		default:
			return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageDecode, fserrors.CodeUnknownTag, errUnknownTag)
		}
		out = append(out, Field{Key: key, Value: v})
	}
	return out, nil
}

func shortBuf() error {
	return fserrors.Wrap(fserrors.PathCodec, fserrors.StageDecode, fserrors.CodeShortBuffer, errShortBuffer)
}
