package wire

import (
	"math"

	"github.com/computesdk/computesdk-sub001/fserrors"
	"github.com/computesdk/computesdk-sub001/internal/bin"
)

// Kind is the frame's control/data discriminator.
type Kind uint8

const (
	KindSubscribe   Kind = 0x01
	KindUnsubscribe Kind = 0x02
	KindData        Kind = 0x03
	KindError       Kind = 0x04
	KindConnected   Kind = 0x05
)

// Frame is the lowest-level wire unit: a kind, a channel, a msg_type, and
// an already-resolved payload. Callers that want the value resolution
// rules from §4.1 (empty/string/bytes/map) should build a Message instead
// and use EncodeBinary/DecodeBinary.
type Frame struct {
	Kind    Kind
	Channel string
	Type    string
	Payload []byte
}

// EncodeFrame serializes f per the bit-exact binary frame layout.
func EncodeFrame(f Frame) ([]byte, error) {
	if len(f.Channel) > math.MaxUint16 {
		return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeInvalidInput, errChannelTooLong)
	}
	if len(f.Type) > math.MaxUint16 {
		return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeInvalidInput, errTypeTooLong)
	}
	if uint64(len(f.Payload)) > math.MaxUint32 {
		return nil, fserrors.Wrap(fserrors.PathCodec, fserrors.StageEncode, fserrors.CodeInvalidInput, errValueTooLong)
	}

	buf := make([]byte, 0, 1+2+len(f.Channel)+2+len(f.Type)+4+len(f.Payload))
	buf = append(buf, byte(f.Kind))

	var u16 [2]byte
	bin.PutU16BE(u16[:], uint16(len(f.Channel)))
	buf = append(buf, u16[:]...)
	buf = append(buf, f.Channel...)

	bin.PutU16BE(u16[:], uint16(len(f.Type)))
	buf = append(buf, u16[:]...)
	buf = append(buf, f.Type...)

	var u32 [4]byte
	bin.PutU32BE(u32[:], uint32(len(f.Payload)))
	buf = append(buf, u32[:]...)
	buf = append(buf, f.Payload...)

	return buf, nil
}

// DecodeFrame parses b per the bit-exact binary frame layout. Trailing
// bytes beyond the declared payload length are ignored, matching how a
// websocket delivers one frame per message.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < 1 {
		return Frame{}, shortBuf()
	}
	kind := Kind(b[0])
	b = b[1:]

	if len(b) < 2 {
		return Frame{}, shortBuf()
	}
	chanLen := bin.U16BE(b[:2])
	b = b[2:]
	if len(b) < int(chanLen) {
		return Frame{}, shortBuf()
	}
	channel := string(b[:chanLen])
	b = b[chanLen:]

	if len(b) < 2 {
		return Frame{}, shortBuf()
	}
	typeLen := bin.U16BE(b[:2])
	b = b[2:]
	if len(b) < int(typeLen) {
		return Frame{}, shortBuf()
	}
	typ := string(b[:typeLen])
	b = b[typeLen:]

	if len(b) < 4 {
		return Frame{}, shortBuf()
	}
	payloadLen := bin.U32BE(b[:4])
	b = b[4:]
	if uint64(len(b)) < uint64(payloadLen) {
		return Frame{}, shortBuf()
	}
	payload := append([]byte(nil), b[:payloadLen]...)

	return Frame{Kind: kind, Channel: channel, Type: typ, Payload: payload}, nil
}
