package wire

import "errors"

var (
	errShortBuffer    = errors.New("wire: buffer too short")
	errUnknownTag     = errors.New("wire: unknown value tag")
	errLengthMismatch = errors.New("wire: value length does not match tag")
	errTooManyFields  = errors.New("wire: too many fields for u16 field count")
	errKeyTooLong     = errors.New("wire: key exceeds u16 length")
	errValueTooLong   = errors.New("wire: value exceeds u32 length")
	errChannelTooLong = errors.New("wire: channel exceeds u16 length")
	errTypeTooLong    = errors.New("wire: msg_type exceeds u16 length")
)
