// Package wire implements the binary frame format and key-value payload
// encoding used on the transport's websocket connection, plus a JSON
// fallback that carries the same messages at a higher byte cost. In the
// JSON mode the fields of a map payload do not keep their order, and a
// top-level bytes payload decodes as a base64 string (see DecodeJSON).
//
// Frame layout (big-endian throughout):
//
//	[u8 kind][u16 chan_len][chan][u16 type_len][type][u32 payload_len][payload]
//
// Key-value payload layout:
//
//	[u16 num_fields]{[u16 key_len][key][u8 tag][u32 value_len][value]}...
package wire
