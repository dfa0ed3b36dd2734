// Package protocol decodes frames of the TOPSAIL field sensor protocol
// and encodes the acknowledgment reply.
//
// Frame layout (offsets in bytes):
//
//	[0:4)   correlation id, text
//	[4:20)  device id, text
//	[20:36) device name, text
//	[36]    message kind: 0x01 registration, 0x09 reporting
//	[37]    reserved
//	[38:40) declared body length, big endian
//	[40:)   body, reporting only
//
// Body layout:
//
//	[0:6)   timestamp YYMMDDHHMMSS, BCD
//	[6]     sampling interval, seconds
//	[7]     battery percent, BCD
//	[8]     signal strength, BCD
//	[9]     reserved
//	[10:)   readings, 4 bytes (8 BCD digits) each
//
// All functions are pure, never block and keep no state between calls.
package protocol
