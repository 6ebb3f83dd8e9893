// Package protocol frames records for a byte stream such as a UART. Frames
// use the Klipper block layout: a length byte, a sequence byte, the
// payload, a CRC16 and a trailing sync byte. Payload integers are VLQ
// encoded.
package protocol

import "github.com/pkg/errors"

// Frame layout
const (
	HeaderSize  = 2
	TrailerSize = 3
	FrameMin    = HeaderSize + TrailerSize
	FrameMax    = 64
	PayloadMax  = FrameMax - FrameMin

	posLen = 0
	posSeq = 1

	SyncByte = 0x7E
	SeqMask  = 0x0F
	SeqDest  = 0x10
)

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrShortBuffer    = errors.New("buffer too small")
	ErrPayloadTooLong = errors.New("payload too long for one frame")
)

// Frame is one decoded block.
type Frame struct {
	Seq     uint8
	Payload []byte
}
