package protocol

import (
	"io"

	"github.com/pkg/errors"
)

// AppendFrame appends one frame carrying payload with sequence seq.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	if len(payload) > PayloadMax {
		return dst, errors.Wrapf(ErrPayloadTooLong, "%d bytes, max %d", len(payload), PayloadMax)
	}
	start := len(dst)
	dst = append(dst, byte(FrameMin+len(payload)), SeqDest|seq&SeqMask)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), SyncByte), nil
}

// EncodeFrame returns a single frame.
func EncodeFrame(seq uint8, payload []byte) ([]byte, error) {
	return AppendFrame(make([]byte, 0, FrameMin+len(payload)), seq, payload)
}

// Decoder splits a byte stream into frames. Bytes that do not form a valid
// frame are discarded up to the next sync byte.
type Decoder struct {
	buf     []byte
	synced  bool
	dropped int
	nextSeq uint8
	seqGaps int
	haveSeq bool
}

// NewDecoder returns a decoder that starts synchronized.
func NewDecoder() *Decoder {
	return &Decoder{synced: true}
}

// Feed appends received bytes.
func (d *Decoder) Feed(data []byte) {
	d.buf = append(d.buf, data...)
}

// Dropped returns the number of bytes discarded while resynchronizing.
func (d *Decoder) Dropped() int { return d.dropped }

// SeqGaps returns how many times the sequence number skipped, meaning
// frames were lost on the wire.
func (d *Decoder) SeqGaps() int { return d.seqGaps }

// Next returns the next complete frame. It returns false when more input
// is needed. The payload is a copy.
func (d *Decoder) Next() (Frame, bool) {
	for len(d.buf) > 0 {
		if !d.synced {
			i := 0
			for i < len(d.buf) && d.buf[i] != SyncByte {
				i++
			}
			d.discard(i)
			if len(d.buf) == 0 {
				return Frame{}, false
			}
			d.buf = d.buf[1:]
			d.synced = true
			continue
		}

		if d.buf[0] == SyncByte {
			d.buf = d.buf[1:]
			continue
		}
		if len(d.buf) < FrameMin {
			return Frame{}, false
		}

		n := int(d.buf[posLen])
		if n < FrameMin || n > FrameMax || d.buf[posSeq]&^SeqMask != SeqDest {
			d.resync()
			continue
		}
		if len(d.buf) < n {
			return Frame{}, false
		}
		if d.buf[n-1] != SyncByte {
			d.resync()
			continue
		}
		crc := uint16(d.buf[n-TrailerSize])<<8 | uint16(d.buf[n-TrailerSize+1])
		if crc != CRC16(d.buf[:n-TrailerSize]) {
			d.resync()
			continue
		}

		f := Frame{
			Seq:     d.buf[posSeq] & SeqMask,
			Payload: append([]byte(nil), d.buf[HeaderSize:n-TrailerSize]...),
		}
		d.buf = d.buf[n:]
		d.track(f.Seq)
		return f, true
	}
	return Frame{}, false
}

func (d *Decoder) resync() {
	d.synced = false
	d.discard(1)
}

func (d *Decoder) discard(n int) {
	d.dropped += n
	d.buf = d.buf[n:]
}

func (d *Decoder) track(seq uint8) {
	if d.haveSeq && seq != d.nextSeq {
		d.seqGaps++
	}
	d.haveSeq = true
	d.nextSeq = (seq + 1) & SeqMask
}

// FrameReader reads frames from an io.Reader.
type FrameReader struct {
	r   io.Reader
	dec *Decoder
	buf [FrameMax]byte
}

// NewFrameReader returns a reader decoding frames from r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, dec: NewDecoder()}
}

// Decoder exposes the underlying decoder for its counters.
func (fr *FrameReader) Decoder() *Decoder { return fr.dec }

// ReadFrame blocks until a frame is complete or the reader fails.
func (fr *FrameReader) ReadFrame() (Frame, error) {
	for {
		if f, ok := fr.dec.Next(); ok {
			return f, nil
		}
		n, err := fr.r.Read(fr.buf[:])
		if n > 0 {
			fr.dec.Feed(fr.buf[:n])
			continue
		}
		if err != nil {
			return Frame{}, err
		}
	}
}
