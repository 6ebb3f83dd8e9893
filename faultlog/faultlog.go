// Package faultlog streams controller faults over a byte link and decodes
// them on the host. Each fault is one protocol frame.
package faultlog

import (
	"io"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"intmux/interrupt"
	"intmux/protocol"
)

// ErrBadRecord marks a frame that arrived intact but does not hold a fault.
var ErrBadRecord = errors.New("bad fault record")

// Record is a decoded fault.
type Record struct {
	Kind    interrupt.FaultKind
	Core    int
	Line    interrupt.Line
	Source  interrupt.Source
	Seq     uint32
	Message string
}

func (r Record) String() string {
	return "#" + strconv.FormatUint(uint64(r.Seq), 10) +
		" core " + strconv.Itoa(r.Core) +
		" " + r.Kind.String() +
		" line " + strconv.Itoa(int(r.Line)) +
		" source " + strconv.Itoa(int(r.Source)) +
		": " + r.Message
}

// Sink implements interrupt.FaultSink by writing each fault as a frame.
type Sink struct {
	mu      sync.Mutex
	w       io.Writer
	seq     uint8
	written int
	err     error
}

// NewSink returns a sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Report implements interrupt.FaultSink. Write errors are kept for Err and
// stop further output.
func (s *Sink) Report(f interrupt.Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}

	frame, err := protocol.EncodeFrame(s.seq, EncodeFault(f))
	if err != nil {
		s.err = err
		return
	}
	if _, err := s.w.Write(frame); err != nil {
		s.err = errors.Wrap(err, "write fault frame")
		return
	}
	s.seq = (s.seq + 1) & protocol.SeqMask
	s.written++
}

// Written returns the number of frames written.
func (s *Sink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Err returns the first write error.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// EncodeFault builds the frame payload of f. The message is cut to fit
// one frame.
func EncodeFault(f interrupt.Fault) []byte {
	buf := make([]byte, 0, protocol.PayloadMax)
	buf = protocol.AppendVLQUint(buf, uint32(f.Kind))
	buf = protocol.AppendVLQUint(buf, uint32(f.Core))
	buf = protocol.AppendVLQUint(buf, uint32(f.Line))
	buf = protocol.AppendVLQUint(buf, uint32(f.Source))
	buf = protocol.AppendVLQUint(buf, f.Seq)

	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	// One byte of length prefix covers anything that fits.
	if room := protocol.PayloadMax - len(buf) - 1; len(msg) > room {
		msg = msg[:room]
	}
	return protocol.AppendBytes(buf, []byte(msg))
}

// DecodeFault parses a payload written by EncodeFault.
func DecodeFault(payload []byte) (Record, error) {
	var fields [5]uint32
	for i := range fields {
		v, err := protocol.ReadVLQUint(&payload)
		if err != nil {
			return Record{}, errors.Wrapf(ErrBadRecord, "field %d: %v", i, err)
		}
		fields[i] = v
	}
	msg, err := protocol.ReadBytes(&payload)
	if err != nil {
		return Record{}, errors.Wrapf(ErrBadRecord, "message: %v", err)
	}
	if fields[2] >= interrupt.MaxLines || fields[3] >= interrupt.MaxSources {
		return Record{}, errors.Wrapf(ErrBadRecord, "line %d source %d out of range", fields[2], fields[3])
	}

	return Record{
		Kind:    interrupt.FaultKind(fields[0]),
		Core:    int(fields[1]),
		Line:    interrupt.Line(fields[2]),
		Source:  interrupt.Source(fields[3]),
		Seq:     fields[4],
		Message: string(msg),
	}, nil
}

// Reader decodes fault records from a frame stream.
type Reader struct {
	fr *protocol.FrameReader
}

// NewReader returns a reader decoding faults from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{fr: protocol.NewFrameReader(r)}
}

// Read returns the next fault record.
func (r *Reader) Read() (Record, error) {
	f, err := r.fr.ReadFrame()
	if err != nil {
		return Record{}, err
	}
	return DecodeFault(f.Payload)
}

// Lost returns the number of frames known to be lost on the link.
func (r *Reader) Lost() int {
	return r.fr.Decoder().SeqGaps()
}
