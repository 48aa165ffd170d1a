package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameSize bounds a single frame; messages are small request/response
// payloads so anything larger is treated as a broken stream.
const DefaultMaxFrameSize = 1024 * 1024 // 1MB

const frameHeaderLen = 4

var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// FrameReader reads length-prefixed frames: a 4 byte big-endian length followed by the payload.
type FrameReader struct {
	r       *bufio.Reader
	maxSize int
	header  [frameHeaderLen]byte
}

func NewFrameReader(r io.Reader, maxSize int) *FrameReader {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &FrameReader{r: bufio.NewReader(r), maxSize: maxSize}
}

// ReadFrame blocks until a whole frame is available. A clean EOF between frames
// is returned as io.EOF, a stream cut inside a frame as io.ErrUnexpectedEOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(fr.header[:])
	if uint64(n) > uint64(fr.maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, fr.maxSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// FrameWriter writes length-prefixed frames. It is not safe for concurrent use;
// callers serialize writes.
type FrameWriter struct {
	w       *bufio.Writer
	maxSize int
}

func NewFrameWriter(w io.Writer, maxSize int) *FrameWriter {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &FrameWriter{w: bufio.NewWriter(w), maxSize: maxSize}
}

// WriteFrame writes header and payload and flushes, so one call is one frame on the wire.
func (fw *FrameWriter) WriteFrame(payload []byte) error {
	if len(payload) > fw.maxSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), fw.maxSize)
	}
	var header [frameHeaderLen]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := fw.w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := fw.w.Write(payload); err != nil {
		return fmt.Errorf("failed to write frame payload: %w", err)
	}
	if err := fw.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush frame: %w", err)
	}
	return nil
}
