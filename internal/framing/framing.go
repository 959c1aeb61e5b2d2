// Package framing splits a byte stream into Morse frames.
//
// Three modes are supported. Legacy treats every successful read as one frame,
// which is what legacy clients expect but breaks when TCP splits or
// coalesces writes. Line and Length delimit frames explicitly and survive
// partial reads; both ends of a connection must use the same mode.
package framing

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Mode selects the framing on the wire
type Mode string

const (
	ModeLegacy Mode = "legacy"
	ModeLine   Mode = "line"
	ModeLength Mode = "length"
)

const (
	// LegacyReadSize matches the receive size of the original relay
	LegacyReadSize = 1024

	// DefaultMaxFrameSize bounds line and length framed payloads
	DefaultMaxFrameSize = 4096

	lengthHeaderSize = 4
)

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrInvalidFrame  = errors.New("frame contains a delimiter")
)

// ParseMode parses a framing mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLegacy:
		return ModeLegacy, nil
	case ModeLine:
		return ModeLine, nil
	case ModeLength:
		return ModeLength, nil
	default:
		return "", fmt.Errorf("unknown framing mode %q", s)
	}
}

// Reader reads one frame at a time
type Reader interface {
	ReadFrame() ([]byte, error)
}

// Writer writes one frame at a time
type Writer interface {
	WriteFrame(payload []byte) error
}

// NewReader wraps r with the given framing. maxSize <= 0 uses DefaultMaxFrameSize.
func NewReader(mode Mode, r io.Reader, maxSize int) Reader {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	switch mode {
	case ModeLegacy:
		return &legacyReader{r: r, buf: make([]byte, LegacyReadSize)}
	case ModeLength:
		return &lengthReader{r: r, maxSize: maxSize}
	default:
		return &lineReader{r: bufio.NewReaderSize(r, LegacyReadSize), maxSize: maxSize}
	}
}

// NewWriter wraps w with the given framing
func NewWriter(mode Mode, w io.Writer) Writer {
	switch mode {
	case ModeLegacy:
		return &legacyWriter{w: w}
	case ModeLength:
		return &lengthWriter{w: w}
	default:
		return &lineWriter{w: w}
	}
}

type legacyReader struct {
	r   io.Reader
	buf []byte
}

// ReadFrame returns whatever a single read yields. A zero-byte read is
// reported as io.EOF so callers tear the connection down.
func (l *legacyReader) ReadFrame() ([]byte, error) {
	n, err := l.r.Read(l.buf)
	if n > 0 {
		frame := make([]byte, n)
		copy(frame, l.buf[:n])
		return frame, nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

type legacyWriter struct {
	w io.Writer
}

func (l *legacyWriter) WriteFrame(payload []byte) error {
	_, err := l.w.Write(payload)
	return err
}

type lineReader struct {
	r       *bufio.Reader
	maxSize int
	pending []byte
}

// ReadFrame returns the next non-blank line without its terminator. Data left
// unterminated at EOF is returned as a final frame.
func (l *lineReader) ReadFrame() ([]byte, error) {
	for {
		line, err := l.readLine()
		if len(line) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (l *lineReader) readLine() ([]byte, error) {
	l.pending = l.pending[:0]
	for {
		chunk, err := l.r.ReadSlice('\n')
		if len(l.pending)+len(chunk) > l.maxSize+2 {
			l.discardLine(err)
			return nil, fmt.Errorf("%w: limit %d", ErrFrameTooLarge, l.maxSize)
		}
		l.pending = append(l.pending, chunk...)

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		line := bytes.TrimRight(l.pending, "\r\n")
		if len(line) > l.maxSize {
			return nil, fmt.Errorf("%w: limit %d", ErrFrameTooLarge, l.maxSize)
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, err
	}
}

// discardLine skips the remainder of an oversized line so the stream stays aligned
func (l *lineReader) discardLine(err error) {
	for errors.Is(err, bufio.ErrBufferFull) {
		_, err = l.r.ReadSlice('\n')
	}
}

type lineWriter struct {
	w io.Writer
}

func (l *lineWriter) WriteFrame(payload []byte) error {
	if bytes.ContainsAny(payload, "\r\n") {
		return ErrInvalidFrame
	}
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, payload...)
	frame = append(frame, '\n')
	_, err := l.w.Write(frame)
	return err
}

type lengthReader struct {
	r       io.Reader
	maxSize int
	header  [lengthHeaderSize]byte
}

func (l *lengthReader) ReadFrame() ([]byte, error) {
	for {
		if _, err := io.ReadFull(l.r, l.header[:]); err != nil {
			return nil, err
		}
		size := binary.BigEndian.Uint32(l.header[:])
		if size > uint32(l.maxSize) {
			return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, l.maxSize)
		}
		if size == 0 {
			continue
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(l.r, payload); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		return payload, nil
	}
}

type lengthWriter struct {
	w io.Writer
}

func (l *lengthWriter) WriteFrame(payload []byte) error {
	frame := make([]byte, lengthHeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[:lengthHeaderSize], uint32(len(payload)))
	copy(frame[lengthHeaderSize:], payload)
	_, err := l.w.Write(frame)
	return err
}
