// Package session implements the client side of the relay: it turns gesture
// events into a Morse buffer and transmits the buffer one frame per send.
package session

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/morsenet/domain/entities"
	"github.com/satriahrh/morsenet/domain/gesture"
	"github.com/satriahrh/morsenet/domain/morse"
	"github.com/satriahrh/morsenet/internal/framing"
)

// View is what a display shows after every buffer change
type View struct {
	Morse       string
	Translation string
}

// Display presents session state. Incoming and Status may be called from
// the listening goroutine concurrently with Update.
type Display interface {
	Update(v View)
	Incoming(text string)
	Status(text string)
}

// SendResult reports one send attempt. Sent is false for an empty buffer.
type SendResult struct {
	Morse       string
	Translation string
	Sent        bool
	Err         error
}

// Options tunes input interpretation
type Options struct {
	Classifier gesture.Classifier
	Codec      *morse.Codec
	// LetterGap is the idle time after a release that closes the current
	// letter on the next press. Zero disables implicit letter gaps.
	LetterGap time.Duration
}

// Session owns one buffer and one outbound connection
type Session struct {
	mu          sync.Mutex
	buffer      *entities.Buffer
	writer      framing.Writer
	classifier  gesture.Classifier
	codec       *morse.Codec
	letterGap   time.Duration
	lastRelease time.Time

	display Display
	logger  *zap.Logger
}

// New creates a session writing frames to w
func New(w framing.Writer, display Display, opts Options, logger *zap.Logger) *Session {
	if opts.Classifier.Threshold <= 0 {
		opts.Classifier = gesture.NewClassifier(0)
	}
	if opts.Codec == nil {
		opts.Codec = morse.NewCodec(morse.Strict)
	}
	if display == nil {
		display = nopDisplay{}
	}
	return &Session{
		buffer:     entities.NewBuffer(),
		writer:     w,
		classifier: opts.Classifier,
		codec:      opts.Codec,
		letterGap:  opts.LetterGap,
		display:    display,
		logger:     logger,
	}
}

// AppendSymbol adds a dot, dash or gap to the buffer
func (s *Session) AppendSymbol(sym entities.Symbol) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Append(sym)
	s.notify()
}

// AppendWordGap reports whether a separator was added
func (s *Session) AppendWordGap() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.buffer.AppendWordGap() {
		return false
	}
	s.notify()
	return true
}

// AppendLetterGap reports whether a separator was added
func (s *Session) AppendLetterGap() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.buffer.AppendLetterGap() {
		return false
	}
	s.notify()
	return true
}

// Clear discards the buffer without sending
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Clear()
	s.lastRelease = time.Time{}
	s.notify()
}

// View returns the current buffer and its translation
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// Send writes the buffer as one frame. The buffer is cleared whether or not
// the write succeeds; a failure is reported in the result only.
func (s *Session) Send() SendResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buffer.Empty() {
		return SendResult{}
	}

	v := s.view()
	result := SendResult{Morse: v.Morse, Translation: v.Translation}
	result.Err = s.writer.WriteFrame([]byte(v.Morse))
	result.Sent = result.Err == nil

	s.buffer.Clear()
	s.lastRelease = time.Time{}
	s.notify()

	if result.Err != nil {
		s.logger.Warn("Send failed", zap.String("morse", v.Morse), zap.Error(result.Err))
		s.display.Status("send failed: " + result.Err.Error())
	} else {
		s.logger.Debug("Sent frame", zap.String("morse", v.Morse), zap.String("translation", v.Translation))
	}
	return result
}

// Handle applies one input event. Only Send events yield a non-zero result.
func (s *Session) Handle(ev gesture.Event) SendResult {
	switch ev.Kind {
	case gesture.PressStart:
		s.pressStart(ev.At)
	case gesture.PressEnd:
		s.mark(s.classifier.Classify(ev.Duration), ev.At)
	case gesture.Key:
		if ev.Symbol.IsGap() {
			s.AppendSymbol(ev.Symbol)
		} else {
			s.mark(ev.Symbol, ev.At)
		}
	case gesture.Secondary:
		s.AppendWordGap()
	case gesture.Send:
		return s.Send()
	case gesture.Clear:
		s.Clear()
	default:
		s.logger.Debug("Ignoring event", zap.Stringer("kind", ev.Kind))
	}
	return SendResult{}
}

func (s *Session) pressStart(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.letterGap <= 0 || s.lastRelease.IsZero() {
		return
	}
	if at.Sub(s.lastRelease) >= s.letterGap && s.buffer.AppendLetterGap() {
		s.notify()
	}
}

func (s *Session) mark(sym entities.Symbol, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Append(sym)
	s.lastRelease = at
	s.notify()
}

// Run applies events until the channel closes or ctx is done
func (s *Session) Run(ctx context.Context, events <-chan gesture.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.Handle(ev)
		}
	}
}

// Listen delivers relayed text to the display until the connection ends.
// A clean close or a cancelled ctx returns nil.
func (s *Session) Listen(ctx context.Context, r framing.Reader) error {
	for {
		frame, err := r.ReadFrame()
		if len(frame) > 0 {
			s.display.Incoming(string(frame))
		}
		if err == nil {
			continue
		}

		if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			s.display.Status("disconnected from relay")
			return nil
		}
		s.display.Status("connection lost: " + err.Error())
		return err
	}
}

func (s *Session) view() View {
	rendered := s.buffer.Render()
	return View{Morse: rendered, Translation: s.codec.Decode(rendered)}
}

// notify must be called with mu held
func (s *Session) notify() {
	s.display.Update(s.view())
}

type nopDisplay struct{}

func (nopDisplay) Update(View)     {}
func (nopDisplay) Incoming(string) {}
func (nopDisplay) Status(string)   {}
