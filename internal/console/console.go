// Package console drives a peer session from a terminal.
//
// Each input line is either a command or Morse text. Morse text is keyed
// symbol by symbol and sent as one frame:
//
//	... --- ...      send "... --- ..."
//	:press 150ms     one timed press (a dot with the default threshold)
//	:gap             word gap
//	:send            send the buffer
//	:clear           discard the buffer
//	:quit            leave
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/satriahrh/morsenet/domain/entities"
	"github.com/satriahrh/morsenet/domain/gesture"
	"github.com/satriahrh/morsenet/internal/session"
)

var (
	ErrQuit           = errors.New("quit requested")
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidInput   = errors.New("invalid morse input")
)

// Parse turns one input line into events stamped at now
func Parse(line string, now time.Time) ([]gesture.Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	if strings.HasPrefix(line, ":") {
		return parseCommand(line, now)
	}

	events := make([]gesture.Event, 0, len(line)+1)
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '.':
			events = append(events, gesture.NewKey(now, entities.Dot))
		case '-':
			events = append(events, gesture.NewKey(now, entities.Dash))
		case ' ':
			events = append(events, gesture.NewKey(now, entities.LetterGap))
		case '/':
			events = append(events, gesture.NewSecondary(now))
		default:
			return nil, fmt.Errorf("%w: %q at column %d", ErrInvalidInput, line[i], i+1)
		}
	}
	return append(events, gesture.NewSend(now)), nil
}

func parseCommand(line string, now time.Time) ([]gesture.Event, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":send":
		return []gesture.Event{gesture.NewSend(now)}, nil
	case ":clear":
		return []gesture.Event{gesture.NewClear(now)}, nil
	case ":gap":
		return []gesture.Event{gesture.NewSecondary(now)}, nil
	case ":quit", ":q":
		return nil, ErrQuit
	case ":press":
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: usage :press <duration>", ErrUnknownCommand)
		}
		held, err := parseHeld(fields[1])
		if err != nil {
			return nil, err
		}
		return []gesture.Event{
			gesture.NewPressStart(now),
			gesture.NewPressEnd(now.Add(held), held),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
}

// parseHeld accepts "150ms" or plain seconds "0.15"
func parseHeld(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d, nil
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("%w: bad duration %q", ErrInvalidInput, s)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Feed reads lines from r and forwards their events until EOF, :quit or ctx
// is done. Parse errors go to report and do not stop the feed.
func Feed(ctx context.Context, r io.Reader, events chan<- gesture.Event, report func(error)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		evs, err := Parse(scanner.Text(), time.Now())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			if report != nil {
				report(err)
			}
			continue
		}
		for _, ev := range evs {
			select {
			case events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return scanner.Err()
}

// Display writes session output as plain lines
type Display struct {
	mu sync.Mutex
	w  io.Writer
	// Verbose echoes every buffer change
	Verbose bool
}

func NewDisplay(w io.Writer, verbose bool) *Display {
	return &Display{w: w, Verbose: verbose}
}

func (d *Display) Update(v session.View) {
	if !d.Verbose || v.Morse == "" {
		return
	}
	d.printf("  %s  [%s]\n", v.Morse, v.Translation)
}

func (d *Display) Incoming(text string) {
	d.printf("<< %s\n", text)
}

func (d *Display) Status(text string) {
	d.printf("-- %s\n", text)
}

func (d *Display) printf(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, format, args...)
}
