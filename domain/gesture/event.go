package gesture

import (
	"fmt"
	"time"

	"github.com/satriahrh/morsenet/domain/entities"
)

// Kind identifies an input event
type Kind int

const (
	PressStart Kind = iota + 1
	PressEnd
	// Secondary is the word-gap trigger
	Secondary
	Send
	Clear
	// Key appends a symbol directly, bypassing timing
	Key
)

func (k Kind) String() string {
	switch k {
	case PressStart:
		return "press-start"
	case PressEnd:
		return "press-end"
	case Secondary:
		return "secondary"
	case Send:
		return "send"
	case Clear:
		return "clear"
	case Key:
		return "key"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is delivered by an input surface to a peer session
type Event struct {
	Kind     Kind
	At       time.Time
	Duration time.Duration   // PressEnd only
	Symbol   entities.Symbol // Key only
}

func NewPressStart(at time.Time) Event {
	return Event{Kind: PressStart, At: at}
}

func NewPressEnd(at time.Time, held time.Duration) Event {
	return Event{Kind: PressEnd, At: at, Duration: held}
}

func NewKey(at time.Time, s entities.Symbol) Event {
	return Event{Kind: Key, At: at, Symbol: s}
}

func NewSecondary(at time.Time) Event {
	return Event{Kind: Secondary, At: at}
}

func NewSend(at time.Time) Event {
	return Event{Kind: Send, At: at}
}

func NewClear(at time.Time) Event {
	return Event{Kind: Clear, At: at}
}
