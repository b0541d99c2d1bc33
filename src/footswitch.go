package imogen

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Optional hardware sustain pedal input, the gpiocdev
 *		descendant of the engine's GPIO output control line: a
 *		footswitch wired to a GPIO chip line is read each time the
 *		caller polls it and folded into the same sustain controller event
 *		the MIDI layer already understands.
 *
 *------------------------------------------------------------------*/

// gpiodInputLine is the subset of *gpiocdev.Line this package depends on,
// narrowed so a test double can stand in without a real GPIO chip.
type gpiodInputLine interface {
	Value() (int, error)
	Close() error
}

// FootswitchReader polls a single GPIO line and reports sustain pedal
// transitions as controller events, the same shape ProcessMidi expects
// from a CC 0x40 message.
type FootswitchReader struct {
	line    gpiodInputLine
	invert  bool
	pressed bool
	primed  bool
}

// NewFootswitchReader opens lineNum on the named GPIO chip (e.g.
// "gpiochip0") as an input with an internal pull-up, so an unconnected
// switch reads as released. invert should be set for switches that pull
// the line low when pressed.
func NewFootswitchReader(chipName string, lineNum int, invert bool) (*FootswitchReader, error) {
	var line, err = gpiocdev.RequestLine(chipName, lineNum, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("imogen: opening footswitch line %s:%d: %w", chipName, lineNum, err)
	}

	return &FootswitchReader{line: line, invert: invert}, nil
}

// Close releases the underlying GPIO line.
func (f *FootswitchReader) Close() error {
	return f.line.Close()
}

// Poll reads the current pedal state. active is true when the pedal is
// pressed, accounting for invert.
func (f *FootswitchReader) Poll() (active bool, err error) {
	var v int
	v, err = f.line.Value()
	if err != nil {
		return false, fmt.Errorf("imogen: reading footswitch line: %w", err)
	}

	active = v != 0
	if f.invert {
		active = !active
	}

	return active, nil
}

// PollEvent polls the pedal and, if its state changed since the previous
// call, returns a sustain controller TimedEvent at the given timestamp.
// The first call after construction only primes the reader; it never
// reports a spurious transition for the pedal's resting state.
func (f *FootswitchReader) PollEvent(timestamp int) (TimedEvent, bool, error) {
	var active, err = f.Poll()
	if err != nil {
		return TimedEvent{}, false, err
	}

	if !f.primed {
		f.primed = true
		f.pressed = active
		return TimedEvent{}, false, nil
	}

	if active == f.pressed {
		return TimedEvent{}, false, nil
	}

	f.pressed = active

	var ccValue = IfThenElse[uint8](active, 127, 0)

	return TimedEvent{
		Timestamp:  timestamp,
		Kind:       EventController,
		Controller: ControllerSustain,
		CCValue:    ccValue,
	}, true, nil
}
