package imogen

import "gitlab.com/gomidi/midi/v2"

/*------------------------------------------------------------------
 *
 * Purpose:	Translates raw MIDI bytes to and from the synth's internal
 *		TimedEvent taxonomy, using gomidi's message encoders and
 *		getters rather than hand-parsing status bytes.
 *
 *------------------------------------------------------------------*/

// DecodeMidiEvent parses one raw MIDI message stamped at sample offset
// timestamp within the current block into a TimedEvent. The second
// return value is false for message types the synth does not act on
// (the host's aggregate record may still want to pass those through
// untouched; this engine only reports what it understood).
func DecodeMidiEvent(raw []byte, timestamp int) (TimedEvent, bool) {
	var msg = midi.Message(raw)

	var channel, key, velocity uint8
	if msg.GetNoteOn(&channel, &key, &velocity) {
		return TimedEvent{Timestamp: timestamp, Kind: EventNoteOn, Note: key, Velocity: velocity}, true
	}

	if msg.GetNoteOff(&channel, &key, &velocity) {
		return TimedEvent{Timestamp: timestamp, Kind: EventNoteOff, Note: key, Velocity: velocity}, true
	}

	var rel int16
	var abs uint16
	if msg.GetPitchBend(&channel, &rel, &abs) {
		return TimedEvent{Timestamp: timestamp, Kind: EventPitchWheel, Value: int(abs >> 7)}, true
	}

	var controller, ccValue uint8
	if msg.GetControlChange(&channel, &controller, &ccValue) {
		return TimedEvent{Timestamp: timestamp, Kind: EventController, Controller: controller, CCValue: ccValue}, true
	}

	var pressure uint8
	if msg.GetAfterTouch(&channel, &pressure) {
		return TimedEvent{Timestamp: timestamp, Kind: EventChannelAftertouch, CCValue: pressure}, true
	}

	if msg.GetPolyAfterTouch(&channel, &key, &pressure) {
		return TimedEvent{Timestamp: timestamp, Kind: EventNoteAftertouch, Note: key, CCValue: pressure}, true
	}

	return TimedEvent{}, false
}

// EncodeMidiEvent renders a TimedEvent back to raw MIDI bytes on the given
// channel, the inverse of DecodeMidiEvent, used to hand aggregate_midi_out
// to a host or hardware port.
func EncodeMidiEvent(e TimedEvent, channel uint8) []byte {
	switch e.Kind {
	case EventNoteOn:
		return midi.NoteOn(channel, e.Note, e.Velocity)

	case EventNoteOff:
		return midi.NoteOff(channel, e.Note)

	case EventPitchWheel:
		return midi.Pitchbend(channel, int16((e.Value<<7)-8192))

	case EventController:
		return midi.ControlChange(channel, e.Controller, e.CCValue)

	case EventChannelAftertouch:
		return midi.AfterTouch(channel, e.CCValue)

	case EventNoteAftertouch:
		return midi.PolyAfterTouch(channel, e.Note, e.CCValue)

	case EventAllNotesOff:
		return midi.ControlChange(channel, 123, 0)

	case EventAllSoundOff:
		return midi.ControlChange(channel, 120, 0)

	default:
		return nil
	}
}
