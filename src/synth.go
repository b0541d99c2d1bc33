package imogen

import "math"

/*------------------------------------------------------------------
 *
 * Purpose:	The voice bank: allocation, stealing, MIDI routing, and the
 *		pedal-pitch / descant / latch / interval-latch automated
 *		harmony features built on top of it.
 *
 *------------------------------------------------------------------*/

// EventKind enumerates the MIDI event taxonomy the synth consumes and
// produces.
type EventKind int

const (
	EventNoteOn EventKind = iota
	EventNoteOff
	EventPitchWheel
	EventNoteAftertouch
	EventChannelAftertouch
	EventController
	EventAllNotesOff
	EventAllSoundOff
)

// Controller numbers the synth interprets. Others pass through unhandled.
const (
	ControllerSustain   = 0x40
	ControllerSostenuto = 0x42
	ControllerSoft      = 0x43
)

// TimedEvent is a single MIDI event stamped at a sample offset 0..N-1
// within the current block.
type TimedEvent struct {
	Timestamp  int
	Kind       EventKind
	Note       uint8
	Velocity   uint8
	Value      int // pitch wheel value, 0..127, center 64
	Controller uint8
	CCValue    uint8
}

// PedalHarmonyConfig configures the pedal-pitch or descant automated
// harmony voice.
type PedalHarmonyConfig struct {
	Enabled           bool
	Threshold         uint8 // upper_thresh for pedal, lower_thresh for descant
	IntervalSemitones int
}

// PitchbendRange is expressed in semitones, independently up and down.
type PitchbendRange struct {
	Up   int
	Down int
}

// Synth is the polyphonic voice bank: it owns every Voice, routes MIDI
// events to them, and implements voice stealing and automated harmony.
type Synth[S Sample] struct {
	voices     []*Voice[S]
	samplerate float64
	maxPeriod  int

	nextNoteOnTime uint64

	ConcertPitchHz      float64
	PitchbendRangeVal   PitchbendRange
	NoteStealingEnabled bool
	VelocitySensitivity int

	gainConfig GainConfig

	sustainDown   bool
	sostenutoDown bool
	softDown      bool

	latchOn         bool
	intervalLatchOn bool
	latchedOffsets  []int

	pedalPitch       PedalHarmonyConfig
	pedalVoiceID     int // -1 when none
	pedalLastEmitted int // -1 when none

	descant            PedalHarmonyConfig
	descantVoiceID     int
	descantLastEmitted int

	panManager *PanningManager

	aggregateMidiOut []TimedEvent
}

// NewSynth constructs a voice bank of numVoices voices.
func NewSynth[S Sample](numVoices int, samplerate float64, maxPeriod int) *Synth[S] {
	var s = &Synth[S]{
		samplerate:          samplerate,
		maxPeriod:           maxPeriod,
		ConcertPitchHz:      440,
		PitchbendRangeVal:   PitchbendRange{Up: 2, Down: 2},
		NoteStealingEnabled: true,
		VelocitySensitivity: 100,
		pedalVoiceID:        -1,
		pedalLastEmitted:    -1,
		descantVoiceID:      -1,
		descantLastEmitted:  -1,
		panManager:          NewPanningManager(numVoices, 100),
		gainConfig: GainConfig{
			MainADSREnabled:              true,
			SoftPedalMultiplier:          0.7,
			PlayingButReleasedMultiplier: 0.65,
		},
	}

	s.SetNumVoices(numVoices)

	return s
}

// SetNumVoices reallocates the voice array. This is a control-thread-only
// operation per the concurrency model; it must not be called while a
// block is being rendered.
func (s *Synth[S]) SetNumVoices(n int) {
	if n < 1 {
		n = 1
	}

	if n > 16 {
		n = 16
	}

	s.voices = make([]*Voice[S], n)
	for i := range s.voices {
		s.voices[i] = NewVoice[S](i, s.maxPeriod, s.samplerate)
	}

	s.panManager.SetParams(n, s.panManager.width)
}

// Voices exposes the voice bank for rendering.
func (s *Synth[S]) Voices() []*Voice[S] { return s.voices }

// mtof converts a MIDI note (with fractional cents) to Hz using the
// synth's concert pitch.
func (s *Synth[S]) mtof(note float64) float64 {
	return s.ConcertPitchHz * math.Pow(2, (note-69)/12)
}

func (s *Synth[S]) findPlaying(note int) *Voice[S] {
	for _, v := range s.voices {
		if v.State() != VoiceIdle && v.PlayingNote == note {
			return v
		}
	}

	return nil
}

func (s *Synth[S]) findIdle() *Voice[S] {
	for _, v := range s.voices {
		if v.State() == VoiceIdle {
			return v
		}
	}

	return nil
}

// NoteOn implements the voice-on algorithm of §4.4: retrigger an already
// sounding voice, else take an idle one, else steal if permitted.
func (s *Synth[S]) NoteOn(note int, velocity uint8, isKeyboard bool) *Voice[S] {
	var target = s.findPlaying(note)

	if target == nil {
		target = s.findIdle()
	}

	if target == nil {
		if isKeyboard && s.NoteStealingEnabled {
			target = s.findVoiceToSteal(note)
		}
	}

	if target == nil {
		return nil
	}

	var pan = target.PanMidi()
	if target.State() == VoiceIdle {
		pan = s.panManager.GetNextPan()
	}

	s.nextNoteOnTime++
	var keyWasDown = target.KeyDown
	target.NoteOn(note, velocity, pan, s.nextNoteOnTime, false, false, s.gainConfig)
	target.TargetFreqHz = float32(s.mtof(float64(note)))

	if !isKeyboard {
		target.KeyDown = keyWasDown
	}

	return target
}

// NoteOff implements §4.4's voice-off algorithm.
func (s *Synth[S]) NoteOff(note int, allowTailOff bool, isKeyboard bool) {
	var v = s.findPlaying(note)
	if v == nil {
		return
	}

	if isKeyboard {
		v.KeyDown = false

		if s.latchOn {
			return
		}

		if s.sustainDown || s.sostenutoDown {
			return
		}

		s.stopVoice(v, allowTailOff)
	} else {
		if !v.KeyDown {
			s.stopVoice(v, allowTailOff)
		}
	}
}

func (s *Synth[S]) stopVoice(v *Voice[S], allowTailOff bool) {
	var pan = v.PanMidi()
	v.NoteOff(allowTailOff)
	s.panManager.ReturnPan(pan)
}

// findVoiceToSteal implements the stealing preference order of §4.4.
func (s *Synth[S]) findVoiceToSteal(note int) *Voice[S] {
	var sounding []*Voice[S]

	for _, v := range s.voices {
		if v.State() != VoiceIdle {
			sounding = append(sounding, v)
		}
	}

	if len(sounding) == 0 {
		return nil
	}

	var lowest, highest = sounding[0], sounding[0]

	for _, v := range sounding {
		if v.State() == VoiceReleasing || v.State() == VoiceQuickReleasing {
			continue
		}

		if v.PlayingNote < lowest.PlayingNote {
			lowest = v
		}

		if v.PlayingNote > highest.PlayingNote {
			highest = v
		}
	}

	var isProtected = func(v *Voice[S]) bool {
		return v.IsPedalVoice || v.IsDescantVoice || v == lowest || v == highest
	}

	var candidates []*Voice[S]

	for _, v := range sounding {
		if !isProtected(v) {
			candidates = append(candidates, v)
		}
	}

	if len(candidates) == 0 {
		// Nothing unprotected remains: fall back to the last-resort order
		// of §4.4 rule 6 rather than re-opening the search to every
		// sounding voice, which would silently drop that priority.
		for _, v := range sounding {
			if v.IsDescantVoice {
				return v
			}
		}

		for _, v := range sounding {
			if v.IsPedalVoice {
				return v
			}
		}

		if highest != nil {
			return highest
		}

		return lowest
	}

	var matching []*Voice[S]

	for _, v := range candidates {
		if v.PlayingNote == note {
			matching = append(matching, v)
		}
	}

	if len(matching) > 0 {
		candidates = matching
	}

	var released []*Voice[S]

	for _, v := range candidates {
		if !v.KeyDown {
			released = append(released, v)
		}
	}

	if len(released) > 0 {
		candidates = released
	}

	var oldest = candidates[0]
	for _, v := range candidates {
		if v.NoteOnTime < oldest.NoteOnTime {
			oldest = v
		}
	}

	return oldest
}

// PlayChord implements the desired-pitch-set reconciliation used by both
// interval latch reapplication and direct chord playing.
func (s *Synth[S]) PlayChord(desired []int, velocity uint8, allowTailOff bool) {
	var desiredSet = make(map[int]bool, len(desired))
	for _, n := range desired {
		desiredSet[n] = true
	}

	var currents []int

	for _, v := range s.voices {
		if v.State() != VoiceIdle && v.State() != VoiceReleasing && v.State() != VoiceQuickReleasing {
			currents = append(currents, v.PlayingNote)
		}
	}

	for _, n := range currents {
		if !desiredSet[n] {
			s.NoteOff(n, allowTailOff, false)
		}
	}

	var currentSet = make(map[int]bool, len(currents))
	for _, n := range currents {
		currentSet[n] = true
	}

	for _, n := range desired {
		if !currentSet[n] {
			s.NoteOn(n, velocity, false)
		}
	}

	s.onPitchCollectionChanged(velocity, allowTailOff)
}

// heldKeyboardRange returns the notes of voices whose physical key is
// still down, lowest and highest (-1, -1 if none).
func (s *Synth[S]) heldKeyboardRange() (lowest, highest int) {
	lowest, highest = -1, -1

	for _, v := range s.voices {
		if v.State() == VoiceIdle || !v.KeyDown {
			continue
		}

		if lowest == -1 || v.PlayingNote < lowest {
			lowest = v.PlayingNote
		}

		if highest == -1 || v.PlayingNote > highest {
			highest = v.PlayingNote
		}
	}

	return lowest, highest
}

// onPitchCollectionChanged re-applies pedal-pitch and descant after any
// event batch that may have changed which notes are held.
func (s *Synth[S]) onPitchCollectionChanged(velocity uint8, allowTailOff bool) {
	var lowest, highest = s.heldKeyboardRange()

	if s.pedalPitch.Enabled {
		if lowest >= 0 && lowest <= int(s.pedalPitch.Threshold) {
			var target = lowest - s.pedalPitch.IntervalSemitones

			if target >= 0 && s.pedalLastEmitted != target {
				if s.pedalLastEmitted >= 0 {
					s.NoteOff(s.pedalLastEmitted, allowTailOff, false)
				}

				var v = s.NoteOn(target, velocity, false)
				if v != nil {
					v.IsPedalVoice = true
					s.pedalVoiceID = v.ID
				}

				s.pedalLastEmitted = target
			}
		} else if s.pedalLastEmitted >= 0 {
			s.NoteOff(s.pedalLastEmitted, allowTailOff, false)
			s.pedalLastEmitted = -1
			s.pedalVoiceID = -1
		}
	}

	if s.descant.Enabled {
		if highest >= 0 && highest >= int(s.descant.Threshold) {
			var target = highest + s.descant.IntervalSemitones
			if target > 127 {
				target = 127
			}

			if s.descantLastEmitted != target {
				if s.descantLastEmitted >= 0 {
					s.NoteOff(s.descantLastEmitted, allowTailOff, false)
				}

				var v = s.NoteOn(target, velocity, false)
				if v != nil {
					v.IsDescantVoice = true
					s.descantVoiceID = v.ID
				}

				s.descantLastEmitted = target
			}
		} else if s.descantLastEmitted >= 0 {
			s.NoteOff(s.descantLastEmitted, allowTailOff, false)
			s.descantLastEmitted = -1
			s.descantVoiceID = -1
		}
	}
}

// SetLatch enables or disables latch mode. Disabling it stops every voice
// whose key is up, except interval-latched, pedal-pitch and descant
// voices.
func (s *Synth[S]) SetLatch(on bool) {
	if s.latchOn && !on {
		for _, v := range s.voices {
			if v.State() == VoiceIdle || v.KeyDown {
				continue
			}

			if v.IsPedalVoice || v.IsDescantVoice {
				continue
			}

			if s.intervalLatchOn {
				continue
			}

			s.stopVoice(v, true)
		}
	}

	s.latchOn = on
}

// SetIntervalLatch enables or disables interval latch. Enabling it
// captures the currently sounding notes as semitone offsets from the
// given detected input pitch (in MIDI note units, possibly fractional).
func (s *Synth[S]) SetIntervalLatch(on bool, inputPitchMidi float64) {
	if on && !s.intervalLatchOn {
		s.latchedOffsets = s.latchedOffsets[:0]

		var root = int(math.Round(inputPitchMidi))

		for _, v := range s.voices {
			if v.State() == VoiceIdle {
				continue
			}

			s.latchedOffsets = append(s.latchedOffsets, v.PlayingNote-root)
		}
	}

	s.intervalLatchOn = on
}

// ReapplyIntervalLatch re-emits the chord at the captured offsets against
// a newly detected input pitch. Called once per block while interval
// latch is on.
func (s *Synth[S]) ReapplyIntervalLatch(inputPitchMidi float64, velocity uint8) {
	if !s.intervalLatchOn || len(s.latchedOffsets) == 0 {
		return
	}

	var root = int(math.Round(inputPitchMidi))
	var desired = make([]int, len(s.latchedOffsets))

	for i, off := range s.latchedOffsets {
		desired[i] = root + off
	}

	s.PlayChord(desired, velocity, true)
}

// ApplyPitchWheel updates every sounding voice's target frequency from a
// new wheel value (0..127, center 64) without retriggering envelopes.
func (s *Synth[S]) ApplyPitchWheel(wheel int) {
	var semitoneOffset float64

	switch {
	case wheel > 64:
		semitoneOffset = float64(s.PitchbendRangeVal.Up) * float64(wheel-65) / 62.0
	case wheel < 64:
		semitoneOffset = (1-float64(s.PitchbendRangeVal.Down))*float64(wheel)/63.0 - float64(s.PitchbendRangeVal.Down)
	default:
		semitoneOffset = 0
	}

	for _, v := range s.voices {
		if v.State() == VoiceIdle {
			continue
		}

		var hz = s.mtof(float64(v.PlayingNote) + semitoneOffset)
		v.TargetFreqHz = float32(hz)
	}
}

// ProcessMidi applies a block's worth of timestamp-ordered MIDI events,
// producing the aggregate output buffer the host sees.
func (s *Synth[S]) ProcessMidi(events []TimedEvent, inputPitchMidi float64, pitchDetected bool) []TimedEvent {
	s.aggregateMidiOut = s.aggregateMidiOut[:0]

	var pitchesChanged = false

	for _, e := range events {
		switch e.Kind {
		case EventNoteOn:
			if s.NoteOn(int(e.Note), e.Velocity, true) != nil {
				pitchesChanged = true
				s.aggregateMidiOut = append(s.aggregateMidiOut, e)
			}

		case EventNoteOff:
			s.NoteOff(int(e.Note), true, true)
			pitchesChanged = true
			s.aggregateMidiOut = append(s.aggregateMidiOut, e)

		case EventPitchWheel:
			s.ApplyPitchWheel(e.Value)

		case EventNoteAftertouch:
			for _, v := range s.voices {
				if v.State() != VoiceIdle && v.PlayingNote == int(e.Note) {
					v.Aftertouch = e.CCValue
				}
			}

		case EventChannelAftertouch:
			for _, v := range s.voices {
				if v.State() != VoiceIdle {
					v.Aftertouch = e.CCValue
				}
			}

		case EventController:
			s.handleController(e)

		case EventAllNotesOff:
			for _, v := range s.voices {
				if v.State() != VoiceIdle {
					s.stopVoice(v, true)
				}
			}

			pitchesChanged = true

		case EventAllSoundOff:
			for _, v := range s.voices {
				if v.State() != VoiceIdle {
					s.panManager.ReturnPan(v.PanMidi())
					v.Clear()
				}
			}

			pitchesChanged = true
		}
	}

	if pitchesChanged {
		s.onPitchCollectionChanged(80, true)
	}

	if s.intervalLatchOn && pitchDetected {
		s.ReapplyIntervalLatch(inputPitchMidi, 80)
	}

	return s.aggregateMidiOut
}

func (s *Synth[S]) handleController(e TimedEvent) {
	switch e.Controller {
	case ControllerSustain:
		s.sustainDown = e.CCValue >= 64

		if !s.sustainDown {
			s.releaseHeldByPedal()
		}

	case ControllerSostenuto:
		s.sostenutoDown = e.CCValue >= 64

		if !s.sostenutoDown {
			s.releaseHeldByPedal()
		}

	case ControllerSoft:
		s.softDown = e.CCValue >= 64
		s.gainConfig.SoftPedalDown = s.softDown
	}
}

func (s *Synth[S]) releaseHeldByPedal() {
	if s.sustainDown || s.sostenutoDown {
		return
	}

	for _, v := range s.voices {
		if v.State() != VoiceIdle && !v.KeyDown && !s.latchOn {
			s.stopVoice(v, true)
		}
	}
}
