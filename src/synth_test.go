package imogen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynth_NoteOnTakesIdleVoice(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	var v = s.NoteOn(60, 100, true)

	require.NotNil(t, v)
	assert.Equal(t, 60, v.PlayingNote)
	assert.Equal(t, VoiceAttack, v.State())
}

func TestSynth_NoteOnRetriggersAlreadySoundingVoice(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	var v1 = s.NoteOn(60, 100, true)
	var v2 = s.NoteOn(60, 80, true)

	assert.Same(t, v1, v2)
}

func TestSynth_NoteOnWithoutStealingReturnsNilWhenFull(t *testing.T) {
	var s = NewSynth[float64](2, 44100, 400)
	s.NoteStealingEnabled = false

	s.NoteOn(60, 100, true)
	s.NoteOn(61, 100, true)

	var v = s.NoteOn(62, 100, true)

	assert.Nil(t, v)
}

func TestSynth_NoteOnStealsWhenFullAndStealingEnabled(t *testing.T) {
	var s = NewSynth[float64](2, 44100, 400)
	s.NoteStealingEnabled = true

	s.NoteOn(60, 100, true)
	s.NoteOn(61, 100, true)

	var v = s.NoteOn(62, 100, true)

	assert.NotNil(t, v)
	assert.Equal(t, 62, v.PlayingNote)
}

func TestSynth_FindVoiceToStealPrefersDescantOverPedalAndProtected(t *testing.T) {
	var s = NewSynth[float64](2, 44100, 400)

	var pedal = s.NoteOn(60, 100, true)
	var descant = s.NoteOn(72, 100, true)

	pedal.IsPedalVoice = true
	descant.IsDescantVoice = true

	// Both voices are protected (pedal/descant, and also the lowest/highest
	// currently sounding since there are only two), so the unprotected
	// candidate set is empty and the last-resort chain must apply.
	var stolen = s.findVoiceToSteal(64)

	assert.Same(t, descant, stolen)
}

func TestSynth_FindVoiceToStealFallsBackToPedalWhenNoDescant(t *testing.T) {
	var s = NewSynth[float64](2, 44100, 400)

	var pedal = s.NoteOn(60, 100, true)
	var other = s.NoteOn(72, 100, true)

	pedal.IsPedalVoice = true
	_ = other

	var stolen = s.findVoiceToSteal(64)

	assert.Same(t, pedal, stolen)
}

func TestSynth_NoteOffReleasesKeyboardVoice(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	s.NoteOn(60, 100, true)
	s.NoteOff(60, true, true)

	var v = s.findPlaying(60)
	require.NotNil(t, v)
	assert.Equal(t, VoiceReleasing, v.State())
}

func TestSynth_NoteOffHeldBySustainDoesNotRelease(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	s.NoteOn(60, 100, true)
	s.handleController(TimedEvent{Kind: EventController, Controller: ControllerSustain, CCValue: 127})
	s.NoteOff(60, true, true)

	var v = s.findPlaying(60)
	require.NotNil(t, v)
	assert.Equal(t, VoiceAttack, v.State())

	s.handleController(TimedEvent{Kind: EventController, Controller: ControllerSustain, CCValue: 0})
	assert.Equal(t, VoiceReleasing, v.State())
}

func TestSynth_NoteOffUnderLatchDoesNotRelease(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	s.NoteOn(60, 100, true)
	s.SetLatch(true)
	s.NoteOff(60, true, true)

	var v = s.findPlaying(60)
	require.NotNil(t, v)
	assert.NotEqual(t, VoiceReleasing, v.State())
}

func TestSynth_SetLatchFalseReleasesUnlatchedKeysUp(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	s.NoteOn(60, 100, true)
	s.SetLatch(true)
	s.NoteOff(60, true, true)
	s.SetLatch(false)

	var v = s.findPlaying(60)
	require.NotNil(t, v)
	assert.Equal(t, VoiceReleasing, v.State())
}

func TestSynth_PlayChordStartsAndStopsToMatchDesiredSet(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	s.PlayChord([]int{60, 64, 67}, 100, true)

	for _, n := range []int{60, 64, 67} {
		assert.NotNil(t, s.findPlaying(n))
	}

	s.PlayChord([]int{60, 65}, 100, true)

	assert.NotNil(t, s.findPlaying(60))
	assert.NotNil(t, s.findPlaying(65))
	assert.Equal(t, VoiceReleasing, s.findPlaying(67).State())
	assert.Equal(t, VoiceReleasing, s.findPlaying(64).State())
}

func TestSynth_PedalPitchTracksLowestHeldNote(t *testing.T) {
	var s = NewSynth[float64](8, 44100, 400)
	s.pedalPitch = PedalHarmonyConfig{Enabled: true, Threshold: 72, IntervalSemitones: 12}

	s.NoteOn(60, 100, true)
	s.onPitchCollectionChanged(100, true)

	var pedal = s.findPlaying(48)
	require.NotNil(t, pedal)
	assert.True(t, pedal.IsPedalVoice)
}

func TestSynth_DescantTracksHighestHeldNote(t *testing.T) {
	var s = NewSynth[float64](8, 44100, 400)
	s.descant = PedalHarmonyConfig{Enabled: true, Threshold: 40, IntervalSemitones: 12}

	s.NoteOn(60, 100, true)
	s.onPitchCollectionChanged(100, true)

	var desc = s.findPlaying(72)
	require.NotNil(t, desc)
	assert.True(t, desc.IsDescantVoice)
}

func TestSynth_IntervalLatchCapturesAndReapplies(t *testing.T) {
	var s = NewSynth[float64](8, 44100, 400)

	s.NoteOn(60, 100, true)
	s.NoteOn(64, 100, true)

	s.SetIntervalLatch(true, 60)
	assert.ElementsMatch(t, []int{0, 4}, s.latchedOffsets)

	s.ReapplyIntervalLatch(62, 100)

	assert.NotNil(t, s.findPlaying(62))
	assert.NotNil(t, s.findPlaying(66))
}

func TestSynth_ApplyPitchWheelCenterIsNoBend(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	var v = s.NoteOn(69, 100, true)
	v.TargetFreqHz = 0

	s.ApplyPitchWheel(64)

	assert.InDelta(t, 440, float64(v.TargetFreqHz), 0.01)
}

func TestSynth_ApplyPitchWheelUpBendsSharp(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)
	s.PitchbendRangeVal = PitchbendRange{Up: 2, Down: 2}

	var v = s.NoteOn(69, 100, true)

	s.ApplyPitchWheel(127)

	assert.Greater(t, float64(v.TargetFreqHz), 440.0)
}

func TestSynth_ProcessMidiRoutesNoteOnAndOff(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	var out = s.ProcessMidi([]TimedEvent{
		{Kind: EventNoteOn, Note: 60, Velocity: 100},
	}, 0, false)

	require.Len(t, out, 1)
	assert.NotNil(t, s.findPlaying(60))

	out = s.ProcessMidi([]TimedEvent{
		{Kind: EventNoteOff, Note: 60},
	}, 0, false)

	require.Len(t, out, 1)
}

func TestSynth_ProcessMidiAllSoundOffClearsVoicesImmediately(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	s.ProcessMidi([]TimedEvent{{Kind: EventNoteOn, Note: 60, Velocity: 100}}, 0, false)
	s.ProcessMidi([]TimedEvent{{Kind: EventAllSoundOff}}, 0, false)

	var v = s.findPlaying(60)
	assert.Nil(t, v)
}

func TestSynth_SoftPedalControllerUpdatesGainConfig(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	s.handleController(TimedEvent{Kind: EventController, Controller: ControllerSoft, CCValue: 127})
	assert.True(t, s.gainConfig.SoftPedalDown)

	s.handleController(TimedEvent{Kind: EventController, Controller: ControllerSoft, CCValue: 0})
	assert.False(t, s.gainConfig.SoftPedalDown)
}

func TestSynth_SetNumVoicesClampsToRange(t *testing.T) {
	var s = NewSynth[float64](4, 44100, 400)

	s.SetNumVoices(0)
	assert.Len(t, s.Voices(), 1)

	s.SetNumVoices(100)
	assert.Len(t, s.Voices(), 16)
}
