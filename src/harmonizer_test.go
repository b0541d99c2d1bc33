package imogen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHarmonizer_PanicsOnInvalidBlocksize(t *testing.T) {
	assert.Panics(t, func() { NewHarmonizer[float64](44100, 16, 4) })
}

func TestNewHarmonizer_PanicsOnInvalidNumVoices(t *testing.T) {
	assert.Panics(t, func() { NewHarmonizer[float64](44100, 256, 0) })
	assert.Panics(t, func() { NewHarmonizer[float64](44100, 256, 17) })
}

func TestHarmonizer_ProcessWithoutNotesProducesSilence(t *testing.T) {
	var h = NewHarmonizer[float64](44100, 256, 4)
	var input = sineBlock(220, 44100, 256)
	var out = NewBuffer[float64](2, 256)

	h.Process(input, nil, out)

	for ch := 0; ch < 2; ch++ {
		for _, s := range out.Channel(ch) {
			assert.Equal(t, 0.0, s)
		}
	}
}

func TestHarmonizer_ProcessWithNoteOnProducesFiniteOutput(t *testing.T) {
	var h = NewHarmonizer[float64](44100, 256, 4)
	var input = sineBlock(220, 44100, 256)
	var out = NewBuffer[float64](2, 256)

	var events = []TimedEvent{{Kind: EventNoteOn, Note: 69, Velocity: 100}}

	for i := 0; i < 10; i++ {
		var midiOut = h.Process(input, events, out)
		events = nil

		require.NotNil(t, midiOut)
	}

	for ch := 0; ch < 2; ch++ {
		for _, s := range out.Channel(ch) {
			require.False(t, math.IsNaN(s))
			require.False(t, math.IsInf(s, 0))
		}
	}
}

func TestHarmonizer_ResetClearsVoicesAndPitchEstimate(t *testing.T) {
	var h = NewHarmonizer[float64](44100, 256, 4)
	var input = sineBlock(220, 44100, 256)
	var out = NewBuffer[float64](2, 256)

	h.Process(input, []TimedEvent{{Kind: EventNoteOn, Note: 69, Velocity: 100}}, out)
	h.Reset()

	assert.Equal(t, PitchEstimate{}, h.lastPitchEstimate)

	for _, v := range h.Synth().Voices() {
		assert.Equal(t, VoiceIdle, v.State())
	}
}

func TestHarmonizer_SetUnvoicedPeriodRangeIsApplied(t *testing.T) {
	var h = NewHarmonizer[float64](44100, 256, 4)

	h.SetUnvoicedPeriodRange(UnvoicedPeriodRange{Min: 10, Max: 20})

	assert.Equal(t, UnvoicedPeriodRange{Min: 10, Max: 20}, h.unvoicedRange)
}

func TestHarmonizer_SetInvertOnUnvoicedIsApplied(t *testing.T) {
	var h = NewHarmonizer[float64](44100, 256, 4)

	h.SetInvertOnUnvoiced(false)

	assert.False(t, h.invertOnUnvoiced)
}

func TestHarmonizer_UnvoicedSilenceDoesNotPanicAndStaysFinite(t *testing.T) {
	var h = NewHarmonizer[float64](44100, 256, 4)
	var input = make([]float64, 256)
	var out = NewBuffer[float64](2, 256)

	assert.NotPanics(t, func() {
		h.Process(input, []TimedEvent{{Kind: EventNoteOn, Note: 60, Velocity: 100}}, out)
	})

	for ch := 0; ch < 2; ch++ {
		for _, s := range out.Channel(ch) {
			require.False(t, math.IsNaN(s))
		}
	}
}
