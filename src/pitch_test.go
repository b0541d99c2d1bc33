package imogen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineBlock(freqHz, samplerate float64, n int) []float64 {
	var block = make([]float64, n)
	var step = 2 * math.Pi * freqHz / samplerate

	for i := range block {
		block[i] = math.Sin(step * float64(i))
	}

	return block
}

func TestPitchAnalyzer_DetectsKnownSineFrequency(t *testing.T) {
	const samplerate = 44100.0
	const freq = 220.0

	var analyzer = NewPitchAnalyzer[float64](samplerate, 50, 2000)
	var block = sineBlock(freq, samplerate, 1024)

	var estimate PitchEstimate
	for i := 0; i < 5; i++ {
		estimate = analyzer.DetectPitch(block)
	}

	require.True(t, estimate.Voiced)
	assert.InDelta(t, freq, float64(estimate.Hz), 5)
}

func TestPitchAnalyzer_SilenceIsUnvoiced(t *testing.T) {
	var analyzer = NewPitchAnalyzer[float64](44100, 50, 2000)
	var block = make([]float64, 1024)

	var estimate = analyzer.DetectPitch(block)

	assert.False(t, estimate.Voiced)
}

func TestPitchAnalyzer_TooShortInputIsUnvoiced(t *testing.T) {
	var analyzer = NewPitchAnalyzer[float64](44100, 50, 2000)

	var estimate = analyzer.DetectPitch(make([]float64, 2))

	assert.False(t, estimate.Voiced)
}

func TestPitchAnalyzer_SetHzRangePanicsOnInvalidRange(t *testing.T) {
	var analyzer = NewPitchAnalyzer[float64](44100, 50, 2000)

	assert.Panics(t, func() { analyzer.SetHzRange(0, 100) })
	assert.Panics(t, func() { analyzer.SetHzRange(100, 100) })
	assert.Panics(t, func() { analyzer.SetHzRange(200, 100) })
}

func TestPitchAnalyzer_SetSampleratePanicsOnNonPositive(t *testing.T) {
	var analyzer = NewPitchAnalyzer[float64](44100, 50, 2000)

	assert.Panics(t, func() { analyzer.SetSamplerate(0) })
	assert.Panics(t, func() { analyzer.SetSamplerate(-1) })
}

func TestPitchAnalyzer_SetSamplerateRescalesHysteresis(t *testing.T) {
	const samplerate = 44100.0
	const freq = 220.0

	var analyzer = NewPitchAnalyzer[float64](samplerate, 50, 2000)
	var block = sineBlock(freq, samplerate, 1024)

	for i := 0; i < 3; i++ {
		analyzer.DetectPitch(block)
	}

	require.Greater(t, analyzer.lastPeriod, 0.0)

	var before = analyzer.lastPeriod
	analyzer.SetSamplerate(samplerate * 2)

	assert.InDelta(t, before*2, analyzer.lastPeriod, 1e-6)
}

func TestPitchAnalyzer_MinMaxPeriodBracketHzRange(t *testing.T) {
	var analyzer = NewPitchAnalyzer[float64](44100, 50, 2000)

	assert.Less(t, analyzer.MinPeriod(), analyzer.MaxPeriod())
	assert.InDelta(t, 44100.0/2000, float64(analyzer.MinPeriod()), 1)
	assert.InDelta(t, 44100.0/50, float64(analyzer.MaxPeriod()), 1)
}

func TestFirstZeroCrossing_FindsSignChange(t *testing.T) {
	assert.Equal(t, 2, firstZeroCrossing([]float64{1, 1, 1, -1, -1}))
	assert.Equal(t, 4, firstZeroCrossing([]float64{1, 1, 1, 1, 1}))
}
