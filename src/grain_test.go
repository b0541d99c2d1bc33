package imogen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrainExtractor_ExtractGrainOnsetsAreSortedAndNonNegative(t *testing.T) {
	var g = NewGrainExtractor[float64]()
	var block = sineBlock(220, 44100, 2048)

	var onsets = g.ExtractGrainOnsets(block, 200)

	for i, o := range onsets {
		assert.GreaterOrEqual(t, o, 0)

		if i > 0 {
			assert.GreaterOrEqual(t, o, onsets[i-1])
		}
	}
}

func TestGrainExtractor_RejectsDegeneratePeriod(t *testing.T) {
	var g = NewGrainExtractor[float64]()
	var block = sineBlock(220, 44100, 512)

	assert.NotPanics(t, func() {
		g.ExtractGrainOnsets(block, 0)
		g.ExtractGrainOnsets(block, 1)
	})
}

func TestGrainExtractor_ResetClearsPeakHistory(t *testing.T) {
	var g = NewGrainExtractor[float64]()
	var block = sineBlock(220, 44100, 2048)

	g.ExtractGrainOnsets(block, 200)
	assert.NotZero(t, g.numPeaksFound)

	g.Reset()

	assert.Zero(t, g.numPeaksFound)
	assert.Zero(t, g.lastPeak)
	assert.Zero(t, g.secondLastPeak)
}

func TestSearchWindow_FindsExtremumNearCenter(t *testing.T) {
	var block = sineBlock(220, 44100, 512)

	var candidates = searchWindow(block, 100, 50)

	assert.NotEmpty(t, candidates)

	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.idx, 50)
		assert.LessOrEqual(t, c.idx, 150)
	}
}

func TestSearchWindow_EmptyNearBufferEdges(t *testing.T) {
	var block = sineBlock(220, 44100, 10)

	var candidates = searchWindow(block, 0, 5)
	for _, c := range candidates {
		assert.Greater(t, c.idx, 0)
		assert.Less(t, c.idx, len(block)-1)
	}
}

func TestGrainExtractor_ChooseByJitterPrefersTargetProximity(t *testing.T) {
	var g = &GrainExtractor[float64]{lastPeak: 100, secondLastPeak: 0}
	var period = 100

	var input = make([]float64, 400)
	for i := range input {
		input[i] = 0.1
	}
	input[200] = 1.0 // exactly on target1 = lastPeak+period
	input[250] = 1.0 // off-target but same magnitude

	var candidates = []peakCandidate{{idx: 200}, {idx: 250}}

	var chosen = g.chooseByJitter(input, candidates, period)

	assert.Equal(t, 200, chosen)
}

func TestGrainExtractor_ASDFPeriodRoundTripsApproximately(t *testing.T) {
	const samplerate = 44100.0
	const freq = 220.0
	const period = samplerate / freq

	var g = NewGrainExtractor[float64]()
	var block = sineBlock(freq, samplerate, 4096)

	var onsets = g.ExtractGrainOnsets(block, int(math.Round(period)))

	assert.NotEmpty(t, onsets)
}
