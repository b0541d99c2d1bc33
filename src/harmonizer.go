package imogen

import (
	"math"
	"math/rand"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Top-level facade coupling the pitch analyzer, grain
 *		extractor and voice bank into one render-per-block call.
 *
 *------------------------------------------------------------------*/

// UnvoicedPeriodRange bounds the arbitrary period used for grain
// extraction when the input is classified unvoiced. Exposed as config
// per the spec's open question about this magic range in the source.
type UnvoicedPeriodRange struct {
	Min int
	Max int
}

// Harmonizer is the engine's top-level entry point: prepare once, then
// call Process once per host audio block.
type Harmonizer[S Sample] struct {
	samplerate float64
	blocksize  int

	analyzer  *PitchAnalyzer[S]
	extractor *GrainExtractor[S]
	synth     *Synth[S]

	unvoicedRange    UnvoicedPeriodRange
	invertOnUnvoiced bool
	rng              *rand.Rand
	invertedScratch  []S

	lastPitchEstimate PitchEstimate
	lastInputInverted bool
}

// NewHarmonizer constructs and prepares a harmonizer for the given
// samplerate, blocksize and voice count. blocksize must be >= 32 and
// num_voices in [1, 16]; violations panic, matching the spec's treatment
// of prepare-time configuration errors as programming errors.
func NewHarmonizer[S Sample](samplerate float64, blocksize, numVoices int) *Harmonizer[S] {
	if blocksize < 32 {
		panic("imogen: blocksize must be >= 32")
	}

	if numVoices < 1 || numVoices > 16 {
		panic("imogen: num_voices must be in [1, 16]")
	}

	var analyzer = NewPitchAnalyzer[S](samplerate, 50, 2000)

	var h = &Harmonizer[S]{
		samplerate:       samplerate,
		blocksize:        blocksize,
		analyzer:         analyzer,
		extractor:        NewGrainExtractor[S](),
		synth:            NewSynth[S](numVoices, samplerate, analyzer.MaxPeriod()),
		unvoicedRange:    UnvoicedPeriodRange{Min: 100, Max: 400},
		invertOnUnvoiced: true,
		rng:              rand.New(rand.NewSource(1)), //nolint:gosec
		invertedScratch:  make([]S, blocksize),
	}

	return h
}

// Synth exposes the voice bank for configuration and inspection.
func (h *Harmonizer[S]) Synth() *Synth[S] { return h.synth }

// Analyzer exposes the pitch analyzer for configuration.
func (h *Harmonizer[S]) Analyzer() *PitchAnalyzer[S] { return h.analyzer }

// SetUnvoicedPeriodRange configures the arbitrary period range used for
// grain extraction when the input is unvoiced.
func (h *Harmonizer[S]) SetUnvoicedPeriodRange(r UnvoicedPeriodRange) {
	h.unvoicedRange = r
}

// SetInvertOnUnvoiced enables or disables the deterministic coin-flip that
// decides whether unvoiced frames are analyzed from a polarity-inverted
// copy of the input.
func (h *Harmonizer[S]) SetInvertOnUnvoiced(enabled bool) {
	h.invertOnUnvoiced = enabled
}

// Reset clears analyzer, extractor and voice state but preserves
// configuration. Safe to call between blocks, never during Process.
func (h *Harmonizer[S]) Reset() {
	h.extractor.Reset()
	h.analyzer.lastVoiced = false
	h.analyzer.lastPeriod = 0

	for _, v := range h.synth.Voices() {
		v.Clear()
	}

	h.synth.panManager.SetParams(len(h.synth.Voices()), h.synth.panManager.width)
	h.synth.pedalVoiceID, h.synth.pedalLastEmitted = -1, -1
	h.synth.descantVoiceID, h.synth.descantLastEmitted = -1, -1
	h.synth.sustainDown, h.synth.sostenutoDown, h.synth.softDown = false, false, false
	h.synth.gainConfig.SoftPedalDown = false

	h.rng = rand.New(rand.NewSource(1)) //nolint:gosec
	h.lastPitchEstimate = PitchEstimate{}
	h.lastInputInverted = false
}

// Process runs one block: analyze pitch, extract grains, route MIDI, and
// render every active voice into the stereo output bus.
func (h *Harmonizer[S]) Process(input []S, midiIn []TimedEvent, output *Buffer[S]) []TimedEvent {
	output.Clear()

	var estimate = h.analyzer.DetectPitch(input)
	h.lastPitchEstimate = estimate

	var period int
	var renderInput = input

	if estimate.Voiced {
		period = int(estimate.PeriodSamples)
		h.lastInputInverted = false
	} else {
		var span = h.unvoicedRange.Max - h.unvoicedRange.Min
		if span < 1 {
			span = 1
		}

		period = h.unvoicedRange.Min + h.rng.Intn(span)

		if h.invertOnUnvoiced && h.rng.Intn(2) == 0 {
			for i, s := range input {
				h.invertedScratch[i] = -s
			}

			renderInput = h.invertedScratch[:len(input)]
			h.lastInputInverted = true
		} else {
			h.lastInputInverted = false
		}
	}

	var onsets = h.extractor.ExtractGrainOnsets(renderInput, period)

	var inputPitchMidi = 69.0
	if estimate.Voiced {
		inputPitchMidi = 69 + 12*math.Log2(float64(estimate.Hz)/h.synth.ConcertPitchHz)
	}

	var midiOut = h.synth.ProcessMidi(midiIn, inputPitchMidi, estimate.Voiced)

	for _, v := range h.synth.Voices() {
		switch v.State() {
		case VoiceAttack, VoiceSustain, VoiceReleasing:
			v.Render(output, renderInput, onsets, period, h.samplerate, len(input), h.synth.gainConfig)
		}
	}

	return midiOut
}
