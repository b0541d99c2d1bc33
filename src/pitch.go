package imogen

import "math"

/*------------------------------------------------------------------
 *
 * Purpose:	Time-domain fundamental-frequency estimation via the
 *		Average Squared Difference Function, with hysteresis and
 *		voiced/unvoiced gating.
 *
 * Description:	One PitchAnalyzer instance is owned by the harmonizer and
 *		called once per internal block. It carries the previous
 *		frame's voiced/unvoiced state and period across calls so it
 *		can tighten its search range and prefer octave-stable
 *		candidates, the way a singer's pitch rarely halves or
 *		doubles between two adjacent analysis blocks.
 *
 *------------------------------------------------------------------*/

const periodCandidatesToTest = 15

// unvoicedSentinel is written into ASDF bins outside the current feasible
// lag range so they can never win the argmin search.
const unvoicedSentinel = 1000.0

// PitchEstimate is the analyzer's per-block verdict: either a fundamental
// with its period in samples and frequency in Hz, or Unvoiced.
type PitchEstimate struct {
	Voiced        bool
	PeriodSamples float64
	Hz            float32
}

// PitchAnalyzer estimates the fundamental frequency of a mono input block
// using ASDF (Average Squared Difference Function) peak picking.
type PitchAnalyzer[S Sample] struct {
	samplerate float64
	minHz      float64
	maxHz      float64
	minPeriod  int
	maxPeriod  int

	upperThresh float64
	lowerThresh float64

	asdf []float64

	lastVoiced bool
	lastPeriod float64
}

// NewPitchAnalyzer constructs an analyzer for the given samplerate and
// detection range, with default confidence thresholds.
func NewPitchAnalyzer[S Sample](samplerate float64, minHz, maxHz float64) *PitchAnalyzer[S] {
	var p = &PitchAnalyzer[S]{
		samplerate:  samplerate,
		upperThresh: 0.15,
		lowerThresh: 0.01,
	}

	p.SetHzRange(minHz, maxHz)

	return p
}

// SetHzRange recomputes minPeriod/maxPeriod and resizes the ASDF buffer.
// min_hz must be less than max_hz and both must be positive; this is a
// configuration error and panics, matching the spec's "fails loudly at
// prepare time" treatment of invalid setup.
func (p *PitchAnalyzer[S]) SetHzRange(minHz, maxHz float64) {
	if minHz <= 0 || maxHz <= 0 || minHz >= maxHz {
		panic("imogen: invalid pitch detection range")
	}

	p.minHz = minHz
	p.maxHz = maxHz
	p.minPeriod = int(math.Round(p.samplerate / maxHz))
	p.maxPeriod = int(math.Round(p.samplerate / minHz))

	if p.maxPeriod <= p.minPeriod {
		p.maxPeriod = p.minPeriod + 1
	}

	p.asdf = make([]float64, p.maxPeriod-p.minPeriod+1)
}

// SetSamplerate updates the samplerate and rescales the remembered last
// period so voiced/unvoiced continuity across a samplerate change holds.
func (p *PitchAnalyzer[S]) SetSamplerate(sr float64) {
	if sr <= 0 {
		panic("imogen: invalid samplerate")
	}

	if p.samplerate > 0 && p.lastPeriod > 0 {
		p.lastPeriod *= sr / p.samplerate
	}

	p.samplerate = sr
	p.SetHzRange(p.minHz, p.maxHz)
}

// SetConfidenceThresh sets the unvoiced gate (upper) and the fast-accept
// gate (lower).
func (p *PitchAnalyzer[S]) SetConfidenceThresh(upper, lower float64) {
	p.upperThresh = upper
	p.lowerThresh = lower
}

func (p *PitchAnalyzer[S]) MinPeriod() int { return p.minPeriod }
func (p *PitchAnalyzer[S]) MaxPeriod() int { return p.maxPeriod }

func firstZeroCrossing[S Sample](input []S) int {
	for i := 0; i+1 < len(input); i++ {
		var a, b = float64(input[i]), float64(input[i+1])
		if a == 0 {
			return i
		}

		if (a < 0 && b >= 0) || (a > 0 && b <= 0) {
			return i
		}
	}

	return len(input) - 1
}

// DetectPitch runs the ASDF pitch estimation algorithm on one block of
// mono input. Input shorter than minPeriod, or a block whose samples are
// all zero, is reported Unvoiced.
func (p *PitchAnalyzer[S]) DetectPitch(input []S) PitchEstimate {
	var numSamples = len(input)

	if numSamples < p.minPeriod {
		p.lastVoiced = false
		return PitchEstimate{}
	}

	var silent = true
	for _, x := range input {
		if x != 0 {
			silent = false
			break
		}
	}

	if silent {
		p.lastVoiced = false
		return PitchEstimate{}
	}

	var minLag = maxInt(firstZeroCrossing(input), p.minPeriod)
	var maxLag = p.maxPeriod

	if p.lastVoiced && p.lastPeriod > 0 {
		minLag = maxInt(minLag, int(math.Round(p.lastPeriod/2)))
		maxLag = minInt(maxLag, int(math.Round(p.lastPeriod*2)))
	}

	if minLag == maxLag {
		if maxLag < p.maxPeriod {
			maxLag++
		} else if minLag > p.minPeriod {
			minLag--
		} else {
			p.lastVoiced = false
			return PitchEstimate{}
		}
	}

	if minLag > maxLag {
		p.lastVoiced = false
		return PitchEstimate{}
	}

	p.computeASDF(input, minLag, maxLag)

	var minIdx = 0
	var greatestConfidence = p.asdf[0]

	for i := 1; i < len(p.asdf); i++ {
		if p.asdf[i] < greatestConfidence {
			greatestConfidence = p.asdf[i]
			minIdx = i
		}
	}

	if greatestConfidence > p.upperThresh {
		p.lastVoiced = false
		return PitchEstimate{}
	}

	var chosen int

	if !p.lastVoiced || greatestConfidence < p.lowerThresh {
		chosen = minIdx
	} else {
		chosen = p.chooseCandidate(minIdx)
	}

	var refined, ok = p.quadraticInterpolate(chosen)
	if !ok {
		p.lastVoiced = false
		return PitchEstimate{}
	}

	var period = refined + float64(p.minPeriod)
	if period < float64(p.minPeriod) || period > float64(p.maxPeriod) {
		p.lastVoiced = false
		return PitchEstimate{}
	}

	p.lastVoiced = true
	p.lastPeriod = period

	return PitchEstimate{
		Voiced:        true,
		PeriodSamples: period,
		Hz:            float32(p.samplerate / period),
	}
}

// computeASDF fills p.asdf for every lag in [minPeriod, maxPeriod],
// writing the unvoiced sentinel outside [minLag, maxLag].
func (p *PitchAnalyzer[S]) computeASDF(input []S, minLag, maxLag int) {
	var numSamples = len(input)
	var middle = numSamples / 2
	var halfWidth = (numSamples - 1) / 2

	for k := p.minPeriod; k <= p.maxPeriod; k++ {
		var idx = k - p.minPeriod

		if k < minLag || k > maxLag {
			p.asdf[idx] = unvoicedSentinel
			continue
		}

		var offset = int(math.Round(float64(k) / 2))
		var start = middle - offset - halfWidth
		var end = middle - offset + halfWidth

		var sum float64

		for s := start; s < end; s++ {
			var s2 = s + k
			if s < 0 || s2 < 0 || s >= numSamples || s2 >= numSamples {
				continue
			}

			var d = float64(input[s]) - float64(input[s2])
			sum += d * d
		}

		p.asdf[idx] = sum / float64(numSamples)
	}
}

// chooseCandidate implements step 9 of the pitch-detection algorithm: pick
// among the smallest local minima of the ASDF either by lowest lag (tight
// confidence spread, avoiding octave-up errors) or by period-continuity
// weighting against the last accepted period.
func (p *PitchAnalyzer[S]) chooseCandidate(minIdx int) int {
	var candidates = p.localMinima(periodCandidatesToTest)
	if len(candidates) == 0 {
		return minIdx
	}

	var minConf, maxConf = p.asdf[candidates[0]], p.asdf[candidates[0]]

	for _, c := range candidates {
		if p.asdf[c] < minConf {
			minConf = p.asdf[c]
		}

		if p.asdf[c] > maxConf {
			maxConf = p.asdf[c]
		}
	}

	if maxConf-minConf < 0.35 {
		var best = candidates[0]
		for _, c := range candidates {
			if c < best {
				best = c
			}
		}

		return best
	}

	var minDelta, maxDelta = math.MaxFloat64, -1.0

	for _, c := range candidates {
		var period = float64(c + p.minPeriod)
		var delta = math.Abs(period - p.lastPeriod)

		if delta < minDelta {
			minDelta = delta
		}

		if delta > maxDelta {
			maxDelta = delta
		}
	}

	var deltaRange = maxDelta - minDelta
	if deltaRange < 4 {
		return minIdx
	}

	var best = candidates[0]
	var bestWeighted = math.MaxFloat64

	for _, c := range candidates {
		var period = float64(c + p.minPeriod)
		var delta = math.Abs(period - p.lastPeriod)
		var weighted = p.asdf[c] * (1 + (delta/deltaRange)*0.5)

		if weighted < bestWeighted {
			bestWeighted = weighted
			best = c
		}
	}

	return best
}

// localMinima returns up to max indices into p.asdf that are local minima
// (lower than both neighbors, or at an edge and lower than its one
// neighbor), ordered smallest-value first.
func (p *PitchAnalyzer[S]) localMinima(max int) []int {
	var candidates []int

	for i := range p.asdf {
		var isMin = true

		if i > 0 && p.asdf[i-1] <= p.asdf[i] {
			isMin = false
		}

		if i < len(p.asdf)-1 && p.asdf[i+1] <= p.asdf[i] {
			isMin = false
		}

		if isMin {
			candidates = append(candidates, i)
		}
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if p.asdf[candidates[j]] < p.asdf[candidates[i]] {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}

	if len(candidates) > max {
		candidates = candidates[:max]
	}

	return candidates
}

// quadraticInterpolate refines a chosen ASDF bin index to a fractional lag
// via parabolic interpolation of the three samples around it.
func (p *PitchAnalyzer[S]) quadraticInterpolate(i int) (float64, bool) {
	if i <= 0 || i >= len(p.asdf)-1 {
		return float64(i), true
	}

	var s0, s1, s2 = p.asdf[i-1], p.asdf[i], p.asdf[i+1]
	if s1 == 0 {
		return float64(i), true
	}

	var denom = 2*s1 - s0 - s2
	if denom == 0 {
		return float64(i), true
	}

	return float64(i) + 0.5*(s2-s0)/denom, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
