package imogen

import "math"

/*------------------------------------------------------------------
 *
 * Purpose:	PSOLA grain extraction: pick one energy peak per pitch
 *		period and convert the peak list into grain-onset indices
 *		for the synthesizer's overlap-add.
 *
 * Description:	GrainExtractor walks the input one period at a time,
 *		searching an expanding window around the predicted peak
 *		position for the local extremum that best continues the
 *		output stream's cadence (the "jitter" criterion below), then
 *		advances its cursor by the period to search the next window.
 *		The last peak positions are remembered across blocks so the
 *		jitter targets stay continuous at block boundaries; the
 *		window walk itself starts again at the beginning of each
 *		block.
 *
 *------------------------------------------------------------------*/

const (
	maxPeakCandidates  = 10
	jitterShortlistLen = 5
)

// GrainExtractor identifies pitch-synchronous analysis grains from a
// pitched or unpitched input stream, for PSOLA resynthesis.
type GrainExtractor[S Sample] struct {
	lastPeak       int
	secondLastPeak int
	numPeaksFound  int

	onsets []int
}

// NewGrainExtractor constructs an extractor with no prior peak history.
func NewGrainExtractor[S Sample]() *GrainExtractor[S] {
	return &GrainExtractor[S]{}
}

// Reset clears the extractor's cross-block peak history, used when the
// harmonizer's reset operation is invoked between blocks.
func (g *GrainExtractor[S]) Reset() {
	g.lastPeak = 0
	g.secondLastPeak = 0
	g.numPeaksFound = 0
	g.onsets = g.onsets[:0]
}

// ExtractGrainOnsets produces the sorted indices of grain starts for the
// given period. Each grain spans [onset, onset+2*period). period must be
// at least 2.
func (g *GrainExtractor[S]) ExtractGrainOnsets(input []S, period int) []int {
	if period < 2 {
		period = 2
	}

	var peaks = g.findPeaks(input, period)

	g.onsets = g.onsets[:0]

	for i, p := range peaks {
		var onset = p - period

		switch {
		case onset >= 0:
			g.onsets = append(g.onsets, onset)
		case i+1 < len(peaks):
			// A later peak's grain will cover this region; skip.
		default:
			var half = p - period/2
			if half >= 0 {
				g.onsets = append(g.onsets, half)
			} else {
				g.onsets = append(g.onsets, p)
			}
		}
	}

	return g.onsets
}

func (g *GrainExtractor[S]) findPeaks(input []S, period int) []int {
	var peaks []int

	var center = 0
	var halfWidth = period / 2

	for center < len(input) {
		var candidates = searchWindow(input, center, halfWidth)
		if len(candidates) == 0 {
			break
		}

		var chosen int

		if g.numPeaksFound < 2 {
			chosen = candidates[0].idx
			var best = math.Abs(float64(input[chosen]))

			for _, c := range candidates {
				var abs = math.Abs(float64(input[c.idx]))
				if abs > best {
					best = abs
					chosen = c.idx
				}
			}
		} else {
			chosen = g.chooseByJitter(input, candidates, period)
		}

		peaks = append(peaks, chosen)

		g.secondLastPeak = g.lastPeak
		g.lastPeak = chosen
		g.numPeaksFound++

		if len(peaks) == 1 {
			center = chosen + period
		} else if len(peaks) >= 2 {
			center = peaks[len(peaks)-2] + 2*period
		}

		halfWidth = period / 2
	}

	return peaks
}

type peakCandidate struct {
	idx    int
	weight float64
}

// searchWindow collects up to maxPeakCandidates local extrema around the
// predicted peak position `center`, found by an expanding search that
// alternates +1/-1 steps outward, each weighted by a triangular function
// that favors samples near the prediction.
func searchWindow[S Sample](input []S, center, halfWidth int) []peakCandidate {
	var candidates []peakCandidate

	var prevWeight = -1.0

	for step := 0; step <= halfWidth; step++ {
		for _, offset := range []int{step, -step} {
			if offset == 0 && step != 0 {
				continue
			}

			var idx = center + offset
			if idx <= 0 || idx >= len(input)-1 {
				continue
			}

			var prev, cur, next = float64(input[idx-1]), float64(input[idx]), float64(input[idx+1])

			var isExtremum = (cur >= prev && cur >= next) || (cur <= prev && cur <= next)
			if !isExtremum {
				continue
			}

			var triangular = 1.0 - math.Abs(float64(offset))/float64(halfWidth+1)
			if triangular < 0 {
				triangular = 0
			}

			var weight = triangular * math.Abs(cur)

			candidates = append(candidates, peakCandidate{idx: idx, weight: weight})

			if len(candidates) >= 2 && weight == prevWeight {
				return candidates
			}

			prevWeight = weight

			if len(candidates) >= maxPeakCandidates {
				return candidates
			}
		}
	}

	return candidates
}

// chooseByJitter implements the "minimize jitter against the two output
// cadence targets" criterion: keep the candidates closest to a blend of
// the overlapping-grain target and the continuous-stream target, then
// among those prefer the strongest signal.
func (g *GrainExtractor[S]) chooseByJitter(input []S, candidates []peakCandidate, period int) int {
	var target1 = g.lastPeak + period
	var target2 = g.secondLastPeak + 2*period

	type scored struct {
		idx   int
		delta float64
		sig   float64
	}

	var all = make([]scored, len(candidates))

	for i, c := range candidates {
		var delta = (math.Abs(float64(c.idx-target1)) + 1.5*math.Abs(float64(c.idx-target2))) / 2
		all[i] = scored{idx: c.idx, delta: delta, sig: math.Abs(float64(input[c.idx]))}
	}

	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].delta < all[i].delta {
				all[i], all[j] = all[j], all[i]
			}
		}
	}

	var shortlist = all
	if len(shortlist) > jitterShortlistLen {
		shortlist = shortlist[:jitterShortlistLen]
	}

	var minDelta, maxDelta = shortlist[0].delta, shortlist[0].delta

	for _, c := range shortlist {
		if c.delta < minDelta {
			minDelta = c.delta
		}

		if c.delta > maxDelta {
			maxDelta = c.delta
		}
	}

	var deltaRange = maxDelta - minDelta

	var best = shortlist[0]
	var bestWeight = -1.0

	for _, c := range shortlist {
		var weight = c.sig

		if deltaRange > 0 {
			weight *= 1 - 0.75*(c.delta-minDelta)/deltaRange
		}

		if weight > bestWeight {
			bestWeight = weight
			best = c
		}
	}

	return best.idx
}
