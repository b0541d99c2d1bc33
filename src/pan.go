package imogen

import "math"

/*------------------------------------------------------------------
 *
 * Purpose:	Assigns and recycles stereo MIDI pan values for active
 *		voices, spread symmetrically around center (64) according
 *		to the configured stereo width and voice count.
 *
 * Description:	The candidate pan set is generated "middle-out": the first
 *		voice to ask for a pan gets the candidate nearest center (64
 *		itself when the voice count is odd), the following ones
 *		alternate to either side, moving outward, so that a
 *		small number of active voices still spreads across the
 *		stereo field rather than clustering to one side.
 *
 *------------------------------------------------------------------*/

// PanningManager owns the pool of candidate pan values for the current
// voice count and stereo width, handing them out and reclaiming them as
// voices start and stop.
type PanningManager struct {
	numVoices int
	width     int

	candidates []int // middle-out order
	pool       []int // unsent values, in middle-out order
}

// NewPanningManager constructs a manager for numVoices voices at the given
// stereo width (0..100).
func NewPanningManager(numVoices, width int) *PanningManager {
	var m = &PanningManager{}
	m.SetParams(numVoices, width)

	return m
}

// SetParams recomputes the candidate pan set for a new voice count or
// stereo width. Any pan values already held by active voices stay held;
// call RemapActive afterward to move them onto the nearest new candidate.
func (m *PanningManager) SetParams(numVoices, width int) {
	m.numVoices = numVoices
	m.width = width
	m.candidates = middleOutPans(numVoices, width)
	m.pool = append([]int(nil), m.candidates...)
}

// middleOutPans produces numVoices evenly spaced pan values symmetric
// around 64, outermost pair at 63.5 +/- 63.5*(width/100), reordered
// center-first-then-alternate-outward.
func middleOutPans(numVoices, width int) []int {
	if numVoices <= 0 {
		return nil
	}

	if numVoices == 1 {
		return []int{64}
	}

	var spread = 63.5 * (float64(width) / 100.0)
	var lo, hi = 63.5 - spread, 63.5 + spread
	var step = (hi - lo) / float64(numVoices-1)

	var linear = make([]int, numVoices)
	for i := range linear {
		linear[i] = int(math.Round(lo + step*float64(i)))
	}

	var mid = numVoices / 2
	var ordered = make([]int, 0, numVoices)
	ordered = append(ordered, linear[mid])

	var lowIdx, highIdx = mid - 1, mid + 1
	for lowIdx >= 0 || highIdx < numVoices {
		if highIdx < numVoices {
			ordered = append(ordered, linear[highIdx])
			highIdx++
		}

		if lowIdx >= 0 {
			ordered = append(ordered, linear[lowIdx])
			lowIdx--
		}
	}

	return ordered
}

// GetNextPan pops the next middle-out value from the pool, or 64 if the
// pool is empty (more voices requesting a pan than candidates exist).
func (m *PanningManager) GetNextPan() int {
	if len(m.pool) == 0 {
		return 64
	}

	var v = m.pool[0]
	m.pool = m.pool[1:]

	return v
}

// ReturnPan inserts v back into the pool, preserving middle-out order.
func (m *PanningManager) ReturnPan(v int) {
	var order = make(map[int]int, len(m.candidates))
	for i, c := range m.candidates {
		order[c] = i
	}

	var insertAt = len(m.pool)

	for i, p := range m.pool {
		if order[p] > order[v] {
			insertAt = i
			break
		}
	}

	m.pool = append(m.pool, 0)
	copy(m.pool[insertAt+1:], m.pool[insertAt:])
	m.pool[insertAt] = v
}

// RemapActive remaps each pan value currently held by an active voice to
// the closest new candidate not already consumed, called when stereo
// width changes while voices are sounding. It returns the remapped pans
// in the same order as activePans was given.
func (m *PanningManager) RemapActive(activePans []int) []int {
	var available = append([]int(nil), m.candidates...)
	var result = make([]int, len(activePans))

	for i, p := range activePans {
		var bestIdx = -1
		var bestDist = math.MaxInt64

		for j, c := range available {
			var dist = c - p
			if dist < 0 {
				dist = -dist
			}

			if dist < bestDist {
				bestDist = dist
				bestIdx = j
			}
		}

		if bestIdx == -1 {
			result[i] = 64
			continue
		}

		result[i] = available[bestIdx]
		available = append(available[:bestIdx], available[bestIdx+1:]...)
	}

	m.pool = available

	return result
}
