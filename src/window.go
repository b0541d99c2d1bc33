package imogen

import "math"

/*------------------------------------------------------------------
 *
 * Purpose:	Window shape functions used by the grain extractor and
 *		voice synthesizer for their overlap-add tapers.
 *
 *------------------------------------------------------------------*/

// HannWindow returns a length-sample raised-cosine (Hann) window, the taper
// PSOLA grain extraction and SOLA resynthesis both overlap-add with to
// avoid clicks at grain boundaries.
func HannWindow[S Sample](length int) []S {
	var w = make([]S, length)

	if length <= 2 {
		for i := range w {
			w[i] = 1
		}

		return w
	}

	var denom = float64(length - 1)

	for j := 0; j < length; j++ {
		var v = 0.5 - 0.5*math.Cos((2*math.Pi*float64(j))/denom)
		w[j] = S(v)
	}

	return w
}

// ApplyWindow multiplies samples in place by a precomputed window of the
// same length.
func ApplyWindow[S Sample](samples []S, window []S) {
	var n = len(samples)
	if len(window) < n {
		n = len(window)
	}

	for i := 0; i < n; i++ {
		samples[i] *= window[i]
	}
}
