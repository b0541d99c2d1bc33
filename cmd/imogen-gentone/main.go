package main

/*-------------------------------------------------------------------
 *
 * Purpose:	Quick test program for the pitch analyzer: generate a
 *		sine tone at a known frequency and report what
 *		PitchAnalyzer.DetectPitch recovers from it, block by
 *		block, without needing a sound card or MIDI controller.
 *
 *--------------------------------------------------------------------*/

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/pflag"

	imogen "github.com/sdwarwick/imogen/src"
)

func main() {
	var freqHz = pflag.Float64P("freq", "f", 220, "Tone frequency, in Hz.")
	var sampleRate = pflag.Float64P("sample-rate", "r", 44100, "Sample rate, in Hz.")
	var blockSize = pflag.IntP("block-size", "b", 512, "Analysis block size, in samples.")
	var numBlocks = pflag.IntP("blocks", "n", 20, "Number of blocks to analyze.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "imogen-gentone: generate a sine tone and report detected pitch\n\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	var analyzer = imogen.NewPitchAnalyzer[float64](*sampleRate, 50, 2000)

	var block = make([]float64, *blockSize)
	var phase = 0.0
	var step = 2 * math.Pi * (*freqHz) / (*sampleRate)

	for b := 0; b < *numBlocks; b++ {
		for i := range block {
			block[i] = math.Sin(phase)
			phase += step
		}

		var estimate = analyzer.DetectPitch(block)

		if estimate.Voiced {
			fmt.Printf("block %2d: voiced, %.2f Hz (target %.2f Hz)\n", b, estimate.Hz, *freqHz)
		} else {
			fmt.Printf("block %2d: unvoiced\n", b)
		}
	}
}
