package imogen

import (
	"math"
	"time"

	"github.com/charmbracelet/log"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Periodic input level reporting, the DSP-adjacent
 *		troubleshooting aid direwolf's audio_stats provided for its
 *		modem input: confirmation that audio is actually arriving
 *		and roughly how hot it is, without requiring a full meter
 *		bus (out of scope for the core per the specification).
 *
 *------------------------------------------------------------------*/

// LevelMonitor accumulates RMS over an interval and logs a summary once
// it elapses, rather than spamming a line per block.
type LevelMonitor struct {
	logger   *log.Logger
	interval time.Duration

	lastReport time.Time
	sumSquares float64
	count      int
	blocks     int
}

// NewLevelMonitor constructs a monitor that reports at most once per
// interval. An interval <= 0 disables reporting entirely.
func NewLevelMonitor(logger *log.Logger, interval time.Duration) *LevelMonitor {
	return &LevelMonitor{logger: logger, interval: interval}
}

// Observe folds one block's worth of mono or interleaved samples into the
// running accumulator, reporting and resetting it if the interval has
// elapsed.
func Observe[S Sample](m *LevelMonitor, samples []S) {
	if m.interval <= 0 {
		return
	}

	for _, s := range samples {
		var f = float64(s)
		m.sumSquares += f * f
		m.count++
	}

	m.blocks++

	var now = time.Now()
	if m.lastReport.IsZero() {
		m.lastReport = now
		return
	}

	if now.Sub(m.lastReport) < m.interval {
		return
	}

	var rms = 0.0
	if m.count > 0 {
		rms = math.Sqrt(m.sumSquares / float64(m.count))
	}

	m.logger.Info("audio level", "rms", rms, "blocks", m.blocks)

	m.lastReport = now
	m.sumSquares = 0
	m.count = 0
	m.blocks = 0
}
