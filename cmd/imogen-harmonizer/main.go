package main

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for Imogen, a real-time polyphonic
 *		pitch-shifting harmonizer:
 *
 *			Time-domain pitch detection (ASDF).
 *			Pitch-synchronous grain extraction (PSOLA).
 *			Polyphonic SOLA resynthesis with MIDI-driven voicing.
 *			Pedal-pitch and descant automated harmony.
 *			Latch and interval-latch chord capture.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	imogen "github.com/sdwarwick/imogen/src"
)

func main() {
	var configFileName = pflag.StringP("config-file", "c", "", "Configuration file name (YAML). Unset uses built-in defaults.")
	var inputDevice = pflag.StringP("input-device", "i", "", "Input audio device name. Empty uses the system default.")
	var outputDevice = pflag.StringP("output-device", "o", "", "Output audio device name. Empty uses the system default.")
	var sampleRate = pflag.Float64P("sample-rate", "r", 44100, "Audio sample rate, in Hz.")
	var blockSize = pflag.IntP("block-size", "B", 256, "Audio block size, in samples. Must be >= 32.")
	var logDir = pflag.StringP("log-dir", "l", "", "Directory for daily MIDI event log files. Empty disables event logging.")
	var audioStatsInterval = pflag.IntP("audio-stats-interval", "a", 0, "Input level reporting interval in seconds. 0 disables it.")
	var footswitchChip = pflag.String("footswitch-chip", "", "GPIO chip device for an optional hardware sustain pedal, e.g. gpiochip0.")
	var footswitchLine = pflag.Int("footswitch-line", -1, "GPIO line number for the sustain pedal footswitch.")
	var footswitchInvert = pflag.Bool("footswitch-invert", false, "Invert the footswitch GPIO reading.")
	var verbose = pflag.BoolP("verbose", "v", false, "Add verbose build information to the --version output.")
	var showVersion = pflag.BoolP("version", "V", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Imogen - real-time polyphonic pitch-shifting harmonizer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	if *showVersion {
		imogen.PrintVersion(*verbose)
		return
	}

	var logger = log.New(os.Stderr)

	var cfg = imogen.DefaultRenderConfig()
	if *configFileName != "" {
		var loaded, err = imogen.LoadRenderConfig(*configFileName)
		if err != nil {
			logger.Fatal("loading configuration", "err", err)
		}

		cfg = loaded
	}

	if *blockSize < 32 {
		logger.Fatal("block size must be >= 32", "block_size", *blockSize)
	}

	var h = imogen.NewHarmonizer[float32](*sampleRate, *blockSize, cfg.NumVoices)
	imogen.Apply(h, cfg)

	var level *imogen.LevelMonitor
	if *audioStatsInterval > 0 {
		level = imogen.NewLevelMonitor(logger, time.Duration(*audioStatsInterval)*time.Second)
	}

	var eventLog *imogen.EventLog
	var eventLogErr error
	eventLog, eventLogErr = imogen.NewEventLog(*logDir, "imogen-%Y-%m-%d.csv")
	if eventLogErr != nil {
		logger.Fatal("opening event log", "err", eventLogErr)
	}
	defer eventLog.Close()

	var engine, engineErr = imogen.NewAudioEngine(imogen.AudioDeviceConfig{
		InputDevice:  *inputDevice,
		OutputDevice: *outputDevice,
		SampleRate:   *sampleRate,
		BlockSize:    *blockSize,
	}, h, level, eventLog)
	if engineErr != nil {
		logger.Fatal("opening audio engine", "err", engineErr)
	}

	var footswitch *imogen.FootswitchReader
	if *footswitchChip != "" && *footswitchLine >= 0 {
		var fsErr error
		footswitch, fsErr = imogen.NewFootswitchReader(*footswitchChip, *footswitchLine, *footswitchInvert)
		if fsErr != nil {
			logger.Error("opening footswitch, continuing without it", "err", fsErr)
			footswitch = nil
		} else {
			defer footswitch.Close()
		}
	}

	if startErr := engine.Start(); startErr != nil {
		logger.Fatal("starting audio engine", "err", startErr)
	}
	defer engine.Stop()

	logger.Info("imogen running", "sample_rate", *sampleRate, "block_size", *blockSize, "voices", cfg.NumVoices)

	var sigCh = make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var footswitchTicker *time.Ticker
	var footswitchTick <-chan time.Time
	if footswitch != nil {
		footswitchTicker = time.NewTicker(5 * time.Millisecond)
		footswitchTick = footswitchTicker.C
		defer footswitchTicker.Stop()
	}

	for {
		select {
		case <-sigCh:
			logger.Info("shutting down")
			return

		case <-footswitchTick:
			var ev, changed, err = footswitch.PollEvent(0)
			if err != nil {
				logger.Error("reading footswitch", "err", err)
				continue
			}

			if changed {
				engine.QueueMidi(ev)
			}
		}
	}
}
