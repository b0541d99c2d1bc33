package imogen

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Interface to the host audio device, the PortAudio
 *		descendant of the engine's ALSA/OSS device layer: open a
 *		duplex stream, feed each callback's mono input block
 *		through a Harmonizer, and hand the stereo result back to
 *		the output buffer.
 *
 *------------------------------------------------------------------*/

// AudioDeviceConfig names the input/output devices and the stream
// parameters a block processor needs, the portaudio analogue of the
// engine's former ADEVICE configuration line.
type AudioDeviceConfig struct {
	InputDevice  string
	OutputDevice string
	SampleRate   float64
	BlockSize    int
}

// AudioEngine owns one duplex PortAudio stream and drives a Harmonizer
// from its callback. The callback holds mu for the whole block; nothing
// else in this package takes mu, and Apply (config.go) changes the
// harmonizer without locking it.
type AudioEngine[S Sample] struct {
	mu         sync.Mutex
	harmonizer *Harmonizer[S]
	level      *LevelMonitor

	stream   *portaudio.Stream
	midiIn   []TimedEvent
	midiOut  []TimedEvent
	outBuf   *Buffer[S]
	pending  chan []TimedEvent
	eventLog *EventLog
}

// NewAudioEngine opens a duplex stream (mono in, stereo out) against the
// named devices and wires it to harmonizer. An empty device name selects
// the host's default for that direction.
//
// PortAudio only natively drives float32 streams, so in practice S is
// float32 here; the engine stays generic so the same Harmonizer can be
// driven by a different host (offline renderer, test harness) at float64.
func NewAudioEngine[S Sample](cfg AudioDeviceConfig, h *Harmonizer[S], level *LevelMonitor, eventLog *EventLog) (*AudioEngine[S], error) {
	var e = &AudioEngine[S]{
		harmonizer: h,
		level:      level,
		outBuf:     NewBuffer[S](2, cfg.BlockSize),
		pending:    make(chan []TimedEvent, 64),
		eventLog:   eventLog,
	}

	var inDev, outDev *portaudio.DeviceInfo
	var err error

	if cfg.InputDevice != "" {
		inDev, err = findPortaudioDevice(cfg.InputDevice, true)
		if err != nil {
			return nil, err
		}
	}

	if cfg.OutputDevice != "" {
		outDev, err = findPortaudioDevice(cfg.OutputDevice, false)
		if err != nil {
			return nil, err
		}
	}

	var streamParams portaudio.StreamParameters
	if inDev != nil || outDev != nil {
		if inDev == nil {
			inDev, err = portaudio.DefaultInputDevice()
			if err != nil {
				return nil, fmt.Errorf("imogen: no default input device: %w", err)
			}
		}

		if outDev == nil {
			outDev, err = portaudio.DefaultOutputDevice()
			if err != nil {
				return nil, fmt.Errorf("imogen: no default output device: %w", err)
			}
		}

		streamParams = portaudio.StreamParameters{
			Input:           portaudio.StreamDeviceParameters{Device: inDev, Channels: 1, Latency: inDev.DefaultLowInputLatency},
			Output:          portaudio.StreamDeviceParameters{Device: outDev, Channels: 2, Latency: outDev.DefaultLowOutputLatency},
			SampleRate:      cfg.SampleRate,
			FramesPerBuffer: cfg.BlockSize,
		}

		e.stream, err = portaudio.OpenStream(streamParams, e.process)
	} else {
		e.stream, err = portaudio.OpenDefaultStream(1, 2, cfg.SampleRate, cfg.BlockSize, e.process)
	}

	if err != nil {
		return nil, fmt.Errorf("imogen: opening audio stream: %w", err)
	}

	return e, nil
}

func findPortaudioDevice(name string, input bool) (*portaudio.DeviceInfo, error) {
	var devices, err = portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("imogen: listing audio devices: %w", err)
	}

	for _, d := range devices {
		if d.Name != name {
			continue
		}

		if input && d.MaxInputChannels > 0 {
			return d, nil
		}

		if !input && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}

	return nil, fmt.Errorf("imogen: no matching %s device named %q", directionLabel(input), name)
}

func directionLabel(input bool) string {
	if input {
		return "input"
	}

	return "output"
}

// QueueMidi hands a host-sourced MIDI event to the next block's
// processing pass. Safe to call from any thread; it is bounded and will
// drop events rather than block the caller if the audio callback has
// fallen behind.
func (e *AudioEngine[S]) QueueMidi(ev TimedEvent) {
	select {
	case e.pending <- []TimedEvent{ev}:
	default:
	}
}

// process is the PortAudio callback: real-time, must never allocate on a
// hot path that could block, never log synchronously, and never take a
// lock that the control thread can hold for long.
func (e *AudioEngine[S]) process(in []S, out [][]S) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.midiIn = e.midiIn[:0]

drain:
	for {
		select {
		case batch := <-e.pending:
			e.midiIn = append(e.midiIn, batch...)
		default:
			break drain
		}
	}

	if e.level != nil {
		Observe(e.level, in)
	}

	e.midiOut = e.harmonizer.Process(in, e.midiIn, e.outBuf)

	if e.eventLog != nil {
		for _, ev := range e.midiIn {
			_ = e.eventLog.Write("in", ev)
		}

		for _, ev := range e.midiOut {
			_ = e.eventLog.Write("out", ev)
		}
	}

	var left = e.outBuf.Channel(0)
	var right = e.outBuf.Channel(1)

	for i := range out[0] {
		out[0][i] = left[i]
		out[1][i] = right[i]
	}
}

// Start opens the device and begins streaming.
func (e *AudioEngine[S]) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("imogen: initializing portaudio: %w", err)
	}

	if err := e.stream.Start(); err != nil {
		return fmt.Errorf("imogen: starting audio stream: %w", err)
	}

	return nil
}

// Stop halts the stream and releases the device.
func (e *AudioEngine[S]) Stop() error {
	if e.stream != nil {
		if err := e.stream.Stop(); err != nil {
			return err
		}

		if err := e.stream.Close(); err != nil {
			return err
		}
	}

	portaudio.Terminate()

	return nil
}
