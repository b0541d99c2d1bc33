package imogen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/*------------------------------------------------------------------
 *
 * Purpose:	The engine's configuration surface: every setter described
 *		in the host interface, gathered into one serializable
 *		snapshot the control thread can load from a YAML file and
 *		swap in atomically between blocks.
 *
 *------------------------------------------------------------------*/

// RenderConfig is the engine's full configuration surface. It is owned by
// the control thread; a prepared Harmonizer is configured by calling
// Apply with a RenderConfig loaded from YAML or built programmatically.
type RenderConfig struct {
	NumVoices int `yaml:"num_voices"`

	ConcertPitchHz float64 `yaml:"concert_pitch_hz"`

	PitchDetectionMinHz float64 `yaml:"pitch_detection_min_hz"`
	PitchDetectionMaxHz float64 `yaml:"pitch_detection_max_hz"`

	ConfidenceUpper float64 `yaml:"confidence_upper"`
	ConfidenceLower float64 `yaml:"confidence_lower"`

	StereoWidth      int `yaml:"stereo_width"`
	LowestPannedNote int `yaml:"lowest_panned_note"`

	ADSR ADSRConfig `yaml:"adsr"`

	QuickAttackMs  float64 `yaml:"quick_attack_ms"`
	QuickReleaseMs float64 `yaml:"quick_release_ms"`

	VelocitySensitivity int `yaml:"velocity_sensitivity"`

	PitchbendUpSemitones   int `yaml:"pitchbend_up_semitones"`
	PitchbendDownSemitones int `yaml:"pitchbend_down_semitones"`

	PedalPitch PedalHarmonyYAML `yaml:"pedal_pitch"`
	Descant    PedalHarmonyYAML `yaml:"descant"`

	Latch         bool `yaml:"latch"`
	IntervalLatch bool `yaml:"interval_latch"`

	NoteStealing bool `yaml:"note_stealing"`

	SoftPedalMultiplier          float64 `yaml:"soft_pedal_multiplier"`
	PlayingButReleasedMultiplier float64 `yaml:"playing_but_released_multiplier"`

	AftertouchGainEnabled bool `yaml:"aftertouch_gain_enabled"`

	UnvoicedPeriodMin int  `yaml:"unvoiced_period_min"`
	UnvoicedPeriodMax int  `yaml:"unvoiced_period_max"`
	InvertOnUnvoiced  bool `yaml:"invert_on_unvoiced"`
}

// ADSRConfig is the user-facing main envelope shape, plus whether it is
// enabled at all (disabled falls back to the voice's quick-attack
// envelope to avoid a click).
type ADSRConfig struct {
	AttackSeconds  float64 `yaml:"attack_seconds"`
	DecaySeconds   float64 `yaml:"decay_seconds"`
	SustainRatio   float64 `yaml:"sustain_ratio"`
	ReleaseSeconds float64 `yaml:"release_seconds"`
	Enabled        bool    `yaml:"enabled"`
}

// PedalHarmonyYAML is the YAML-serializable form of PedalHarmonyConfig.
type PedalHarmonyYAML struct {
	Enabled           bool `yaml:"enabled"`
	Threshold         int  `yaml:"threshold"`
	IntervalSemitones int  `yaml:"interval_semitones"`
}

// DefaultRenderConfig returns the engine's documented defaults.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		NumVoices:                    4,
		ConcertPitchHz:               440,
		PitchDetectionMinHz:          50,
		PitchDetectionMaxHz:          2000,
		ConfidenceUpper:              0.15,
		ConfidenceLower:              0.01,
		StereoWidth:                  100,
		LowestPannedNote:             0,
		ADSR:                         ADSRConfig{AttackSeconds: 0.01, DecaySeconds: 0.05, SustainRatio: 1, ReleaseSeconds: 0.05, Enabled: true},
		QuickAttackMs:                15,
		QuickReleaseMs:               5,
		VelocitySensitivity:          100,
		PitchbendUpSemitones:         2,
		PitchbendDownSemitones:       2,
		NoteStealing:                 true,
		SoftPedalMultiplier:          0.7,
		PlayingButReleasedMultiplier: 0.65,
		UnvoicedPeriodMin:            100,
		UnvoicedPeriodMax:            400,
		InvertOnUnvoiced:             true,
	}
}

// LoadRenderConfig reads a YAML configuration file, starting from the
// documented defaults so a partial file only overrides what it mentions.
func LoadRenderConfig(path string) (RenderConfig, error) {
	var cfg = DefaultRenderConfig()

	var data, err = os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("imogen: reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("imogen: parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate rejects configuration errors per §7: invalid parameters are
// signaled at the call site and must not affect audio processing.
func (c RenderConfig) Validate() error {
	if c.NumVoices < 1 || c.NumVoices > 16 {
		return fmt.Errorf("imogen: num_voices must be in [1, 16], got %d", c.NumVoices)
	}

	if c.PitchDetectionMinHz <= 0 || c.PitchDetectionMaxHz <= c.PitchDetectionMinHz {
		return fmt.Errorf("imogen: invalid pitch detection range [%g, %g]", c.PitchDetectionMinHz, c.PitchDetectionMaxHz)
	}

	if c.StereoWidth < 0 || c.StereoWidth > 100 {
		return fmt.Errorf("imogen: stereo_width must be in [0, 100], got %d", c.StereoWidth)
	}

	if c.VelocitySensitivity < 0 || c.VelocitySensitivity > 100 {
		return fmt.Errorf("imogen: velocity_sensitivity must be in [0, 100], got %d", c.VelocitySensitivity)
	}

	return nil
}

// Apply pushes this configuration into a prepared harmonizer. Per the
// concurrency model this must only be called from the control thread,
// between blocks. Apply does not read NumVoices, LowestPannedNote or
// IntervalLatch: the voice count stays as prepared, and the other two
// fields have no effect on the harmonizer.
func Apply[S Sample](h *Harmonizer[S], c RenderConfig) {
	h.Analyzer().SetHzRange(c.PitchDetectionMinHz, c.PitchDetectionMaxHz)
	h.Analyzer().SetConfidenceThresh(c.ConfidenceUpper, c.ConfidenceLower)

	h.SetUnvoicedPeriodRange(UnvoicedPeriodRange{Min: c.UnvoicedPeriodMin, Max: c.UnvoicedPeriodMax})
	h.SetInvertOnUnvoiced(c.InvertOnUnvoiced)

	var synth = h.Synth()
	synth.ConcertPitchHz = c.ConcertPitchHz
	synth.NoteStealingEnabled = c.NoteStealing
	synth.VelocitySensitivity = c.VelocitySensitivity
	synth.PitchbendRangeVal = PitchbendRange{Up: c.PitchbendUpSemitones, Down: c.PitchbendDownSemitones}
	synth.pedalPitch = PedalHarmonyConfig{Enabled: c.PedalPitch.Enabled, Threshold: uint8(c.PedalPitch.Threshold), IntervalSemitones: c.PedalPitch.IntervalSemitones}
	synth.descant = PedalHarmonyConfig{Enabled: c.Descant.Enabled, Threshold: uint8(c.Descant.Threshold), IntervalSemitones: c.Descant.IntervalSemitones}
	synth.SetLatch(c.Latch)
	synth.panManager.SetParams(len(synth.Voices()), c.StereoWidth)

	synth.gainConfig.MainADSREnabled = c.ADSR.Enabled
	synth.gainConfig.SoftPedalMultiplier = c.SoftPedalMultiplier
	synth.gainConfig.PlayingButReleasedMultiplier = c.PlayingButReleasedMultiplier
	synth.gainConfig.AftertouchGainEnabled = c.AftertouchGainEnabled
	synth.gainConfig.VelocitySensitivity = c.VelocitySensitivity

	for _, v := range synth.Voices() {
		v.SetADSRParams(ADSRParams{
			AttackSeconds:  c.ADSR.AttackSeconds,
			DecaySeconds:   c.ADSR.DecaySeconds,
			SustainRatio:   c.ADSR.SustainRatio,
			ReleaseSeconds: c.ADSR.ReleaseSeconds,
		})
		v.SetQuickEnvParams(c.QuickAttackMs, c.QuickReleaseMs)
	}
}
