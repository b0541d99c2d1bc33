package imogen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRenderConfig_PassesValidation(t *testing.T) {
	var cfg = DefaultRenderConfig()

	assert.NoError(t, cfg.Validate())
}

func TestRenderConfig_ValidateRejectsOutOfRangeNumVoices(t *testing.T) {
	var cfg = DefaultRenderConfig()
	cfg.NumVoices = 0

	assert.Error(t, cfg.Validate())

	cfg.NumVoices = 17
	assert.Error(t, cfg.Validate())
}

func TestRenderConfig_ValidateRejectsBadPitchRange(t *testing.T) {
	var cfg = DefaultRenderConfig()
	cfg.PitchDetectionMinHz = 0

	assert.Error(t, cfg.Validate())

	cfg = DefaultRenderConfig()
	cfg.PitchDetectionMaxHz = cfg.PitchDetectionMinHz

	assert.Error(t, cfg.Validate())
}

func TestRenderConfig_ValidateRejectsBadStereoWidth(t *testing.T) {
	var cfg = DefaultRenderConfig()
	cfg.StereoWidth = -1

	assert.Error(t, cfg.Validate())

	cfg.StereoWidth = 101
	assert.Error(t, cfg.Validate())
}

func TestRenderConfig_ValidateRejectsBadVelocitySensitivity(t *testing.T) {
	var cfg = DefaultRenderConfig()
	cfg.VelocitySensitivity = -1

	assert.Error(t, cfg.Validate())
}

func TestLoadRenderConfig_OverridesOnlyMentionedFields(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "imogen.yaml")

	require.NoError(t, os.WriteFile(path, []byte("num_voices: 6\nconcert_pitch_hz: 442\n"), 0o644))

	var cfg, err = LoadRenderConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.NumVoices)
	assert.Equal(t, 442.0, cfg.ConcertPitchHz)
	assert.Equal(t, DefaultRenderConfig().StereoWidth, cfg.StereoWidth)
}

func TestLoadRenderConfig_RejectsInvalidConfig(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "imogen.yaml")

	require.NoError(t, os.WriteFile(path, []byte("num_voices: 99\n"), 0o644))

	var _, err = LoadRenderConfig(path)
	assert.Error(t, err)
}

func TestLoadRenderConfig_MissingFileErrors(t *testing.T) {
	var _, err = LoadRenderConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply_PushesConfigIntoHarmonizer(t *testing.T) {
	var h = NewHarmonizer[float64](44100, 256, 4)
	var cfg = DefaultRenderConfig()
	cfg.ConcertPitchHz = 415
	cfg.NoteStealing = false
	cfg.StereoWidth = 50
	cfg.PedalPitch = PedalHarmonyYAML{Enabled: true, Threshold: 60, IntervalSemitones: 12}

	Apply(h, cfg)

	assert.Equal(t, 415.0, h.Synth().ConcertPitchHz)
	assert.False(t, h.Synth().NoteStealingEnabled)
	assert.True(t, h.Synth().pedalPitch.Enabled)
	assert.Equal(t, uint8(60), h.Synth().pedalPitch.Threshold)
}

func TestApply_PushesQuickEnvParamsIntoEachVoice(t *testing.T) {
	var h = NewHarmonizer[float64](44100, 256, 4)
	var cfg = DefaultRenderConfig()
	cfg.QuickAttackMs = 30
	cfg.QuickReleaseMs = 10

	Apply(h, cfg)

	for _, v := range h.Synth().Voices() {
		assert.InDelta(t, 0.03, v.quickAttackEnv.params.AttackSeconds, 1e-9)
		assert.InDelta(t, 0.01, v.quickReleaseEnv.params.ReleaseSeconds, 1e-9)
	}
}
