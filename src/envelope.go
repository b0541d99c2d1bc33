package imogen

/*------------------------------------------------------------------
 *
 * Purpose:	Four-stage attack/decay/sustain/release amplitude envelope.
 *
 * Description:	Each Voice owns three independent instances: `main` (user
 *		configurable, may be globally disabled), `quickAttack` (a
 *		short fixed attack applied instead of main when main is
 *		disabled, to avoid a click at note-on), and `quickRelease`
 *		(a short fixed release applied on top of whichever of the
 *		other two is active when a voice is stopped without tail-off).
 *
 *------------------------------------------------------------------*/

type envelopeStage int

const (
	envelopeIdle envelopeStage = iota
	envelopeAttack
	envelopeDecay
	envelopeSustain
	envelopeRelease
)

// ADSRParams holds the envelope's configured shape. Attack, decay and
// release are expressed in seconds; sustain is a gain ratio in [0, 1].
type ADSRParams struct {
	AttackSeconds  float64
	DecaySeconds   float64
	SustainRatio   float64
	ReleaseSeconds float64
}

// ADSR is a per-sample gain envelope in [0, 1].
type ADSR struct {
	params     ADSRParams
	samplerate float64

	stage envelopeStage
	gain  float64

	attackRate  float64
	decayRate   float64
	releaseRate float64

	releaseStartGain float64
}

// NewADSR constructs an idle envelope with the given shape at the given
// samplerate.
func NewADSR(params ADSRParams, samplerate float64) *ADSR {
	var e = &ADSR{samplerate: samplerate}
	e.SetParams(params)

	return e
}

// SetParams updates the envelope's shape and recomputes its per-sample
// rates. Safe to call while the envelope is running; it takes effect on
// the next stage transition or is applied immediately to the active rate.
func (e *ADSR) SetParams(params ADSRParams) {
	e.params = params

	e.attackRate = rateFor(params.AttackSeconds, e.samplerate)
	e.decayRate = rateFor(params.DecaySeconds, e.samplerate)
	e.releaseRate = rateFor(params.ReleaseSeconds, e.samplerate)
}

func rateFor(seconds, samplerate float64) float64 {
	if seconds <= 0 {
		return 1
	}

	return 1.0 / (seconds * samplerate)
}

// NoteOn gates the envelope on: Idle -> Attack (or, mid-flight, Release ->
// Attack, retriggering from the current gain rather than zero).
func (e *ADSR) NoteOn() {
	e.stage = envelopeAttack
}

// NoteOff gates the envelope off: Sustain/Decay/Attack -> Release.
func (e *ADSR) NoteOff() {
	if e.stage == envelopeIdle {
		return
	}

	e.stage = envelopeRelease
	e.releaseStartGain = e.gain
}

// TriggerRelease forces the envelope straight into its Release stage from
// full gain, skipping attack/decay. Used for the quick-release envelope,
// which has no meaningful attack/decay of its own at note-off time.
func (e *ADSR) TriggerRelease() {
	e.gain = 1
	e.stage = envelopeRelease
}

// Reset silences the envelope immediately and returns it to Idle.
func (e *ADSR) Reset() {
	e.stage = envelopeIdle
	e.gain = 0
}

// IsActive reports whether the envelope is anywhere other than Idle.
func (e *ADSR) IsActive() bool {
	return e.stage != envelopeIdle
}

// Render advances the envelope by len(out) samples, writing the per-sample
// gain into out.
func (e *ADSR) Render(out []float64) {
	for i := range out {
		out[i] = e.tick()
	}
}

func (e *ADSR) tick() float64 {
	switch e.stage {
	case envelopeIdle:
		return 0

	case envelopeAttack:
		e.gain += e.attackRate
		if e.gain >= 1 {
			e.gain = 1
			e.stage = envelopeDecay
		}

		return e.gain

	case envelopeDecay:
		var target = e.params.SustainRatio

		e.gain -= e.decayRate
		if e.gain <= target {
			e.gain = target
			e.stage = envelopeSustain
		}

		return e.gain

	case envelopeSustain:
		e.gain = e.params.SustainRatio
		return e.gain

	case envelopeRelease:
		e.gain -= e.releaseRate
		if e.gain <= 0 {
			e.gain = 0
			e.stage = envelopeIdle
		}

		return e.gain

	default:
		return 0
	}
}

// DefaultQuickAttackParams is the fixed short attack applied in place of
// the main ADSR when it is disabled, per the 15ms default in the spec.
func DefaultQuickAttackParams() ADSRParams {
	return ADSRParams{AttackSeconds: 0.015, DecaySeconds: 0, SustainRatio: 1, ReleaseSeconds: 0.015}
}

// DefaultQuickReleaseParams is the fixed short release applied when a
// voice is stopped without tail-off, per the 5ms default in the spec.
func DefaultQuickReleaseParams() ADSRParams {
	return ADSRParams{AttackSeconds: 0.001, DecaySeconds: 0, SustainRatio: 1, ReleaseSeconds: 0.005}
}
