package led

// Stock condition names and blink parameters. Supplements spec.md from
// original_source/led.c's built-in `_default` condition: every nakd build
// needs at least one baseline condition registered, or the mixer has
// nothing to demonstrate its priority/tie-break invariant with.
const (
	ConditionIdle            = "idle"
	ConditionAssociating     = "associating"
	ConditionStageTransition = "stage-transition"
	ConditionConfigError     = "config-error"

	associatingBlinkMS     = 100
	stageTransitionBlinkMS = 100
	stageTransitionBursts  = 4 // on/off toggles in one "single blink burst"
	configErrorBlinkMS     = 500
)

// RegisterIdle installs the always-on baseline condition: solid, lowest
// priority, so it wins only when nothing else is active.
func RegisterIdle(m *Mixer) error {
	return m.Add(Condition{Name: ConditionIdle, Priority: PriorityDefault})
}

// SetAssociating toggles the "wireless association in progress" condition:
// a fast blink while active is true, removed when association finishes.
func SetAssociating(m *Mixer, active bool) error {
	if !active {
		return m.Remove(ConditionAssociating)
	}
	return m.Add(Condition{
		Name:     ConditionAssociating,
		Priority: PriorityMode,
		Blink:    Blink{IntervalMS: associatingBlinkMS, RemainingCount: -1},
	})
}

// PulseStageTransition adds a single finite blink burst marking a
// successful stage reconciliation. It clears itself once the burst runs
// out — see Mixer.Tick.
func PulseStageTransition(m *Mixer) error {
	return m.Add(Condition{
		Name:     ConditionStageTransition,
		Priority: PriorityNotification,
		Blink:    Blink{IntervalMS: stageTransitionBlinkMS, RemainingCount: stageTransitionBursts},
	})
}

// SetConfigError toggles the "a stage's last_error is non-empty" condition:
// an infinite slow blink at the daemon's highest LED priority while active.
func SetConfigError(m *Mixer, active bool) error {
	if !active {
		return m.Remove(ConditionConfigError)
	}
	return m.Add(Condition{
		Name:     ConditionConfigError,
		Priority: PriorityActionNeeded,
		Blink:    Blink{IntervalMS: configErrorBlinkMS, RemainingCount: -1},
	})
}
