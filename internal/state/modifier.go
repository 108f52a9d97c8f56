package state

// ModifierState is the one-shot level-up modifier, a two-state machine:
//
//	Inactive --Arm--> Armed
//	Armed --Disarm--> Inactive              (user-facing)
//	Armed --ConsumeOnRegister--> Inactive   (internal, next RegisterCase)
//	Armed --ClearOnRollover--> Inactive     (internal, day boundary)
//
// Only Arm and Disarm are exposed on the Store; consumption and rollover
// clearing happen inside the operations that trigger them. It persists as a
// JSON boolean.
type ModifierState bool

const (
	ModifierInactive ModifierState = false
	ModifierArmed    ModifierState = true
)

func (m ModifierState) Armed() bool { return bool(m) }

type modifierTransition int

const (
	transitionArm modifierTransition = iota
	transitionDisarm
	transitionConsume
	transitionClear
)

// apply returns the next state and whether the state changed.
func (m ModifierState) apply(t modifierTransition) (ModifierState, bool) {
	switch t {
	case transitionArm:
		return ModifierArmed, m == ModifierInactive
	case transitionDisarm, transitionConsume, transitionClear:
		return ModifierInactive, m == ModifierArmed
	default:
		return m, false
	}
}
