package duel

import "strings"

// NormalizeAction maps a client-supplied name onto the closed action set.
// Unknown or empty names become ActionNone.
func NormalizeAction(name string) Action {
	switch a := Action(strings.ToLower(strings.TrimSpace(name))); a {
	case ActionAttack, ActionGuard, ActionCharge, ActionChargedAttack:
		return a
	default:
		return ActionNone
	}
}

// GateAction downgrades charged_attack to none when no charge token is held.
func GateAction(a Action, tokens int) Action {
	if a == ActionChargedAttack && tokens <= 0 {
		return ActionNone
	}
	return a
}

func (a Action) IsValid() bool {
	switch a {
	case ActionAttack, ActionGuard, ActionCharge, ActionChargedAttack, ActionNone:
		return true
	default:
		return false
	}
}

func (a Action) damage() int {
	switch a {
	case ActionAttack:
		return AttackDamage
	case ActionChargedAttack:
		return ChargedDamage
	default:
		return 0
	}
}

func (a Action) tokenDelta() int {
	switch a {
	case ActionCharge:
		return 1
	case ActionChargedAttack:
		return -1
	default:
		return 0
	}
}
