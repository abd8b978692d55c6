package model

// チェックアウトの進行段階。保存はせず、ログとメトリクスにだけ使う
type CheckoutPhase string

const (
	CheckoutPhaseIdle       CheckoutPhase = "idle"
	CheckoutPhaseValidating CheckoutPhase = "validating"
	CheckoutPhaseReserving  CheckoutPhase = "reserving"
	CheckoutPhaseCommitted  CheckoutPhase = "committed"
	CheckoutPhaseRejected   CheckoutPhase = "rejected"
	CheckoutPhaseRolledBack CheckoutPhase = "rolled_back"
)

var checkoutTransitions = map[CheckoutPhase][]CheckoutPhase{
	CheckoutPhaseIdle:       {CheckoutPhaseValidating, CheckoutPhaseRejected},
	CheckoutPhaseValidating: {CheckoutPhaseReserving, CheckoutPhaseRejected},
	CheckoutPhaseReserving:  {CheckoutPhaseCommitted, CheckoutPhaseRolledBack},
}

func (p CheckoutPhase) CanTransitionTo(next CheckoutPhase) bool {
	for _, ph := range checkoutTransitions[p] {
		if ph == next {
			return true
		}
	}
	return false
}

// 失敗したときの行き先。Reserving中ならロールバック扱い
func (p CheckoutPhase) FailureExit() CheckoutPhase {
	if p == CheckoutPhaseReserving {
		return CheckoutPhaseRolledBack
	}
	return CheckoutPhaseRejected
}

func (p CheckoutPhase) IsFinal() bool {
	return len(checkoutTransitions[p]) == 0
}
