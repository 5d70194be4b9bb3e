package manager

import (
	"sort"

	"inferd/internal/monitor"
)

// DecisionKind classifies the outcome of an admission decision.
type DecisionKind int

const (
	// DecisionAdmit admits the load with no evictions.
	DecisionAdmit DecisionKind = iota
	// DecisionAdmitWithEviction admits after unloading Victims.
	DecisionAdmitWithEviction
	// DecisionReject refuses the load; Reason carries the typed error.
	DecisionReject
)

// Decision is the outcome of the pure admission policy.
type Decision struct {
	Kind    DecisionKind
	Victims []string
	Reason  error
}

// admitRequest is the policy's view of a load request.
type admitRequest struct {
	ModelID string
	MemMB   int
	AccelMB int
	// SessionBound marks the model as already bound to an active session;
	// such loads survive the critical-pressure bias so existing sessions can
	// keep draining.
	SessionBound bool
}

// decide is a pure function: given a load request, the loaded set, pending
// reservations from in-flight loads, current pressure, and the budget, it
// returns admit, admit-with-evictions, or reject. It never mutates state.
//
// Victims are ranked least-recently-used first, ties broken by larger memory
// footprint to free more headroom per eviction. Only idle handles (no
// in-flight requests, not already marked) are candidates.
func decide(req admitRequest, loaded []handleView, pendingMB, pendingAccelMB, pendingCount int, pressure monitor.Pressure, budget monitor.Budget) Decision {
	// Fast path: already loaded means reuse, no admission needed.
	for _, h := range loaded {
		if h.ModelID == req.ModelID && !h.EvictMarked {
			return Decision{Kind: DecisionAdmit}
		}
	}

	// Conservative bias: under critical pressure only session-bound models
	// may load, even if memory would technically fit.
	if pressure == monitor.PressureCritical && !req.SessionBound {
		return Decision{Kind: DecisionReject, Reason: underPressureError{id: req.ModelID}}
	}

	var curMB, curAccelMB int
	for _, h := range loaded {
		curMB += h.MemMB
		curAccelMB += h.AccelMB
	}
	curMB += pendingMB
	curAccelMB += pendingAccelMB
	curCount := len(loaded) + pendingCount

	fits := func(mb, accelMB, count int) bool {
		if budget.MaxMemoryMB > 0 && mb+req.MemMB+budget.MemoryMarginMB > budget.MaxMemoryMB {
			return false
		}
		if budget.MaxAccelMB > 0 && accelMB+req.AccelMB > budget.MaxAccelMB {
			return false
		}
		if budget.MaxModels > 0 && count+1 > budget.MaxModels {
			return false
		}
		return true
	}

	if fits(curMB, curAccelMB, curCount) {
		return Decision{Kind: DecisionAdmit}
	}

	// Rank idle victims: LRU first, larger footprint breaks ties.
	candidates := make([]handleView, 0, len(loaded))
	for _, h := range loaded {
		if h.InFlight == 0 && !h.EvictMarked {
			candidates = append(candidates, h)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].LastActive.Equal(candidates[j].LastActive) {
			return candidates[i].LastActive.Before(candidates[j].LastActive)
		}
		return candidates[i].MemMB > candidates[j].MemMB
	})

	victims := make([]string, 0, len(candidates))
	for _, v := range candidates {
		curMB -= v.MemMB
		curAccelMB -= v.AccelMB
		curCount--
		victims = append(victims, v.ModelID)
		if fits(curMB, curAccelMB, curCount) {
			return Decision{Kind: DecisionAdmitWithEviction, Victims: victims}
		}
	}

	return Decision{Kind: DecisionReject, Reason: insufficientResourcesError{id: req.ModelID}}
}
