// Package tent holds the tent quota rules and the per-organization purchase tracking.
//
// The quota is never stored as a setting: it is recomputed from the number of
// company teams every time it is needed. These functions are the only place the
// formula lives; reservation time passes the in-cart teams, confirm time passes 0.
package tent

// TentsPerTeam is how many tents each company team entitles an organization to.
const TentsPerTeam = 2

// ComputeTeamCount combines the persisted team count with teams still sitting
// in the caller's cart. Negative inputs count as zero.
func ComputeTeamCount(persisted, inCart int) int {
	if persisted < 0 {
		persisted = 0
	}
	if inCart < 0 {
		inCart = 0
	}
	return persisted + inCart
}

// MaxAllowed is the tent ceiling for teamCount teams.
func MaxAllowed(teamCount int) int {
	if teamCount <= 0 {
		return 0
	}
	return teamCount * TentsPerTeam
}

// RemainingAllowed is max(0, maxAllowed - purchased).
func RemainingAllowed(maxAllowed, purchased int) int {
	if remaining := maxAllowed - purchased; remaining > 0 {
		return remaining
	}
	return 0
}

// ExceedsQuota reports whether buying quantity more tents would pass maxAllowed.
func ExceedsQuota(purchased, quantity, maxAllowed int) bool {
	return purchased+quantity > maxAllowed
}
