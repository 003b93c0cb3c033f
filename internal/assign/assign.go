// Package assign maps a service's treatment group to a preferred lane index.
// The mapping is advisory only: an explicitly chosen lane always wins.
package assign

import "strings"

// Lane indexes by convention at every center: massages in the first lane,
// facial treatments in the second, rituals in the third, four-hands massages
// in the double room.
const (
	LaneMassage   = 0
	LaneTreatment = 1
	LaneRitual    = 2
	LaneFourHands = 3
)

// PreferredLaneIndex returns the suggested lane index for a treatment group
// name. The rules are matched in order; unknown or empty groups default to
// the first lane.
func PreferredLaneIndex(group string) int {
	g := strings.ToLower(strings.TrimSpace(group))

	switch {
	case isFourHands(g):
		return LaneFourHands
	case strings.Contains(g, "massage"):
		return LaneMassage
	case strings.Contains(g, "treatment"):
		return LaneTreatment
	case strings.Contains(g, "ritual"):
		return LaneRitual
	default:
		return LaneMassage
	}
}

func isFourHands(g string) bool {
	return strings.Contains(g, "four-hands") || strings.Contains(g, "four hands") || strings.Contains(g, "4 hands")
}
