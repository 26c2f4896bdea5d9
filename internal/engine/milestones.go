package engine

import (
	"github.com/tatianab/questforge/internal/config"
	"github.com/tatianab/questforge/internal/models"
)

// reached reports whether the session currently satisfies m.
func reached(m models.Milestone, s *models.Session, t config.Thresholds) bool {
	switch m {
	case models.MilestoneFirstSteps:
		return s.TurnIndex == 1
	case models.MilestoneExplorer:
		return len(s.Graph.Nodes) >= t.ExplorerNodes
	case models.MilestoneCollector:
		return len(s.Possessions) >= t.CollectorItems
	case models.MilestoneSurvivor:
		return s.TurnIndex >= t.SurvivorTurns
	case models.MilestoneBraveHeart:
		return s.IsAlive && s.Vitality > 0 && s.Vitality <= t.BraveHeartVitality
	case models.MilestoneFullHealth:
		return s.Vitality == models.MaxVitality && s.TurnIndex > 1
	}
	return false
}

// newMilestones returns, in catalogue order, the milestones s satisfies but
// has not recorded yet.
func newMilestones(s *models.Session, t config.Thresholds) []models.Milestone {
	var out []models.Milestone
	for _, m := range models.Milestones {
		if !s.HasMilestone(m) && reached(m, s, t) {
			out = append(out, m)
		}
	}
	return out
}
