package snapshot

import (
	"sort"
	"strings"
)

// Scoring constants. A signal that names the file directly is stronger
// evidence than session co-occurrence alone, so it floors the score at
// confidence*directFloor and then adds a flat bonus.
const (
	directFloor = 0.95
	directBonus = 0.10

	tierPrimaryMin    = 0.75
	tierSupportingMin = 0.50
)

// ScoreInvolvements computes the scored feature list for one file from the
// sessions that touched it and the snapshot's feature links. Pure function;
// features that score zero are omitted.
func ScoreInvolvements(path string, sessionActions map[string]map[Action]bool, linksBySession map[string][]FeatureLink) []FeatureInvolvement {
	type acc struct {
		inv      FeatureInvolvement
		sessions map[string]bool
		actions  map[Action]bool
	}
	accs := make(map[string]*acc)

	for sessionID, actions := range sessionActions {
		maxWeight := 0.0
		for a := range actions {
			if w := ActionWeights[a]; w > maxWeight {
				maxWeight = w
			}
		}
		// Sessions with no recognized action contribute nothing.
		if maxWeight == 0 {
			continue
		}

		for _, link := range linksBySession[sessionID] {
			if link.Confidence <= 0 {
				continue
			}

			score := link.Confidence * maxWeight
			if hasDirectSignal(link, path) {
				if floor := link.Confidence * directFloor; score < floor {
					score = floor
				}
				score += directBonus
				if score > 1.0 {
					score = 1.0
				}
			}

			a := accs[link.FeatureID]
			if a == nil {
				a = &acc{
					inv: FeatureInvolvement{
						FeatureID: link.FeatureID,
						Name:      link.Name,
						Status:    link.Status,
						Category:  link.Category,
					},
					sessions: make(map[string]bool),
					actions:  make(map[Action]bool),
				}
				accs[link.FeatureID] = a
			}

			if score > a.inv.Score {
				a.inv.Score = score
			}
			if link.Confidence > a.inv.MaxConfidence {
				a.inv.MaxConfidence = link.Confidence
			}
			a.sessions[sessionID] = true
			for action := range actions {
				a.actions[action] = true
			}
		}
	}

	out := make([]FeatureInvolvement, 0, len(accs))
	for _, a := range accs {
		if a.inv.Score <= 0 {
			continue
		}
		a.inv.Tier = tierFor(a.inv.Score)
		a.inv.SessionCount = len(a.sessions)
		a.inv.Actions = sortedActions(a.actions)
		out = append(out, a.inv)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	return out
}

func tierFor(score float64) InvolvementTier {
	switch {
	case score >= tierPrimaryMin:
		return TierPrimary
	case score >= tierSupportingMin:
		return TierSupporting
	default:
		return TierPeripheral
	}
}

// hasDirectSignal reports whether any of the link's signals names this file.
func hasDirectSignal(link FeatureLink, path string) bool {
	for _, sig := range link.Signals {
		if sig.FilePath == "" {
			continue
		}
		if pathsRefer(normalizeSignalPath(sig.FilePath), path) {
			return true
		}
	}
	return false
}

// pathsRefer matches exactly, or when one path is a suffix component of the
// other after a "/" (a signal may carry a shorter or longer form of the same
// file path).
func pathsRefer(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.HasSuffix(a, "/"+b) || strings.HasSuffix(b, "/"+a)
}

// normalizeSignalPath is a lenient normalization for signal paths: forward
// slashes, no leading "./" or "/". Signals never fail scoring; an odd path
// simply won't match.
func normalizeSignalPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")
	return p
}

func sortedActions(set map[Action]bool) []Action {
	out := make([]Action, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
