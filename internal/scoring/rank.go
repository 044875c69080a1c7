package scoring

import (
	"sort"

	"github.com/hydra-cli/hydra/internal/core"
)

// Rank resolves the speed dimension relative to the fastest agent in the
// set, computes each agent's final composite, and orders the result
// descending by composite with a stable tiebreak on agent key.
func (e *Engine) Rank(scores []core.ScoreBreakdown) []core.ScoreBreakdown {
	var fastestMS int64 = -1
	for _, s := range scores {
		d, ok := s.Dimensions["speed"]
		if !ok {
			continue
		}
		ms, ok := durationMS(d.Evidence)
		if !ok || ms <= 0 {
			continue
		}
		if fastestMS < 0 || ms < fastestMS {
			fastestMS = ms
		}
	}

	for i := range scores {
		d, ok := scores[i].Dimensions["speed"]
		if !ok {
			continue
		}
		if ms, ok := durationMS(d.Evidence); ok && ms > 0 && fastestMS > 0 {
			val := 100 * float64(fastestMS) / float64(ms)
			d.Value = ptr(val)
			scores[i].Dimensions["speed"] = d
		}
		scores[i].Composite = computeComposite(scores[i].Dimensions, e.Config.Weights)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		ci, cj := scores[i].Composite, scores[j].Composite
		switch {
		case ci == nil && cj == nil:
			return scores[i].AgentKey < scores[j].AgentKey
		case ci == nil:
			return false
		case cj == nil:
			return true
		case *ci != *cj:
			return *ci > *cj
		default:
			return scores[i].AgentKey < scores[j].AgentKey
		}
	})

	return scores
}

func durationMS(evidence map[string]interface{}) (int64, bool) {
	v, ok := evidence["duration_ms"]
	if !ok {
		return 0, false
	}
	ms, ok := v.(int64)
	return ms, ok
}
