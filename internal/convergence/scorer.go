// Package convergence implements the Convergence Scorer: it turns a
// sequence of discussion rounds (critique/rebuttal or challenge/defense)
// into a recommendation of whether the Multi-Round Discussion Protocol
// should continue, has converged, or has stalled.
package convergence

import (
	"math"
	"regexp"
	"strings"

	"github.com/forgepilot/agentcore/internal/domain"
)

// Weights controls how the three signals combine into an overall score.
// Defaults (0.4/0.3/0.3) are an implementer's choice per the spec's open
// question on unweighted signal combination; exposed so callers can tune
// them without touching the scorer itself.
type Weights struct {
	Overlap        float64
	IssueDecline   float64
	VerdictKeyword float64
}

// DefaultWeights returns the scorer's default signal weights.
func DefaultWeights() Weights {
	return Weights{Overlap: 0.4, IssueDecline: 0.3, VerdictKeyword: 0.3}
}

// ConvergedThreshold is the score at or above which the recommendation
// becomes "converged" rather than "continue".
const ConvergedThreshold = 0.75

var (
	positiveVerdictRe = regexp.MustCompile(`(?i)\b(APPROVE|APPROVED|PASS|PASSED|NO BLOCKERS|LGTM)\b`)
	negativeVerdictRe = regexp.MustCompile(`(?i)\b(CHALLENGE|NEEDS_FIX|NEEDS FIX|MUST FIX|BLOCKER|REJECT)\b`)

	bulletLineRe  = regexp.MustCompile(`(?m)^\s*-\s+\S`)
	numberedLnRe  = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+\S`)
	tokenSplitRe  = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Scorer computes convergence over an ordered sequence of DiscussionRound.
type Scorer struct {
	weights Weights
}

// New returns a Scorer with the given weights. A zero Weights is replaced
// with DefaultWeights.
func New(weights Weights) *Scorer {
	if weights.Overlap == 0 && weights.IssueDecline == 0 && weights.VerdictKeyword == 0 {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Score computes a ConvergenceResult from the rounds so far (spec §4.5).
// Fewer than 2 rounds always yields continue/0, since there's nothing yet
// to compare against a prior round.
func (s *Scorer) Score(rounds []domain.DiscussionRound) domain.ConvergenceResult {
	if len(rounds) < 2 {
		return domain.ConvergenceResult{
			OverallScore:   0,
			Recommendation: domain.RecommendContinue,
			Subscores:      map[string]float64{},
		}
	}

	last := rounds[len(rounds)-1]
	prev := rounds[len(rounds)-2]

	overlap := jaccardOverlap(last.Content, prev.Content)
	issueDecline := issueCountDecline(last.Content, prev.Content)
	verdict := verdictKeywordSignal(last.Content)

	overall := s.weights.Overlap*overlap +
		s.weights.IssueDecline*issueDecline +
		s.weights.VerdictKeyword*verdict
	overall = clamp01(overall)

	rec := domain.RecommendContinue
	if overall >= ConvergedThreshold {
		rec = domain.RecommendConverged
	}

	return domain.ConvergenceResult{
		OverallScore:   overall,
		Recommendation: rec,
		Subscores: map[string]float64{
			"overlap":         overlap,
			"issue_decline":   issueDecline,
			"verdict_keyword": verdict,
		},
	}
}

// ForceStalled overrides a result's recommendation to stalled, used by the
// Engine when an iteration cap is reached before convergence (spec §4.8).
func ForceStalled(result domain.ConvergenceResult) domain.ConvergenceResult {
	result.Recommendation = domain.RecommendStalled
	return result
}

// jaccardOverlap returns the Jaccard similarity of the two texts' token
// bags (token = a contiguous run of letters/digits, lowercased).
func jaccardOverlap(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	intersection := 0
	for t := range ta {
		if tb[t] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenSplitRe.Split(strings.ToLower(text), -1) {
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}

// issueCountDecline returns a [0,1] signal: 1 when the latest round raises
// strictly fewer distinct bullet/numbered points than the previous round
// or when neither round lists any points, 0.5 when the count is otherwise
// unchanged, 0 when it grew.
func issueCountDecline(last, prev string) float64 {
	lastCount := countIssues(last)
	prevCount := countIssues(prev)
	switch {
	case prevCount == 0 && lastCount == 0:
		return 1
	case lastCount < prevCount:
		return 1
	case lastCount == prevCount:
		return 0.5
	default:
		return 0
	}
}

func countIssues(text string) int {
	return len(bulletLineRe.FindAllString(text, -1)) + len(numberedLnRe.FindAllString(text, -1))
}

// verdictKeywordSignal returns 1 for an unambiguous positive verdict, 0
// for an unambiguous negative verdict, and 0.5 when neither or both are
// present (ambiguous).
func verdictKeywordSignal(text string) float64 {
	pos := positiveVerdictRe.MatchString(text)
	neg := negativeVerdictRe.MatchString(text)
	switch {
	case pos && !neg:
		return 1
	case neg && !pos:
		return 0
	default:
		return 0.5
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
