package discussion

import (
	"context"
	"fmt"

	"github.com/forgepilot/agentcore/internal/domain"
)

// New returns a freshly started session for strategy.
func New(strategy domain.SessionStrategy) *domain.DiscussionSession {
	return &domain.DiscussionSession{Strategy: strategy}
}

// Driver runs rounds of a DiscussionSession against a Completer and
// Scorer, enforcing an iteration cap (maxReviewIterations /
// maxDebateIterations per spec §4.8).
type Driver struct {
	completer Completer
	scorer    Scorer
	models    ModelSet
	maxRounds int
}

// NewDriver returns a Driver bounded to maxRounds total rounds.
func NewDriver(completer Completer, scorer Scorer, models ModelSet, maxRounds int) *Driver {
	return &Driver{completer: completer, scorer: scorer, models: models, maxRounds: maxRounds}
}

// Outcome is the result of running one round.
type Outcome struct {
	Round       domain.DiscussionRound
	Convergence domain.ConvergenceResult
	// CapReached reports whether maxRounds was hit before convergence; the
	// caller should treat this like a forced "stalled" and move on to
	// Synthesizing (spec §4.8).
	CapReached bool
}

// RunRound plays one round: assigns the role for session.NextRound(),
// builds the prompt, calls the LLM, appends the round, and scores
// convergence. The caller is responsible for looping while
// !Outcome.Convergence.Recommendation-is-terminal && !Outcome.CapReached.
func (d *Driver) RunRound(ctx context.Context, session *domain.DiscussionSession, step StepContext) (Outcome, error) {
	roundNum := session.NextRound()
	role := RoleForRound(session.Strategy, roundNum)
	model := ModelForRole(d.models, role)

	prompt := roundPrompt(role, step, session.Rounds)
	content, err := d.completer.Complete(ctx, model, prompt)
	if err != nil {
		return Outcome{}, fmt.Errorf("discussion: round %d (%s) failed: %w", roundNum, role, err)
	}

	round := session.AddRound(role, content)

	var convergence domain.ConvergenceResult
	if d.scorer != nil {
		convergence = d.scorer.Score(session.Rounds)
	}

	capReached := roundNum >= d.maxRounds && convergence.Recommendation == domain.RecommendContinue
	if capReached {
		convergence.Recommendation = domain.RecommendStalled
	}
	session.Convergence = &convergence

	return Outcome{Round: round, Convergence: convergence, CapReached: capReached}, nil
}

// Synthesize asks the LLM to summarize the session's rounds, storing the
// result on the session. On LLM failure it falls back to concatenating
// the rounds verbatim (spec §4.8 Synthesizing).
func (d *Driver) Synthesize(ctx context.Context, session *domain.DiscussionSession) string {
	text, err := d.completer.Complete(ctx, d.models.Default, synthesisPrompt(session))
	if err != nil || text == "" {
		text = fallbackSynthesis(session)
	}
	session.Synthesis = text
	return text
}
