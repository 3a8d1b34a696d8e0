// Package discussion implements the Multi-Round Discussion Protocol:
// review (critique/rebuttal) and debate (challenge/defense, or
// perspectives) rounds, role assignment per round, convergence-driven
// continuation, and synthesis (spec §4.8 Reviewing/Debating/Synthesizing).
//
// The teacher (opencode) has no review/debate protocol of its own; this
// package is styled after its session/round bookkeeping shape
// (session/todo.go's ordered-list-with-status idiom) rather than adapted
// from a single teacher file.
package discussion

import (
	"context"

	"github.com/forgepilot/agentcore/internal/domain"
)

// Completer is the minimal LLM surface the discussion protocol needs.
// model identifies which configured model plays the round (reviewer /
// critic vs default), left as an opaque string the caller's Completer
// implementation maps to a concrete provider+model pair.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Scorer is the minimal Convergence Scorer surface the protocol needs.
type Scorer interface {
	Score(rounds []domain.DiscussionRound) domain.ConvergenceResult
}

// StepContext carries the information a round's prompt is built from.
type StepContext struct {
	StepDescription string
	Action          string
	Result          string
}

// ModelSet names which model plays which role in a round. "critic" and
// "default" mirror spec §4.8's "reviewer model"/"critic model" vs
// "default model" role assignment.
type ModelSet struct {
	Critic  string
	Default string
}

// RoleForRound returns the role assigned to round (1-based) under
// strategy, per spec §4.8.
func RoleForRound(strategy domain.SessionStrategy, round int) domain.DiscussionRole {
	switch strategy {
	case domain.StrategyReview:
		if round%2 == 1 {
			return domain.RoleCritique
		}
		return domain.RoleRebuttal

	case domain.StrategyDebate:
		if round%2 == 1 {
			return domain.RoleChallenge
		}
		return domain.RoleDefense

	case domain.StrategyPerspectives:
		switch round {
		case 1:
			return domain.RoleRisk
		case 2:
			return domain.RoleInnovation
		default:
			return domain.RoleCrossReview
		}

	default:
		return domain.RoleCritique
	}
}

// ModelForRole returns which member of a ModelSet plays a given role,
// per spec §4.8's per-round model assignment.
func ModelForRole(models ModelSet, role domain.DiscussionRole) string {
	switch role {
	case domain.RoleCritique, domain.RoleChallenge, domain.RoleRisk, domain.RoleCrossReview:
		return models.Critic
	default:
		return models.Default
	}
}
