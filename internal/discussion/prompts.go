package discussion

import (
	"fmt"
	"strings"

	"github.com/forgepilot/agentcore/internal/domain"
)

// roundPrompt builds the prompt for one round: the step description,
// action, and result, plus every prior round in order (spec §4.8: "Each
// round constructs a prompt including the step description/action/result
// plus previous rounds").
func roundPrompt(role domain.DiscussionRole, step StepContext, previous []domain.DiscussionRound) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are playing the %q role in round %d of a multi-round %s.\n\n", role, len(previous)+1, sessionNoun(role))
	b.WriteString("Step description:\n")
	b.WriteString(step.StepDescription)
	b.WriteString("\n\nAction taken:\n")
	b.WriteString(step.Action)
	b.WriteString("\n\nResult:\n")
	b.WriteString(step.Result)

	if len(previous) > 0 {
		b.WriteString("\n\nPrevious rounds:\n")
		for _, r := range previous {
			fmt.Fprintf(&b, "\n--- Round %d (%s) ---\n%s\n", r.Round, r.Role, r.Content)
		}
	}

	b.WriteString("\n\n")
	b.WriteString(roleInstruction(role))
	return b.String()
}

func sessionNoun(role domain.DiscussionRole) string {
	switch role {
	case domain.RoleCritique, domain.RoleRebuttal:
		return "code review"
	default:
		return "debate"
	}
}

func roleInstruction(role domain.DiscussionRole) string {
	switch role {
	case domain.RoleCritique:
		return "Critique the action and result. List concrete issues, or state APPROVE / NO BLOCKERS if there are none."
	case domain.RoleRebuttal:
		return "Respond to the critique above. Address each issue raised, or explain why it does not apply."
	case domain.RoleChallenge:
		return "Challenge the plan's current approach. Raise the strongest objection you can."
	case domain.RoleDefense:
		return "Defend the plan's current approach against the challenge above, or concede specific points."
	case domain.RoleRisk:
		return "Analyze the risk profile of the current plan. What could go wrong?"
	case domain.RoleInnovation:
		return "Analyze the current plan for missed opportunities or better approaches."
	case domain.RoleCrossReview:
		return "Cross-review the discussion so far and give a final recommendation."
	default:
		return "Respond."
	}
}

// synthesisPrompt builds the prompt asking an LLM to summarize a
// session's rounds into one synthesis text (spec §4.8 Synthesizing).
func synthesisPrompt(session *domain.DiscussionSession) string {
	var b strings.Builder
	b.WriteString("Summarize the following multi-round discussion into a single concise synthesis for a human decision-maker.\n\n")
	for _, r := range session.Rounds {
		fmt.Fprintf(&b, "--- Round %d (%s) ---\n%s\n\n", r.Round, r.Role, r.Content)
	}
	return b.String()
}

// fallbackSynthesis concatenates every round's content when the LLM call
// that would otherwise produce a synthesis fails (spec §4.8: "On LLM
// failure, fall back to concatenating rounds").
func fallbackSynthesis(session *domain.DiscussionSession) string {
	var b strings.Builder
	for i, r := range session.Rounds {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Round %d (%s): %s", r.Round, r.Role, r.Content)
	}
	return b.String()
}
