package convergence_test

import (
	"testing"

	"github.com/forgepilot/agentcore/internal/convergence"
	"github.com/forgepilot/agentcore/internal/domain"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConvergence(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Convergence Scorer Suite")
}

var _ = Describe("Scorer", func() {
	var scorer *convergence.Scorer

	BeforeEach(func() {
		scorer = convergence.New(convergence.DefaultWeights())
	})

	When("fewer than two rounds have been recorded", func() {
		It("always recommends continue with score 0", func() {
			result := scorer.Score([]domain.DiscussionRound{
				{Round: 1, Role: domain.RoleCritique, Content: "Looks mostly fine, one NEEDS_FIX: missing nil check."},
			})
			Expect(result.Recommendation).To(Equal(domain.RecommendContinue))
			Expect(result.OverallScore).To(BeZero())
		})

		It("handles zero rounds without panicking", func() {
			result := scorer.Score(nil)
			Expect(result.Recommendation).To(Equal(domain.RecommendContinue))
		})
	})

	When("the latest round closely echoes the previous round with a positive verdict", func() {
		It("recommends converged", func() {
			rounds := []domain.DiscussionRound{
				{Round: 1, Role: domain.RoleCritique, Content: "The change looks solid overall, no blockers found here."},
				{Round: 2, Role: domain.RoleRebuttal, Content: "Agreed, the change looks solid overall. APPROVE, no blockers found here."},
			}
			result := scorer.Score(rounds)
			Expect(result.Recommendation).To(Equal(domain.RecommendConverged))
			Expect(result.OverallScore).To(BeNumerically(">=", convergence.ConvergedThreshold))
			Expect(result.Subscores).To(HaveKey("overlap"))
			Expect(result.Subscores).To(HaveKey("issue_decline"))
			Expect(result.Subscores).To(HaveKey("verdict_keyword"))
		})
	})

	When("the latest round raises new, unrelated issues with a negative verdict", func() {
		It("recommends continue", func() {
			rounds := []domain.DiscussionRound{
				{Round: 1, Role: domain.RoleCritique, Content: "- minor style nit on naming"},
				{Round: 2, Role: domain.RoleRebuttal, Content: "CHALLENGE: this MUST FIX the race condition in the worker pool.\n- new issue one\n- new issue two\n- new issue three"},
			}
			result := scorer.Score(rounds)
			Expect(result.Recommendation).To(Equal(domain.RecommendContinue))
			Expect(result.OverallScore).To(BeNumerically("<", convergence.ConvergedThreshold))
		})
	})

	It("is monotonic in the overlap signal", func() {
		low := scorer.Score([]domain.DiscussionRound{
			{Round: 1, Content: "alpha beta gamma delta"},
			{Round: 2, Content: "totally different words entirely unrelated"},
		})
		high := scorer.Score([]domain.DiscussionRound{
			{Round: 1, Content: "alpha beta gamma delta"},
			{Round: 2, Content: "alpha beta gamma delta"},
		})
		Expect(high.OverallScore).To(BeNumerically(">=", low.OverallScore))
	})

	When("custom weights concentrate entirely on the verdict keyword signal", func() {
		It("ignores overlap and issue-count signals", func() {
			custom := convergence.New(convergence.Weights{Overlap: 0, IssueDecline: 0, VerdictKeyword: 1})
			rounds := []domain.DiscussionRound{
				{Round: 1, Content: "completely unrelated prior content"},
				{Round: 2, Content: "PASS, no blockers, APPROVE"},
			}
			result := custom.Score(rounds)
			Expect(result.OverallScore).To(Equal(1.0))
			Expect(result.Recommendation).To(Equal(domain.RecommendConverged))
		})
	})
})

func TestForceStalled(t *testing.T) {
	result := domain.ConvergenceResult{OverallScore: 0.4, Recommendation: domain.RecommendContinue}
	forced := convergence.ForceStalled(result)
	if forced.Recommendation != domain.RecommendStalled {
		t.Fatalf("expected stalled, got %s", forced.Recommendation)
	}
	if forced.OverallScore != 0.4 {
		t.Fatalf("ForceStalled must not mutate the score")
	}
}
