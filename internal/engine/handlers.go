package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/forgepilot/agentcore/internal/config"
	"github.com/forgepilot/agentcore/internal/discussion"
	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/forgepilot/agentcore/internal/eventbus"
	"github.com/forgepilot/agentcore/internal/jsonext"
	"github.com/forgepilot/agentcore/internal/logging"
	"github.com/forgepilot/agentcore/internal/observer"
	"github.com/forgepilot/agentcore/internal/opparse"
	"github.com/forgepilot/agentcore/internal/suspend"
)

// handlePlanning implements spec §4.8 Planning.
func (e *Engine) handlePlanning(ctx context.Context) {
	paths, err := e.searcher.SearchRelevantFiles(e.pendingRequest)
	if err != nil {
		e.fail(fmt.Errorf("engine: planning search failed: %w", err))
		return
	}
	fileContext, err := e.searcher.AssembleContext(paths, e.cfg.TokenBudget)
	if err != nil {
		e.fail(fmt.Errorf("engine: planning context assembly failed: %w", err))
		return
	}

	response, err := e.completer.Complete(ctx, planningPrompt(e.pendingRequest, fileContext, false))
	if err != nil {
		e.fail(fmt.Errorf("engine: planning request failed: %w", err))
		return
	}

	plan := e.planParser.ParsePlan(response)
	if len(plan.Steps) == 0 && strings.TrimSpace(response) != "" {
		// Retry once with a stricter format prompt.
		response, err = e.completer.Complete(ctx, planningPrompt(e.pendingRequest, fileContext, true))
		if err != nil {
			e.fail(fmt.Errorf("engine: planning retry failed: %w", err))
			return
		}
		plan = e.planParser.ParsePlan(response)
	}

	if len(plan.Steps) == 0 {
		e.plan = plan
		e.publishPlanChange()
		e.transition(StateDone)
		return
	}

	e.plan = plan
	e.publishPlanChange()

	if e.cfg.EnableMultiModelReview && e.cfg.CriticModel != "" {
		e.transition(StateDebating)
		return
	}
	e.transition(StateExecuting)
}

// handleExecuting implements spec §4.8 Executing.
func (e *Engine) handleExecuting(ctx context.Context) {
	step := e.plan.NextExecutable()
	if step == nil {
		if e.plan.AllDone() {
			e.transition(StateDone)
		} else {
			// Deadlock: non-fatal, per spec §7c.
			e.transition(StateIdle)
		}
		return
	}

	step.Status = domain.StepRunning
	e.currentStepID = step.ID
	e.publishPlanChange()

	if e.checkpoints != nil {
		id, err := e.checkpoints.Create(e.plan)
		if err != nil {
			logWarn("engine: checkpoint creation failed", err)
		} else {
			e.publish(eventbus.CheckpointCreated, id)
		}
	}

	if step.Action == "" {
		if err := e.requestAction(ctx, step); err != nil {
			e.failStep(step, err)
			return
		}
	}

	op, err := firstOperation(step.Action)
	if err != nil {
		e.failStep(step, err)
		return
	}

	corrected, err := e.preflight.Check(ctx, op)
	if err != nil {
		e.failStep(step, err)
		return
	}

	result, err := e.exec.Execute(ctx, corrected)
	if err != nil {
		e.failStep(step, err)
		return
	}

	step.Status = domain.StepDone
	step.Result = result
	e.lastTouchedPaths = operationPaths(corrected)
	e.consecutiveMistakes = 0
	e.publishPlanChange()
	e.transition(StateObserving)
}

// operationPaths collects every workspace path an operation (or, for
// multi_write, its sub-operations) touches, for the Observer to inspect.
func operationPaths(op *domain.FileOperation) []string {
	if op.Type == domain.OpMultiWrite {
		var paths []string
		for _, sub := range op.Ops {
			paths = append(paths, operationPaths(sub)...)
		}
		return paths
	}
	if op.Path == "" {
		return nil
	}
	return []string{op.Path}
}

// requestAction asks the LLM for an action lazily when a step has none
// stored yet (spec §4.8 Executing).
func (e *Engine) requestAction(ctx context.Context, step *domain.PlanStep) error {
	content, exists, _ := e.tryReadMentionedFile(step.Description)
	response, err := e.completer.Complete(ctx, actionPrompt(step, content, exists))
	if err != nil {
		return fmt.Errorf("engine: action request failed: %w", err)
	}
	step.Action = response
	return nil
}

// tryReadMentionedFile best-effort reads a file path if one appears to
// be referenced in the step description (spec §4.8: "if the description
// mentions a file, its current content").
func (e *Engine) tryReadMentionedFile(description string) (string, bool, error) {
	for _, word := range strings.Fields(description) {
		word = strings.Trim(word, ".,:;()\"'`")
		if !strings.Contains(word, ".") {
			continue
		}
		content, err := e.exec.ReadFile(word)
		if err == nil {
			return content, true, nil
		}
	}
	return "", false, nil
}

// firstOperation parses step.Action (the stored LLM response) into the
// first recognized FileOperation.
func firstOperation(action string) (*domain.FileOperation, error) {
	ops := opparse.Parse(action)
	if len(ops) == 0 {
		return nil, fmt.Errorf("engine: no recognizable operation in action response")
	}
	return ops[0], nil
}

// failStep marks the current step failed and routes to Fixing (spec §7a/b).
func (e *Engine) failStep(step *domain.PlanStep, err error) {
	step.Status = domain.StepFailed
	step.Result = err.Error()
	e.consecutiveMistakes++
	e.publishPlanChange()
	e.transition(StateFixing)
}

// handleObserving implements spec §4.8 Observing.
func (e *Engine) handleObserving(ctx context.Context) {
	step := e.plan.StepByID(e.currentStepID)
	if step == nil {
		e.fail(fmt.Errorf("engine: observing: current step %q not found", e.currentStepID))
		return
	}

	diags, err := e.observerSrc.GetDiagnostics(e.lastTouchedPaths)
	if err != nil {
		e.fail(fmt.Errorf("engine: diagnostics fetch failed: %w", err))
		return
	}
	e.lastDiagnostics = diags

	if observer.HasErrors(diags) {
		step.Status = domain.StepFailed
		step.Result = observer.FormatDiagnostics(diags)
		e.publishPlanChange()
		e.transition(StateFixing)
		return
	}

	if cleanSuccessRe.MatchString(step.Result) {
		if e.cfg.EnableMultiModelReview && !e.reviewedStepIDs[step.ID] {
			e.transition(StateReviewing)
			return
		}
		e.transition(StateExecuting)
		return
	}

	e.transition(StateReflecting)
}

// handleReflecting implements spec §4.8 Reflecting.
func (e *Engine) handleReflecting(ctx context.Context) {
	step := e.plan.StepByID(e.currentStepID)
	if step == nil {
		e.fail(fmt.Errorf("engine: reflecting: current step %q not found", e.currentStepID))
		return
	}

	response, err := e.completer.Complete(ctx, reflectionPrompt(step))
	if err != nil {
		e.fail(fmt.Errorf("engine: reflection request failed: %w", err))
		return
	}

	switch classifyReflection(response) {
	case "RETRY":
		step.Status = domain.StepFailed
		e.publishPlanChange()
		e.transition(StateFixing)
	case "REPLAN":
		newPlan, err := e.planParser.Replan(ctx, e.completer, e.plan, step.Result)
		if err != nil {
			e.fail(fmt.Errorf("engine: replan failed: %w", err))
			return
		}
		e.plan = newPlan
		e.publishPlanChange()
		e.transition(StateExecuting)
	default: // SUCCESS, or unclear (spec Open Question 2: ambiguous => SUCCESS)
		e.transition(StateExecuting)
	}
}

// classifyReflection extracts SUCCESS/RETRY/REPLAN from a reflection
// response (spec §4.8: "Unclear responses default to Executing", i.e.
// treated as SUCCESS).
func classifyReflection(response string) string {
	upper := strings.ToUpper(response)
	switch {
	case strings.Contains(upper, "REPLAN"):
		return "REPLAN"
	case strings.Contains(upper, "RETRY"):
		return "RETRY"
	default:
		return "SUCCESS"
	}
}

// handleFixing implements spec §4.8 Fixing.
func (e *Engine) handleFixing(ctx context.Context) {
	step := e.plan.StepByID(e.currentStepID)
	if step == nil {
		e.fail(fmt.Errorf("engine: fixing: current step %q not found", e.currentStepID))
		return
	}

	if e.fixAttempts[step.ID] >= e.cfg.MaxFixAttempts {
		e.fail(fmt.Errorf("%w: step %s", ErrFixCapExceeded, step.ID))
		return
	}
	e.fixAttempts[step.ID]++
	e.consecutiveMistakes++

	searchMismatch := ""
	if isSearchMismatch(step.Result) && len(e.lastTouchedPaths) > 0 {
		if content, err := e.exec.ReadFile(e.lastTouchedPaths[0]); err == nil {
			searchMismatch = content
		}
	}

	snippets := e.errorAdjacentSnippets(e.lastDiagnostics)

	prompt := fixPrompt(step, e.lastDiagnostics, snippets, e.consecutiveMistakes, searchMismatch)
	response, err := e.completer.Complete(ctx, prompt)
	isLastAttempt := e.fixAttempts[step.ID] >= e.cfg.MaxFixAttempts
	if err != nil {
		if isLastAttempt {
			e.fail(fmt.Errorf("%w: step %s: %v", ErrFixCapExceeded, step.ID, err))
			return
		}
		step.Result = fmt.Sprintf("[Fix failed] %v", err)
		e.publishPlanChange()
		e.transition(StateObserving)
		return
	}

	step.Action = response
	op, err := firstOperation(step.Action)
	if err != nil {
		if isLastAttempt {
			e.fail(fmt.Errorf("%w: step %s: %v", ErrFixCapExceeded, step.ID, err))
			return
		}
		step.Result = fmt.Sprintf("[Fix failed] %v", err)
		e.publishPlanChange()
		e.transition(StateObserving)
		return
	}

	corrected, err := e.preflight.Check(ctx, op)
	if err == nil {
		var result string
		result, err = e.exec.Execute(ctx, corrected)
		if err == nil {
			step.Status = domain.StepDone
			step.Result = result
			e.lastTouchedPaths = operationPaths(corrected)
		}
	}
	if err != nil {
		if isLastAttempt {
			e.fail(fmt.Errorf("%w: step %s: %v", ErrFixCapExceeded, step.ID, err))
			return
		}
		step.Status = domain.StepFailed
		step.Result = fmt.Sprintf("[Fix failed] %v", err)
	}

	e.publishPlanChange()
	e.transition(StateObserving)
}

// isSearchMismatch reports whether a failure string looks like a
// SEARCH/REPLACE mismatch (spec §4.8 Fixing, §7b).
func isSearchMismatch(failure string) bool {
	lower := strings.ToLower(failure)
	return strings.Contains(lower, "search block does not match") ||
		strings.Contains(lower, "search/replace failed") ||
		strings.Contains(lower, "search not found")
}

// errorAdjacentSnippets reads up to 3 files named by diagnostics,
// truncated later by fixPrompt (spec §4.8 Fixing: "up to 3 error-adjacent
// file contents").
func (e *Engine) errorAdjacentSnippets(diags []observer.Diagnostic) map[string]string {
	seen := make(map[string]bool)
	snippets := make(map[string]string)
	for _, d := range diags {
		if len(snippets) >= 3 || seen[d.File] {
			continue
		}
		seen[d.File] = true
		content, err := e.exec.ReadFile(d.File)
		if err != nil {
			continue
		}
		snippets[d.File] = content
	}
	return snippets
}

// handleReviewing implements spec §4.8 Reviewing: odd rounds = critique
// (reviewer model), even rounds = rebuttal (default model), capped at
// maxReviewIterations.
func (e *Engine) handleReviewing(ctx context.Context) {
	if e.reviewSession == nil {
		strategy := domain.StrategyReview
		if e.cfg.AgentStrategy == config.AgentStrategyPerspectives {
			strategy = domain.StrategyPerspectives
		}
		e.reviewSession = discussion.New(strategy)
	}

	outcome, err := e.reviewDrv.RunRound(ctx, e.reviewSession, e.currentStepContext())
	if err != nil {
		e.fail(fmt.Errorf("engine: review round failed: %w", err))
		return
	}

	if outcome.Convergence.Recommendation == domain.RecommendContinue && !outcome.CapReached {
		e.transition(StateReviewing)
		return
	}

	e.transition(StateSynthesizing)
}

// handleDebating implements spec §4.8 Debating: `debate` strategy plays
// challenge/defense; `planStrategy = perspectives` plays risk-analysis /
// innovation-analysis / cross-review, capped at maxDebateIterations.
func (e *Engine) handleDebating(ctx context.Context) {
	if e.debateSession == nil {
		strategy := domain.StrategyDebate
		if e.cfg.PlanStrategy == config.PlanStrategyPerspectives {
			strategy = domain.StrategyPerspectives
		}
		e.debateSession = discussion.New(strategy)
	}

	outcome, err := e.debateDrv.RunRound(ctx, e.debateSession, e.currentStepContext())
	if err != nil {
		e.fail(fmt.Errorf("engine: debate round failed: %w", err))
		return
	}

	if outcome.Convergence.Recommendation == domain.RecommendContinue && !outcome.CapReached {
		e.transition(StateDebating)
		return
	}

	e.transition(StateSynthesizing)
}

// currentStepContext builds the discussion.StepContext for whichever
// step is active, or a plan-level context during Planning-triggered
// debate (no current step yet).
func (e *Engine) currentStepContext() discussion.StepContext {
	step := e.plan.StepByID(e.currentStepID)
	if step == nil {
		return discussion.StepContext{StepDescription: "overall plan", Action: "", Result: e.pendingRequest}
	}
	return discussion.StepContext{StepDescription: step.Description, Action: step.Action, Result: step.Result}
}

// handleSynthesizing implements spec §4.8 Synthesizing.
func (e *Engine) handleSynthesizing(ctx context.Context) {
	if e.reviewSession != nil && e.reviewSession.Synthesis == "" && e.reviewSession.Convergence != nil {
		text := e.reviewDrv.Synthesize(ctx, e.reviewSession)
		e.publish(eventbus.SynthesisComplete, text)
		e.transition(StateWaitingForReviewDecision)
		return
	}
	if e.debateSession != nil {
		text := e.debateDrv.Synthesize(ctx, e.debateSession)
		e.publish(eventbus.SynthesisComplete, text)
		e.transition(StateWaitingForDebateDecision)
		return
	}
	e.fail(fmt.Errorf("engine: synthesizing: no active discussion session"))
}

// handleWaitingForReviewDecision implements spec §4.8
// WaitingForReviewDecision.
func (e *Engine) handleWaitingForReviewDecision(ctx context.Context) {
	e.publish(eventbus.ReviewComplete, reviewVerdict(e.reviewSession))

	decision, err := e.reviewSusp.Suspend(ctx)
	if err != nil {
		// Cancellation: settle in the current state without transitioning
		// (spec §5 Cancellation: "the engine then settles into its current
		// state without transitioning").
		return
	}

	step := e.plan.StepByID(e.currentStepID)
	switch decision {
	case suspend.DecisionApplyFix:
		e.reviewedStepIDs[step.ID] = true
		step.Status = domain.StepFailed
		step.Result = formatReviewIssues(e.reviewSession)
		e.reviewSession = nil
		e.publishPlanChange()
		e.transition(StateFixing)
	default: // skip
		e.reviewSession = nil
		e.transition(StateExecuting)
	}
}

// handleWaitingForDebateDecision implements spec §4.8
// WaitingForDebateDecision.
func (e *Engine) handleWaitingForDebateDecision(ctx context.Context) {
	e.publish(eventbus.DebateComplete, reviewVerdict(e.debateSession))

	decision, err := e.debateSusp.Suspend(ctx)
	if err != nil {
		return
	}

	switch decision {
	case suspend.DecisionRevise:
		newPlan, err := e.planParser.Replan(ctx, e.completer, e.plan, e.debateSession.Synthesis)
		e.debateSession = nil
		if err != nil {
			e.fail(fmt.Errorf("engine: debate revision replan failed: %w", err))
			return
		}
		e.plan = newPlan
		e.publishPlanChange()
		e.transition(StatePlanning)
	default: // accept
		e.debateSession = nil
		e.transition(StateExecuting)
	}
}

// reviewVerdict extracts the last round's structured verdict via the
// Json-Text Extractor, falling back to its raw content when the round
// carries no JSON payload (spec §4.8 Waiting* states: "Publish the
// session's last structured verdict ... extracted by the Json-Text
// Extractor").
func reviewVerdict(session *domain.DiscussionSession) map[string]any {
	out := map[string]any{
		"rounds":      session.Rounds,
		"convergence": session.Convergence,
	}
	if len(session.Rounds) == 0 {
		return out
	}
	last := session.Rounds[len(session.Rounds)-1]
	if raw, err := jsonext.Extract(last.Content); err == nil {
		var verdict map[string]any
		if json.Unmarshal([]byte(raw), &verdict) == nil {
			out["verdict"] = verdict
			return out
		}
	}
	out["verdict"] = last.Content
	return out
}

// formatReviewIssues renders a session's rounds as an issue list for a
// step's failure result when a human chooses apply_fix (spec §4.8
// WaitingForReviewDecision: "failed with a formatted issue list and
// synthesis").
func formatReviewIssues(session *domain.DiscussionSession) string {
	var b strings.Builder
	b.WriteString("Review raised issues:\n")
	for _, r := range session.Rounds {
		fmt.Fprintf(&b, "- [%s] %s\n", r.Role, r.Content)
	}
	if session.Synthesis != "" {
		b.WriteString("\nSynthesis:\n")
		b.WriteString(session.Synthesis)
	}
	return b.String()
}

// logWarn logs a non-fatal handler-level warning (e.g. checkpoint
// creation failure, which per spec §6 is "invoked before each step if
// enabled" but is not itself part of the critical path).
func logWarn(msg string, err error) {
	logging.Warn().Err(err).Msg(msg)
}
