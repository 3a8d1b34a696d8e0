// Package engine implements the Agent Engine (spec §4.8): the
// finite-state machine driving plan -> execute -> observe -> reflect ->
// fix -> review -> debate -> synthesize, including step dependency
// resolution, fix-attempt bookkeeping, consecutive-mistake escalation,
// and suspended states awaiting human decisions.
//
// Styled after the teacher's session run-loop shape
// (internal/session/loop.go: single-goroutine cooperative loop, a
// per-run mutable state record, callback notifications fired in program
// order) but generalized from "one LLM turn with tool calls" to the
// spec's 13-state plan/execute/review/debate loop.
package engine

import (
	"context"
	"fmt"
	"regexp"

	"github.com/forgepilot/agentcore/internal/checkpoint"
	"github.com/forgepilot/agentcore/internal/config"
	"github.com/forgepilot/agentcore/internal/discussion"
	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/forgepilot/agentcore/internal/eventbus"
	"github.com/forgepilot/agentcore/internal/executor"
	"github.com/forgepilot/agentcore/internal/logging"
	"github.com/forgepilot/agentcore/internal/observer"
	"github.com/forgepilot/agentcore/internal/planner"
	"github.com/forgepilot/agentcore/internal/preflight"
	"github.com/forgepilot/agentcore/internal/searchctx"
	"github.com/forgepilot/agentcore/internal/suspend"
)

// cleanSuccessRe matches §4.8 Observing's "clean success" step result,
// and the GLOSSARY's definition of the same term.
var cleanSuccessRe = regexp.MustCompile(`(?i)successfully|success|created|updated|wrote`)

// ErrFixCapExceeded drives the engine to Error when a step exhausts its
// fix-attempt budget (spec §7d).
var ErrFixCapExceeded = fmt.Errorf("engine: fix attempts exceeded for step")

// ErrDeadlock names the non-fatal transition to Idle (spec §7c): no step
// is executable but the plan is not all done. The Engine does not store
// it as its error: the deadlock branch only transitions to Idle, so Run
// returns nil.
var ErrDeadlock = fmt.Errorf("engine: plan deadlock, no executable step")

// Completer is the full LLM surface the Engine needs directly for
// single-shot requests (planning, lazy action requests, fix/reflection
// prompts). *llm.Client satisfies this directly via its 2-arg Complete.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Engine is the Agent Engine FSM. All fields are owned exclusively by
// the engine and mutated only inside handlers (spec §5 Shared-resource
// policy); external callers observe it only through Plan()/State() and
// the event bus.
type Engine struct {
	cfg *config.Config

	completer   Completer
	reviewDrv   *discussion.Driver
	debateDrv   *discussion.Driver
	planParser  *planner.Parser
	preflight   *preflight.Checker
	searcher    *searchctx.Searcher
	observerSrc *observer.Observer
	exec        *executor.Executor
	checkpoints *checkpoint.Store
	bus         *eventbus.Bus
	reviewSusp  *suspend.Suspender
	debateSusp  *suspend.Suspender

	state State
	err   error

	pendingRequest      string
	plan                *domain.Plan
	currentStepID       string
	fixAttempts         map[string]int
	consecutiveMistakes int
	reviewedStepIDs     map[string]bool
	lastDiagnostics     []observer.Diagnostic
	lastTouchedPaths    []string
	reviewSession       *domain.DiscussionSession
	debateSession       *domain.DiscussionSession
}

// Collaborators bundles everything the Engine needs from outside its own
// package (spec §6 External Interfaces), so construction sites don't
// juggle a long parameter list.
type Collaborators struct {
	Completer   Completer
	Discussion  discussion.Completer
	Scorer      discussion.Scorer
	PlanParser  *planner.Parser
	Preflight   *preflight.Checker
	Searcher    *searchctx.Searcher
	Observer    *observer.Observer
	Executor    *executor.Executor
	Checkpoints *checkpoint.Store // nil when checkpoints disabled
	Bus         *eventbus.Bus
}

// New constructs an Idle Engine.
func New(cfg *config.Config, c Collaborators) *Engine {
	models := discussion.ModelSet{Critic: cfg.CriticModel, Default: cfg.Model}
	if models.Critic == "" {
		models.Critic = cfg.ReviewerModel
	}

	return &Engine{
		cfg:         cfg,
		completer:   c.Completer,
		planParser:  c.PlanParser,
		preflight:   c.Preflight,
		searcher:    c.Searcher,
		observerSrc: c.Observer,
		exec:        c.Executor,
		checkpoints: c.Checkpoints,
		bus:         c.Bus,
		reviewSusp:  suspend.New(),
		debateSusp:  suspend.New(),

		reviewDrv: discussion.NewDriver(c.Discussion, c.Scorer, models, cfg.MaxReviewIterations),
		debateDrv: discussion.NewDriver(c.Discussion, c.Scorer, models, cfg.MaxDebateIterations),

		state:           StateIdle,
		fixAttempts:     make(map[string]int),
		reviewedStepIDs: make(map[string]bool),
	}
}

// State returns the Engine's current FSM state.
func (e *Engine) State() State { return e.state }

// Err returns the error that drove the Engine into StateError, if any.
func (e *Engine) Err() error { return e.err }

// Plan returns a defensive copy of the current plan (spec §5
// Shared-resource policy: "external visibility is via immutable
// copies").
func (e *Engine) Plan() *domain.Plan { return e.plan.Clone() }

// Start seeds a Planning run for userRequest (the prose description of
// the desired change) and runs the loop to completion or suspension.
func (e *Engine) Start(ctx context.Context, userRequest string) error {
	e.pendingRequest = userRequest
	e.transition(StatePlanning)
	return e.Run(ctx)
}

// Run drives the FSM loop starting from the current state. It is
// idempotent when already in a terminal state (spec §4.8 Entry). The
// loop exits when a handler transitions to Idle, Done, or Error;
// Waiting* states block inside their handler on a Suspender receive, so
// Run only returns once the whole session (including any pending
// decision) has settled.
func (e *Engine) Run(ctx context.Context) error {
	if e.state.Terminal() {
		return e.err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch e.state {
		case StateIdle:
			return e.err
		case StatePlanning:
			e.handlePlanning(ctx)
		case StateExecuting:
			e.handleExecuting(ctx)
		case StateObserving:
			e.handleObserving(ctx)
		case StateReflecting:
			e.handleReflecting(ctx)
		case StateFixing:
			e.handleFixing(ctx)
		case StateReviewing:
			e.handleReviewing(ctx)
		case StateDebating:
			e.handleDebating(ctx)
		case StateSynthesizing:
			e.handleSynthesizing(ctx)
		case StateWaitingForReviewDecision:
			e.handleWaitingForReviewDecision(ctx)
		case StateWaitingForDebateDecision:
			e.handleWaitingForDebateDecision(ctx)
		default:
			e.fail(fmt.Errorf("engine: unknown state %q", e.state))
		}

		if e.state.ExitsLoop() {
			return e.err
		}
	}
}

// Reset forcibly returns the Engine to Idle, clearing all runtime state
// and fulfilling any pending decision handle with its safe default (spec
// §5 Cancellation and timeouts).
func (e *Engine) Reset() {
	e.reviewSusp.Reset(suspend.DefaultReviewDecision)
	e.debateSusp.Reset(suspend.DefaultDebateDecision)

	e.state = StateIdle
	e.err = nil
	e.pendingRequest = ""
	e.plan = nil
	e.currentStepID = ""
	e.fixAttempts = make(map[string]int)
	e.consecutiveMistakes = 0
	e.reviewedStepIDs = make(map[string]bool)
	e.lastDiagnostics = nil
	e.lastTouchedPaths = nil
	e.reviewSession = nil
	e.debateSession = nil
}

// ResolveReviewDecision resolves a suspended WaitingForReviewDecision
// state (spec §6 "Decisions flowing in": resolveReviewDecision).
func (e *Engine) ResolveReviewDecision(d suspend.Decision) error {
	return e.reviewSusp.Resolve(d)
}

// ResolveDebateDecision resolves a suspended WaitingForDebateDecision
// state (spec §6 "Decisions flowing in": resolveDebateDecision).
func (e *Engine) ResolveDebateDecision(d suspend.Decision) error {
	return e.debateSusp.Resolve(d)
}

// ReviewPending reports whether the Engine is suspended awaiting a
// review decision, for callers (CLI prompts, non-interactive auto
// resolvers) that poll rather than block on the suspender directly.
func (e *Engine) ReviewPending() bool {
	return e.reviewSusp.Pending()
}

// DebatePending reports whether the Engine is suspended awaiting a
// debate decision.
func (e *Engine) DebatePending() bool {
	return e.debateSusp.Pending()
}

// transition moves to next, firing a state-changed notification in
// program order (spec §5 "Ordering guarantees").
func (e *Engine) transition(next State) {
	logging.StateTransition(string(e.state), string(next)).Msg("engine: state transition")
	e.state = next
	e.publish(eventbus.StateChanged, next)
}

// publish is a nil-safe wrapper around bus.Publish; the Engine works
// without an event bus (e.g. in unit tests) at the cost of silent
// notifications.
func (e *Engine) publish(t eventbus.Type, data any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{Type: t, Data: data})
}

func (e *Engine) publishPlanChange() {
	e.publish(eventbus.PlanChanged, e.plan.Clone())
}

// fail records err and transitions to Error (spec §7e "critical loop
// error").
func (e *Engine) fail(err error) {
	e.err = err
	e.transition(StateError)
	logging.Warn().Err(err).Msg("engine: critical loop error")
}
