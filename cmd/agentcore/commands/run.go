package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgepilot/agentcore/internal/checkpoint"
	"github.com/forgepilot/agentcore/internal/config"
	"github.com/forgepilot/agentcore/internal/convergence"
	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/forgepilot/agentcore/internal/engine"
	"github.com/forgepilot/agentcore/internal/eventbus"
	"github.com/forgepilot/agentcore/internal/executor"
	"github.com/forgepilot/agentcore/internal/llm"
	"github.com/forgepilot/agentcore/internal/logging"
	"github.com/forgepilot/agentcore/internal/observer"
	"github.com/forgepilot/agentcore/internal/patch"
	"github.com/forgepilot/agentcore/internal/planner"
	"github.com/forgepilot/agentcore/internal/preflight"
	"github.com/forgepilot/agentcore/internal/searchctx"
	"github.com/forgepilot/agentcore/internal/suspend"
)

var (
	runDir         string
	runModel       string
	runInteractive bool
)

var runCmd = &cobra.Command{
	Use:   "run [request...]",
	Short: "Drive one request through the agent engine to completion",
	Long: `Start a fresh Engine run against the working directory and drive it
through plan -> execute -> observe -> reflect -> fix -> review -> debate
-> synthesize until it reaches done or error.

Examples:
  agentcore run "add input validation to the signup handler"
  agentcore run --interactive "refactor the auth middleware"`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runDir, "directory", "", "Working directory (defaults to cwd)")
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "Model to use (provider/model format)")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "Prompt on the terminal for review/debate decisions instead of using safe defaults")
}

func runOnce(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(runDir)
	if err != nil {
		return err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if runModel != "" {
		cfg.Model = runModel
	}

	request := strings.Join(args, " ")
	if request == "" {
		return fmt.Errorf("request required. Usage: agentcore run \"your request\"")
	}

	ctx := context.Background()
	registry, err := llm.InitializeProviders(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}
	client := llm.NewClient(registry, cfg.Model)

	ws := patch.NewDirWorkspace(workDir)
	patcher := patch.New(ws)
	exec := executor.New(patcher, ws, workDir)
	pf := preflight.New(ws, client)
	searcher := searchctx.New(searchctx.NewDirFileSystem(workDir))
	obs := observer.New(observer.NewCommandSource(workDir, map[string]observer.CommandConfig{
		".go": {Name: "go", Args: []string{"vet", "./..."}},
	}))
	bus := eventbus.New(eventbus.Options{})

	var store *checkpoint.Store
	if cfg.CheckpointsEnabled {
		store = checkpoint.New(paths.CheckpointsPath(), workDir)
	}

	eng := engine.New(cfg, engine.Collaborators{
		Completer:   client,
		Discussion:  engine.NewDiscussionAdapter(client),
		Scorer:      convergence.New(convergence.DefaultWeights()),
		PlanParser:  planner.New(),
		Preflight:   pf,
		Searcher:    searcher,
		Observer:    obs,
		Executor:    exec,
		Checkpoints: store,
		Bus:         bus,
	})

	unsub := bus.SubscribeAll(func(e eventbus.Event) { printEvent(e) })
	defer unsub()

	if runInteractive {
		go watchDecisions(eng)
	} else {
		autoResolveDecisions(eng, bus)
	}

	fmt.Printf("agentcore: %s\n", request)
	fmt.Printf("directory: %s\n\n", workDir)

	if err := eng.Start(ctx, request); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Printf("\nfinal state: %s\n", eng.State())
	return nil
}

// printEvent renders one eventbus.Event as a single progress line. The
// engine publishes state/plan changes and stream chunks; a CLI session
// just needs a terse trace, not the full JSON payload a UI would render.
func printEvent(e eventbus.Event) {
	switch e.Type {
	case eventbus.StateChanged:
		fmt.Printf("[state] %v\n", e.Data)
	case eventbus.StreamChunk:
		if s, ok := e.Data.(string); ok {
			fmt.Print(s)
		}
	case eventbus.PlanChanged:
		if plan, ok := e.Data.(*domain.Plan); ok {
			done := 0
			for _, s := range plan.Steps {
				if s.Status == domain.StepDone {
					done++
				}
			}
			fmt.Printf("[plan] %d/%d steps done\n", done, len(plan.Steps))
		}
	case eventbus.ReviewComplete, eventbus.DebateComplete:
		fmt.Printf("[%s] %v\n", e.Type, e.Data)
	}
}

// watchDecisions polls for pending review/debate decisions and prompts
// the terminal, since the Engine's Waiting* states are suspensions, not
// errors (spec §5: "suspend the engine ... resume via an explicit
// decision").
func watchDecisions(eng *engine.Engine) {
	reader := bufio.NewReader(os.Stdin)
	for {
		if eng.State().Terminal() {
			return
		}
		if eng.ReviewPending() {
			d := promptDecision(reader, "review", []suspend.Decision{suspend.DecisionApplyFix, suspend.DecisionSkip})
			_ = eng.ResolveReviewDecision(d)
		}
		if eng.DebatePending() {
			d := promptDecision(reader, "debate", []suspend.Decision{suspend.DecisionRevise, suspend.DecisionAccept})
			_ = eng.ResolveDebateDecision(d)
		}
	}
}

func promptDecision(reader *bufio.Reader, kind string, options []suspend.Decision) suspend.Decision {
	fmt.Printf("\n%s decision needed. options: %v\n> ", kind, options)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	for _, o := range options {
		if string(o) == line {
			return o
		}
	}
	logging.Warn().Str("input", line).Msg("unrecognized decision, using first option")
	return options[0]
}

// autoResolveDecisions runs non-interactively for the life of the run,
// resolving any suspended decision with the suspender's own safe default
// the moment it appears.
func autoResolveDecisions(eng *engine.Engine, bus *eventbus.Bus) {
	bus.Subscribe(eventbus.StateChanged, func(e eventbus.Event) {
		state, _ := e.Data.(engine.State)
		if state != engine.StateWaitingForReviewDecision && state != engine.StateWaitingForDebateDecision {
			return
		}
		// The event fires before the Waiting* handler suspends, so wait
		// for the handle to appear (or the engine to move on) first.
		go func() {
			for eng.State() == state && !eng.ReviewPending() && !eng.DebatePending() {
			}
			if eng.ReviewPending() {
				_ = eng.ResolveReviewDecision(suspend.DefaultReviewDecision)
			}
			if eng.DebatePending() {
				_ = eng.ResolveDebateDecision(suspend.DefaultDebateDecision)
			}
		}()
	})
}
