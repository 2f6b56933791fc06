package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallnest/marketadvisor/graph"
	"github.com/smallnest/marketadvisor/log"
	"github.com/smallnest/marketadvisor/memory"
	"github.com/smallnest/marketadvisor/metrics"
	"github.com/tmc/langchaingo/llms"
)

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("query is empty")

// Advisor answers marketing research questions. It is safe for concurrent
// use; every run owns its own State.
type Advisor struct {
	graph    *graph.StateGraph[State]
	registry *Registry
	memory   *memory.Adapter
	logger   log.Logger
	metrics  *metrics.Recorder

	chunkSize  int
	chunkDelay time.Duration
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithMemory enables conversation history and persistence of completed turns.
func WithMemory(m *memory.Adapter) Option {
	return func(a *Advisor) {
		a.memory = m
	}
}

func WithLogger(l log.Logger) Option {
	return func(a *Advisor) {
		a.logger = l
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Advisor) {
		a.metrics = m
	}
}

// WithChunking sets how Stream splits the answer: size runes per token event
// and a pause of delay between events.
func WithChunking(size int, delay time.Duration) Option {
	return func(a *Advisor) {
		if size > 0 {
			a.chunkSize = size
		}
		a.chunkDelay = delay
	}
}

// New creates an Advisor. All language model steps go through model, which
// should already be rate limited.
func New(model llms.Model, registry *Registry, opts ...Option) (*Advisor, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}

	a := &Advisor{
		registry:   registry,
		chunkSize:  10,
		chunkDelay: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.GetDefaultLogger()
	}

	w := &workflow{
		planner:     NewPlanner(model, a.logger),
		refiner:     NewRefiner(model, a.logger),
		synthesizer: NewSynthesizer(model, a.logger),
		registry:    registry,
		logger:      a.logger,
		metrics:     a.metrics,
	}
	a.graph = w.build()
	if _, err := a.graph.Compile(); err != nil {
		return nil, fmt.Errorf("failed to compile workflow: %w", err)
	}
	return a, nil
}

// Run executes the workflow for query without persisting the turn. The
// returned state carries the final answer and the reasoning trace. An error
// means the run was abandoned, for example because ctx was cancelled.
func (a *Advisor) Run(ctx context.Context, sessionID, query string) (State, error) {
	return a.run(ctx, sessionID, query, nil)
}

// Respond runs the workflow and persists the completed turn.
func (a *Advisor) Respond(ctx context.Context, sessionID, query string, metadata map[string]any) (string, error) {
	s, err := a.Run(ctx, sessionID, query)
	if err != nil {
		return "", err
	}
	a.persist(ctx, s, metadata)
	return s.FinalAnswer, nil
}

// Close waits for background writes and closes the conversation memory.
func (a *Advisor) Close() error {
	a.registry.Wait()
	if a.memory != nil {
		return a.memory.Close()
	}
	return nil
}

// run executes the graph. Trace events are passed to emit as soon as the node
// that produced them completes.
func (a *Advisor) run(ctx context.Context, sessionID, query string, emit func(Event)) (State, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return State{}, ErrEmptyQuery
	}

	start := time.Now()
	var history []memory.Message
	if a.memory != nil {
		history = a.memory.History(ctx, sessionID)
	}

	runnable, err := a.graph.Compile()
	if err != nil {
		return State{}, fmt.Errorf("failed to compile workflow: %w", err)
	}
	emitted := 0
	runnable.AddListener(graph.NodeListenerFunc[State](func(ctx context.Context, info graph.NodeEventInfo[State]) {
		switch info.Event {
		case graph.NodeEventStart:
			a.logger.Debug("node %s started", info.NodeName)
		case graph.NodeEventError:
			a.logger.Error("node %s failed after %s: %v", info.NodeName, info.Duration, info.Err)
		case graph.NodeEventComplete:
			a.logger.Debug("node %s completed in %s", info.NodeName, info.Duration)
			if emit != nil {
				for _, e := range info.State.Trace[emitted:] {
					emit(e)
				}
			}
			emitted = len(info.State.Trace)
		}
	}))

	final, err := runnable.Invoke(ctx, NewState(sessionID, query, history))
	if err == nil {
		err = ctx.Err()
	}
	if err == nil && !final.Done {
		err = errors.New("workflow ended without an answer")
	}
	if err != nil {
		a.metrics.Run("error", final.Attempts > 0, time.Since(start))
		return final, fmt.Errorf("advisor run: %w", err)
	}

	outcome := "success"
	if final.SynthesisErr != nil {
		outcome = "synthesis_error"
	}
	a.metrics.Run(outcome, final.Attempts > 0, time.Since(start))
	a.logger.Info("run finished in %s: refined=%t quality=%.2f", time.Since(start), final.Attempts > 0, final.Quality.Overall)
	return final, nil
}

// persist stores a completed turn. Failures are logged; the answer stands.
func (a *Advisor) persist(ctx context.Context, s State, metadata map[string]any) {
	if a.memory == nil || s.SessionID == "" {
		return
	}
	if err := a.memory.AppendTurn(ctx, s.SessionID, s.OriginalQuery, s.FinalAnswer, metadata); err != nil {
		a.logger.Warn("failed to persist turn for session %s: %v", s.SessionID, err)
	}
}
