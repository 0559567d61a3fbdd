// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/azure/azure-ai-foundry-mcp/internal/config"
	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents"
	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const studioEvaluationURL = "https://ai.azure.com/build/evaluation"

// Service runs text, agent and thread evaluations.
type Service struct {
	cfg    *config.Config
	deps   Dependencies
	engine *Engine
	clock  clock.Clock
}

type ServiceOption func(*Service)

// WithClock replaces the wall clock used by the progress heartbeat.
func WithClock(clk clock.Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clk
	}
}

func NewService(cfg *config.Config, deps Dependencies, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:    cfg,
		deps:   deps,
		engine: NewEngine(cfg.EvalConcurrency),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TextEvalRequest is a batch evaluation over one dataset.
type TextEvalRequest struct {
	EvaluatorNames []string
	// FilePath wins when both FilePath and Content are set.
	FilePath         string
	Content          string
	IncludeStudioURL bool
	ReturnRowResults bool
	// Progress is called on every heartbeat tick.
	Progress ProgressFunc
}

type TextEvalResult struct {
	Evaluators []string           `json:"evaluators"`
	RowCount   int                `json:"row_count"`
	Metrics    map[string]float64 `json:"metrics"`
	RowResults []RowResult        `json:"row_results,omitempty"`
	StudioURL  string             `json:"studio_url,omitempty"`
}

func (s *Service) notInitialized() error {
	return exterrors.Configuration(
		exterrors.CodeEvaluationNotInitialized,
		"Evaluation not initialized. Check environment variables.",
		"",
	)
}

// RunTextEval evaluates a JSONL dataset with the named text evaluators. Names and evaluator
// configuration are validated before the dataset is touched.
func (s *Service) RunTextEval(ctx context.Context, request TextEvalRequest) (result *TextEvalResult, err error) {
	if !s.cfg.EvaluationInitialized() {
		return nil, s.notInitialized()
	}
	if request.FilePath == "" && request.Content == "" {
		return nil, exterrors.Validation(
			exterrors.CodeInvalidArguments,
			"Either file_path or content must be provided",
			"",
		)
	}
	if len(request.EvaluatorNames) == 0 {
		return nil, exterrors.Validation(
			exterrors.CodeInvalidArguments,
			"evaluator_names must name at least one evaluator",
			"call list_text_evaluators to see the available evaluators",
		)
	}
	for _, name := range request.EvaluatorNames {
		if !IsTextEvaluator(name) {
			return nil, exterrors.UnknownEvaluator(name)
		}
	}

	runs := make([]EvaluatorRun, 0, len(request.EvaluatorNames))
	for _, name := range request.EvaluatorNames {
		evaluator, err := NewEvaluator(name, s.deps)
		if err != nil {
			return nil, err
		}
		spec, _ := TextEvaluatorRequirements.spec(name)
		runs = append(runs, EvaluatorRun{
			Name:          name,
			Evaluator:     evaluator,
			Fields:        fieldNames(spec),
			ColumnMapping: spec.ColumnMapping(),
		})
	}

	dataset, err := OpenDataset(request.FilePath, request.Content, s.cfg.EvalDataDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := dataset.Close(); closeErr != nil {
			err = multierr.Append(err, closeErr)
			result = nil
		}
	}()

	stop := startHeartbeat(ctx, s.clock, s.cfg.HeartbeatInterval, request.Progress)
	defer stop()

	log.Printf("running %s over %d rows of %s", strings.Join(request.EvaluatorNames, ", "), dataset.RowCount, dataset.Path)
	output, err := s.engine.Run(ctx, dataset.Path, runs)
	if err != nil {
		return nil, err
	}

	result = &TextEvalResult{
		Evaluators: request.EvaluatorNames,
		RowCount:   dataset.RowCount,
		Metrics:    output.Metrics,
	}
	if request.ReturnRowResults {
		result.RowResults = output.Rows
	}
	if request.IncludeStudioURL && s.cfg.HasProjectScope() {
		result.StudioURL = StudioURL(s.cfg)
	}
	return result, nil
}

// StudioURL links to the evaluation list of the configured project in the portal. Results of
// local runs are not uploaded, so the link does not point at a specific run.
func StudioURL(cfg *config.Config) string {
	workspace := fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.MachineLearningServices/workspaces/%s",
		cfg.SubscriptionID, cfg.ResourceGroup, cfg.ProjectName)
	return studioEvaluationURL + "?wsid=" + url.QueryEscape(workspace)
}

func fieldNames(spec RequirementSpec) []string {
	names := make([]string, 0, len(spec))
	for _, f := range spec {
		names = append(names, f.Field)
	}
	return names
}

// AgentEvalRequest carries agent interaction data as plain text or JSON strings.
type AgentEvalRequest struct {
	EvaluatorName   string
	Query           string
	Response        string
	ToolCalls       string
	ToolDefinitions string
}

type AgentEvalResult struct {
	Evaluator string  `json:"evaluator"`
	Result    Metrics `json:"result"`
}

// RunAgentEval runs one agent evaluator on a single interaction. Empty strings count as absent.
func (s *Service) RunAgentEval(ctx context.Context, request AgentEvalRequest) (*AgentEvalResult, error) {
	if !s.cfg.EvaluationInitialized() {
		return nil, s.notInitialized()
	}
	if !IsAgentEvaluator(request.EvaluatorName) {
		return nil, exterrors.UnknownEvaluator(request.EvaluatorName)
	}

	inputs := Inputs{}
	if query, ok := parseInput(request.Query, true); ok {
		inputs["query"] = query
	}
	if response, ok := parseInput(request.Response, true); ok {
		inputs["response"] = response
	}
	if toolCalls, ok := parseInput(request.ToolCalls, false); ok {
		inputs["tool_calls"] = toolCalls
	}
	if definitions, ok := parseInput(request.ToolDefinitions, false); ok {
		inputs["tool_definitions"] = definitions
	}

	evaluator, err := NewEvaluator(request.EvaluatorName, s.deps)
	if err != nil {
		return nil, err
	}
	metrics, err := evaluator.Evaluate(ctx, inputs)
	if err != nil {
		return nil, err
	}

	return &AgentEvalResult{Evaluator: request.EvaluatorName, Result: metrics}, nil
}

// parseInput decodes JSON input and keeps anything else as text. Text is wrapped as
// {"content": text} when wrapText is set.
func parseInput(raw string, wrapText bool) (any, bool) {
	if raw == "" {
		return nil, false
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err == nil {
		return value, true
	}
	if wrapText {
		return map[string]any{"content": raw}, true
	}
	return raw, true
}

type ThreadEvalResult struct {
	ThreadID    string         `json:"thread_id"`
	RunID       string         `json:"run_id"`
	Evaluations map[string]any `json:"evaluations"`
}

// EvaluateThread runs agent evaluators over a fetched thread; no names means every agent
// evaluator. A failing evaluator is reported in its entry and does not fail the others.
func (s *Service) EvaluateThread(
	ctx context.Context,
	snapshot *agents.ThreadSnapshot,
	names []string,
) (*ThreadEvalResult, error) {
	if !s.cfg.EvaluationInitialized() {
		return nil, s.notInitialized()
	}
	if len(names) == 0 {
		names = AgentEvaluatorNames()
	}
	for _, name := range names {
		if !IsAgentEvaluator(name) {
			return nil, exterrors.UnknownEvaluator(name)
		}
	}

	inputs := ThreadInputs(snapshot)
	result := &ThreadEvalResult{
		ThreadID:    snapshot.ThreadID,
		RunID:       snapshot.RunID,
		Evaluations: make(map[string]any, len(names)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.engine.concurrency)
	for _, name := range names {
		g.Go(func() error {
			var entry any
			evaluator, err := NewEvaluator(name, s.deps)
			if err == nil {
				entry, err = evaluator.Evaluate(gctx, inputs)
			}
			if err != nil {
				if exterrors.IsCancellation(err) && ctx.Err() != nil {
					return err
				}
				log.Printf("thread %s: %s evaluation failed: %v", snapshot.ThreadID, name, err)
				entry = map[string]string{"error": err.Error()}
			}

			mu.Lock()
			defer mu.Unlock()
			result.Evaluations[name] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, exterrors.Cancelled("thread evaluation cancelled")
	}

	return result, nil
}
