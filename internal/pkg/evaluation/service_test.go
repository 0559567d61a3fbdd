// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/azure/azure-ai-foundry-mcp/internal/config"
	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents/agent_api"
	"github.com/stretchr/testify/require"
)

const threeRows = `{"response": "Paris", "ground_truth": "Paris"}
{"response": "the cat sat", "ground_truth": "a cat sat"}

{"response": "blue", "ground_truth": "red"}
`

func testConfig(dataDir string) *config.Config {
	return &config.Config{
		SubscriptionID:    "sub-1",
		OpenAI:            config.OpenAIConfig{Endpoint: "https://example.openai.azure.com"},
		EvalDataDir:       dataDir,
		PollInterval:      time.Millisecond,
		HeartbeatInterval: time.Hour,
		EvalConcurrency:   2,
	}
}

// isolateTempDir points os.CreateTemp at a fresh directory and returns it.
func isolateTempDir(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	return dir
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunTextEval_FileScenario(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "data.jsonl"), []byte(threeRows), 0600))

	service := NewService(testConfig(dataDir), Dependencies{})
	result, err := service.RunTextEval(context.Background(), TextEvalRequest{
		EvaluatorNames:   []string{"f1", "rouge"},
		FilePath:         "data.jsonl",
		IncludeStudioURL: true,
	})
	require.NoError(t, err)

	require.Equal(t, []string{"f1", "rouge"}, result.Evaluators)
	require.Equal(t, 3, result.RowCount)
	require.InDelta(t, 2.0/3.0, result.Metrics["f1.f1_score"], 1e-9)
	require.InDelta(t, 5.0/9.0, result.Metrics["rouge.rouge_f1_score"], 1e-9)
	require.Contains(t, result.Metrics, "rouge.rouge_precision")
	require.Contains(t, result.Metrics, "rouge.rouge_recall")
	require.Nil(t, result.RowResults)
	// no resource group or project configured
	require.Empty(t, result.StudioURL)
}

func TestRunTextEval_RowResultsAndStudioURL(t *testing.T) {
	isolateTempDir(t)
	cfg := testConfig(t.TempDir())
	cfg.ResourceGroup = "rg-1"
	cfg.ProjectName = "proj-1"

	service := NewService(cfg, Dependencies{})
	result, err := service.RunTextEval(context.Background(), TextEvalRequest{
		EvaluatorNames:   []string{"f1"},
		Content:          threeRows,
		IncludeStudioURL: true,
		ReturnRowResults: true,
	})
	require.NoError(t, err)

	require.Len(t, result.RowResults, 3)
	require.Equal(t, "Paris", result.RowResults[0]["inputs.response"])
	require.Equal(t, 1.0, result.RowResults[0]["outputs.f1.f1_score"])
	require.Equal(t, 0.0, result.RowResults[2]["outputs.f1.f1_score"])
	require.Equal(t,
		"https://ai.azure.com/build/evaluation?wsid=%2Fsubscriptions%2Fsub-1%2FresourceGroups%2Frg-1%2Fproviders"+
			"%2FMicrosoft.MachineLearningServices%2Fworkspaces%2Fproj-1",
		result.StudioURL)
}

func TestRunTextEval_InlineContentIsRemoved(t *testing.T) {
	tempDir := isolateTempDir(t)

	service := NewService(testConfig(t.TempDir()), Dependencies{})
	result, err := service.RunTextEval(context.Background(), TextEvalRequest{
		EvaluatorNames: []string{"bleu"},
		Content:        `{"response": "a b", "ground_truth": "a b"}`,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.RowCount)
	requireEmptyDir(t, tempDir)

	_, err = service.RunTextEval(context.Background(), TextEvalRequest{
		EvaluatorNames: []string{"bleu"},
		Content:        "not json\n",
	})
	require.True(t, exterrors.HasCode(err, exterrors.CodeInvalidDataset))
	requireEmptyDir(t, tempDir)
}

func TestRunTextEval_FailsBeforeAnyIO(t *testing.T) {
	tests := []struct {
		name    string
		request TextEvalRequest
		check   func(error) bool
	}{
		{
			name:    "unknown evaluator",
			request: TextEvalRequest{EvaluatorNames: []string{"f1", "vibes"}, Content: threeRows},
			check:   exterrors.IsUnknownEvaluator,
		},
		{
			name:    "agent evaluator is not a text evaluator",
			request: TextEvalRequest{EvaluatorNames: []string{"intent_resolution"}, Content: threeRows},
			check:   exterrors.IsUnknownEvaluator,
		},
		{
			name:    "model evaluator without judge",
			request: TextEvalRequest{EvaluatorNames: []string{"groundedness"}, Content: threeRows},
			check:   exterrors.IsConfiguration,
		},
		{
			name:    "no evaluators",
			request: TextEvalRequest{Content: threeRows},
			check: func(err error) bool {
				return exterrors.HasCode(err, exterrors.CodeInvalidArguments)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tempDir := isolateTempDir(t)

			service := NewService(testConfig(t.TempDir()), Dependencies{})
			result, err := service.RunTextEval(context.Background(), test.request)
			require.Nil(t, result)
			require.True(t, test.check(err), "unexpected error: %v", err)
			requireEmptyDir(t, tempDir)
		})
	}
}

func TestRunTextEval_Validation(t *testing.T) {
	service := NewService(&config.Config{}, Dependencies{})
	_, err := service.RunTextEval(context.Background(), TextEvalRequest{EvaluatorNames: []string{"f1"}, Content: "{}"})
	require.EqualError(t, err, "Evaluation not initialized. Check environment variables.")

	service = NewService(testConfig(t.TempDir()), Dependencies{})
	_, err = service.RunTextEval(context.Background(), TextEvalRequest{EvaluatorNames: []string{"f1"}})
	require.EqualError(t, err, "Either file_path or content must be provided")

	dataDir := t.TempDir()
	service = NewService(testConfig(dataDir), Dependencies{})
	_, err = service.RunTextEval(context.Background(), TextEvalRequest{
		EvaluatorNames: []string{"f1"},
		FilePath:       "missing.jsonl",
	})
	require.True(t, exterrors.HasCode(err, exterrors.CodeFileNotFound))
	require.Contains(t, err.Error(), "File not found: missing.jsonl (also checked in "+dataDir+")")
}

func TestRunTextEval_RowFailuresAreRecorded(t *testing.T) {
	isolateTempDir(t)

	service := NewService(testConfig(t.TempDir()), Dependencies{})
	result, err := service.RunTextEval(context.Background(), TextEvalRequest{
		EvaluatorNames: []string{"f1"},
		Content: strings.Join([]string{
			`{"response": "Paris", "ground_truth": "Paris"}`,
			`{"response": "Paris"}`,
		}, "\n"),
		ReturnRowResults: true,
	})
	require.NoError(t, err)

	require.Equal(t, 2, result.RowCount)
	require.Equal(t, 1.0, result.Metrics["f1.f1_score"])
	require.Contains(t, result.RowResults[1]["outputs.f1.error"], "ground_truth")
}

func TestRunTextEval_ColumnMappingUsesRequiredFields(t *testing.T) {
	isolateTempDir(t)

	judge := &fakeJudge{reply: `{"score": 4, "reason": "ok"}`}
	service := NewService(testConfig(t.TempDir()), Dependencies{Judge: judge})
	result, err := service.RunTextEval(context.Background(), TextEvalRequest{
		EvaluatorNames: []string{"groundedness"},
		Content:        `{"query": "q?", "response": "r", "context": "c", "extra": "ignored"}` + "\n",
	})
	require.NoError(t, err)

	require.Equal(t, 4.0, result.Metrics["groundedness.groundedness"])
	require.Equal(t, 4.0, result.Metrics["groundedness.gpt_groundedness"])
	require.NotContains(t, result.Metrics, "groundedness.groundedness_threshold")
	require.Len(t, judge.prompts, 1)
	require.Contains(t, judge.prompts[0], "QUERY:\nq?")
	require.NotContains(t, judge.prompts[0], "ignored")
}

func TestRunTextEval_Cancelled(t *testing.T) {
	isolateTempDir(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := NewService(testConfig(t.TempDir()), Dependencies{})
	_, err := service.RunTextEval(ctx, TextEvalRequest{EvaluatorNames: []string{"f1"}, Content: threeRows})
	require.True(t, exterrors.HasCode(err, exterrors.CodeCancelled))
}

func TestOpenDataset_InlineRoundTrip(t *testing.T) {
	isolateTempDir(t)
	content := "{\"a\": \"ünïcode\"}\n{\"b\": 2}"

	dataset, err := OpenDataset("", content, "")
	require.NoError(t, err)
	require.Equal(t, 2, dataset.RowCount)

	data, err := os.ReadFile(dataset.Path)
	require.NoError(t, err)
	require.Equal(t, content, string(data))

	require.NoError(t, dataset.Close())
	_, err = os.Stat(dataset.Path)
	require.True(t, os.IsNotExist(err))
	require.NoError(t, dataset.Close())
}

func TestOpenDataset_FileWinsOverContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n\n{}\n"), 0600))

	dataset, err := OpenDataset(path, "{}", "")
	require.NoError(t, err)
	require.Equal(t, path, dataset.Path)
	require.Equal(t, 2, dataset.RowCount)

	require.NoError(t, dataset.Close())
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestRunAgentEval(t *testing.T) {
	judge := &fakeJudge{reply: `{"score": 5, "reason": "resolved"}`}
	service := NewService(testConfig(t.TempDir()), Dependencies{Judge: judge})

	result, err := service.RunAgentEval(context.Background(), AgentEvalRequest{
		EvaluatorName: "intent_resolution",
		Query:         "What's the weather in Seattle?",
		Response:      `[{"role": "assistant", "content": "It is sunny."}]`,
	})
	require.NoError(t, err)

	require.Equal(t, "intent_resolution", result.Evaluator)
	require.Equal(t, 5.0, result.Result["intent_resolution"])
	require.Contains(t, judge.prompts[0], `QUERY:`+"\n"+`{"content":"What's the weather in Seattle?"}`)
	require.Contains(t, judge.prompts[0], `RESPONSE:`+"\n"+`[{"content":"It is sunny.","role":"assistant"}]`)
}

func TestRunAgentEval_EmptyResponseIsAbsent(t *testing.T) {
	judge := &fakeJudge{reply: `{"score": 5}`}
	service := NewService(testConfig(t.TempDir()), Dependencies{Judge: judge})

	_, err := service.RunAgentEval(context.Background(), AgentEvalRequest{
		EvaluatorName: "task_adherence",
		Query:         "q",
		Response:      "",
	})
	require.True(t, exterrors.HasCode(err, exterrors.CodeMissingInput))
	require.Empty(t, judge.prompts)

	// tool_call_accuracy does not require a response
	_, err = service.RunAgentEval(context.Background(), AgentEvalRequest{
		EvaluatorName:   "tool_call_accuracy",
		Query:           "q",
		ToolDefinitions: `[{"name": "get_weather"}]`,
	})
	require.NoError(t, err)
}

func TestRunAgentEval_Unknown(t *testing.T) {
	service := NewService(testConfig(t.TempDir()), Dependencies{Judge: &fakeJudge{}})

	_, err := service.RunAgentEval(context.Background(), AgentEvalRequest{EvaluatorName: "groundedness", Query: "q"})
	require.True(t, exterrors.IsUnknownEvaluator(err))
}

func TestEvaluateThread_DefaultsToAllAgentEvaluators(t *testing.T) {
	judge := &fakeJudge{reply: `{"score": 4, "reason": "good"}`}
	service := NewService(testConfig(t.TempDir()), Dependencies{Judge: judge})

	snapshot := &agents.ThreadSnapshot{
		ThreadID: "thread_1",
		RunID:    "run_1",
		Messages: []agent_api.Message{
			userMessage("msg_1", 1, "hello"),
			assistantMessage("msg_2", 2, "run_1", "hi there"),
		},
	}

	result, err := service.EvaluateThread(context.Background(), snapshot, nil)
	require.NoError(t, err)

	require.Equal(t, "thread_1", result.ThreadID)
	require.Equal(t, "run_1", result.RunID)
	require.Len(t, result.Evaluations, 3)
	require.Equal(t, 4.0, result.Evaluations["intent_resolution"].(Metrics)["intent_resolution"])
	require.Equal(t, 4.0, result.Evaluations["task_adherence"].(Metrics)["task_adherence"])

	// no agent, so no tool definitions
	failure := result.Evaluations["tool_call_accuracy"].(map[string]string)
	require.Contains(t, failure["error"], "tool_definitions")
}

func TestEvaluateThread_UnknownEvaluator(t *testing.T) {
	service := NewService(testConfig(t.TempDir()), Dependencies{Judge: &fakeJudge{}})

	_, err := service.EvaluateThread(context.Background(), &agents.ThreadSnapshot{}, []string{"fluency"})
	require.True(t, exterrors.IsUnknownEvaluator(err))
}
