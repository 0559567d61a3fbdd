// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/azure/azure-ai-foundry-mcp/internal/config"
	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
)

// DefaultOpenAIAPIVersion is used when AZURE_OPENAI_API_VERSION is not set.
const DefaultOpenAIAPIVersion = "2024-10-21"

// Completer sends a system and user prompt to a chat model and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIJudge is a Completer backed by an Azure OpenAI chat deployment.
type OpenAIJudge struct {
	client     openai.Client
	deployment string
}

// NewOpenAIJudge creates a judge for cfg. Extra options are applied after the Azure ones.
func NewOpenAIJudge(cfg config.OpenAIConfig, opts ...option.RequestOption) (*OpenAIJudge, error) {
	if !cfg.Configured() {
		return nil, exterrors.MissingConfiguration("model-backed evaluators",
			"AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and AZURE_OPENAI_DEPLOYMENT")
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultOpenAIAPIVersion
	}

	options := append([]option.RequestOption{
		azure.WithEndpoint(strings.TrimSuffix(cfg.Endpoint, "/"), apiVersion),
		azure.WithAPIKey(cfg.APIKey),
	}, opts...)

	return &OpenAIJudge{
		client:     openai.NewClient(options...),
		deployment: cfg.Deployment,
	}, nil
}

func (j *OpenAIJudge) Complete(ctx context.Context, system, user string) (string, error) {
	completion, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(j.deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("judge completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("judge completion returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

// judgeEvaluator scores inputs by prompting the judge model with a rubric.
type judgeEvaluator struct {
	name  string
	spec  judgeSpec
	judge Completer
}

func newJudgeEvaluator(name string, judge Completer) (Evaluator, error) {
	spec, ok := judgeSpecs[name]
	if !ok {
		return nil, exterrors.UnknownEvaluator(name)
	}
	return &judgeEvaluator{name: name, spec: spec, judge: judge}, nil
}

func (e *judgeEvaluator) Evaluate(ctx context.Context, inputs Inputs) (Metrics, error) {
	if err := requireInputs(e.name, inputs, e.spec.required...); err != nil {
		return nil, err
	}

	reply, err := e.judge.Complete(ctx, judgeSystemPrompt, e.userPrompt(inputs))
	if err != nil {
		return nil, err
	}

	score, reason, err := parseJudgeReply(reply, e.spec.minScore, e.spec.maxScore)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}

	result := "fail"
	if score >= e.spec.threshold {
		result = "pass"
	}

	metrics := Metrics{
		e.name:                score,
		e.name + "_reason":    reason,
		e.name + "_result":    result,
		e.name + "_threshold": e.spec.threshold,
	}
	if e.spec.legacyKey {
		metrics["gpt_"+e.name] = score
	}
	return metrics, nil
}

func (e *judgeEvaluator) userPrompt(inputs Inputs) string {
	var sb strings.Builder
	sb.WriteString(e.spec.rubric)
	sb.WriteString("\n")
	for _, key := range e.spec.inputs {
		value, ok := inputString(inputs, key)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s:\n%s\n\n", strings.ToUpper(key), value)
	}
	return sb.String()
}

var (
	codeFence   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	firstNumber = regexp.MustCompile(`-?\d+(\.\d+)?`)
)

// parseJudgeReply extracts score and reason from the judge's reply. JSON replies are preferred;
// otherwise the first number in the text is taken as the score.
func parseJudgeReply(reply string, minScore, maxScore float64) (float64, string, error) {
	text := strings.TrimSpace(reply)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var score float64
	reason := ""
	if gjson.Valid(text) && gjson.Get(text, "score").Exists() {
		raw := gjson.Get(text, "score")
		switch raw.Type {
		case gjson.Number:
			score = raw.Float()
		case gjson.String:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(raw.String()), 64)
			if err != nil {
				return 0, "", fmt.Errorf("judge returned a non-numeric score %q", raw.String())
			}
			score = parsed
		default:
			return 0, "", fmt.Errorf("judge returned an unexpected score %s", raw.Raw)
		}
		reason = gjson.Get(text, "reason").String()
		if reason == "" {
			reason = gjson.Get(text, "explanation").String()
		}
	} else {
		match := firstNumber.FindString(text)
		if match == "" {
			return 0, "", fmt.Errorf("judge reply contains no score: %q", truncate(text, 200))
		}
		score, _ = strconv.ParseFloat(match, 64)
		reason = text
	}

	if math.IsNaN(score) {
		return 0, "", errors.New("judge returned NaN")
	}
	score = math.Max(minScore, math.Min(maxScore, score))
	return score, reason, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// toJSONText renders structured inputs for prompts and logs.
func toJSONText(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}
