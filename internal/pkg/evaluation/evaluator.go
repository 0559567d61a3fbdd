// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"context"
	"fmt"
	"maps"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
)

// Inputs are the named values handed to an evaluator for a single row or interaction.
type Inputs map[string]any

// Metrics are the named outputs of an evaluator. Values are numbers, strings or booleans.
type Metrics map[string]any

// Evaluator scores one set of inputs.
type Evaluator interface {
	Evaluate(ctx context.Context, inputs Inputs) (Metrics, error)
}

// Kind selects how an evaluator is backed.
type Kind int

const (
	// KindModel evaluators prompt the configured judge model.
	KindModel Kind = iota + 1
	// KindSafety evaluators call the project's Responsible AI annotation service.
	KindSafety
	// KindNLP evaluators compute token-overlap metrics locally.
	KindNLP
)

func (k Kind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindSafety:
		return "safety"
	case KindNLP:
		return "nlp"
	default:
		return "unknown"
	}
}

var evaluatorKinds = map[string]Kind{
	"groundedness":          KindModel,
	"relevance":             KindModel,
	"coherence":             KindModel,
	"fluency":               KindModel,
	"similarity":            KindModel,
	"retrieval":             KindModel,
	"qa":                    KindModel,
	"intent_resolution":     KindModel,
	"tool_call_accuracy":    KindModel,
	"task_adherence":        KindModel,
	"violence":              KindSafety,
	"sexual":                KindSafety,
	"self_harm":             KindSafety,
	"hate_unfairness":       KindSafety,
	"indirect_attack":       KindSafety,
	"protected_material":    KindSafety,
	"ungrounded_attributes": KindSafety,
	"code_vulnerability":    KindSafety,
	"content_safety":        KindSafety,
	"f1":                    KindNLP,
	"rouge":                 KindNLP,
	"bleu":                  KindNLP,
	"meteor":                KindNLP,
}

// KindOf returns the backing kind of a known evaluator.
func KindOf(name string) (Kind, bool) {
	kind, ok := evaluatorKinds[name]
	return kind, ok
}

// Dependencies are the remote backends evaluators may need. Nil members mean the backend
// is not configured.
type Dependencies struct {
	Judge  Completer
	Safety SafetyService
}

// NewEvaluator builds the evaluator registered under name. It never returns a nil evaluator
// with a nil error.
func NewEvaluator(name string, deps Dependencies) (Evaluator, error) {
	kind, ok := KindOf(name)
	if !ok {
		return nil, exterrors.UnknownEvaluator(name)
	}

	switch kind {
	case KindNLP:
		return newNLPEvaluator(name)
	case KindModel:
		if deps.Judge == nil {
			return nil, exterrors.MissingConfiguration(name+" evaluator",
				"Model configuration (AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY, AZURE_OPENAI_DEPLOYMENT)")
		}
		if name == "qa" {
			return newComposite(name, deps, "groundedness", "relevance", "coherence", "fluency", "similarity", "f1")
		}
		return newJudgeEvaluator(name, deps.Judge)
	case KindSafety:
		if deps.Safety == nil {
			return nil, exterrors.MissingConfiguration(name+" evaluator",
				"Azure credential and project scope (AZURE_SUBSCRIPTION_ID, AZURE_RESOURCE_GROUP, AZURE_PROJECT_NAME)")
		}
		if name == "content_safety" {
			return newComposite(name, deps, "violence", "sexual", "self_harm", "hate_unfairness")
		}
		return newSafetyEvaluator(name, deps.Safety)
	}

	return nil, exterrors.UnknownEvaluator(name)
}

// composite runs several evaluators on the same inputs and merges their metrics.
type composite struct {
	name  string
	parts []namedEvaluator
}

type namedEvaluator struct {
	name      string
	evaluator Evaluator
}

func newComposite(name string, deps Dependencies, parts ...string) (Evaluator, error) {
	c := &composite{name: name}
	for _, part := range parts {
		evaluator, err := NewEvaluator(part, deps)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		c.parts = append(c.parts, namedEvaluator{name: part, evaluator: evaluator})
	}
	return c, nil
}

func (c *composite) Evaluate(ctx context.Context, inputs Inputs) (Metrics, error) {
	merged := Metrics{}
	for _, part := range c.parts {
		metrics, err := part.evaluator.Evaluate(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", c.name, part.name, err)
		}
		maps.Copy(merged, metrics)
	}
	return merged, nil
}

// inputString returns inputs[key] as text. Non-string values are rendered as JSON.
func inputString(inputs Inputs, key string) (string, bool) {
	value, ok := inputs[key]
	if !ok || value == nil {
		return "", false
	}
	if s, ok := value.(string); ok {
		return s, true
	}
	return toJSONText(value), true
}

func requireInputs(evaluator string, inputs Inputs, keys ...string) error {
	for _, key := range keys {
		if s, ok := inputString(inputs, key); !ok || s == "" {
			return exterrors.Validation(
				exterrors.CodeMissingInput,
				fmt.Sprintf("%s evaluator requires input %q", evaluator, key),
				"",
			)
		}
	}
	return nil
}
