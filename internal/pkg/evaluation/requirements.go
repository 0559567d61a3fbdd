// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	Required = "Required"
	Optional = "Optional"
)

// FieldRequirement is one input field of an evaluator and whether it must be supplied.
// Requirement may carry a type hint, e.g. "Required (list[ToolDefinition])".
type FieldRequirement struct {
	Field       string
	Requirement string
}

// IsRequired reports whether the field must be present.
func (f FieldRequirement) IsRequired() bool {
	return strings.HasPrefix(f.Requirement, Required)
}

// RequirementSpec is the ordered field list of one evaluator. It marshals as a JSON object
// that preserves field order.
type RequirementSpec []FieldRequirement

func (s RequirementSpec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Field)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Requirement)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RequiredFields returns the names of the Required fields, in order.
func (s RequirementSpec) RequiredFields() []string {
	var fields []string
	for _, f := range s {
		if f.IsRequired() {
			fields = append(fields, f.Field)
		}
	}
	return fields
}

// ColumnMapping maps every Required field to its dataset column reference.
func (s RequirementSpec) ColumnMapping() map[string]string {
	mapping := map[string]string{}
	for _, field := range s.RequiredFields() {
		mapping[field] = "${data." + field + "}"
	}
	return mapping
}

// NamedRequirements is an ordered evaluator name → spec table.
type NamedRequirements struct {
	Name string
	Spec RequirementSpec
}

// RequirementTable marshals as a JSON object in table order.
type RequirementTable []NamedRequirements

func (t RequirementTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Name)
		if err != nil {
			return nil, err
		}
		value, err := entry.Spec.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Lookup returns the table restricted to name.
func (t RequirementTable) Lookup(name string) (RequirementTable, bool) {
	for _, entry := range t {
		if entry.Name == name {
			return RequirementTable{entry}, true
		}
	}
	return nil, false
}

// Names returns evaluator names in table order.
func (t RequirementTable) Names() []string {
	names := make([]string, 0, len(t))
	for _, entry := range t {
		names = append(names, entry.Name)
	}
	return names
}

func (t RequirementTable) spec(name string) (RequirementSpec, bool) {
	for _, entry := range t {
		if entry.Name == name {
			return entry.Spec, true
		}
	}
	return nil, false
}

func fields(pairs ...string) RequirementSpec {
	spec := make(RequirementSpec, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		spec = append(spec, FieldRequirement{Field: pairs[i], Requirement: pairs[i+1]})
	}
	return spec
}

var (
	queryResponse = fields(
		"query", Required,
		"response", Required,
	)
	queryResponseContext = fields(
		"query", Required,
		"response", Required,
		"context", Required,
	)
	responseGroundTruth = fields(
		"response", Required,
		"ground_truth", Required,
	)
)

// TextEvaluatorRequirements is the static requirement table of the text evaluators.
var TextEvaluatorRequirements = RequirementTable{
	{"groundedness", fields("query", Optional, "response", Required, "context", Required)},
	{"relevance", queryResponse},
	{"coherence", queryResponse},
	{"fluency", fields("response", Required)},
	{"similarity", fields("query", Required, "response", Required, "ground_truth", Required)},
	{"retrieval", fields("query", Required, "context", Required)},
	{"f1", responseGroundTruth},
	{"rouge", responseGroundTruth},
	{"bleu", responseGroundTruth},
	{"meteor", responseGroundTruth},
	{"violence", queryResponse},
	{"sexual", queryResponse},
	{"self_harm", queryResponse},
	{"hate_unfairness", queryResponse},
	{"indirect_attack", queryResponseContext},
	{"protected_material", queryResponse},
	{"ungrounded_attributes", queryResponseContext},
	{"code_vulnerability", queryResponse},
	{"qa", fields("query", Required, "response", Required, "context", Required, "ground_truth", Required)},
	{"content_safety", queryResponse},
}

const (
	messagesHint = "(Union[str, list[Message]])"
)

// AgentEvaluatorRequirements is the static requirement table of the agent evaluators.
var AgentEvaluatorRequirements = RequirementTable{
	{"intent_resolution", fields(
		"query", Required+" "+messagesHint,
		"response", Required+" "+messagesHint,
		"tool_definitions", Optional+" (list[ToolDefinition])",
	)},
	{"tool_call_accuracy", fields(
		"query", Required+" "+messagesHint,
		"response", Optional+" "+messagesHint,
		"tool_calls", Optional+" (Union[dict, list[ToolCall]])",
		"tool_definitions", Required+" (list[ToolDefinition])",
	)},
	{"task_adherence", fields(
		"query", Required+" "+messagesHint,
		"response", Required+" "+messagesHint,
		"tool_definitions", Optional+" (list[ToolCall])",
	)},
}

// TextEvaluatorNames lists the text evaluators in stable order.
func TextEvaluatorNames() []string {
	return TextEvaluatorRequirements.Names()
}

// AgentEvaluatorNames lists the agent evaluators in stable order.
func AgentEvaluatorNames() []string {
	return AgentEvaluatorRequirements.Names()
}

// IsTextEvaluator reports whether name is in the text catalog.
func IsTextEvaluator(name string) bool {
	_, ok := TextEvaluatorRequirements.spec(name)
	return ok
}

// IsAgentEvaluator reports whether name is in the agent catalog.
func IsAgentEvaluator(name string) bool {
	_, ok := AgentEvaluatorRequirements.spec(name)
	return ok
}
