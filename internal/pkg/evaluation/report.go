// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"fmt"
	"strings"
)

// FormatEvaluationReport renders an evaluation result as markdown. Floating point metric values
// print with four decimals.
func FormatEvaluationReport(result map[string]any) string {
	if message, ok := result["error"]; ok {
		return fmt.Sprintf("❌ Evaluation Error: %v", message)
	}

	report := []string{"# Evaluation Report\n"}

	if evaluator, ok := result["evaluator"].(string); ok && evaluator != "" {
		report = append(report, fmt.Sprintf("## Evaluator: %s\n", evaluator))
	}

	if metrics, ok := result["metrics"].(map[string]any); ok && len(metrics) > 0 {
		report = append(report, "## Metrics\n")
		for _, name := range sortedKeys(metrics) {
			report = append(report, fmt.Sprintf("- **%s**: %s", name, formatMetric(metrics[name])))
		}
		report = append(report, "\n")
	}

	if studioURL, ok := result["studio_url"].(string); ok && studioURL != "" {
		report = append(report, "## Azure AI Foundry\n")
		report = append(report, fmt.Sprintf("📊 [View the project's evaluations in Azure AI Foundry](%s)\n", studioURL))
	}

	return strings.Join(report, "\n")
}

func formatMetric(value any) string {
	switch v := value.(type) {
	case float64:
		return fmt.Sprintf("%.4f", v)
	case float32:
		return formatMetric(float64(v))
	case nil:
		return "None"
	default:
		return fmt.Sprint(v)
	}
}
