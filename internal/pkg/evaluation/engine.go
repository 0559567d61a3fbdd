// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"golang.org/x/sync/errgroup"
)

// maxRowSize bounds a single JSONL line.
const maxRowSize = 16 * 1024 * 1024

// Row is one decoded dataset line.
type Row map[string]any

// RowResult is the flattened result of one row: inputs.<column> and outputs.<evaluator>.<metric>.
type RowResult map[string]any

// EvaluatorRun binds an evaluator to the dataset columns it reads.
type EvaluatorRun struct {
	Name      string
	Evaluator Evaluator
	// Fields are the evaluator's declared inputs. Fields without a ColumnMapping entry are
	// read from the column of the same name when the row has it.
	Fields []string
	// ColumnMapping maps an input field to a "${data.<column>}" reference.
	ColumnMapping map[string]string
}

// EngineResult is the output of one batch run.
type EngineResult struct {
	Rows    []RowResult
	Metrics map[string]float64
}

// Engine runs evaluators over JSONL datasets.
type Engine struct {
	concurrency int
}

func NewEngine(concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{concurrency: concurrency}
}

type cellResult struct {
	metrics Metrics
	err     error
}

// Run evaluates every row of the dataset at path with every evaluator. A failed evaluation is
// recorded in the row's outputs and does not stop the run; cancellation does.
func (e *Engine) Run(ctx context.Context, path string, runs []EvaluatorRun) (*EngineResult, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}

	cells := make([][]cellResult, len(rows))
	for i := range cells {
		cells[i] = make([]cellResult, len(runs))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, row := range rows {
		for j, run := range runs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				inputs, err := mapInputs(row, run)
				if err == nil {
					cells[i][j].metrics, err = run.Evaluator.Evaluate(gctx, inputs)
				}
				if err != nil {
					if exterrors.IsCancellation(err) && gctx.Err() != nil {
						return err
					}
					log.Printf("evaluator %s failed on row %d: %v", run.Name, i, err)
					cells[i][j].err = err
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, exterrors.Cancelled("evaluation cancelled")
		}
		return nil, err
	}

	result := &EngineResult{
		Rows:    make([]RowResult, len(rows)),
		Metrics: map[string]float64{},
	}
	for i, row := range rows {
		rowResult := RowResult{}
		for column, value := range row {
			rowResult["inputs."+column] = value
		}
		for j, run := range runs {
			cell := cells[i][j]
			if cell.err != nil {
				rowResult["outputs."+run.Name+".error"] = cell.err.Error()
				continue
			}
			for key, value := range cell.metrics {
				rowResult["outputs."+run.Name+"."+key] = value
			}
		}
		result.Rows[i] = rowResult
	}

	for j, run := range runs {
		column := make([]Metrics, 0, len(rows))
		for i := range rows {
			if cells[i][j].err == nil {
				column = append(column, cells[i][j].metrics)
			}
		}
		for key, value := range aggregate(column) {
			result.Metrics[run.Name+"."+key] = value
		}
	}

	return result, nil
}

// ReadRows decodes a JSONL file. Blank lines are skipped.
func ReadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var rows []Row
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRowSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var row Row
		if err := json.Unmarshal([]byte(text), &row); err != nil {
			return nil, exterrors.Validation(
				exterrors.CodeInvalidDataset,
				fmt.Sprintf("invalid JSON on line %d of %s: %v", line, path, err),
				"every non-blank line must be a JSON object",
			)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return rows, nil
}

func mapInputs(row Row, run EvaluatorRun) (Inputs, error) {
	inputs := Inputs{}
	for _, field := range run.Fields {
		if value, ok := row[field]; ok {
			inputs[field] = value
		}
	}
	for field, reference := range run.ColumnMapping {
		column, ok := dataColumn(reference)
		if !ok {
			return nil, exterrors.Validation(
				exterrors.CodeInvalidArguments,
				fmt.Sprintf("column mapping %q for %s is not a ${data.<column>} reference", reference, field),
				"",
			)
		}
		if value, ok := lookupColumn(row, column); ok {
			inputs[field] = value
		}
	}
	return inputs, nil
}

func dataColumn(reference string) (string, bool) {
	if !strings.HasPrefix(reference, "${data.") || !strings.HasSuffix(reference, "}") {
		return "", false
	}
	column := strings.TrimSuffix(strings.TrimPrefix(reference, "${data."), "}")
	return column, column != ""
}

// lookupColumn resolves a column name, following dots into nested objects when the row has
// no column with the literal name.
func lookupColumn(row Row, column string) (any, bool) {
	if value, ok := row[column]; ok {
		return value, true
	}
	var current any = map[string]any(row)
	for _, part := range strings.Split(column, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = object[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// aggregate averages each numeric metric over the rows that produced it. Booleans count as
// 0 or 1, so label metrics aggregate to the fraction of true labels. Thresholds and text
// outputs are not aggregated.
func aggregate(rows []Metrics) map[string]float64 {
	sums := map[string]float64{}
	seen := map[string]int{}
	for _, metrics := range rows {
		for key, value := range metrics {
			if strings.HasSuffix(key, "_threshold") {
				continue
			}
			number, ok := numeric(value)
			if !ok {
				continue
			}
			sums[key] += number
			seen[key]++
		}
	}

	means := make(map[string]float64, len(sums))
	for key, sum := range sums {
		means[key] = sum / float64(seen[key])
	}
	return means
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
