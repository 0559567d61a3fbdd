// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
)

// nlpEvaluator compares response against ground_truth with a token-overlap metric.
type nlpEvaluator struct {
	name  string
	score func(response, groundTruth []string) Metrics
}

func newNLPEvaluator(name string) (Evaluator, error) {
	var score func(response, groundTruth []string) Metrics
	switch name {
	case "f1":
		score = f1Score
	case "rouge":
		score = rougeLScore
	case "bleu":
		score = bleuScore
	case "meteor":
		score = meteorScore
	default:
		return nil, exterrors.UnknownEvaluator(name)
	}
	return &nlpEvaluator{name: name, score: score}, nil
}

func (e *nlpEvaluator) Evaluate(ctx context.Context, inputs Inputs) (Metrics, error) {
	if err := requireInputs(e.name, inputs, "response", "ground_truth"); err != nil {
		return nil, err
	}
	response, _ := inputString(inputs, "response")
	groundTruth, _ := inputString(inputs, "ground_truth")

	tokenize := tokenizeWords
	if e.name == "f1" {
		tokenize = normalizeAnswer
	}
	return e.score(tokenize(response), tokenize(groundTruth)), nil
}

func tokenizeWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalizeAnswer lower-cases, drops punctuation and articles, and splits on whitespace.
func normalizeAnswer(text string) []string {
	var tokens []string
	for _, token := range tokenizeWords(text) {
		switch token {
		case "a", "an", "the":
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func counts(tokens []string) map[string]int {
	c := make(map[string]int, len(tokens))
	for _, t := range tokens {
		c[t]++
	}
	return c
}

func overlap(a, b []string) int {
	cb := counts(b)
	same := 0
	for t, n := range counts(a) {
		same += min(n, cb[t])
	}
	return same
}

func harmonic(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func f1Score(response, groundTruth []string) Metrics {
	same := overlap(response, groundTruth)
	if same == 0 {
		return Metrics{"f1_score": 0.0}
	}
	precision := float64(same) / float64(len(response))
	recall := float64(same) / float64(len(groundTruth))
	return Metrics{"f1_score": harmonic(precision, recall)}
}

// rougeLScore scores the longest common subsequence of the two token sequences.
func rougeLScore(response, groundTruth []string) Metrics {
	lcs := longestCommonSubsequence(response, groundTruth)
	var precision, recall float64
	if len(response) > 0 {
		precision = float64(lcs) / float64(len(response))
	}
	if len(groundTruth) > 0 {
		recall = float64(lcs) / float64(len(groundTruth))
	}
	return Metrics{
		"rouge_precision": precision,
		"rouge_recall":    recall,
		"rouge_f1_score":  harmonic(precision, recall),
	}
}

func longestCommonSubsequence(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func ngrams(tokens []string, n int) map[string]int {
	grams := map[string]int{}
	for i := 0; i+n <= len(tokens); i++ {
		grams[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return grams
}

// bleuScore is sentence-level BLEU-4 with uniform weights, the brevity penalty and add-one
// smoothing of the higher order precisions.
func bleuScore(response, groundTruth []string) Metrics {
	if len(response) == 0 || len(groundTruth) == 0 {
		return Metrics{"bleu_score": 0.0}
	}

	const maxOrder = 4
	logSum := 0.0
	for n := 1; n <= maxOrder; n++ {
		hyp := ngrams(response, n)
		ref := ngrams(groundTruth, n)
		matched, total := 0, 0
		for gram, count := range hyp {
			matched += min(count, ref[gram])
			total += count
		}

		var precision float64
		switch {
		case n == 1 && matched == 0:
			return Metrics{"bleu_score": 0.0}
		case n == 1:
			precision = float64(matched) / float64(total)
		default:
			precision = float64(matched+1) / float64(total+1)
		}
		logSum += math.Log(precision) / maxOrder
	}

	brevity := 1.0
	if len(response) < len(groundTruth) {
		brevity = math.Exp(1 - float64(len(groundTruth))/float64(len(response)))
	}
	return Metrics{"bleu_score": brevity * math.Exp(logSum)}
}

// meteorScore is METEOR with exact unigram matching (alpha=0.9, beta=3, gamma=0.5).
func meteorScore(response, groundTruth []string) Metrics {
	const alpha, beta, gamma = 0.9, 3.0, 0.5

	alignment := alignExact(response, groundTruth)
	matches := len(alignment)
	if matches == 0 {
		return Metrics{"meteor_score": 0.0}
	}

	precision := float64(matches) / float64(len(response))
	recall := float64(matches) / float64(len(groundTruth))
	fmean := precision * recall / (alpha*precision + (1-alpha)*recall)

	chunks := 1
	for i := 1; i < matches; i++ {
		if alignment[i][0] != alignment[i-1][0]+1 || alignment[i][1] != alignment[i-1][1]+1 {
			chunks++
		}
	}
	penalty := gamma * math.Pow(float64(chunks)/float64(matches), beta)

	return Metrics{"meteor_score": fmean * (1 - penalty)}
}

// alignExact pairs each response token with the first unused identical reference token.
// Pairs are returned in response order as [response index, reference index].
func alignExact(response, groundTruth []string) [][2]int {
	used := make([]bool, len(groundTruth))
	var alignment [][2]int
	for i, token := range response {
		for j, ref := range groundTruth {
			if !used[j] && ref == token {
				used[j] = true
				alignment = append(alignment, [2]int{i, j})
				break
			}
		}
	}
	return alignment
}
