// Package model implements the gradient-boosted regression trees used for
// pm2_5 forecasting. Trees split on raw feature values, learn a default
// direction for missing (NaN) inputs, and are serialized as JSON artifacts
// for the model registry.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/ssenyonjo/aircast/pkg/types"
)

// Params mirrors the hyperparameter surface of the training search.
type Params struct {
	NumTrees        int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	NumLeaves       int     `json:"num_leaves"`
	ColSample       float64 `json:"colsample_bytree"`
	L1              float64 `json:"reg_alpha"`
	L2              float64 `json:"reg_lambda"`
	MinChildSamples int     `json:"min_child_samples"`
	Seed            int64   `json:"seed"`
}

func (p Params) withDefaults() Params {
	if p.NumTrees <= 0 {
		p.NumTrees = 50
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.1
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 6
	}
	if p.NumLeaves <= 1 {
		p.NumLeaves = 31
	}
	if p.ColSample <= 0 || p.ColSample > 1 {
		p.ColSample = 1
	}
	if p.MinChildSamples <= 0 {
		p.MinChildSamples = 1
	}
	return p
}

type node struct {
	Feature     int     `json:"f"` // -1 marks a leaf
	Threshold   float64 `json:"t,omitempty"`
	Left        int     `json:"l,omitempty"`
	Right       int     `json:"r,omitempty"`
	MissingLeft bool    `json:"ml,omitempty"`
	Value       float64 `json:"v,omitempty"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

func (t *tree) predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		v := math.NaN()
		if n.Feature < len(row) {
			v = row[n.Feature]
		}
		switch {
		case math.IsNaN(v):
			if n.MissingLeft {
				i = n.Left
			} else {
				i = n.Right
			}
		case v <= n.Threshold:
			i = n.Left
		default:
			i = n.Right
		}
	}
}

// Model is a trained forecast regressor plus the metadata inference needs:
// the exact feature column order and the frequency it was trained for.
type Model struct {
	Frequency    types.Frequency `json:"frequency"`
	FeatureNames []string        `json:"feature_names"`
	BaseScore    float64         `json:"base_score"`
	LearningRate float64         `json:"learning_rate"`
	Trees        []tree          `json:"trees"`
	Params       Params          `json:"params"`
}

// Predict scores one feature vector ordered as FeatureNames.
func (m *Model) Predict(row []float64) float64 {
	pred := m.BaseScore
	for i := range m.Trees {
		pred += m.LearningRate * m.Trees[i].predict(row)
	}
	return pred
}

func (m *Model) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func Unmarshal(b []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	return &m, nil
}

// Train fits a boosted ensemble on X (row-major, columns ordered as
// featureNames) against y. When evalX is non-empty, training stops once eval
// RMSE has not improved for stoppingRounds consecutive trees, and the
// ensemble is truncated to its best iteration. Training is deterministic for
// a fixed Params.Seed.
func Train(p Params, freq types.Frequency, featureNames []string, X [][]float64, y []float64, evalX [][]float64, evalY []float64, stoppingRounds int) (*Model, error) {
	if len(X) == 0 {
		return nil, types.ErrEmptyInput
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("feature/target length mismatch: %d vs %d", len(X), len(y))
	}
	p = p.withDefaults()
	rng := rand.New(rand.NewSource(p.Seed))

	base := mean(y)
	m := &Model{
		Frequency:    freq,
		FeatureNames: featureNames,
		BaseScore:    base,
		LearningRate: p.LearningRate,
		Params:       p,
	}

	preds := make([]float64, len(y))
	for i := range preds {
		preds[i] = base
	}
	evalPreds := make([]float64, len(evalY))
	for i := range evalPreds {
		evalPreds[i] = base
	}

	resid := make([]float64, len(y))
	bestEval := math.Inf(1)
	bestIter := 0
	sinceBest := 0

	for iter := 0; iter < p.NumTrees; iter++ {
		for i := range y {
			resid[i] = y[i] - preds[i]
		}
		cols := sampleColumns(len(featureNames), p.ColSample, rng)
		t := growTree(p, X, resid, cols)
		m.Trees = append(m.Trees, t)

		for i := range X {
			preds[i] += p.LearningRate * t.predict(X[i])
		}

		if len(evalX) > 0 {
			for i := range evalX {
				evalPreds[i] += p.LearningRate * t.predict(evalX[i])
			}
			score := rmse(evalY, evalPreds)
			if score < bestEval {
				bestEval = score
				bestIter = iter
				sinceBest = 0
			} else {
				sinceBest++
				if stoppingRounds > 0 && sinceBest >= stoppingRounds {
					m.Trees = m.Trees[:bestIter+1]
					return m, nil
				}
			}
		}
	}
	return m, nil
}

func sampleColumns(n int, ratio float64, rng *rand.Rand) []int {
	k := int(math.Ceil(ratio * float64(n)))
	if k >= n {
		cols := make([]int, n)
		for i := range cols {
			cols[i] = i
		}
		return cols
	}
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

// leaf is a growable region of rows during best-first tree construction.
type leaf struct {
	rows    []int
	depth   int
	nodeIdx int
	split   *splitCandidate
}

type splitCandidate struct {
	feature     int
	threshold   float64
	gain        float64
	missingLeft bool
	left, right []int
}

// growTree builds one regression tree leaf-wise: the leaf with the highest
// gain splits first, until the leaf budget or depth bound is exhausted.
func growTree(p Params, X [][]float64, grad []float64, cols []int) tree {
	t := tree{}
	rows := make([]int, len(grad))
	for i := range rows {
		rows[i] = i
	}

	t.Nodes = append(t.Nodes, node{Feature: -1, Value: leafValue(grad, rows, p)})
	open := []*leaf{{rows: rows, depth: 0, nodeIdx: 0}}
	leaves := 1

	for leaves < p.NumLeaves {
		var best *leaf
		for _, l := range open {
			if l.split == nil && l.depth < p.MaxDepth && len(l.rows) >= 2*p.MinChildSamples {
				l.split = bestSplit(X, grad, l.rows, cols, p)
			}
			if l.split != nil && (best == nil || l.split.gain > best.split.gain) {
				best = l
			}
		}
		if best == nil || best.split.gain <= 0 {
			break
		}

		s := best.split
		li := len(t.Nodes)
		t.Nodes = append(t.Nodes, node{Feature: -1, Value: leafValue(grad, s.left, p)})
		ri := len(t.Nodes)
		t.Nodes = append(t.Nodes, node{Feature: -1, Value: leafValue(grad, s.right, p)})
		t.Nodes[best.nodeIdx] = node{
			Feature:     s.feature,
			Threshold:   s.threshold,
			Left:        li,
			Right:       ri,
			MissingLeft: s.missingLeft,
		}

		next := open[:0]
		for _, l := range open {
			if l != best {
				next = append(next, l)
			}
		}
		open = append(next,
			&leaf{rows: s.left, depth: best.depth + 1, nodeIdx: li},
			&leaf{rows: s.right, depth: best.depth + 1, nodeIdx: ri},
		)
		leaves++
	}
	return t
}

// leafValue is the L1/L2-regularized mean of the gradients in the leaf.
func leafValue(grad []float64, rows []int, p Params) float64 {
	sum := 0.0
	for _, i := range rows {
		sum += grad[i]
	}
	shrunk := softThreshold(sum, p.L1)
	return shrunk / (float64(len(rows)) + p.L2)
}

func softThreshold(s, alpha float64) float64 {
	switch {
	case s > alpha:
		return s - alpha
	case s < -alpha:
		return s + alpha
	default:
		return 0
	}
}

func regGain(sum float64, n int, p Params) float64 {
	shrunk := softThreshold(sum, p.L1)
	return shrunk * shrunk / (float64(n) + p.L2)
}

type valueRow struct {
	v float64
	g float64
	i int
}

// bestSplit scans the sampled feature columns for the split maximizing the
// regularized gain. NaN rows are routed to whichever side scores better, and
// that default direction is recorded on the node.
func bestSplit(X [][]float64, grad []float64, rows []int, cols []int, p Params) *splitCandidate {
	parentSum := 0.0
	for _, i := range rows {
		parentSum += grad[i]
	}
	parentScore := regGain(parentSum, len(rows), p)

	var best *splitCandidate
	for _, c := range cols {
		present := make([]valueRow, 0, len(rows))
		var missing []int
		missingSum := 0.0
		for _, i := range rows {
			v := X[i][c]
			if math.IsNaN(v) {
				missing = append(missing, i)
				missingSum += grad[i]
			} else {
				present = append(present, valueRow{v: v, g: grad[i], i: i})
			}
		}
		if len(present) < 2 {
			continue
		}
		sort.Slice(present, func(a, b int) bool { return present[a].v < present[b].v })

		leftSum := 0.0
		for k := 0; k < len(present)-1; k++ {
			leftSum += present[k].g
			if present[k].v == present[k+1].v {
				continue
			}
			nl, nr := k+1, len(present)-1-k
			rightSum := parentSum - missingSum - leftSum

			// missing rows left
			gainL := regGain(leftSum+missingSum, nl+len(missing), p) + regGain(rightSum, nr, p) - parentScore
			// missing rows right
			gainR := regGain(leftSum, nl, p) + regGain(rightSum+missingSum, nr+len(missing), p) - parentScore

			gain, missingLeft := gainL, true
			if gainR > gainL {
				gain, missingLeft = gainR, false
			}

			nlTotal, nrTotal := nl, nr
			if missingLeft {
				nlTotal += len(missing)
			} else {
				nrTotal += len(missing)
			}
			if nlTotal < p.MinChildSamples || nrTotal < p.MinChildSamples {
				continue
			}
			if best != nil && gain <= best.gain {
				continue
			}

			threshold := (present[k].v + present[k+1].v) / 2
			cand := &splitCandidate{
				feature:     c,
				threshold:   threshold,
				gain:        gain,
				missingLeft: missingLeft,
			}
			for j := 0; j <= k; j++ {
				cand.left = append(cand.left, present[j].i)
			}
			for j := k + 1; j < len(present); j++ {
				cand.right = append(cand.right, present[j].i)
			}
			if missingLeft {
				cand.left = append(cand.left, missing...)
			} else {
				cand.right = append(cand.right, missing...)
			}
			best = cand
		}
	}
	return best
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func rmse(y, preds []float64) float64 {
	sum := 0.0
	for i := range y {
		d := y[i] - preds[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(y)))
}
