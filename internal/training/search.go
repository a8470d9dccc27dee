package training

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/model"
)

const (
	defaultTrials   = 15
	fitRepeats      = 4
	stoppingRounds  = 150
	warmupTrials    = 5
	reductionFactor = 2
	searchSeed      = 42
)

// bounds of the searched hyperparameter space. Tree count is fixed.
var searchSpace = struct {
	colSample [2]float64
	l1        [2]float64
	l2        [2]float64
	lr        [2]float64
	leaves    [2]int
	depth     [2]int
}{
	colSample: [2]float64{0.1, 1},
	l1:        [2]float64{0, 10},
	l2:        [2]float64{0, 10},
	lr:        [2]float64{0.01, 0.3},
	leaves:    [2]int{20, 50},
	depth:     [2]int{4, 7},
}

type trialResult struct {
	params model.Params
	score  float64
	pruned bool
}

// sampler proposes hyperparameters: uniform over the space during warmup,
// then perturbations of a randomly chosen top-half trial, which concentrates
// the budget where scores are already good.
type sampler struct {
	rng     *rand.Rand
	history []trialResult
}

func newSampler(seed int64) *sampler {
	return &sampler{rng: rand.New(rand.NewSource(seed))}
}

func (s *sampler) suggest() model.Params {
	var done []trialResult
	for _, t := range s.history {
		if !t.pruned {
			done = append(done, t)
		}
	}
	if len(done) < warmupTrials {
		return s.uniform()
	}

	sort.Slice(done, func(a, b int) bool { return done[a].score < done[b].score })
	anchor := done[s.rng.Intn((len(done)+1)/2)].params

	p := anchor
	p.ColSample = s.perturb(anchor.ColSample, searchSpace.colSample, 0.15)
	p.L1 = s.perturb(anchor.L1, searchSpace.l1, 1.5)
	p.L2 = s.perturb(anchor.L2, searchSpace.l2, 1.5)
	p.LearningRate = s.perturb(anchor.LearningRate, searchSpace.lr, 0.05)
	p.NumLeaves = s.perturbInt(anchor.NumLeaves, searchSpace.leaves, 5)
	p.MaxDepth = s.perturbInt(anchor.MaxDepth, searchSpace.depth, 1)
	return p
}

func (s *sampler) uniform() model.Params {
	return model.Params{
		NumTrees:     50,
		ColSample:    s.uniformIn(searchSpace.colSample),
		L1:           s.uniformIn(searchSpace.l1),
		L2:           s.uniformIn(searchSpace.l2),
		LearningRate: s.uniformIn(searchSpace.lr),
		NumLeaves:    s.uniformIntIn(searchSpace.leaves),
		MaxDepth:     s.uniformIntIn(searchSpace.depth),
	}
}

func (s *sampler) uniformIn(b [2]float64) float64 {
	return b[0] + s.rng.Float64()*(b[1]-b[0])
}

func (s *sampler) uniformIntIn(b [2]int) int {
	return b[0] + s.rng.Intn(b[1]-b[0]+1)
}

func (s *sampler) perturb(v float64, b [2]float64, sigma float64) float64 {
	return clamp(v+s.rng.NormFloat64()*sigma, b[0], b[1])
}

func (s *sampler) perturbInt(v int, b [2]int, step int) int {
	out := v + s.rng.Intn(2*step+1) - step
	if out < b[0] {
		out = b[0]
	}
	if out > b[1] {
		out = b[1]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// pruner implements successive halving over the fit repeats: a trial survives
// a rung only while its partial score sits in the better half of everything
// reported at that rung so far.
type pruner struct {
	rungs map[int][]float64
}

func newPruner() *pruner {
	return &pruner{rungs: make(map[int][]float64)}
}

func (p *pruner) report(step int, score float64) {
	p.rungs[step] = append(p.rungs[step], score)
}

func (p *pruner) shouldPrune(step int, score float64) bool {
	scores := p.rungs[step]
	if len(scores) < reductionFactor {
		return false
	}
	better := 0
	for _, s := range scores {
		if s < score {
			better++
		}
	}
	return better >= (len(scores)+reductionFactor-1)/reductionFactor
}

// Search runs the bounded hyperparameter search and returns the best-scoring
// params with their validation MSE. Each trial fits up to fitRepeats times
// with early stopping against the test partition and scores validation MSE;
// hopeless trials are pruned between repeats.
func Search(ctx context.Context, p *Partitions, featureNames []string, trials int, logger zerolog.Logger) (model.Params, float64, error) {
	if trials <= 0 {
		trials = defaultTrials
	}

	trainX, trainY := matrix(p.Train, featureNames)
	valX, valY := matrix(p.Validation, featureNames)
	testX, testY := matrix(p.Test, featureNames)

	smp := newSampler(searchSeed)
	prn := newPruner()

	best := model.Params{}
	bestScore := math.Inf(1)

	for trial := 0; trial < trials; trial++ {
		if err := ctx.Err(); err != nil {
			return best, bestScore, err
		}
		params := smp.suggest()
		result := trialResult{params: params, score: math.Inf(1)}

		for step := 0; step < fitRepeats; step++ {
			params.Seed = searchSeed + int64(step)
			m, err := model.Train(params, "", featureNames, trainX, trainY, testX, testY, stoppingRounds)
			if err != nil {
				return best, bestScore, err
			}
			result.score = meanSquaredError(m, valX, valY)

			prn.report(step, result.score)
			if prn.shouldPrune(step, result.score) {
				result.pruned = true
				logger.Debug().Int("trial", trial).Int("step", step).
					Float64("score", result.score).Msg("trial pruned")
				break
			}
		}
		smp.history = append(smp.history, result)

		if !result.pruned && result.score < bestScore {
			bestScore = result.score
			best = result.params
			logger.Info().Int("trial", trial).Float64("val_mse", bestScore).Msg("new best trial")
		}
	}

	if math.IsInf(bestScore, 1) && len(smp.history) > 0 {
		// every trial was pruned; fall back to the least bad one
		for _, t := range smp.history {
			if t.score < bestScore {
				bestScore = t.score
				best = t.params
			}
		}
	}
	return best, bestScore, nil
}

// meanSquaredError scores a model against a validation set. An empty
// validation set scores zero, which keeps short-history devices trainable.
func meanSquaredError(m *model.Model, X [][]float64, y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	sum := 0.0
	for i := range X {
		d := m.Predict(X[i]) - y[i]
		sum += d * d
	}
	return sum / float64(len(y))
}
