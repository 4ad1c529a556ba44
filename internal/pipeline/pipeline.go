// Package pipeline runs the ordered precursor stages over an immutable base
// snapshot and hands every stage's distributions to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/dataset"
	"github.com/yourusername/oscar-odds/internal/logger"
	"github.com/yourusername/oscar-odds/internal/metrics"
	"github.com/yourusername/oscar-odds/internal/ml"
	"github.com/yourusername/oscar-odds/internal/models"
)

// Config controls stage ordering and blending
type Config struct {
	Stages []string
	// SentimentStage enables the sentiment pass from this stage onward.
	// Empty applies it to every stage.
	SentimentStage string
	Workers        int
	Matcher        blend.Matcher
	BoostTable     blend.BoostTable
	// Sentiment is nil when the sentiment pass is disabled
	Sentiment *blend.SentimentBoost
}

// Inputs are the tables one run consumes
type Inputs struct {
	Base       *dataset.Snapshot
	Precursors *dataset.PrecursorTable
	Sentiment  []dataset.SentimentScore
	// SentimentCategories maps award categories to sentiment table categories
	SentimentCategories map[string]string
}

// Sink receives the base snapshot and stage outputs
type Sink interface {
	WriteBase(snap *dataset.Snapshot) (string, error)
	WriteStage(stage string, dist *models.CategoryDistribution) (string, error)
	Skip(stage, categoryID string)
}

// StageResult holds one stage's distributions in base category order
type StageResult struct {
	Stage         string
	Distributions []*models.CategoryDistribution
	Skipped       map[string]error
	Duration      time.Duration
}

// Report summarizes a run
type Report struct {
	RunID      uuid.UUID
	BaseSHA256 string
	Stages     []StageResult
	// IgnoredStages lists precursor table stages absent from the configured stages
	IgnoredStages []string
	Duration      time.Duration
}

// Final returns the last stage's result, or nil when no stage ran
func (r *Report) Final() *StageResult {
	if r == nil || len(r.Stages) == 0 {
		return nil
	}
	return &r.Stages[len(r.Stages)-1]
}

// Orchestrator runs the stage pipeline
type Orchestrator struct {
	cfg    Config
	sink   Sink
	scorer *ml.Scorer
	base   *logrus.Logger
	blog   *logger.BlendLogger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithScorer fills missing base probabilities from a trained model before any stage runs
func WithScorer(s *ml.Scorer) Option {
	return func(o *Orchestrator) {
		o.scorer = s
	}
}

// New creates an orchestrator
func New(cfg Config, sink Sink, log *logrus.Logger, opts ...Option) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BoostTable == nil {
		cfg.BoostTable = blend.DefaultBoostTable()
	}
	o := &Orchestrator{
		cfg:  cfg,
		sink: sink,
		base: log,
		blog: logger.NewBlendLogger(log),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// categoryState is owned by exactly one goroutine per stage
type categoryState struct {
	id         string
	candidates []models.Candidate
	signals    blend.SignalSet
}

// Run executes every stage. Stage k blends the base snapshot with the
// signals of stages 1..k. A category with invalid input is skipped; any
// other error aborts the run.
func (o *Orchestrator) Run(ctx context.Context, runID uuid.UUID, in Inputs) (report *Report, err error) {
	start := time.Now()
	runLog := logger.NewRunLogger(o.base, runID.String())
	defer func() {
		d := time.Since(start)
		metrics.RecordPipelineRun(d.Seconds(), err)
		runLog.LogRunFinished(d, err)
	}()

	if in.Base == nil {
		return nil, fmt.Errorf("%w: no base snapshot", models.ErrInvalidInput)
	}

	base, err := o.prepareBase(in)
	if err != nil {
		return nil, err
	}
	if _, err := o.sink.WriteBase(base); err != nil {
		return nil, fmt.Errorf("failed to write base snapshot: %w", err)
	}
	hash, err := base.Hash()
	if err != nil {
		return nil, err
	}

	report = &Report{RunID: runID, BaseSHA256: hash}
	runLog.LogRunStarted(hash, len(base.Categories()), o.cfg.Stages)
	if in.Precursors != nil {
		for _, stage := range in.Precursors.Stages() {
			if !slices.Contains(o.cfg.Stages, stage) {
				report.IgnoredStages = append(report.IgnoredStages, stage)
			}
		}
		if len(report.IgnoredStages) > 0 {
			runLog.LogStagesIgnored(report.IgnoredStages)
		}
	}

	states := make([]*categoryState, 0, len(base.Categories()))
	known := make(map[string]bool)
	for _, id := range base.Categories() {
		states = append(states, &categoryState{id: id, candidates: base.Candidates(id), signals: blend.SignalSet{}})
		known[id] = true
	}

	events := blend.MultiEventSink{o.blog, metrics.EventSink{}}
	for k, stage := range o.cfg.Stages {
		results := o.stageResults(in.Precursors, stage, known, events)
		blender := blend.NewBlender(o.blenderOptions(k, runID, events)...)

		stageStart := time.Now()
		res, err := o.runStage(ctx, runLog, stage, blender, states, results)
		if err != nil {
			return report, fmt.Errorf("stage %s: %w", stage, err)
		}
		res.Duration = time.Since(stageStart)
		report.Stages = append(report.Stages, *res)
		runLog.LogStageCompleted(stage, len(res.Distributions), len(res.Skipped), res.Duration)
	}

	report.Duration = time.Since(start)
	return report, nil
}

func (o *Orchestrator) prepareBase(in Inputs) (*dataset.Snapshot, error) {
	base := in.Base
	if len(in.Sentiment) > 0 {
		var unmatched []dataset.SentimentScore
		base, unmatched = dataset.ApplySentiment(base, in.Sentiment, in.SentimentCategories)
		for _, s := range unmatched {
			o.blog.WithFields(logrus.Fields{
				"event":    "unmatched_sentiment",
				"category": s.Category,
				"target":   s.Target,
			}).Debug("Sentiment score matched no candidate")
		}
	}

	if o.scorer == nil {
		return base, nil
	}
	for _, id := range base.Categories() {
		filled, err := o.scorer.FillBaseProbabilities(base.Candidates(id))
		if err != nil {
			return nil, fmt.Errorf("failed to score category %s: %w", id, err)
		}
		base = base.WithCategory(id, filled)
	}
	return base, nil
}

// stageResults groups a stage's precursor results by category. Results
// for categories absent from the base are unmatched events.
func (o *Orchestrator) stageResults(table *dataset.PrecursorTable, stage string, known map[string]bool, events blend.EventSink) map[string][]dataset.PrecursorResult {
	out := make(map[string][]dataset.PrecursorResult)
	if table == nil {
		return out
	}
	for _, r := range table.ForStage(stage) {
		if !known[r.Category] {
			signal, _ := r.PrecursorSignal()
			events.UnmatchedSignal(r.Category, r.Winner, signal)
			continue
		}
		out[r.Category] = append(out[r.Category], r)
	}
	return out
}

func (o *Orchestrator) blenderOptions(stageIndex int, runID uuid.UUID, events blend.EventSink) []blend.Option {
	opts := []blend.Option{
		blend.WithBoostTable(o.cfg.BoostTable),
		blend.WithEventSink(events),
		blend.WithRunID(runID),
	}
	if o.cfg.Sentiment != nil && o.sentimentActive(stageIndex) {
		opts = append(opts, blend.WithSentiment(*o.cfg.Sentiment))
	}
	return opts
}

func (o *Orchestrator) sentimentActive(stageIndex int) bool {
	if o.cfg.SentimentStage == "" {
		return true
	}
	from := slices.Index(o.cfg.Stages, o.cfg.SentimentStage)
	return from >= 0 && stageIndex >= from
}

func (o *Orchestrator) runStage(ctx context.Context, runLog *logger.RunLogger, stage string, blender *blend.Blender, states []*categoryState, results map[string][]dataset.PrecursorResult) (*StageResult, error) {
	dists := make([]*models.CategoryDistribution, len(states))
	skipped := make([]error, len(states))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i, st := range states {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dist, err := o.blendCategory(runLog, stage, blender, st, results[st.id])
			if errors.Is(err, models.ErrInvalidInput) {
				skipped[i] = err
				o.sink.Skip(stage, st.id)
				metrics.RecordCategorySkipped(stage)
				o.blog.LogCategorySkipped(stage, st.id, err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("category %s: %w", st.id, err)
			}
			dists[i] = dist
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &StageResult{Stage: stage, Skipped: make(map[string]error)}
	for i, st := range states {
		if skipped[i] != nil {
			res.Skipped[st.id] = skipped[i]
			continue
		}
		res.Distributions = append(res.Distributions, dists[i])
	}
	return res, nil
}

func (o *Orchestrator) blendCategory(runLog *logger.RunLogger, stage string, blender *blend.Blender, st *categoryState, results []dataset.PrecursorResult) (*models.CategoryDistribution, error) {
	for _, r := range results {
		signal, err := r.PrecursorSignal()
		if err != nil {
			return nil, err
		}
		signals, attached, err := blender.AttachSignal(st.signals, st.candidates, o.cfg.Matcher, r.Winner, signal)
		if err != nil {
			return nil, err
		}
		st.signals = signals
		if !attached.Unmatched() {
			metrics.RecordSignalAttached(signal.Tier)
			o.blog.LogSignalAttached(st.id, stage, signal, attached.Matched)
		}
	}

	dist, err := blender.Blend(st.candidates, st.signals)
	if err != nil {
		return nil, err
	}

	path, err := o.sink.WriteStage(stage, dist)
	if err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	metrics.RecordCategoryBlended(stage, dist.CategoryID, dist.Top().FinalProbability)
	o.blog.LogDistribution(stage, dist, st.signals.Count())
	runLog.LogArtifactWritten(stage, path, len(dist.Entries))
	return dist, nil
}

// CollectSignals attaches the precursor results of stages, in order, to the
// base candidates and returns each category's signal set.
func CollectSignals(base *dataset.Snapshot, table *dataset.PrecursorTable, stages []string, matcher blend.Matcher, blender *blend.Blender) (map[string]blend.SignalSet, error) {
	out := make(map[string]blend.SignalSet, len(base.Categories()))
	for _, id := range base.Categories() {
		out[id] = blend.SignalSet{}
	}
	if table == nil {
		return out, nil
	}

	for _, stage := range stages {
		for _, r := range table.ForStage(stage) {
			signals, ok := out[r.Category]
			if !ok {
				continue
			}
			signal, err := r.PrecursorSignal()
			if err != nil {
				return nil, err
			}
			signals, _, err = blender.AttachSignal(signals, base.Candidates(r.Category), matcher, r.Winner, signal)
			if err != nil {
				return nil, fmt.Errorf("stage %s category %s: %w", stage, r.Category, err)
			}
			out[r.Category] = signals
		}
	}
	return out, nil
}
