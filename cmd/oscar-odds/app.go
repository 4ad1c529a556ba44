package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/oscar-odds/internal/config"
	"github.com/yourusername/oscar-odds/internal/dataset"
	"github.com/yourusername/oscar-odds/internal/features"
	"github.com/yourusername/oscar-odds/internal/logger"
	"github.com/yourusername/oscar-odds/internal/metrics"
	"github.com/yourusername/oscar-odds/internal/ml"
	"github.com/yourusername/oscar-odds/internal/pipeline"
	"github.com/yourusername/oscar-odds/internal/report"
)

func newLoader(c *config.Config, log *logrus.Logger) *dataset.Loader {
	httpCfg := dataset.DefaultHTTPClientConfig()
	if c.Data.TimeoutSeconds > 0 {
		httpCfg.Timeout = c.DataTimeout()
	}
	httpCfg.MaxRetries = c.Data.RetryMax
	return dataset.NewLoader(dataset.NewHTTPClient(httpCfg, c.Data.AuthToken, log), log)
}

func loadInputs(ctx context.Context, c *config.Config, loader *dataset.Loader) (pipeline.Inputs, error) {
	in := pipeline.Inputs{SentimentCategories: c.Data.SentimentCategories}

	var err error
	if in.Base, err = loader.LoadCandidates(ctx, c.Data.Candidates); err != nil {
		return in, err
	}
	if c.Data.Precursors != "" {
		if in.Precursors, err = loader.LoadPrecursors(ctx, c.Data.Precursors); err != nil {
			return in, err
		}
	}
	if c.Data.Sentiment != "" && c.Blend.Sentiment.Enabled {
		if in.Sentiment, err = loader.LoadSentiment(ctx, c.Data.Sentiment); err != nil {
			return in, err
		}
	}
	return in, nil
}

func newScorer(c *config.Config, log *logrus.Logger) (*ml.Scorer, error) {
	if !c.Model.Enabled {
		return nil, nil
	}
	modelLog := logger.NewModelLogger(log)
	model, err := ml.LoadModel(c.Model.Path)
	if err != nil {
		modelLog.LogModelLoadError(c.Model.Path, err)
		return nil, err
	}
	if !slices.Equal(model.FeatureNames, features.NominationNames) {
		err := fmt.Errorf("model at %s was trained on features %v, expected %v", c.Model.Path, model.FeatureNames, features.NominationNames)
		modelLog.LogModelLoadError(c.Model.Path, err)
		return nil, err
	}
	if c.Model.Version != "" && model.Version != c.Model.Version {
		err := fmt.Errorf("model at %s is version %q, configuration expects %q", c.Model.Path, model.Version, c.Model.Version)
		modelLog.LogModelLoadError(c.Model.Path, err)
		return nil, err
	}
	var cache *ml.PredictionCache
	if c.Model.CacheMaxSize > 0 {
		cache = ml.NewPredictionCache(c.ModelCacheTTL(), c.Model.CacheMaxSize)
	}
	modelLog.LogModelLoaded(model.Version, c.Model.Path, len(model.FeatureNames), cache != nil)
	return ml.NewScorer(model, cache, log), nil
}

func pipelineConfig(c *config.Config) (pipeline.Config, error) {
	table, err := c.BoostTable()
	if err != nil {
		return pipeline.Config{}, err
	}
	matcher, err := c.Matcher()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Stages:         c.Pipeline.Stages,
		SentimentStage: c.Pipeline.SentimentStage,
		Workers:        c.Pipeline.Workers,
		Matcher:        matcher,
		BoostTable:     table,
		Sentiment:      c.SentimentBoost(),
	}, nil
}

// runOnce loads inputs, runs every stage into outDir and writes the summary
func runOnce(ctx context.Context, c *config.Config, log *logrus.Logger, scorer *ml.Scorer, outDir string) (*pipeline.Report, error) {
	pcfg, err := pipelineConfig(c)
	if err != nil {
		return nil, err
	}
	in, err := loadInputs(ctx, c, newLoader(c, log))
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	sink := dataset.NewSink(outDir, runID, pcfg.Stages, c.Pipeline.WriteWorkbook)

	var opts []pipeline.Option
	if scorer != nil {
		opts = append(opts, pipeline.WithScorer(scorer))
	}
	rep, err := pipeline.New(pcfg, sink, log, opts...).Run(ctx, runID, in)
	if err != nil {
		return rep, err
	}

	if _, err := sink.Close(); err != nil {
		return rep, err
	}
	if final := rep.Final(); final != nil {
		rows, err := report.Summarize(final.Distributions)
		if err != nil {
			return rep, err
		}
		if err := report.WriteSummaryCSV(rows, filepath.Join(outDir, "summary.csv")); err != nil {
			return rep, err
		}
	}
	if c.Metrics.Enabled && c.Metrics.TextfilePath != "" {
		if err := metrics.WriteTextfile(c.Metrics.TextfilePath); err != nil {
			log.WithError(err).Warn("Failed to write metrics textfile")
		}
	}
	return rep, nil
}
