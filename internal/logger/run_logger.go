package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RunLogger records the lifecycle of a pipeline run.
type RunLogger struct {
	*logrus.Entry
}

// NewRunLogger creates a new run logger.
func NewRunLogger(baseLogger *logrus.Logger, runID string) *RunLogger {
	return &RunLogger{
		Entry: baseLogger.WithFields(logrus.Fields{
			"component": "pipeline",
			"run_id":    runID,
		}),
	}
}

// LogRunStarted logs the base snapshot a run starts from.
func (rl *RunLogger) LogRunStarted(snapshotDigest string, categories int, stages []string) {
	rl.WithFields(logrus.Fields{
		"snapshot":   snapshotDigest,
		"categories": categories,
		"stages":     stages,
	}).Info("Pipeline run started")
}

// LogStageCompleted logs a completed stage.
func (rl *RunLogger) LogStageCompleted(stage string, blended, skipped int, duration time.Duration) {
	rl.WithFields(logrus.Fields{
		"stage":       stage,
		"blended":     blended,
		"skipped":     skipped,
		"duration_ms": duration.Milliseconds(),
	}).Info("Stage completed")
}

// LogArtifactWritten logs an output file.
func (rl *RunLogger) LogArtifactWritten(stage, path string, rows int) {
	rl.WithFields(logrus.Fields{
		"stage": stage,
		"path":  path,
		"rows":  rows,
	}).Debug("Artifact written")
}

// LogStagesIgnored warns about precursor stages no configured stage consumes.
func (rl *RunLogger) LogStagesIgnored(stages []string) {
	rl.WithField("stages", stages).Warn("Precursor results belong to stages that are not configured")
}

// LogRunFinished logs the end of a run.
func (rl *RunLogger) LogRunFinished(duration time.Duration, err error) {
	entry := rl.WithField("duration_ms", duration.Milliseconds())
	if err != nil {
		entry.WithError(err).Error("Pipeline run failed")
		return
	}
	entry.Info("Pipeline run finished")
}
