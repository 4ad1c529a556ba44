package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ModelLogger provides dedicated logging for the base probability model.
type ModelLogger struct {
	*logrus.Entry
}

// NewModelLogger creates a new model logger.
func NewModelLogger(baseLogger *logrus.Logger) *ModelLogger {
	return &ModelLogger{
		Entry: baseLogger.WithField("component", "ml"),
	}
}

// LogModelTrained logs a completed training run.
func (m *ModelLogger) LogModelTrained(version string, categories, samples int, duration time.Duration, hyperparameters map[string]interface{}) {
	m.WithFields(logrus.Fields{
		"model_version":   version,
		"categories":      categories,
		"samples":         samples,
		"duration_ms":     duration.Milliseconds(),
		"hyperparameters": hyperparameters,
	}).Info("Model training completed")
}

// LogModelSaved logs where a model was written.
func (m *ModelLogger) LogModelSaved(version, path string) {
	m.WithFields(logrus.Fields{
		"model_version": version,
		"path":          path,
	}).Info("Model saved")
}

// LogModelLoaded logs a model picked up for scoring.
func (m *ModelLogger) LogModelLoaded(version, path string, features int, cacheEnabled bool) {
	m.WithFields(logrus.Fields{
		"model_version": version,
		"path":          path,
		"features":      features,
		"cache_enabled": cacheEnabled,
	}).Info("Model loaded")
}

// LogModelLoadError logs a model that could not be used.
func (m *ModelLogger) LogModelLoadError(path string, err error) {
	m.WithFields(logrus.Fields{
		"path":  path,
		"error": err.Error(),
	}).Error("Model load failed")
}

// LogModelEvaluated logs held-out performance of a freshly trained model.
func (m *ModelLogger) LogModelEvaluated(version string, years []int, categories int, accuracy, auc, winnerHitRate, blendedHitRate float64) {
	m.WithFields(logrus.Fields{
		"model_version":    version,
		"holdout_years":    years,
		"categories":       categories,
		"accuracy":         accuracy,
		"roc_auc":          auc,
		"winner_hit_rate":  winnerHitRate,
		"blended_hit_rate": blendedHitRate,
	}).Info("Model evaluated on held-out ceremonies")
}
