package logger

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/oscar-odds/internal/models"
)

// BlendLogger provides dedicated logging for signal attachment and blending.
// It implements blend.EventSink.
type BlendLogger struct {
	*logrus.Entry
}

// NewBlendLogger creates a new blend logger.
func NewBlendLogger(baseLogger *logrus.Logger) *BlendLogger {
	return &BlendLogger{
		Entry: baseLogger.WithField("component", "blend"),
	}
}

// UnmatchedSignal logs a precursor result with no nominee in the category.
// This is common: a Golden Globe winner may not be Oscar nominated at all.
func (bl *BlendLogger) UnmatchedSignal(categoryID, target string, signal models.PrecursorSignal) {
	bl.WithFields(logrus.Fields{
		"event":    "unmatched_signal",
		"category": categoryID,
		"target":   target,
		"signal":   signal.SignalName,
		"tier":     string(signal.Tier),
	}).Info("Precursor signal matched no candidate")
}

// AmbiguousMatch logs a substring match that hit several candidates.
func (bl *BlendLogger) AmbiguousMatch(categoryID, target string, signal models.PrecursorSignal, matched []string) {
	bl.WithFields(logrus.Fields{
		"event":    "ambiguous_match",
		"category": categoryID,
		"target":   target,
		"signal":   signal.SignalName,
		"matched":  strings.Join(matched, ","),
	}).Warn("Precursor signal matched several candidates; boosting all")
}

// LogSignalAttached logs a signal landing on candidates.
func (bl *BlendLogger) LogSignalAttached(categoryID, stage string, signal models.PrecursorSignal, matched []string) {
	bl.WithFields(logrus.Fields{
		"event":    "signal_attached",
		"category": categoryID,
		"stage":    stage,
		"signal":   signal.SignalName,
		"tier":     string(signal.Tier),
		"won":      signal.Won,
		"matched":  strings.Join(matched, ","),
	}).Debug("Precursor signal attached")
}

// LogDistribution logs the leader of a blended category and how many
// precursor signals the category has accumulated.
func (bl *BlendLogger) LogDistribution(stage string, dist *models.CategoryDistribution, signals int) {
	top := dist.Top()
	if top == nil {
		return
	}
	bl.WithFields(logrus.Fields{
		"event":       "category_blended",
		"stage":       stage,
		"category":    dist.CategoryID,
		"candidates":  len(dist.Entries),
		"signals":     signals,
		"leader":      top.Candidate.Nominee.DisplayName(),
		"probability": top.FinalProbability,
		"boosts":      strings.Join(top.AppliedBoosts, ","),
	}).Info("Category blended")
}

// LogCategorySkipped logs a category dropped for invalid input.
func (bl *BlendLogger) LogCategorySkipped(stage, categoryID string, err error) {
	bl.WithFields(logrus.Fields{
		"event":    "category_skipped",
		"stage":    stage,
		"category": categoryID,
	}).WithError(err).Warn("Category skipped")
}
