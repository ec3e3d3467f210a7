// Package monitor publishes session lifecycle events to an observer.
//
// The sink is fire-and-forget: the protocol engine never blocks on it and
// tolerates its absence. A monitoring surface (dashboard, admin console)
// can implement Sink to watch live sessions without touching the engine.
package monitor

import (
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Sink receives session notifications. Implementations must not block.
type Sink interface {
	SessionStarted(id string, total int)
	QuestionServed(id string, index, total int)
	ScoreChanged(id string, score int)
	SessionEnded(id string, score int, reason string)
}

// LogSink writes session events to the process logger.
type LogSink struct{}

// SessionStarted logs the start of a session.
func (LogSink) SessionStarted(id string, total int) {
	logger.WithFields(logrus.Fields{
		"session":   id,
		"questions": total,
	}).Info("session started")
}

// QuestionServed logs a question being served.
func (LogSink) QuestionServed(id string, index, total int) {
	logger.WithFields(logrus.Fields{
		"session":  id,
		"progress": index,
		"total":    total,
	}).Debug("question served")
}

// ScoreChanged logs a score change.
func (LogSink) ScoreChanged(id string, score int) {
	logger.WithFields(logrus.Fields{
		"session": id,
		"score":   score,
	}).Debug("score changed")
}

// SessionEnded logs the end of a session.
func (LogSink) SessionEnded(id string, score int, reason string) {
	logger.WithFields(logrus.Fields{
		"session": id,
		"score":   score,
		"reason":  reason,
	}).Info("session ended")
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) SessionStarted(string, int)       {}
func (NopSink) QuestionServed(string, int, int)  {}
func (NopSink) ScoreChanged(string, int)         {}
func (NopSink) SessionEnded(string, int, string) {}
