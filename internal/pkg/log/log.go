// Package log adds logging utilities.
package log

import (
	"strings"
	"time"

	"quiz/internal/pkg/wire"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SetLogger sets the default logger's level.
func SetLogger(level string) {
	logrus.SetLevel(logrus.ErrorLevel)
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	logrus.SetFormatter(customFormatter)
	customFormatter.FullTimestamp = true
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// RequestToFields renders a decoded client request as log fields.
func RequestToFields(id uuid.UUID, req wire.Request) logrus.Fields {
	return logrus.Fields{
		"session": id.String(),
		"kind":    req.Kind.String(),
		"raw":     req.Raw,
	}
}

// ResponseToFields renders a server response as log fields.
func ResponseToFields(id uuid.UUID, resp wire.Response) logrus.Fields {
	return logrus.Fields{
		"session": id.String(),
		"status":  int(resp.Status),
		"label":   resp.Status.String(),
	}
}
