package apps

import (
	"context"
	"time"

	"quiz/internal"
	"quiz/internal/pkg/bank"
	"quiz/internal/pkg/monitor"
	"quiz/internal/pkg/server"
	"quiz/internal/pkg/validate"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// ServerAppCfg configures a ServerApp.
type ServerAppCfg interface {
	ApplyServerApp(*ServerApp) error
}

// ServerApp is the quiz server application.
type ServerApp struct {
	Port        uint16
	BankPath    string `validate:"required"`
	QuizLength  int    `validate:"gte=0"`
	MaxSessions int    `validate:"required,gte=1"`
}

// NewServerApp creates a new ServerApp.
func NewServerApp(cfgs ...ServerAppCfg) (*ServerApp, error) {
	app := &ServerApp{}
	for _, cfg := range cfgs {
		if err := cfg.ApplyServerApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ServerApp cfg failed")
		}
	}
	if app.BankPath == "" {
		app.BankPath = internal.BankPath
	}
	if app.QuizLength == 0 {
		app.QuizLength = int(internal.QuizLength)
	}
	if app.QuizLength == 0 {
		app.QuizLength = server.DefaultQuizLength
	}
	if app.MaxSessions == 0 {
		app.MaxSessions = int(internal.MaxSessions)
	}
	if app.MaxSessions == 0 {
		app.MaxSessions = server.DefaultMaxSessions
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ServerApp failed")
	}
	return app, nil
}

// Run loads the question bank and serves quiz sessions until ctx is
// cancelled. A bank that fails to load degrades to an empty bank rather
// than failing the server.
func (app *ServerApp) Run(ctx context.Context, args []string) error {
	b, err := bank.Load(app.BankPath)
	if err != nil {
		logger.WithError(err).Warn("load question bank failed, serving an empty bank")
		b = bank.Bank{}
	}
	logger.WithField("questions", len(b)).Info("question bank loaded")
	srv, err := server.NewServer(
		server.WithPort(app.Port),
		server.WithBank(b),
		server.WithQuizLength(app.QuizLength),
		server.WithMaxSessions(app.MaxSessions),
		server.WithReadTimeout(time.Duration(internal.ReadTimeoutMS)*time.Millisecond),
		server.WithStrictProtocol(internal.StrictProto),
		server.WithPercentScoring(internal.ScorePercent),
		server.WithSink(monitor.LogSink{}),
	)
	if err != nil {
		return errors.Wrap(err, "create server failed")
	}
	return errors.Wrap(srv.Run(ctx), "run server failed")
}
