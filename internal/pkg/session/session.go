// Package session implements the per-connection quiz state machine.
//
// A session owns the question plan sampled for it, the cursor into that
// plan and the running score. Nothing is shared between sessions: the
// state machine advances only in response to decoded requests from its
// own connection. The cursor advances on answer submission, never on a
// question request, so a client may re-request the current question and
// always sees the same prompt and progress pair.
package session

import (
	"math/rand"
	"strings"
	"time"

	"quiz/internal/pkg/bank"
	"quiz/internal/pkg/monitor"
	"quiz/internal/pkg/wire"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// State identifies a position in the session lifecycle.
type State int

// Session states. StateComplete is terminal.
const (
	StateAwaitingConnect State = iota
	StateActive
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateAwaitingConnect:
		return "awaiting_connect"
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	}
	return "invalid"
}

// Session is one client connection's quiz attempt.
type Session struct {
	id      uuid.UUID
	bank    bank.Bank
	length  int
	percent bool
	sink    monitor.Sink
	rnd     *rand.Rand

	plan    bank.Plan
	cursor  int
	score   int
	state   State
	pending bool // a question has been served and not yet answered
}

// Cfg configures a Session.
type Cfg func(*Session) error

// WithBank sets the question bank to sample from.
func WithBank(b bank.Bank) Cfg {
	return func(s *Session) error {
		s.bank = b
		return nil
	}
}

// WithQuizLength sets the number of questions to sample for the session.
func WithQuizLength(n int) Cfg {
	return func(s *Session) error {
		if n < 0 {
			return errors.Errorf("quiz length must not be negative, got %d", n)
		}
		s.length = n
		return nil
	}
}

// WithPercentScoring reports the final score as a round-half-up
// percentage of correct answers instead of a raw count.
func WithPercentScoring(on bool) Cfg {
	return func(s *Session) error {
		s.percent = on
		return nil
	}
}

// WithSink sets the observability sink for session events.
func WithSink(sink monitor.Sink) Cfg {
	return func(s *Session) error {
		s.sink = sink
		return nil
	}
}

// WithRand sets the random source used to sample the plan.
func WithRand(r *rand.Rand) Cfg {
	return func(s *Session) error {
		s.rnd = r
		return nil
	}
}

// NewSession creates a new Session with the given configuration.
func NewSession(cfgs ...Cfg) (*Session, error) {
	sess := &Session{
		state: StateAwaitingConnect,
	}
	for _, cfg := range cfgs {
		if err := cfg(sess); err != nil {
			return nil, errors.Wrap(err, "apply Session cfg failed")
		}
	}
	sess.id = uuid.New()
	if sess.sink == nil {
		sess.sink = monitor.NopSink{}
	}
	if sess.rnd == nil {
		sess.rnd = rand.New(rand.NewSource(time.Now().UnixNano())) // nolint: gosec // sampling needs no crypto randomness
	}
	return sess, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Score returns the number of correctly answered questions so far.
func (s *Session) Score() int {
	return s.score
}

// Progress returns the cursor position and the plan length.
func (s *Session) Progress() (int, int) {
	return s.cursor, len(s.plan)
}

// Handle applies one decoded client request to the state machine and
// returns the responses to write, in order. Handle never fails: protocol
// violations and malformed input yield a protocol-error response and
// leave the session state unchanged.
func (s *Session) Handle(req wire.Request) []wire.Response {
	switch s.state {
	case StateAwaitingConnect:
		return s.handleAwaitingConnect(req)
	case StateActive:
		return s.handleActive(req)
	default:
		// The server closes the connection on completion, but a late
		// question request still answers with the final score rather
		// than an index error.
		if req.Kind == wire.RequestQuiz {
			return []wire.Response{{Status: wire.StatusFinalScore, Score: s.finalScore()}}
		}
		return []wire.Response{protocolErr("session already complete")}
	}
}

func (s *Session) handleAwaitingConnect(req wire.Request) []wire.Response {
	if req.Kind != wire.RequestConnect {
		return []wire.Response{protocolErr("connect required")}
	}
	s.plan = s.bank.Sample(s.length, s.rnd)
	s.cursor = 0
	s.score = 0
	s.state = StateActive
	s.sink.SessionStarted(s.id.String(), len(s.plan))
	return []wire.Response{{Status: wire.StatusConnected, Total: len(s.plan)}}
}

func (s *Session) handleActive(req wire.Request) []wire.Response {
	switch req.Kind {
	case wire.RequestConnect:
		return []wire.Response{protocolErr("already connected")}
	case wire.RequestQuiz:
		if s.cursor >= len(s.plan) {
			return []wire.Response{s.finish()}
		}
		s.pending = true
		s.sink.QuestionServed(s.id.String(), s.cursor+1, len(s.plan))
		return []wire.Response{{
			Status: wire.StatusQuestion,
			Prompt: s.plan[s.cursor].Prompt,
			Index:  s.cursor + 1,
			Count:  len(s.plan),
		}}
	case wire.RequestAnswer:
		if !s.pending {
			return []wire.Response{protocolErr("no question outstanding")}
		}
		verdict := wire.Response{Status: wire.StatusIncorrect}
		if grade(req.Answer, s.plan[s.cursor].Answer) {
			s.score++
			verdict.Status = wire.StatusCorrect
			s.sink.ScoreChanged(s.id.String(), s.score)
		}
		s.pending = false
		s.cursor++
		if s.cursor == len(s.plan) {
			return []wire.Response{verdict, s.finish()}
		}
		return []wire.Response{verdict}
	}
	return []wire.Response{protocolErr("unrecognized request")}
}

// finish emits the final-score response and moves to StateComplete.
func (s *Session) finish() wire.Response {
	s.state = StateComplete
	s.sink.SessionEnded(s.id.String(), s.score, "completed")
	return wire.Response{Status: wire.StatusFinalScore, Score: s.finalScore()}
}

// Abort records an abnormal end of the session. It is a no-op once the
// session has completed normally.
func (s *Session) Abort(reason string) {
	if s.state == StateComplete {
		return
	}
	s.state = StateComplete
	s.sink.SessionEnded(s.id.String(), s.score, reason)
}

func (s *Session) finalScore() int {
	if !s.percent {
		return s.score
	}
	return percentOf(s.score, len(s.plan))
}

// percentOf computes round-half-up(100 * correct / total).
func percentOf(correct, total int) int {
	if total == 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}

// grade compares a submitted answer to the canonical one, ignoring case
// and surrounding whitespace.
func grade(submitted, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(canonical))
}

func protocolErr(reason string) wire.Response {
	return wire.Response{Status: wire.StatusProtocolErr, Reason: reason}
}
