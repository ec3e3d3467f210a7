package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"quiz/internal/pkg/bank"
	"quiz/internal/pkg/log"
	"quiz/internal/pkg/monitor"
	"quiz/internal/pkg/session"
	"quiz/internal/pkg/wire"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Defaults applied by NewServer when no Cfg overrides them.
const (
	DefaultMaxSessions = 20
	DefaultQuizLength  = 10
	DefaultReadTimeout = 5 * time.Minute
)

// Server accepts quiz connections and runs one session state machine per
// connection, bounded by a fixed number of admission slots.
type Server struct {
	addr        string
	bank        bank.Bank
	quizLength  int
	maxSessions int
	readTimeout time.Duration
	strict      bool
	percent     bool
	sink        monitor.Sink

	ln    net.Listener
	slots chan struct{}
	live  atomic.Int64
	wg    sync.WaitGroup
}

// Cfg configures a Server.
type Cfg func(*Server) error

// WithPort sets the TCP port to listen on.
func WithPort(p uint16) Cfg {
	return func(s *Server) error {
		s.addr = fmt.Sprintf(":%d", p)
		return nil
	}
}

// WithAddr sets the full listen address, e.g. "127.0.0.1:0".
func WithAddr(addr string) Cfg {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithBank sets the shared question bank.
func WithBank(b bank.Bank) Cfg {
	return func(s *Server) error {
		s.bank = b
		return nil
	}
}

// WithQuizLength sets the number of questions sampled per session.
func WithQuizLength(n int) Cfg {
	return func(s *Server) error {
		if n < 0 {
			return errors.Errorf("quiz length must not be negative, got %d", n)
		}
		s.quizLength = n
		return nil
	}
}

// WithMaxSessions sets the admission pool capacity.
func WithMaxSessions(n int) Cfg {
	return func(s *Server) error {
		if n < 1 {
			return errors.Errorf("max sessions must be positive, got %d", n)
		}
		s.maxSessions = n
		return nil
	}
}

// WithReadTimeout sets the per-connection idle read deadline.
// Zero disables the deadline.
func WithReadTimeout(d time.Duration) Cfg {
	return func(s *Server) error {
		s.readTimeout = d
		return nil
	}
}

// WithSink sets the observability sink passed to each session.
func WithSink(sink monitor.Sink) Cfg {
	return func(s *Server) error {
		s.sink = sink
		return nil
	}
}

// WithStrictProtocol closes a connection after responding to a protocol
// violation instead of keeping the session alive.
func WithStrictProtocol(on bool) Cfg {
	return func(s *Server) error {
		s.strict = on
		return nil
	}
}

// WithPercentScoring reports final scores as percentages.
func WithPercentScoring(on bool) Cfg {
	return func(s *Server) error {
		s.percent = on
		return nil
	}
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfgs ...Cfg) (*Server, error) {
	srv := &Server{
		quizLength:  DefaultQuizLength,
		maxSessions: DefaultMaxSessions,
		readTimeout: DefaultReadTimeout,
	}
	for _, cfg := range cfgs {
		if err := cfg(srv); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	if srv.sink == nil {
		srv.sink = monitor.NopSink{}
	}
	srv.slots = make(chan struct{}, srv.maxSessions)
	return srv, nil
}

// Listen binds the server's TCP listener.
func (s *Server) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s failed", s.addr)
	}
	s.ln = ln
	logger.WithField("addr", ln.Addr().String()).Info("quiz server listening")
	return nil
}

// Addr returns the bound listener address. It is nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Live returns the number of currently connected sessions.
func (s *Server) Live() int {
	return int(s.live.Load())
}

// Serve accepts connections until ctx is cancelled. Each admitted
// connection runs on its own goroutine; saturated admission refuses the
// connection immediately without blocking the accept loop.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return errors.Wrap(err, "accept connection failed")
			}
		}
		select {
		case s.slots <- struct{}{}:
		default:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.refuse(conn)
			}()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.slots }()
			s.serveConn(conn)
		}()
	}
}

// Run binds the listener and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return errors.Wrap(err, "listen failed")
	}
	return errors.Wrap(s.Serve(ctx), "serve failed")
}

// refuse writes the standardized refusal line and closes the connection.
// No session is created for a refused connection.
func (s *Server) refuse(conn net.Conn) {
	defer conn.Close()
	if _, err := fmt.Fprintf(conn, "%s\n", wire.Response{Status: wire.StatusUnavailable}.Encode()); err != nil {
		logger.WithError(err).Warn("write refusal failed")
		return
	}
	// Drain anything the client already sent before closing, so the
	// refusal line is not clobbered by a connection reset.
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
		tc.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		io.Copy(io.Discard, tc) // nolint: errcheck // the conn is being discarded
	}
	logger.WithField("remote", conn.RemoteAddr().String()).Warn("connection refused, admission pool saturated")
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	sess, err := session.NewSession(
		session.WithBank(s.bank),
		session.WithQuizLength(s.quizLength),
		session.WithPercentScoring(s.percent),
		session.WithSink(s.sink),
	)
	if err != nil {
		logger.WithError(err).Error("create session failed")
		return
	}
	connLogger := logger.WithFields(logrus.Fields{
		"session": sess.ID().String(),
		"remote":  conn.RemoteAddr().String(),
	})
	connLogger.WithField("live", s.live.Add(1)).Info("connection admitted")
	defer func() {
		sess.Abort("disconnected")
		connLogger.WithField("live", s.live.Add(-1)).Info("connection closed")
	}()

	scanner := bufio.NewScanner(conn)
	for {
		if s.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
				connLogger.WithError(err).Warn("set read deadline failed")
				return
			}
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				connLogger.WithError(err).Warn("session read failed")
			}
			return
		}
		req := wire.ParseRequest(strings.TrimRight(scanner.Text(), "\r"))
		connLogger.WithFields(log.RequestToFields(sess.ID(), req)).Debug("received request")
		violated := false
		for _, resp := range sess.Handle(req) {
			if _, err := fmt.Fprintf(conn, "%s\n", resp.Encode()); err != nil {
				connLogger.WithError(err).Warn("write response failed")
				return
			}
			connLogger.WithFields(log.ResponseToFields(sess.ID(), resp)).Debug("sent response")
			if resp.Status == wire.StatusProtocolErr {
				violated = true
			}
		}
		if sess.State() == session.StateComplete {
			return
		}
		if s.strict && violated {
			connLogger.Warn("closing connection on protocol violation")
			return
		}
	}
}
