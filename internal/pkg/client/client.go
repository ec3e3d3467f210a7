package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"quiz/internal/pkg/wire"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Client implements the client behaviour of the quiz protocol.
type Client struct {
	serverAddr string
	uuid       uuid.UUID
	answers    io.Reader
	out        io.Writer

	conn  net.Conn
	lines *bufio.Scanner

	total int
	index int // 1-based index of the question last served
	done  bool
	final *int
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithServerPort sets the server port to connect to on localhost.
func WithServerPort(p uint16) Cfg {
	return func(c *Client) error {
		c.serverAddr = fmt.Sprintf("localhost:%d", p)
		return nil
	}
}

// WithServerAddr sets the full server address to connect to.
func WithServerAddr(addr string) Cfg {
	return func(c *Client) error {
		c.serverAddr = addr
		return nil
	}
}

// WithAnswerSource sets the reader answers are taken from during Run.
func WithAnswerSource(r io.Reader) Cfg {
	return func(c *Client) error {
		c.answers = r
		return nil
	}
}

// WithOutput sets the writer the interactive transcript is printed to.
func WithOutput(w io.Writer) Cfg {
	return func(c *Client) error {
		c.out = w
		return nil
	}
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfgs ...Cfg) (*Client, error) {
	client := &Client{}
	for _, cfg := range cfgs {
		if err := cfg(client); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}
	client.uuid = uuid.New()
	if client.answers == nil {
		client.answers = os.Stdin
	}
	if client.out == nil {
		client.out = os.Stdout
	}
	return client, nil
}

// Connect establishes the connection to the server.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return errors.Wrap(err, "close client connection failed")
		}
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.serverAddr)
	if err != nil {
		return errors.Wrapf(err, "connect to %s failed", c.serverAddr)
	}
	c.conn = conn
	c.lines = bufio.NewScanner(conn)
	return nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return errors.Wrap(c.conn.Close(), "close client connection failed")
}

// roundTrip writes one request line and reads one response line.
func (c *Client) roundTrip(req wire.Request) (wire.Response, error) {
	if c.conn == nil {
		return wire.Response{}, ErrNotConnected
	}
	if _, werr := fmt.Fprintf(c.conn, "%s\n", req.Encode()); werr != nil {
		// A refused connection may already hold a buffered
		// Service_Unavailable line that explains the write failure.
		resp, rerr := c.readResponse()
		if rerr == nil || errors.Is(rerr, ErrServerBusy) {
			return resp, rerr
		}
		return wire.Response{}, errors.Wrap(werr, "write request failed")
	}
	return c.readResponse()
}

func (c *Client) readResponse() (wire.Response, error) {
	if !c.lines.Scan() {
		if err := c.lines.Err(); err != nil {
			return wire.Response{}, errors.Wrap(err, "read response failed")
		}
		return wire.Response{}, errors.Wrap(io.EOF, "read response failed")
	}
	line := strings.TrimRight(c.lines.Text(), "\r")
	resp, err := wire.ParseResponse(line)
	if err != nil {
		return wire.Response{}, errors.Wrapf(err, "parse response %q failed", line)
	}
	if resp.Status == wire.StatusUnavailable {
		return resp, ErrServerBusy
	}
	return resp, nil
}

// Start performs the connect handshake and returns the number of
// questions the server sampled for this session.
func (c *Client) Start() (int, error) {
	resp, err := c.roundTrip(wire.Request{Kind: wire.RequestConnect})
	if err != nil {
		return 0, errors.Wrap(err, "connect handshake failed")
	}
	if resp.Status != wire.StatusConnected {
		return 0, errors.Errorf("unexpected handshake response: %s", resp.Encode())
	}
	c.total = resp.Total
	return resp.Total, nil
}

// RequestQuestion asks for the current question. The response is either
// the question (Status Quiz_Content) or, once the plan is exhausted, the
// final score (Status Final_Score).
func (c *Client) RequestQuestion() (wire.Response, error) {
	resp, err := c.roundTrip(wire.Request{Kind: wire.RequestQuiz})
	if err != nil {
		return wire.Response{}, errors.Wrap(err, "request question failed")
	}
	switch resp.Status {
	case wire.StatusQuestion:
		c.index = resp.Index
	case wire.StatusFinalScore:
		c.finish(resp.Score)
	}
	return resp, nil
}

// SubmitAnswer submits an answer for the current question and returns
// the verdict. When the answer closes out the quiz the server follows
// the verdict with the final-score line, returned as final.
func (c *Client) SubmitAnswer(answer string) (verdict wire.Response, final *wire.Response, err error) {
	verdict, err = c.roundTrip(wire.Request{Kind: wire.RequestAnswer, Answer: answer})
	if err != nil {
		return wire.Response{}, nil, errors.Wrap(err, "submit answer failed")
	}
	graded := verdict.Status == wire.StatusCorrect || verdict.Status == wire.StatusIncorrect
	if !graded || c.index < c.total {
		return verdict, nil, nil
	}
	resp, err := c.readResponse()
	if err != nil {
		return wire.Response{}, nil, errors.Wrap(err, "read final score failed")
	}
	if resp.Status != wire.StatusFinalScore {
		return wire.Response{}, nil, errors.Errorf("expected final score, got %s", resp.Encode())
	}
	c.finish(resp.Score)
	return verdict, &resp, nil
}

func (c *Client) finish(score int) {
	c.done = true
	c.final = &score
}

// Done reports whether the session reached its final score.
func (c *Client) Done() bool {
	return c.done
}

// FinalScore returns the score reported by the server, once done.
func (c *Client) FinalScore() (int, bool) {
	if c.final == nil {
		return 0, false
	}
	return *c.final, true
}

// Run plays a full quiz interactively: questions are printed to the
// output writer, answers read line by line from the answer source, and
// server verdict lines surfaced verbatim.
func (c *Client) Run(ctx context.Context) error {
	total, err := c.Start()
	if err != nil {
		return errors.Wrap(err, "start quiz failed")
	}
	fmt.Fprintf(c.out, "connected: %d question(s)\n", total)
	answers := bufio.NewScanner(c.answers)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		resp, err := c.RequestQuestion()
		if err != nil {
			return errors.Wrap(err, "request question failed")
		}
		if resp.Status == wire.StatusFinalScore {
			fmt.Fprintf(c.out, "%s\n", resp.Encode())
			break
		}
		if resp.Status != wire.StatusQuestion {
			fmt.Fprintf(c.out, "%s\n", resp.Encode())
			continue
		}
		fmt.Fprintf(c.out, "[%d/%d] %s\n> ", resp.Index, resp.Count, resp.Prompt)
		if !answers.Scan() {
			if err := answers.Err(); err != nil {
				return errors.Wrap(err, "read answer failed")
			}
			return ErrAnswersExhausted
		}
		verdict, final, err := c.SubmitAnswer(answers.Text())
		if err != nil {
			return errors.Wrap(err, "submit answer failed")
		}
		fmt.Fprintf(c.out, "%s\n", verdict.Encode())
		if final != nil {
			fmt.Fprintf(c.out, "%s\n", final.Encode())
			break
		}
	}
	score, _ := c.FinalScore()
	logger.WithFields(logrus.Fields{
		"uuid":      c.uuid.String(),
		"questions": total,
		"score":     score,
	}).Info("client completed quiz")
	return nil
}
