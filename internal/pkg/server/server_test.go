package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"quiz/internal/pkg/bank"
	"quiz/internal/pkg/wire"

	"github.com/stretchr/testify/require"
)

var testBank = bank.Bank{
	{Prompt: "2+2", Answer: "4"},
	{Prompt: "capital of France", Answer: "Paris"},
}

func answerFor(t *testing.T, prompt string) string {
	t.Helper()
	for _, q := range testBank {
		if q.Prompt == prompt {
			return q.Answer
		}
	}
	t.Fatalf("unknown prompt %q", prompt)
	return ""
}

func startServer(t *testing.T, cfgs ...Cfg) *Server {
	t.Helper()
	srv, err := NewServer(append([]Cfg{
		WithAddr("127.0.0.1:0"),
		WithBank(testBank),
		WithQuizLength(len(testBank)),
	}, cfgs...)...)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Listen(ctx))
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return srv
}

func dial(t *testing.T, srv *Server) (net.Conn, *bufio.Scanner) {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewScanner(conn)
}

func send(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	_, err := fmt.Fprintf(conn, "%s\n", line)
	require.NoError(t, err)
}

func recv(t *testing.T, lines *bufio.Scanner) string {
	t.Helper()
	require.True(t, lines.Scan(), "connection closed early: %v", lines.Err())
	return lines.Text()
}

func TestQuizScenario(t *testing.T) {
	srv := startServer(t)
	conn, lines := dial(t, srv)

	send(t, conn, "CONNECT|SERVER")
	require.Equal(t, "200|Connection_Accepted|2", recv(t, lines))

	send(t, conn, "QUIZ|REQUEST")
	first, err := wire.ParseResponse(recv(t, lines))
	require.NoError(t, err)
	require.Equal(t, wire.StatusQuestion, first.Status)
	require.Equal(t, 1, first.Index)
	require.Equal(t, 2, first.Count)

	// correct answers are matched case-insensitively and trimmed
	send(t, conn, "ANSWER|  "+strings.ToUpper(answerFor(t, first.Prompt))+" ")
	require.Equal(t, "202|Correct_Answer", recv(t, lines))

	send(t, conn, "QUIZ|REQUEST")
	second, err := wire.ParseResponse(recv(t, lines))
	require.NoError(t, err)
	require.Equal(t, wire.StatusQuestion, second.Status)
	require.Equal(t, 2, second.Index)
	require.NotEqual(t, first.Prompt, second.Prompt)

	send(t, conn, "ANSWER|wrong")
	require.Equal(t, "203|Wrong_Answer", recv(t, lines))
	require.Equal(t, "204|Final_Score|1", recv(t, lines))

	// the server closes the connection once the session completes
	require.False(t, lines.Scan())
}

func TestRepeatedQuizRequest(t *testing.T) {
	srv := startServer(t)
	conn, lines := dial(t, srv)

	send(t, conn, "CONNECT|SERVER")
	recv(t, lines)
	send(t, conn, "QUIZ|REQUEST")
	question := recv(t, lines)
	for i := 0; i < 3; i++ {
		send(t, conn, "QUIZ|REQUEST")
		require.Equal(t, question, recv(t, lines))
	}
}

func TestProtocolViolationKeepsSession(t *testing.T) {
	srv := startServer(t)
	conn, lines := dial(t, srv)

	send(t, conn, "GIBBERISH")
	require.Equal(t, "400|Protocol_Error|connect required", recv(t, lines))

	send(t, conn, "CONNECT|SERVER")
	require.Equal(t, "200|Connection_Accepted|2", recv(t, lines))
}

func TestStrictProtocolCloses(t *testing.T) {
	srv := startServer(t, WithStrictProtocol(true))
	conn, lines := dial(t, srv)

	send(t, conn, "GIBBERISH")
	require.Equal(t, "400|Protocol_Error|connect required", recv(t, lines))
	require.False(t, lines.Scan())
}

func TestAdmissionRefusal(t *testing.T) {
	srv := startServer(t, WithMaxSessions(1))

	conn1, lines1 := dial(t, srv)
	send(t, conn1, "CONNECT|SERVER")
	require.Equal(t, "200|Connection_Accepted|2", recv(t, lines1))

	// pool saturated: the second connection is refused immediately
	_, lines2 := dial(t, srv)
	require.Equal(t, "503|Service_Unavailable", recv(t, lines2))
	require.False(t, lines2.Scan())

	// closing the first session frees its slot
	require.NoError(t, conn1.Close())
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", srv.Addr().String())
		if err != nil {
			return false
		}
		defer conn.Close()
		if _, err := fmt.Fprintln(conn, "CONNECT|SERVER"); err != nil {
			return false
		}
		lines := bufio.NewScanner(conn)
		return lines.Scan() && strings.HasPrefix(lines.Text(), "200|")
	}, 2*time.Second, 20*time.Millisecond)
}

func TestReadTimeoutFreesSlot(t *testing.T) {
	srv := startServer(t, WithMaxSessions(1), WithReadTimeout(50*time.Millisecond))

	conn, lines := dial(t, srv)
	send(t, conn, "CONNECT|SERVER")
	recv(t, lines)

	// send nothing: the idle deadline must close the session
	require.False(t, lines.Scan())
	require.Eventually(t, func() bool {
		return srv.Live() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEmptyBankServes(t *testing.T) {
	srv := startServer(t, WithBank(bank.Bank{}))
	conn, lines := dial(t, srv)

	send(t, conn, "CONNECT|SERVER")
	require.Equal(t, "200|Connection_Accepted|0", recv(t, lines))
	send(t, conn, "QUIZ|REQUEST")
	require.Equal(t, "204|Final_Score|0", recv(t, lines))
	require.False(t, lines.Scan())
}
