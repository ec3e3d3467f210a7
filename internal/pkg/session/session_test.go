package session

import (
	"testing"

	"quiz/internal/pkg/bank"
	"quiz/internal/pkg/wire"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testBank = bank.Bank{
	{Prompt: "2+2", Answer: "4"},
	{Prompt: "capital of France", Answer: "Paris"},
	{Prompt: "largest planet", Answer: "Jupiter"},
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

func newTestSession(t *testing.T, cfgs ...Cfg) *Session {
	t.Helper()
	sess, err := NewSession(append([]Cfg{
		WithBank(testBank),
		WithQuizLength(len(testBank)),
	}, cfgs...)...)
	require.NoError(t, err)
	return sess
}

func connect(t *testing.T, sess *Session) int {
	t.Helper()
	resps := sess.Handle(wire.Request{Kind: wire.RequestConnect})
	require.Len(t, resps, 1)
	require.Equal(t, wire.StatusConnected, resps[0].Status)
	return resps[0].Total
}

func requestQuestion(t *testing.T, sess *Session) wire.Response {
	t.Helper()
	resps := sess.Handle(wire.Request{Kind: wire.RequestQuiz})
	require.Len(t, resps, 1)
	return resps[0]
}

func TestAllCorrect(t *testing.T) {
	sess := newTestSession(t)
	total := connect(t, sess)
	require.Equal(t, len(testBank), total)
	for i := 1; i <= total; i++ {
		q := requestQuestion(t, sess)
		require.Equal(t, wire.StatusQuestion, q.Status)
		require.Equal(t, i, q.Index)
		require.Equal(t, total, q.Count)
		// grading is case-insensitive and trims whitespace
		answer := "  " + answerFor(t, q.Prompt) + "  "
		resps := sess.Handle(wire.Request{Kind: wire.RequestAnswer, Answer: answer})
		require.Equal(t, wire.StatusCorrect, resps[0].Status)
		if i < total {
			require.Len(t, resps, 1)
		} else {
			require.Len(t, resps, 2)
			require.Equal(t, wire.StatusFinalScore, resps[1].Status)
			require.Equal(t, total, resps[1].Score)
		}
	}
	require.Equal(t, StateComplete, sess.State())
	require.Equal(t, len(testBank), sess.Score())
}

func TestAllIncorrect(t *testing.T) {
	sess := newTestSession(t)
	total := connect(t, sess)
	for i := 1; i <= total; i++ {
		q := requestQuestion(t, sess)
		require.Equal(t, wire.StatusQuestion, q.Status)
		resps := sess.Handle(wire.Request{Kind: wire.RequestAnswer, Answer: "not even close"})
		require.Equal(t, wire.StatusIncorrect, resps[0].Status)
		if i == total {
			require.Equal(t, wire.StatusFinalScore, resps[1].Status)
			require.Equal(t, 0, resps[1].Score)
		}
	}
	require.Equal(t, 0, sess.Score())
}

func TestRepeatedRequestDoesNotAdvance(t *testing.T) {
	sess := newTestSession(t)
	connect(t, sess)
	first := requestQuestion(t, sess)
	for i := 0; i < 3; i++ {
		require.Equal(t, first, requestQuestion(t, sess))
	}
	cursor, _ := sess.Progress()
	require.Equal(t, 0, cursor)
}

func TestRequestPastEndReturnsFinalScore(t *testing.T) {
	sess := newTestSession(t, WithQuizLength(0))
	total := connect(t, sess)
	require.Equal(t, 0, total)
	for i := 0; i < 3; i++ {
		resp := requestQuestion(t, sess)
		require.Equal(t, wire.StatusFinalScore, resp.Status)
		require.Equal(t, 0, resp.Score)
	}
	require.Equal(t, StateComplete, sess.State())
}

func TestEmptyBank(t *testing.T) {
	sess, err := NewSession(WithBank(bank.Bank{}), WithQuizLength(5))
	require.NoError(t, err)
	require.Equal(t, 0, connect(t, sess))
	resp := requestQuestion(t, sess)
	require.Equal(t, wire.StatusFinalScore, resp.Status)
}

func TestAnswerWithoutQuestion(t *testing.T) {
	sess := newTestSession(t)
	connect(t, sess)
	resps := sess.Handle(wire.Request{Kind: wire.RequestAnswer, Answer: "4"})
	require.Len(t, resps, 1)
	require.Equal(t, wire.StatusProtocolErr, resps[0].Status)
	require.Equal(t, StateActive, sess.State())
}

func TestConnectOutOfOrder(t *testing.T) {
	sess := newTestSession(t)
	total := connect(t, sess)
	resps := sess.Handle(wire.Request{Kind: wire.RequestConnect})
	require.Equal(t, wire.StatusProtocolErr, resps[0].Status)
	// the existing plan is kept
	_, count := sess.Progress()
	require.Equal(t, total, count)
	require.Equal(t, StateActive, sess.State())
}

func TestAnswerBeforeConnect(t *testing.T) {
	sess := newTestSession(t)
	resps := sess.Handle(wire.Request{Kind: wire.RequestAnswer, Answer: "4"})
	require.Equal(t, wire.StatusProtocolErr, resps[0].Status)
	require.Equal(t, StateAwaitingConnect, sess.State())
}

func TestUnknownRequestKeepsState(t *testing.T) {
	sess := newTestSession(t)
	connect(t, sess)
	q := requestQuestion(t, sess)
	resps := sess.Handle(wire.ParseRequest("GIBBERISH|LINE"))
	require.Equal(t, wire.StatusProtocolErr, resps[0].Status)
	require.Equal(t, q, requestQuestion(t, sess))
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 2, 50},
		{1, 3, 33}, // 33.33 rounds down
		{1, 6, 17}, // 16.67 rounds up
		{2, 3, 67},
		{3, 3, 100},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, percentOf(tt.correct, tt.total), "%d/%d", tt.correct, tt.total)
	}
}

func TestPercentScoring(t *testing.T) {
	sess := newTestSession(t, WithPercentScoring(true))
	total := connect(t, sess)
	require.Equal(t, 3, total)
	var last []wire.Response
	for i := 1; i <= total; i++ {
		q := requestQuestion(t, sess)
		answer := "wrong"
		if i == 1 {
			answer = answerFor(t, q.Prompt)
		}
		last = sess.Handle(wire.Request{Kind: wire.RequestAnswer, Answer: answer})
	}
	require.Len(t, last, 2)
	require.Equal(t, wire.StatusFinalScore, last[1].Status)
	require.Equal(t, 33, last[1].Score)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SessionStarted(id string, total int) {
	m.Called(id, total)
}

func (m *mockSink) QuestionServed(id string, index, total int) {
	m.Called(id, index, total)
}

func (m *mockSink) ScoreChanged(id string, score int) {
	m.Called(id, score)
}

func (m *mockSink) SessionEnded(id string, score int, reason string) {
	m.Called(id, score, reason)
}

func TestSinkNotifications(t *testing.T) {
	sink := &mockSink{}
	sess := newTestSession(t, WithQuizLength(1), WithSink(sink))
	id := sess.ID().String()
	sink.On("SessionStarted", id, 1).Return().Once()
	sink.On("QuestionServed", id, 1, 1).Return().Once()
	sink.On("ScoreChanged", id, 1).Return().Once()
	sink.On("SessionEnded", id, 1, "completed").Return().Once()

	connect(t, sess)
	q := requestQuestion(t, sess)
	sess.Handle(wire.Request{Kind: wire.RequestAnswer, Answer: answerFor(t, q.Prompt)})
	sess.Abort("disconnected") // no-op after normal completion

	sink.AssertExpectations(t)
}

func TestAbortNotifiesOnce(t *testing.T) {
	sink := &mockSink{}
	sess := newTestSession(t, WithSink(sink))
	id := sess.ID().String()
	sink.On("SessionStarted", id, len(testBank)).Return().Once()
	sink.On("SessionEnded", id, 0, "disconnected").Return().Once()

	connect(t, sess)
	sess.Abort("disconnected")
	sess.Abort("disconnected")
	require.Equal(t, StateComplete, sess.State())

	sink.AssertExpectations(t)
}
