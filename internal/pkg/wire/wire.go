// Package wire defines the quiz line protocol.
//
// Messages are single newline-delimited UTF-8 lines with |-separated
// fields. Client lines are decoded once at the transport boundary into a
// tagged Request; server lines are produced from a tagged Response. The
// fixed vocabulary is:
//
//	client: CONNECT|SERVER
//	        QUIZ|REQUEST
//	        ANSWER|<text>
//	server: 200|Connection_Accepted|<total>
//	        201|Quiz_Content|<prompt>|<index>/<total>
//	        202|Correct_Answer
//	        203|Wrong_Answer
//	        204|Final_Score|<score>
//	        400|Protocol_Error|<reason>
//	        503|Service_Unavailable
//
// Prompts and answers may themselves contain the | delimiter; variable
// fields therefore sit at a line's edges and are parsed ends-first.
package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Delim separates fields within a protocol line.
const Delim = "|"

// RequestKind tags a decoded client request.
type RequestKind int

// Client request kinds.
const (
	RequestUnknown RequestKind = iota
	RequestConnect
	RequestQuiz
	RequestAnswer
)

func (k RequestKind) String() string {
	switch k {
	case RequestConnect:
		return "connect"
	case RequestQuiz:
		return "quiz_request"
	case RequestAnswer:
		return "answer"
	}
	return "unknown"
}

// Request is one client line decoded into its protocol variant.
type Request struct {
	Kind   RequestKind
	Answer string // submitted answer text, set for RequestAnswer
	Raw    string // the line as received
}

// ParseRequest decodes a single client line. Unrecognized lines map to
// RequestUnknown rather than an error so the caller can respond with a
// protocol error and keep the session alive.
func ParseRequest(line string) Request {
	switch {
	case line == "CONNECT"+Delim+"SERVER":
		return Request{Kind: RequestConnect, Raw: line}
	case line == "QUIZ"+Delim+"REQUEST":
		return Request{Kind: RequestQuiz, Raw: line}
	case strings.HasPrefix(line, "ANSWER"+Delim):
		return Request{
			Kind:   RequestAnswer,
			Answer: strings.TrimPrefix(line, "ANSWER"+Delim),
			Raw:    line,
		}
	}
	return Request{Kind: RequestUnknown, Raw: line}
}

// Encode renders the request as a protocol line.
func (r Request) Encode() string {
	switch r.Kind {
	case RequestConnect:
		return "CONNECT" + Delim + "SERVER"
	case RequestQuiz:
		return "QUIZ" + Delim + "REQUEST"
	case RequestAnswer:
		return "ANSWER" + Delim + r.Answer
	}
	return r.Raw
}

// Status is the numeric code leading every server line.
type Status int

// Server response statuses.
const (
	StatusConnected   Status = 200
	StatusQuestion    Status = 201
	StatusCorrect     Status = 202
	StatusIncorrect   Status = 203
	StatusFinalScore  Status = 204
	StatusProtocolErr Status = 400
	StatusUnavailable Status = 503
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "Connection_Accepted"
	case StatusQuestion:
		return "Quiz_Content"
	case StatusCorrect:
		return "Correct_Answer"
	case StatusIncorrect:
		return "Wrong_Answer"
	case StatusFinalScore:
		return "Final_Score"
	case StatusProtocolErr:
		return "Protocol_Error"
	case StatusUnavailable:
		return "Service_Unavailable"
	}
	return "Unknown"
}

// Response is one server line in its decoded form. Only the fields
// relevant to the Status are set.
type Response struct {
	Status Status
	Total  int    // StatusConnected: questions in this session
	Prompt string // StatusQuestion
	Index  int    // StatusQuestion: 1-based position
	Count  int    // StatusQuestion: plan length
	Score  int    // StatusFinalScore
	Reason string // StatusProtocolErr
}

// Encode renders the response as a protocol line.
func (r Response) Encode() string {
	switch r.Status {
	case StatusConnected:
		return fmt.Sprintf("%d%s%s%s%d", r.Status, Delim, r.Status, Delim, r.Total)
	case StatusQuestion:
		return fmt.Sprintf("%d%s%s%s%s%s%d/%d", r.Status, Delim, r.Status, Delim, r.Prompt, Delim, r.Index, r.Count)
	case StatusFinalScore:
		return fmt.Sprintf("%d%s%s%s%d", r.Status, Delim, r.Status, Delim, r.Score)
	case StatusProtocolErr:
		return fmt.Sprintf("%d%s%s%s%s", r.Status, Delim, r.Status, Delim, r.Reason)
	default:
		return fmt.Sprintf("%d%s%s", r.Status, Delim, r.Status)
	}
}

// ParseResponse decodes a single server line.
func ParseResponse(line string) (Response, error) {
	head, rest, found := strings.Cut(line, Delim)
	code, err := strconv.Atoi(head)
	if err != nil {
		return Response{}, errors.Wrapf(err, "parse status of %q failed", line)
	}
	resp := Response{Status: Status(code)}
	if !found {
		return resp, nil
	}
	// strip the status label field
	_, body, _ := strings.Cut(rest, Delim)
	switch resp.Status {
	case StatusConnected:
		resp.Total, err = strconv.Atoi(body)
		if err != nil {
			return Response{}, errors.Wrapf(err, "parse question total of %q failed", line)
		}
	case StatusQuestion:
		// progress is the last field; everything between belongs to the prompt
		cut := strings.LastIndex(body, Delim)
		if cut < 0 {
			return Response{}, errors.Errorf("missing progress field in %q", line)
		}
		resp.Prompt = body[:cut]
		idx, count, ok := strings.Cut(body[cut+1:], "/")
		if !ok {
			return Response{}, errors.Errorf("malformed progress field in %q", line)
		}
		resp.Index, err = strconv.Atoi(idx)
		if err != nil {
			return Response{}, errors.Wrapf(err, "parse question index of %q failed", line)
		}
		resp.Count, err = strconv.Atoi(count)
		if err != nil {
			return Response{}, errors.Wrapf(err, "parse question count of %q failed", line)
		}
	case StatusFinalScore:
		resp.Score, err = strconv.Atoi(body)
		if err != nil {
			return Response{}, errors.Wrapf(err, "parse final score of %q failed", line)
		}
	case StatusProtocolErr:
		resp.Reason = body
	}
	return resp, nil
}
