// Package client implements the client side of the quiz protocol.
//
// The client performs the following steps:
//  1. Connect to the server over TCP.
//  2. Send CONNECT|SERVER and receive 200|Connection_Accepted with the
//     number of questions in this session.
//  3. Repeatedly request the current question with QUIZ|REQUEST and
//     submit an answer with ANSWER|<text>, receiving a Correct_Answer or
//     Wrong_Answer verdict after each submission.
//  4. After the last answer (or a request past the end of the quiz) the
//     server sends 204|Final_Score and closes the connection.
//
// Server error lines are surfaced verbatim. A 503|Service_Unavailable
// refusal is reported as ErrServerBusy and is never retried
// automatically.
package client
