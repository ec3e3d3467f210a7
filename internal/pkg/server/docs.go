// Package server implements the server side of the quiz protocol.
//
// The server performs the following steps:
//  1. Listens for TCP connections on the configured port.
//  2. On accept, tries to take an admission slot from a fixed-capacity
//     pool. If none is free the connection receives a single
//     503|Service_Unavailable line and is closed immediately; no session
//     is created and the accept loop never blocks on a saturated pool.
//  3. An admitted connection runs its own goroutine with its own
//     session state machine: lines are framed, decoded once into tagged
//     requests, handled, and the responses written back in order.
//  4. The connection is closed and its slot released when the session
//     completes, the client disconnects, an I/O error occurs, or the
//     idle read deadline expires.
//
// The question bank is shared read-only across all sessions; each session
// samples its own independent plan from it. A live-session counter is
// maintained atomically for observability only.
package server
