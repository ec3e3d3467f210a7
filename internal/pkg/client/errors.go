package client

import "github.com/pkg/errors"

// ErrServerBusy indicates the server refused the connection because its
// admission pool is saturated.
var ErrServerBusy = errors.New("server busy")

// ErrNotConnected indicates a request was attempted before Connect.
var ErrNotConnected = errors.New("not connected")

// ErrAnswersExhausted indicates the answer source ran out before the
// quiz completed.
var ErrAnswersExhausted = errors.New("answer source exhausted")
