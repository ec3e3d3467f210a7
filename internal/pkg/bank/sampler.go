package bank

import (
	"math/rand"
	"time"
)

// Sample draws n distinct questions from the bank as a session plan.
// n is clamped to [0, len(b)]. The draw takes the first n positions of a
// uniform random permutation of the bank, so a plan never repeats a
// question and every session draws independently of every other; the
// same question may appear across sessions but never twice within one.
func (b Bank) Sample(n int, r *rand.Rand) Plan {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if n < 0 {
		n = 0
	}
	if n > len(b) {
		n = len(b)
	}
	plan := make(Plan, 0, n)
	for _, i := range r.Perm(len(b))[:n] {
		plan = append(plan, b[i])
	}
	return plan
}
