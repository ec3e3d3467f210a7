// Package bank holds the quiz question bank and the per-session sampler.
package bank

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Question is one prompt/answer pair from the bank.
type Question struct {
	Prompt string
	Answer string
}

// Bank is an ordered collection of questions. It is never mutated after
// load and is therefore safe for unsynchronized reads by many sessions.
type Bank []Question

// Plan is the ordered list of questions drawn for a single session.
// A plan is owned exclusively by the session it was sampled for.
type Plan []Question

// Load reads a question bank from the CSV file at path.
func Load(path string) (Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open bank file %s failed", path)
	}
	defer f.Close()
	b, err := Read(f)
	return b, errors.Wrapf(err, "read bank file %s failed", path)
}

// Read parses a question bank from CSV. The first line is a header and is
// skipped. The first field of each record is the prompt; the remaining
// fields are rejoined so that unquoted commas stay part of the answer.
// Records without both a prompt and an answer are dropped.
func Read(r io.Reader) (Bank, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse bank records failed")
	}
	var b Bank
	for i, record := range records {
		if i == 0 {
			continue // header line
		}
		if len(record) < 2 {
			continue
		}
		q := Question{
			Prompt: strings.TrimSpace(record[0]),
			Answer: strings.TrimSpace(strings.Join(record[1:], ",")),
		}
		if q.Prompt == "" || q.Answer == "" {
			continue
		}
		b = append(b, q)
	}
	return b, nil
}
