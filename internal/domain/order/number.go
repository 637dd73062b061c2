package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// DefaultNumberPrefix identifies the store in order numbers.
const DefaultNumberPrefix = "KAT"

// SequenceRepository hands out per-day order sequence numbers.
type SequenceRepository interface {
	// LatestNumber returns the greatest order number starting with prefix,
	// or "" when there is none.
	LatestNumber(ctx context.Context, prefix string) (string, error)
	// NextSequence reserves the next sequence for the day prefix. Two calls
	// for the same prefix never return the same value, even when made from
	// concurrent transactions.
	NextSequence(ctx context.Context, dayPrefix string) (int, error)
}

// Generator builds order numbers of the form PREFIX-YYMMDD-SEQ.
type Generator struct {
	prefix string
	now    func() time.Time
}

// NewGenerator returns a Generator for the store prefix. An empty prefix
// means DefaultNumberPrefix.
func NewGenerator(prefix string) *Generator {
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	return &Generator{prefix: prefix, now: time.Now}
}

// WithClock returns a copy of g reading the current time from now.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	c := *g
	c.now = now
	return &c
}

// DayPrefix returns "PREFIX-YYMMDD" for the UTC date of t.
func (g *Generator) DayPrefix(t time.Time) string {
	return g.prefix + "-" + t.UTC().Format("060102")
}

// Next reserves today's next sequence from seq and formats the number.
// It must run inside the transaction that inserts the order.
func (g *Generator) Next(ctx context.Context, seq SequenceRepository) (string, error) {
	day := g.DayPrefix(g.now())
	n, err := seq.NextSequence(ctx, day)
	if err != nil {
		return "", errors.Wrap(err, "reserve order sequence")
	}
	return FormatNumber(day, n), nil
}

// FormatNumber joins a day prefix and a sequence zero-padded to 4 digits.
func FormatNumber(dayPrefix string, seq int) string {
	return fmt.Sprintf("%s-%04d", dayPrefix, seq)
}

// ParseSequence extracts the trailing sequence of an order number.
func ParseSequence(number string) (int, error) {
	i := strings.LastIndexByte(number, '-')
	if i < 0 || i == len(number)-1 {
		return 0, errors.Errorf("malformed order number %q", number)
	}
	n, err := strconv.Atoi(number[i+1:])
	if err != nil {
		return 0, errors.Wrapf(err, "malformed order number %q", number)
	}
	return n, nil
}

// SequenceAfter returns the sequence following latest, or 1 when latest is
// empty. Stores that serialize their transactions use it to implement
// NextSequence on top of LatestNumber.
func SequenceAfter(latest string) (int, error) {
	if latest == "" {
		return 1, nil
	}
	n, err := ParseSequence(latest)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}
