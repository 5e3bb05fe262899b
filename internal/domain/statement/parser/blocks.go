package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// maxMatchTimeouts is the number of budget overruns tolerated inside one
// account before its segmentation is abandoned.
const maxMatchTimeouts = 3

// lineQueue is the FIFO of lines pending segmentation. Splitting an inline
// date re-enqueues the remainder at the front so document order survives.
// The capacity bound replaces unbounded growth with a recorded drop.
type lineQueue struct {
	items    []string
	capacity int
	dropped  int
}

func newLineQueue(capacity int) *lineQueue {
	return &lineQueue{capacity: capacity}
}

func (q *lineQueue) pushBack(line string) {
	if len(q.items) >= q.capacity {
		q.dropped++
		return
	}
	q.items = append(q.items, line)
}

func (q *lineQueue) pushFront(line string) {
	if len(q.items) >= q.capacity {
		q.dropped++
		return
	}
	q.items = append([]string{line}, q.items...)
}

func (q *lineQueue) pop() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	line := q.items[0]
	q.items = q.items[1:]
	return line, true
}

func (q *lineQueue) len() int { return len(q.items) }

// rawTransaction is a movement as extracted from a block, before balance
// reconciliation and description canonicalization.
type rawTransaction struct {
	date        time.Time
	description string
	amount      decimal.Decimal
	balance     decimal.Decimal
	signed      bool // the amount token carried an explicit minus
}

// block is the text span from one date anchor up to the next.
type block struct {
	date  time.Time
	lines []string
}

type scanState int

const (
	scanningForDate scanState = iota
	inBlock
)

// segmenter runs the block state machine over one account's movements
// region. It owns a match budget and accumulates warnings; a segmenter is
// used once and discarded.
type segmenter struct {
	cfg      Config
	match    *matcher
	noise    func(string) bool
	warnings []string
	timeouts int
	aborted  bool
}

func newSegmenter(cfg Config, m *matcher, noise func(string) bool) *segmenter {
	if noise == nil {
		noise = func(string) bool { return false }
	}
	return &segmenter{cfg: cfg, match: m, noise: noise}
}

func (s *segmenter) warnf(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// run segments the region into transactions. The returned error is non-nil
// only for context cancellation; every data problem becomes a warning.
func (s *segmenter) run(ctx context.Context, lines []string) ([]rawTransaction, error) {
	queue := newLineQueue(s.cfg.QueueCapacity)
	for _, l := range lines {
		queue.pushBack(l)
	}
	if queue.dropped > 0 {
		s.warnf("[queue-overflow] %d lines beyond capacity %d were dropped",
			queue.dropped, s.cfg.QueueCapacity)
	}

	state := scanningForDate
	var current *block
	var txs []rawTransaction

	for queue.len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, _ := queue.pop()
		if line == "" {
			continue
		}

		// A merged pair of rows is split at the embedded date and the tail
		// is requeued for the next iteration.
		if idx, outcome := inlineDateIndex(s.match, line); outcome == MatchHit && idx > 0 {
			before := queue.dropped
			queue.pushFront(strings.TrimSpace(line[idx:]))
			if queue.dropped > before {
				s.warnf("[queue-overflow] inline date remainder dropped at capacity %d",
					s.cfg.QueueCapacity)
			}
			line = strings.TrimSpace(line[:idx])
			if line == "" {
				continue
			}
		} else if outcome == MatchTimeout {
			if s.recordTimeout("inline date scan") {
				return txs, nil
			}
			continue
		}

		date, consumed, outcome := dateAnchor(s.match, line)
		switch outcome {
		case MatchTimeout:
			// The anchor test controls the state machine; repeated budget
			// overruns here abandon the whole account.
			if s.recordTimeout("date anchor scan") {
				return txs, nil
			}
			continue
		case MatchHit:
			s.closeBlock(current, &txs)
			rest := strings.TrimSpace(line[consumed:])
			current = &block{date: date}
			if rest != "" {
				current.lines = append(current.lines, rest)
			}
			state = inBlock
			continue
		}

		// No date on this line.
		if s.noise(line) {
			continue
		}
		if state == inBlock {
			// Continuation lines stay with the open block until the next
			// anchor or terminator; malformed text never resets the scan.
			current.lines = append(current.lines, line)
		}
	}

	s.closeBlock(current, &txs)
	return txs, nil
}

// recordTimeout counts a match budget overrun. It returns true once the
// account's segmentation should be abandoned.
func (s *segmenter) recordTimeout(where string) bool {
	s.timeouts++
	s.warnf("[match-timeout] %s exceeded the match budget, line skipped", where)
	if s.timeouts >= maxMatchTimeouts {
		s.aborted = true
		s.warnf("[match-timeout] segmentation aborted after %d timeouts", s.timeouts)
		return true
	}
	return false
}

// closeBlock turns the open block into a transaction, or discards it with a
// warning when it cannot yield one.
func (s *segmenter) closeBlock(b *block, txs *[]rawTransaction) {
	if b == nil {
		return
	}

	tokens := scanTokens(b.lines)
	if len(tokens) < 2 {
		s.warnf("[skipped-block] %s: fewer than two monetary tokens", b.date.Format("02/01/2006"))
		return
	}

	amountTok := tokens[len(tokens)-2]
	balanceTok := tokens[len(tokens)-1]

	amount, err := money.ParseStatementToken(amountTok.value)
	if err != nil {
		s.warnf("[skipped-block] %s: unreadable amount %q", b.date.Format("02/01/2006"), amountTok.value)
		return
	}
	balance, err := money.ParseStatementToken(balanceTok.value)
	if err != nil {
		s.warnf("[skipped-block] %s: unreadable balance %q", b.date.Format("02/01/2006"), balanceTok.value)
		return
	}

	if amount.Abs().GreaterThan(s.cfg.SanityCeiling) {
		s.warnf("[skipped-block] %s: amount %s exceeds the sanity ceiling", b.date.Format("02/01/2006"), amountTok.value)
		return
	}

	signed := strings.HasPrefix(amountTok.value, "-") || strings.HasSuffix(amountTok.value, "-")

	*txs = append(*txs, rawTransaction{
		date:        b.date,
		description: blockDescription(b.lines, tokens[0]),
		amount:      amount,
		balance:     balance,
		signed:      signed,
	})
}

// blockDescription assembles the human text of a block: everything before
// the first monetary token, then the non-token text of the remaining lines,
// with immediately-repeated segments collapsed.
func blockDescription(lines []string, firstTok tokenPosition) string {
	var segments []string
	appendSegment := func(seg string) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			return
		}
		if len(segments) > 0 && segments[len(segments)-1] == seg {
			return
		}
		segments = append(segments, seg)
	}

	for li, line := range lines {
		switch {
		case li < firstTok.line:
			appendSegment(line)
		case li == firstTok.line:
			fields := strings.Fields(line)
			if firstTok.field < len(fields) {
				fields = fields[:firstTok.field]
			}
			appendSegment(strings.Join(fields, " "))
		default:
			appendSegment(strings.Join(nonTokenFields(line), " "))
		}
	}

	return strings.Join(segments, " ")
}

// nonTokenFields strips monetary tokens out of description text; reference
// numbers and rates stay.
func nonTokenFields(line string) []string {
	fields := strings.Fields(line)
	out := fields[:0]
	for _, f := range fields {
		if money.IsStatementToken(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}
