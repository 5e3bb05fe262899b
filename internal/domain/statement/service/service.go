// Package service provides the statement parsing orchestration logic: quota
// policy, PDF text extraction with per-bank page filtering, normalization,
// bank dispatch, balance reconciliation and usage accounting.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-ledger/internal/domain/extraction"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement/normalizer"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement/parser"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement/reconciler"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement/sniffer"
	"github.com/FACorreiaa/statement-ledger/pkg/money"
)

// ErrQuotaExceeded rejects a parse before any extraction work happens. It is
// the one policy failure the orchestrator surfaces as an error; callers
// distinguish it from data problems with errors.Is.
var ErrQuotaExceeded = errors.New("monthly parse quota exceeded")

// UsageTracker is the external quota collaborator. ParseCount reports how
// many parses a caller ran inside the half-open interval [from, to);
// RecordParse adds one consumption event.
type UsageTracker interface {
	ParseCount(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
	RecordParse(ctx context.Context, userID uuid.UUID) error
}

// Categorizer decorates a parsed ledger with category assignments. The
// orchestrator treats it as fail-open: an error leaves the ledger
// uncategorized and never fails the parse.
type Categorizer interface {
	Apply(ctx context.Context, st *statement.BankStatement) error
}

// Config tunes the orchestrator and the stages it drives.
type Config struct {
	// MonthlyQuota caps successful parses per caller per UTC calendar month.
	// Zero or negative disables enforcement.
	MonthlyQuota int
	Parser       parser.Config
	Reconciler   reconciler.Config
}

// DefaultConfig returns the production orchestrator settings.
func DefaultConfig() Config {
	return Config{
		MonthlyQuota: 100,
		Parser:       parser.DefaultConfig(),
		Reconciler:   reconciler.DefaultConfig(),
	}
}

// ParseService is the single entry point callers use to turn a statement PDF
// into a reconciled ledger.
type ParseService struct {
	extractor   *extraction.Extractor
	tracker     UsageTracker // Optional: nil disables quota and accounting
	categorizer Categorizer  // Optional: nil if categorization not available
	reconciler  *reconciler.Reconciler
	logger      *slog.Logger
	cfg         Config
}

// NewParseService creates a parse service with default configuration.
func NewParseService(tracker UsageTracker, logger *slog.Logger) *ParseService {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := DefaultConfig()
	return &ParseService{
		extractor:  extraction.NewExtractor(logger),
		tracker:    tracker,
		reconciler: reconciler.New(cfg.Reconciler, logger),
		logger:     logger,
		cfg:        cfg,
	}
}

// WithCategorizer adds category decoration to parsed ledgers.
func (s *ParseService) WithCategorizer(c Categorizer) *ParseService {
	s.categorizer = c
	return s
}

// WithConfig replaces the default tuning.
func (s *ParseService) WithConfig(cfg Config) *ParseService {
	s.cfg = cfg
	s.reconciler = reconciler.New(cfg.Reconciler, s.logger)
	return s
}

// Parse turns a raw PDF into a reconciled ledger. The bank key is matched
// case-insensitively; an unsupported key yields (nil, nil) so the caller can
// present "unsupported bank" instead of a parse failure. Cancellation is
// honored between pages and between accounts and returns no partial result.
func (s *ParseService) Parse(ctx context.Context, userID uuid.UUID, bankKey string, pdfData []byte, progress parser.Progress) (*parser.ParseResult, error) {
	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	p, ok := parser.ForBank(bankKey, s.cfg.Parser)
	if !ok {
		s.logger.Info("unsupported bank requested", "bank", bankKey)
		return nil, nil
	}

	pages, err := s.extractor.Extract(ctx, bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return nil, fmt.Errorf("extract pdf: %w", err)
	}

	text := s.preparePages(p.Bank(), pages)
	return s.run(ctx, p, userID, text, progress)
}

// ParseAuto is Parse without a bank key: the issuer is sniffed from the
// extracted text. The returned Detection carries the winner and its
// confidence so callers can log or gate on it.
func (s *ParseService) ParseAuto(ctx context.Context, userID uuid.UUID, pdfData []byte, progress parser.Progress) (*parser.ParseResult, *sniffer.Detection, error) {
	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, nil, err
	}

	pages, err := s.extractor.Extract(ctx, bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return nil, nil, fmt.Errorf("extract pdf: %w", err)
	}

	detection, err := sniffer.DetectBank(normalizer.Document(extraction.Document(pages)))
	if err != nil {
		return nil, nil, fmt.Errorf("detect bank: %w", err)
	}
	s.logger.Debug("bank detected",
		"bank", detection.Bank,
		"confidence", detection.Confidence,
		"fingerprint", detection.Fingerprint)

	p, ok := parser.ForBank(string(detection.Bank), s.cfg.Parser)
	if !ok {
		return nil, detection, nil
	}

	text := s.preparePages(p.Bank(), pages)
	res, err := s.run(ctx, p, userID, text, progress)
	return res, detection, err
}

// ParseText is Parse for already-extracted text. It runs the same pipeline
// minus PDF extraction and page filtering.
func (s *ParseService) ParseText(ctx context.Context, userID uuid.UUID, bankKey string, text string, progress parser.Progress) (*parser.ParseResult, error) {
	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	p, ok := parser.ForBank(bankKey, s.cfg.Parser)
	if !ok {
		s.logger.Info("unsupported bank requested", "bank", bankKey)
		return nil, nil
	}

	return s.run(ctx, p, userID, normalizer.Document(text), progress)
}

// run drives the shared back half of both entry points: parse, reconcile
// account by account, categorize, record usage.
func (s *ParseService) run(ctx context.Context, p parser.Parser, userID uuid.UUID, text string, progress parser.Progress) (*parser.ParseResult, error) {
	res, err := p.Parse(ctx, text, progress)
	if err != nil {
		return nil, err
	}

	for i := range res.Statement.Accounts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Warnings = append(res.Warnings, s.reconciler.ReconcileAccount(&res.Statement.Accounts[i])...)
	}

	if s.categorizer != nil {
		if err := s.categorizer.Apply(ctx, res.Statement); err != nil {
			s.logger.Warn("categorization failed, leaving movements uncategorized",
				"bank", p.Bank(), "error", err)
		}
	}

	s.recordUsage(ctx, userID)

	s.logger.Info("statement parsed",
		"bank", p.Bank(),
		"accounts", len(res.Statement.Accounts),
		"transactions", res.Statement.TransactionCount(),
		"suspicious", res.Statement.SuspiciousCount(),
		"warnings", len(res.Warnings))

	return res, nil
}

// checkQuota blocks the parse when the caller's month is exhausted. A
// tracker failure fails the parse too: the check is a policy gate, and an
// unreachable tracker must not grant unmetered parses.
func (s *ParseService) checkQuota(ctx context.Context, userID uuid.UUID) error {
	if s.tracker == nil || s.cfg.MonthlyQuota <= 0 {
		return nil
	}

	from, to := monthWindow(time.Now().UTC())
	count, err := s.tracker.ParseCount(ctx, userID, from, to)
	if err != nil {
		return fmt.Errorf("check parse quota: %w", err)
	}
	if count >= s.cfg.MonthlyQuota {
		s.logger.Info("parse quota exhausted", "user", userID, "used", count, "limit", s.cfg.MonthlyQuota)
		return fmt.Errorf("used %d of %d parses this month: %w", count, s.cfg.MonthlyQuota, ErrQuotaExceeded)
	}
	return nil
}

// recordUsage notes one consumption event after a successful parse.
// Recording failures are logged and never fail the parse.
func (s *ParseService) recordUsage(ctx context.Context, userID uuid.UUID) {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.RecordParse(ctx, userID); err != nil {
		s.logger.Warn("failed to record parse usage", "user", userID, "error", err)
	}
}

// monthWindow returns the UTC calendar month containing now as a half-open
// [from, to) interval.
func monthWindow(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// preparePages reconstructs and normalizes the extracted pages, then applies
// the per-bank page rules before handing one contiguous text to the parser.
func (s *ParseService) preparePages(bank statement.Bank, pages []extraction.Page) string {
	doc := normalizer.Document(extraction.Document(pages))
	filtered := s.filterPages(bank, extraction.SplitPages(doc))
	return extraction.JoinPages(filtered)
}

// filterPages drops or trims pages a bank's parser should never see.
// Galicia and BBVA keep every page: both span multiple accounts across page
// boundaries. Supervielle keeps its cover page in full and strips the
// letterhead block that reprints at the top of every following page.
// Santander drops pages carrying neither date anchors nor account markers,
// which removes the promotional inserts in the middle of its statements.
func (s *ParseService) filterPages(bank statement.Bank, pages []string) []string {
	switch bank {
	case statement.BankSupervielle:
		return stripRepeatedHeaders(pages)
	case statement.BankSantander:
		return s.dropNonLedgerPages(pages)
	}
	return pages
}

// stripRepeatedHeaders removes from continuation pages any line that already
// appeared on the cover page as furniture. Ledger lines are never treated as
// furniture, so a movement legitimately repeated across pages survives.
func stripRepeatedHeaders(pages []string) []string {
	if len(pages) < 2 {
		return pages
	}

	furniture := make(map[string]struct{})
	for _, line := range strings.Split(pages[0], "\n") {
		if line != "" && !isLedgerLine(line) {
			furniture[line] = struct{}{}
		}
	}

	out := make([]string, len(pages))
	out[0] = pages[0]
	for i := 1; i < len(pages); i++ {
		lines := strings.Split(pages[i], "\n")
		kept := lines[:0]
		for _, line := range lines {
			if _, dup := furniture[line]; dup {
				continue
			}
			kept = append(kept, line)
		}
		out[i] = strings.Join(kept, "\n")
	}
	return out
}

// dropNonLedgerPages keeps only pages with statement content on them.
func (s *ParseService) dropNonLedgerPages(pages []string) []string {
	kept := make([]string, 0, len(pages))
	dropped := 0
	for _, page := range pages {
		if pageHasLedgerContent(page) {
			kept = append(kept, page)
			continue
		}
		dropped++
	}
	if dropped > 0 {
		s.logger.Debug("dropped pages without ledger content", "pages", dropped)
	}
	return kept
}

// pageHasLedgerContent reports whether a page shows a date anchor or an
// account marker. Pages with neither are inserts, not statement data.
func pageHasLedgerContent(page string) bool {
	for _, line := range strings.Split(page, "\n") {
		if parser.HasDateAnchor(line) {
			return true
		}
		if strings.Contains(strings.ToUpper(line), "CUENTA") {
			return true
		}
	}
	return false
}

// isLedgerLine reports whether a line carries movement data: it opens with a
// date anchor or holds a statement-formatted amount token.
func isLedgerLine(line string) bool {
	if parser.HasDateAnchor(line) {
		return true
	}
	for _, f := range strings.Fields(line) {
		if money.IsStatementToken(f) {
			return true
		}
	}
	return false
}
