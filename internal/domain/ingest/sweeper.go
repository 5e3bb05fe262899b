// Package ingest drives the drop-folder pipeline: PDFs landing in a watch
// directory are detected, parsed, exported and archived without manual
// bank selection. Processed files move to a processed/ subdirectory,
// unparseable ones to failed/, and quota-deferred ones stay put for the
// next sweep.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-ledger/internal/domain/export"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement/parser"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement/service"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement/sniffer"
	"github.com/FACorreiaa/statement-ledger/pkg/storage"
)

const (
	processedDirName = "processed"
	failedDirName    = "failed"
	ledgersDirName   = "ledgers"
)

// StatementParser is the pipeline collaborator: it turns raw PDF bytes into
// a reconciled ledger, sniffing the issuing bank from the document itself.
type StatementParser interface {
	ParseAuto(ctx context.Context, userID uuid.UUID, pdfData []byte, progress parser.Progress) (*parser.ParseResult, *sniffer.Detection, error)
}

// Config tunes one sweeper.
type Config struct {
	// Dir is the watched drop folder.
	Dir string
	// OutDir receives the exported ledgers. Empty means Dir/ledgers.
	OutDir string
	// Format selects the export encoding. Empty means CSV.
	Format export.Format
	// UserID is the consumption account every parse is billed to.
	UserID uuid.UUID
	// Workers caps concurrent parses. Zero or negative means GOMAXPROCS.
	Workers int
}

// Outcome reports what happened to one swept file.
type Outcome struct {
	File       string
	Bank       statement.Bank
	Movements  int
	Suspicious int
	Export     string
	// Deferred marks a file left in place for the next sweep (quota).
	Deferred bool
	Err      error
}

// Result aggregates one sweep.
type Result struct {
	Scanned   int
	Processed int
	Failed    int
	Deferred  int
	Outcomes  []Outcome
}

// Sweeper scans a drop folder and runs every statement PDF it finds
// through the parse pipeline.
type Sweeper struct {
	parser  StatementParser
	archive storage.Archive // Optional: nil disables archiving
	logger  *slog.Logger
	cfg     Config
}

// NewSweeper creates a sweeper over the configured drop folder.
func NewSweeper(p StatementParser, cfg Config, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OutDir == "" {
		cfg.OutDir = filepath.Join(cfg.Dir, ledgersDirName)
	}
	if cfg.Format == "" {
		cfg.Format = export.FormatCSV
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Sweeper{parser: p, logger: logger, cfg: cfg}
}

// WithArchive stores every source PDF and exported ledger after a
// successful parse.
func (s *Sweeper) WithArchive(a storage.Archive) *Sweeper {
	s.archive = a
	return s
}

// Sweep processes every PDF currently in the drop folder. Files are parsed
// concurrently; the result lists outcomes sorted by file name.
func (s *Sweeper) Sweep(ctx context.Context) (*Result, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read watch directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		files = append(files, entry.Name())
	}
	if len(files) == 0 {
		return &Result{}, nil
	}

	for _, dir := range []string{
		filepath.Join(s.cfg.Dir, processedDirName),
		filepath.Join(s.cfg.Dir, failedDirName),
		s.cfg.OutDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sweep directory: %w", err)
		}
	}

	workers := s.cfg.Workers
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan string, len(files))
	outcomes := make(chan Outcome, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				if ctx.Err() != nil {
					return
				}
				outcomes <- s.processFile(ctx, name)
			}
		}()
	}

	for _, name := range files {
		jobs <- name
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	res := &Result{Scanned: len(files)}
	for outcome := range outcomes {
		res.Outcomes = append(res.Outcomes, outcome)
		switch {
		case outcome.Deferred:
			res.Deferred++
		case outcome.Err != nil:
			res.Failed++
		default:
			res.Processed++
		}
	}
	sort.Slice(res.Outcomes, func(i, j int) bool {
		return res.Outcomes[i].File < res.Outcomes[j].File
	})

	s.logger.Info("watch sweep completed",
		"dir", s.cfg.Dir,
		"scanned", res.Scanned,
		"processed", res.Processed,
		"failed", res.Failed,
		"deferred", res.Deferred)
	return res, nil
}

// processFile runs one PDF through parse, export, archive and relocation.
func (s *Sweeper) processFile(ctx context.Context, name string) Outcome {
	outcome := Outcome{File: name}
	path := filepath.Join(s.cfg.Dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		outcome.Err = fmt.Errorf("read statement: %w", err)
		s.moveTo(path, failedDirName)
		return outcome
	}

	res, detection, err := s.parser.ParseAuto(ctx, s.cfg.UserID, data, nil)
	if detection != nil {
		outcome.Bank = detection.Bank
	}
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			// Leave the file in place: the next sweep in a fresh quota
			// window picks it up again.
			outcome.Deferred = true
			outcome.Err = err
			s.logger.Info("sweep deferred by quota", "file", name)
			return outcome
		}
		outcome.Err = err
		s.moveTo(path, failedDirName)
		return outcome
	}
	if res == nil {
		outcome.Err = fmt.Errorf("unsupported bank %q", outcome.Bank)
		s.moveTo(path, failedDirName)
		return outcome
	}

	outcome.Movements = res.Statement.TransactionCount()
	outcome.Suspicious = res.Statement.SuspiciousCount()
	for _, w := range res.Warnings {
		s.logger.Debug("sweep parse warning", "file", name, "warning", w)
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, s.cfg.Format, res.Statement); err != nil {
		outcome.Err = err
		s.moveTo(path, failedDirName)
		return outcome
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	exportName := fmt.Sprintf("%s.%s", base, s.cfg.Format)
	exportPath := filepath.Join(s.cfg.OutDir, exportName)
	if err := os.WriteFile(exportPath, buf.Bytes(), 0o644); err != nil {
		outcome.Err = fmt.Errorf("write ledger: %w", err)
		s.moveTo(path, failedDirName)
		return outcome
	}
	outcome.Export = exportPath

	s.archiveArtifacts(ctx, name, exportName, string(outcome.Bank), data, buf.Bytes())
	s.moveTo(path, processedDirName)
	return outcome
}

// archiveArtifacts stores the source PDF and the exported ledger. Archive
// trouble never fails a sweep; the ledger already landed in OutDir.
func (s *Sweeper) archiveArtifacts(ctx context.Context, sourceName, exportName, bank string, source, exported []byte) {
	if s.archive == nil {
		return
	}

	if _, err := s.archive.Store(ctx, s.cfg.UserID, storage.Item{
		Name:        sourceName,
		Kind:        storage.KindSource,
		Bank:        bank,
		ContentType: "application/pdf",
	}, bytes.NewReader(source)); err != nil {
		s.logger.Warn("failed to archive source", "file", sourceName, "error", err)
	}

	if _, err := s.archive.Store(ctx, s.cfg.UserID, storage.Item{
		Name:        exportName,
		Kind:        storage.KindExport,
		Bank:        bank,
		ContentType: export.ContentType(s.cfg.Format),
	}, bytes.NewReader(exported)); err != nil {
		s.logger.Warn("failed to archive export", "file", exportName, "error", err)
	}
}

// moveTo relocates a swept file into a sibling state directory.
func (s *Sweeper) moveTo(path, dirName string) {
	dest := filepath.Join(s.cfg.Dir, dirName, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		s.logger.Warn("failed to move swept file", "from", path, "to", dest, "error", err)
	}
}
