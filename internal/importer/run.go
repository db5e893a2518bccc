package importer

// run.go orchestrates one import run end to end: resolve the template,
// validate rows against reference data, open the audit session, ingest,
// record failures, and close the session with a terminal status.

import (
	"context"
	"time"

	"log/slog"

	"github.com/lindale-isd/districtops/internal/mapper"
	"github.com/lindale-isd/districtops/internal/registry"
)

// ContextLoader fetches the reference-data snapshot an import validates
// against.
type ContextLoader interface {
	LoadContext(ctx context.Context, entityType string) (*Context, error)
}

// Runner wires the pipeline stages together for the import endpoints.
type Runner struct {
	writer  Writer
	ledger  Ledger
	loader  ContextLoader
	logger  *slog.Logger
	options []IngestorOption
}

// NewRunner builds a Runner. Ingestor options (batch size, progress) are
// applied to every run.
func NewRunner(w Writer, ledger Ledger, loader ContextLoader, logger *slog.Logger, opts ...IngestorOption) *Runner {
	return &Runner{
		writer:  w,
		ledger:  ledger,
		loader:  loader,
		logger:  logger,
		options: opts,
	}
}

// RunRequest carries one parsed upload through the pipeline.
type RunRequest struct {
	EntityType string
	FileName   string
	Headers    []string
	Rows       [][]string
	Mapping    mapper.ColumnMapping
	Strategy   Strategy
}

// RunReport is the outcome of a completed (or partially completed) run.
type RunReport struct {
	Session    Session        `json:"session"`
	Validation map[string]int `json:"validation"`
	Failures   []RowFailure   `json:"-"`
}

// Run executes an import. It returns a fatal error only when nothing was
// ingested: unknown entity type, empty file, missing required columns, or
// a ledger failure. Per-row problems are reported on the session instead.
func (r *Runner) Run(ctx context.Context, req RunRequest) (RunReport, error) {
	tpl, err := registry.Get(req.EntityType)
	if err != nil {
		return RunReport{}, err
	}

	if len(req.Rows) == 0 {
		return RunReport{}, &FileParseError{Reason: "empty file: no data rows below the header"}
	}

	if !ValidStrategy(req.Strategy) {
		req.Strategy = StrategySkip
	}

	if missing := mapper.MissingRequired(tpl, req.Mapping); len(missing) > 0 {
		return RunReport{}, &MissingColumnsError{Columns: missing}
	}

	vctx, err := r.loader.LoadContext(ctx, req.EntityType)
	if err != nil {
		return RunReport{}, err
	}

	summary := Validate(tpl, req.Headers, req.Rows, req.Mapping, vctx)
	r.logger.Info("validation complete",
		slog.String("phase", string(PhaseValidating)),
		slog.String("entity_type", req.EntityType),
		slog.Int("total", summary.Total),
		slog.Int("valid", len(summary.Valid)),
		slog.Int("errors", len(summary.Errors)),
		slog.Int("warned", len(summary.Warned)),
	)

	session, err := openSession(ctx, r.ledger, Session{
		EntityType: req.EntityType,
		FileName:   req.FileName,
		Strategy:   req.Strategy,
		Mapping:    req.Mapping,
		TotalRows:  summary.Total,
		Status:     StatusProcessing,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return RunReport{}, err
	}

	ingestor := NewIngestor(r.writer, r.logger, r.options...)
	result, runErr := ingestor.Ingest(ctx, summary.Valid, req.Strategy)

	// Ledger writes run on a detached context so a cancelled run still
	// gets its audit record.
	closeCtx := context.WithoutCancel(ctx)

	failures := collectFailures(summary, result)
	if len(failures) > 0 {
		if err := r.ledger.RecordFailures(closeCtx, session.ID, failures); err != nil {
			r.logger.Error("recording row failures failed",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	errorCount := result.ErrorCount + len(summary.Errors)
	status := CloseStatus(result.SuccessCount, errorCount)
	if runErr != nil {
		// A cancelled run never closes as completed: rows past the
		// cancellation point were never attempted.
		status = StatusPartial
		if result.SuccessCount == 0 {
			status = StatusFailed
		}
	}

	if err := r.ledger.Close(closeCtx, session.ID, result.SuccessCount, errorCount, result.SkippedCount, status); err != nil {
		return RunReport{}, &LedgerError{Op: "close", Err: err}
	}

	session.SuccessCount = result.SuccessCount
	session.ErrorCount = errorCount
	session.SkippedCount = result.SkippedCount
	session.Status = status
	now := time.Now()
	session.CompletedAt = &now

	phase := PhaseDone
	if status == StatusFailed {
		phase = PhaseFailed
	}
	r.logger.Info("import run finished",
		slog.String("phase", string(phase)),
		slog.String("session_id", session.ID),
		slog.String("status", string(status)),
		slog.Int("success", result.SuccessCount),
		slog.Int("errors", errorCount),
		slog.Int("skipped", result.SkippedCount),
	)

	return RunReport{
		Session: session,
		Validation: map[string]int{
			"total":  summary.Total,
			"valid":  len(summary.Valid),
			"errors": len(summary.Errors),
			"warned": len(summary.Warned),
		},
		Failures: failures,
	}, runErr
}

// collectFailures merges validation failures and write failures into one
// ledger payload, sorted by arrival (validation rows first, then write
// errors in batch order).
func collectFailures(summary ValidationSummary, result IngestResult) []RowFailure {
	failures := make([]RowFailure, 0, len(summary.Errors)+len(result.Errors))
	for _, row := range summary.Errors {
		failures = append(failures, RowFailure{
			Line:     row.Line,
			Category: rowCategory(row.Errors),
			Messages: errorMessages(row.Errors),
			Raw:      row.Raw,
		})
	}
	failures = append(failures, result.Errors...)
	return failures
}

// rowCategory picks the ledger category for a validation failure: an
// unresolved reference outranks a plain validation message.
func rowCategory(errs []FieldError) ErrorCategory {
	for _, e := range errs {
		if e.Category == CategoryReference {
			return CategoryReference
		}
	}
	return CategoryValidation
}

func errorMessages(errs []FieldError) []string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return msgs
}
