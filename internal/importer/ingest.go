package importer

// ingest.go writes validated records in batches, degrading to per-row
// writes when a batch trips a unique constraint. Only rows that passed
// validation reach this stage.

import (
	"context"

	"log/slog"
)

// DefaultBatchSize is the number of records per insert batch.
const DefaultBatchSize = 500

// Writer persists validated records for one entity type. Implementations
// batch by multi-row statement; a batch either fully succeeds or fully
// fails.
type Writer interface {
	// InsertBatch inserts all records in one statement. A natural-key
	// collision anywhere in the batch fails the whole batch with a
	// unique-violation error.
	InsertBatch(ctx context.Context, recs []Record) error

	// InsertOne inserts a single record, surfacing a per-row
	// unique-violation error on collision.
	InsertOne(ctx context.Context, rec Record) error

	// UpsertBatch inserts all records, updating existing rows in place on
	// natural-key collision.
	UpsertBatch(ctx context.Context, recs []Record) error
}

// Ingestor drives batched ingestion of validated rows.
type Ingestor struct {
	writer    Writer
	batchSize int
	logger    *slog.Logger
	progress  ProgressFunc
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithBatchSize overrides the default batch size. Values below 1 are
// ignored.
func WithBatchSize(n int) IngestorOption {
	return func(ing *Ingestor) {
		if n > 0 {
			ing.batchSize = n
		}
	}
}

// WithProgress registers a callback invoked after each batch.
func WithProgress(fn ProgressFunc) IngestorOption {
	return func(ing *Ingestor) { ing.progress = fn }
}

// NewIngestor creates an Ingestor over the given writer.
func NewIngestor(w Writer, logger *slog.Logger, opts ...IngestorOption) *Ingestor {
	ing := &Ingestor{
		writer:    w,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest writes the valid rows from a validation pass using the given
// duplicate strategy. It returns counts plus per-row failures; a non-nil
// error is returned only when the run was cancelled, alongside the partial
// result for rows written before the cancellation point.
func (ing *Ingestor) Ingest(ctx context.Context, rows []RowResult, strategy Strategy) (IngestResult, error) {
	var result IngestResult
	total := len(rows)
	attempted := 0

	for start := 0; start < total; start += ing.batchSize {
		// Cancellation is cooperative: finished batches stay written.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := start + ing.batchSize
		if end > total {
			end = total
		}
		batch := rows[start:end]

		ing.writeBatch(ctx, batch, strategy, &result)

		attempted += len(batch)
		ing.report(attempted, total)
	}

	return result, nil
}

// writeBatch attempts one batch, falling back to per-row writes when the
// batch fails on a unique violation. Any other batch failure marks every
// row in the batch as errored.
func (ing *Ingestor) writeBatch(ctx context.Context, batch []RowResult, strategy Strategy, result *IngestResult) {
	recs := make([]Record, len(batch))
	for i, row := range batch {
		recs[i] = row.Record
	}

	var err error
	if strategy == StrategyUpsert {
		err = ing.writer.UpsertBatch(ctx, recs)
	} else {
		err = ing.writer.InsertBatch(ctx, recs)
	}

	if err == nil {
		result.SuccessCount += len(batch)
		return
	}

	if !IsUniqueViolation(err) {
		ing.logger.Error("batch write failed",
			slog.String("phase", string(PhaseIngesting)),
			slog.Int("batch_size", len(batch)),
			slog.String("error", err.Error()),
		)
		for _, row := range batch {
			result.ErrorCount++
			result.Errors = append(result.Errors, RowFailure{
				Line:     row.Line,
				Category: CategoryWrite,
				Messages: []string{err.Error()},
				Raw:      row.Raw,
			})
		}
		return
	}

	// At least one record in the batch collides with an existing natural
	// key. Retry row by row so the collisions are isolated and the rest of
	// the batch still lands.
	ing.logger.Info("batch collided on unique key, retrying per row",
		slog.String("phase", string(PhaseIngesting)),
		slog.Int("batch_size", len(batch)),
	)
	for _, row := range batch {
		ing.writeOne(ctx, row, result)
	}
}

func (ing *Ingestor) writeOne(ctx context.Context, row RowResult, result *IngestResult) {
	err := ing.writer.InsertOne(ctx, row.Record)
	switch {
	case err == nil:
		result.SuccessCount++
	case IsUniqueViolation(err):
		result.SkippedCount++
	default:
		result.ErrorCount++
		result.Errors = append(result.Errors, RowFailure{
			Line:     row.Line,
			Category: CategoryWrite,
			Messages: []string{err.Error()},
			Raw:      row.Raw,
		})
	}
}

func (ing *Ingestor) report(attempted, total int) {
	if ing.progress == nil {
		return
	}
	if attempted > total {
		attempted = total
	}
	ing.progress(attempted, total)
}
