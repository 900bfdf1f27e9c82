package app

import (
	"fmt"

	"review_ingest/internal/domain"
)

// outcomeBuilder accumulates per-row and per-batch errors during one
// ingestion pass. Validation and processing errors never escape their row or
// batch; only the finalized snapshot leaves the builder.
type outcomeBuilder struct {
	totalRows        int
	validRows        int
	created          int64
	validationErrors []string
	processingErrors []string
	maxSamples       int
}

func newOutcomeBuilder(totalRows, maxSamples int) *outcomeBuilder {
	return &outcomeBuilder{totalRows: totalRows, maxSamples: maxSamples}
}

func (b *outcomeBuilder) rowError(line int, format string, args ...any) {
	b.validationErrors = append(b.validationErrors,
		fmt.Sprintf("row %d: %s", line, fmt.Sprintf(format, args...)))
}

func (b *outcomeBuilder) batchError(batch int, err error) {
	b.processingErrors = append(b.processingErrors,
		fmt.Sprintf("batch %d failed: %v", batch, err))
}

func (b *outcomeBuilder) rowValid() { b.validRows++ }

func (b *outcomeBuilder) recordCreated(n int64) { b.created += n }

// totalFailure is the single predicate deciding hard failure vs. partial
// success: nothing usable survived validation.
func (b *outcomeBuilder) totalFailure() bool { return b.validRows == 0 }

// samples returns validation errors first, then processing errors, capped.
func (b *outcomeBuilder) samples() []string {
	out := make([]string, 0, b.maxSamples)
	for _, e := range b.validationErrors {
		if len(out) == b.maxSamples {
			return out
		}
		out = append(out, e)
	}
	for _, e := range b.processingErrors {
		if len(out) == b.maxSamples {
			return out
		}
		out = append(out, e)
	}
	return out
}

func (b *outcomeBuilder) finalize() domain.IngestionOutcome {
	return domain.IngestionOutcome{
		TotalRows:        b.totalRows,
		ValidRows:        b.validRows,
		Created:          int(b.created),
		Skipped:          b.validRows - int(b.created),
		ValidationErrors: len(b.validationErrors),
		ProcessingErrors: len(b.processingErrors),
		ErrorSamples:     b.samples(),
	}
}

// NoValidRowsError is the terminal failure returned when an upload parses but
// not a single row survives validation. It carries capped samples plus the
// true error count so callers can tell "nothing usable" from partial success.
type NoValidRowsError struct {
	TotalRows   int
	TotalErrors int
	Samples     []string
}

func (e *NoValidRowsError) Error() string {
	return fmt.Sprintf("no valid rows in upload (%d rows, %d errors)", e.TotalRows, e.TotalErrors)
}
