package app

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"review_ingest/internal/adapters/spreadsheet"
	"review_ingest/internal/domain"
)

// NormalizerConfig carries the tunables of the tabular pipeline. Zero values
// fall back to the defaults the previous importer shipped with.
type NormalizerConfig struct {
	Aliases       FieldAliases
	BatchSize     int     // persistence batch size
	MaxSamples    int     // error samples surfaced to the caller
	SerialDateMin float64 // spreadsheet serials above this parse as dates
	Now           func() time.Time
}

func (c NormalizerConfig) withDefaults() NormalizerConfig {
	if c.Aliases == nil {
		c.Aliases = DefaultAliases()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxSamples <= 0 {
		c.MaxSamples = 10
	}
	if c.SerialDateMin == 0 {
		c.SerialDateMin = excelEpochMin
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// IngestionService runs the single-pass tabular pipeline: parse, map columns,
// validate, dedup, persist in batches, report.
type IngestionService struct {
	repo domain.ReviewRepository
	cfg  NormalizerConfig
}

func NewIngestionService(repo domain.ReviewRepository, cfg NormalizerConfig) *IngestionService {
	return &IngestionService{repo: repo, cfg: cfg.withDefaults()}
}

const (
	minContentLen = 5
	maxContentLen = 2000

	// author placeholder when the column is absent
	anonymousAuthor = "익명"
)

var nonRatingChars = regexp.MustCompile(`[^\d.]`)

// Ingest processes one uploaded file for one owner. Row-level problems are
// accumulated, never fatal; a *NoValidRowsError is returned when nothing
// usable survives validation.
func (s *IngestionService) Ingest(ctx context.Context, data []byte, fileName string, ownerID int64) (domain.IngestionOutcome, error) {
	doc, err := spreadsheet.Parse(fileName, data)
	if err != nil {
		return domain.IngestionOutcome{}, err
	}

	now := s.cfg.Now()
	b := newOutcomeBuilder(len(doc.Rows)+len(doc.RowErrors), s.cfg.MaxSamples)
	for _, re := range doc.RowErrors {
		b.rowError(re.Line, "unreadable row: %v", re.Err)
	}

	seen := make(map[string]struct{}, len(doc.Rows))
	valid := make([]domain.Review, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		rv, ok := s.normalizeRow(row, ownerID, now, b)
		if !ok {
			continue
		}
		key := rv.DuplicateKey()
		if _, dup := seen[key]; dup {
			b.rowError(row.Line, "duplicate review (same platform, business and content)")
			continue
		}
		seen[key] = struct{}{}
		b.rowValid()
		valid = append(valid, rv)
	}

	if b.totalFailure() {
		log.Warn().
			Str("file", fileName).
			Int("rows", b.totalRows).
			Int("errors", len(b.validationErrors)).
			Msg("bulk upload had no valid rows")
		return b.finalize(), &NoValidRowsError{
			TotalRows:   b.totalRows,
			TotalErrors: len(b.validationErrors),
			Samples:     b.samples(),
		}
	}

	s.persist(ctx, valid, b)

	out := b.finalize()
	log.Info().
		Str("file", fileName).
		Int64("owner", ownerID).
		Int("total", out.TotalRows).
		Int("valid", out.ValidRows).
		Int("created", out.Created).
		Int("skipped", out.Skipped).
		Int("validation_errors", out.ValidationErrors).
		Int("processing_errors", out.ProcessingErrors).
		Msg("bulk upload processed")
	return out, nil
}

// normalizeRow maps one raw row onto the target record. Checks run in order
// and short-circuit to the next row on the first failure.
func (s *IngestionService) normalizeRow(row spreadsheet.Row, ownerID int64, now time.Time, b *outcomeBuilder) (domain.Review, bool) {
	platform := s.cfg.Aliases.resolveText(row, FieldPlatform)
	business := s.cfg.Aliases.resolveText(row, FieldBusiness)
	content := s.cfg.Aliases.resolveText(row, FieldContent)

	if platform == "" || business == "" || content == "" {
		b.rowError(row.Line, "missing required field (platform=%s business=%s content=%s)",
			presence(platform), presence(business), presence(content))
		return domain.Review{}, false
	}
	if n := len([]rune(content)); n < minContentLen {
		b.rowError(row.Line, "content too short (%d chars, minimum %d)", n, minContentLen)
		return domain.Review{}, false
	} else if n > maxContentLen {
		b.rowError(row.Line, "content too long (%d chars, maximum %d)", n, maxContentLen)
		return domain.Review{}, false
	}

	author := s.cfg.Aliases.resolveText(row, FieldAuthor)
	if author == "" {
		author = anonymousAuthor
	}

	rv := domain.Review{
		OwnerID:    ownerID,
		Platform:   platform,
		Business:   business,
		Content:    content,
		Author:     author,
		Rating:     s.resolveRating(row),
		Verified:   false,
		VerifiedBy: "bulk_upload",
	}

	if c, ok := s.cfg.Aliases.resolve(row, FieldReviewDate); ok {
		rv.ReviewDate = coerceDate(c, s.cfg.SerialDateMin, now)
	} else {
		rv.ReviewDate = now
	}
	return rv, true
}

// resolveRating parses the optional rating column. Junk never fails a row;
// the default is 5.
func (s *IngestionService) resolveRating(row spreadsheet.Row) int {
	raw := s.cfg.Aliases.resolveText(row, FieldRating)
	if raw == "" {
		return 5
	}
	f, err := strconv.ParseFloat(nonRatingChars.ReplaceAllString(raw, ""), 64)
	if err != nil {
		return 5
	}
	return clampRating(f)
}

func clampRating(f float64) int {
	return int(math.Min(5, math.Max(1, math.Round(f))))
}

// persist submits valid rows in fixed-size sequential batches. A failed batch
// is recorded and the next batch still runs, so earlier commits stay
// attributable.
func (s *IngestionService) persist(ctx context.Context, valid []domain.Review, b *outcomeBuilder) {
	for i := 0; i < len(valid); i += s.cfg.BatchSize {
		end := i + s.cfg.BatchSize
		if end > len(valid) {
			end = len(valid)
		}
		batchNo := i/s.cfg.BatchSize + 1
		created, err := s.repo.CreateReviews(ctx, valid[i:end])
		if err != nil {
			log.Error().Err(err).Int("batch", batchNo).Msg("review batch insert failed")
			b.batchError(batchNo, err)
			continue
		}
		b.recordCreated(created)
	}
}

func presence(v string) string {
	if v == "" {
		return "missing"
	}
	return "ok"
}
