package mysql

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"strings"

	"review_ingest/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// dedupHash mirrors the in-batch duplicate key so the unique index catches
// re-uploads across requests.
func dedupHash(r domain.Review) string {
	sum := sha1.Sum([]byte(r.DuplicateKey()))
	return hex.EncodeToString(sum[:])
}

func (r *Repo) CreateReviews(ctx context.Context, rs []domain.Review) (int64, error) {
	if len(rs) == 0 {
		return 0, nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*10)
	for _, rv := range rs {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			rv.OwnerID,
			rv.Platform,
			rv.Business,
			rv.Content,
			rv.Author,
			rv.Rating,
			rv.ReviewDate,
			rv.Verified,
			rv.VerifiedBy,
			dedupHash(rv),
		)
	}
	res, err := r.db.ExecContext(ctx, insertReviewsPrefix+strings.Join(values, ","), args...)
	if err != nil {
		return 0, err
	}
	created, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (r *Repo) ListReviews(ctx context.Context, ownerID int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, ownerID, pg.Limit)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.OwnerID,
			&rv.Platform,
			&rv.Business,
			&rv.Content,
			&rv.Author,
			&rv.Rating,
			&rv.ReviewDate,
			&rv.Verified,
			&rv.VerifiedBy,
		); err != nil {
			return domain.ReviewsPage{}, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: out}, nil
}
