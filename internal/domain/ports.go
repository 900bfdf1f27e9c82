package domain

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

type ReviewRepository interface {
	// CreateReviews inserts a batch, skipping rows that collide with an
	// already stored review. Returns the number actually inserted.
	CreateReviews(ctx context.Context, rs []Review) (int64, error)

	ListReviews(ctx context.Context, ownerID int64, pg PageQuery) (ReviewsPage, error)
}

// OCRClient is the external OCR provider collaborator. It turns an image into
// raw text; field extraction happens on our side.
type OCRClient interface {
	RecognizeText(ctx context.Context, image []byte) (OCRResult, error)
}

type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type PageQuery struct {
	Limit  int
	Cursor *string
	Sort   string
}

type ReviewsPage struct {
	Items      []Review
	NextCursor *string
}
