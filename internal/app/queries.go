package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"review_ingest/internal/domain"
)

// QueryService is the read path for the confirmation UI: owner-scoped review
// pages with cache-aside on top of the repository.
type QueryService struct {
	repo     domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) ListReviews(ctx context.Context, ownerID int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	key := s.pageKey(ctx, ownerID, pg)
	var out domain.ReviewsPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	rs, err := s.repo.ListReviews(ctx, ownerID, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	copyRS := deepCopyReviewsPage(rs)

	// size guard: never cache pathological pages
	if b, _ := json.Marshal(copyRS); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, copyRS, int(s.cacheTTL.Seconds()))
	}
	return copyRS, nil
}

// pageKey namespaces page entries under a per-owner generation number, so one
// write can invalidate every cached page variant regardless of limit or sort.
func (s *QueryService) pageKey(ctx context.Context, ownerID int64, pg domain.PageQuery) string {
	var gen int64
	_, _ = s.cache.Get(ctx, genKey(ownerID), &gen) // a miss reads as generation 0
	return fmt.Sprintf("reviews:%d:g%d:%d:%s", ownerID, gen, pg.Limit, pg.Sort)
}

func genKey(ownerID int64) string { return fmt.Sprintf("reviews:%d:gen", ownerID) }

// InvalidateReviews bumps the owner's page generation after a bulk upload so
// the next confirmation-screen load sees the new rows. Orphaned pages under
// the old generation simply age out via TTL.
func (s *QueryService) InvalidateReviews(ctx context.Context, ownerID int64) {
	_ = s.cache.Set(ctx, genKey(ownerID), time.Now().UnixNano(), 0)
}

func deepCopyReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	out := domain.ReviewsPage{NextCursor: in.NextCursor}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}
