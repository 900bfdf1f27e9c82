package app_test

import (
	"context"
	"testing"
	"time"

	"review_ingest/internal/app"
	"review_ingest/internal/domain"
)

// ---- fakes ----

type fakeCache struct {
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.ReviewsPage:
		*d = v.(domain.ReviewsPage)
	case *domain.Extraction:
		*d = v.(domain.Extraction)
	case *int64:
		*d = v.(int64)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// ---- tests ----

func TestListReviews_CacheMissThenHit(t *testing.T) {
	repo := &fakeRepo{listOut: domain.ReviewsPage{Items: []domain.Review{
		{ID: 1, OwnerID: 7, Platform: "naver", Business: "우리가게", Author: "익명"},
	}}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	pg := domain.PageQuery{Limit: 50, Sort: "-review_date"}

	out, err := q.ListReviews(context.Background(), 7, pg)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Business != "우리가게" {
		t.Fatalf("unexpected page: %+v", out)
	}

	// Mutate repo to prove the second read comes from cache.
	repo.listOut.Items[0].Business = "SHOULD NOT SEE THIS"

	out2, err := q.ListReviews(context.Background(), 7, pg)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out2.Items[0].Business != "우리가게" {
		t.Fatalf("expected cached business, got %s", out2.Items[0].Business)
	}
}

func TestInvalidateReviews_BustsEveryPageVariant(t *testing.T) {
	repo := &fakeRepo{listOut: domain.ReviewsPage{Items: []domain.Review{
		{ID: 1, OwnerID: 7, Platform: "naver", Business: "우리가게"},
	}}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	// An uncommon limit still gets cached.
	pg := domain.PageQuery{Limit: 30, Sort: "-review_date"}
	if _, err := q.ListReviews(context.Background(), 7, pg); err != nil {
		t.Fatalf("err: %v", err)
	}

	repo.listOut.Items[0].Business = "새가게"

	out, err := q.ListReviews(context.Background(), 7, pg)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Items[0].Business != "우리가게" {
		t.Fatalf("expected stale cached page before invalidation, got %s", out.Items[0].Business)
	}

	q.InvalidateReviews(context.Background(), 7)

	out, err = q.ListReviews(context.Background(), 7, pg)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Items[0].Business != "새가게" {
		t.Fatalf("expected fresh page after invalidation, got %s", out.Items[0].Business)
	}
}

func TestInvalidateReviews_ScopedToOwner(t *testing.T) {
	repo := &fakeRepo{listOut: domain.ReviewsPage{Items: []domain.Review{
		{ID: 1, OwnerID: 8, Platform: "kakao", Business: "다른가게"},
	}}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	pg := domain.PageQuery{Limit: 50, Sort: "-review_date"}
	if _, err := q.ListReviews(context.Background(), 8, pg); err != nil {
		t.Fatalf("err: %v", err)
	}

	repo.listOut.Items[0].Business = "SHOULD NOT SEE THIS"

	// Bumping another owner's generation leaves owner 8's page cached.
	q.InvalidateReviews(context.Background(), 7)

	out, err := q.ListReviews(context.Background(), 8, pg)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Items[0].Business != "다른가게" {
		t.Fatalf("owner 8's cache should be untouched, got %s", out.Items[0].Business)
	}
}
