//go:build integration || !unit

package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "review_ingest/internal/adapters/http_server"
	redisad "review_ingest/internal/adapters/redis"
	"review_ingest/internal/app"
	mysqlrepo "review_ingest/internal/storage/mysql"
)

// ---------- helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- the test ----------

func TestHTTP_EndToEnd_BulkUploadThenList(t *testing.T) {
	// Isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=reviews",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "reviews")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	// In-process redis for the read-path cache
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)

	repo := mysqlrepo.New(db)
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		Ingest: app.NewIngestionService(repo, app.NormalizerConfig{}),
		Q:      app.NewQueryService(repo, cache, time.Minute),
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// Upload a small Korean CSV
	csv := "플랫폼,업체명,내용,작성자,날짜\n" +
		"네이버,우리가게,좋은 서비스였습니다,,2024-03-10\n" +
		"카카오,다른가게,괜찮은 경험이었어요,김민수,2024-05-01\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "reviews.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte(csv)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	req, _ := http.NewRequest("POST", ts.URL+"/v1/reviews/bulk", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Owner-ID", "7")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("upload status %d", res.StatusCode)
	}
	var up struct {
		Success bool `json:"success"`
		Created int  `json:"created"`
	}
	if err := json.NewDecoder(res.Body).Decode(&up); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if !up.Success || up.Created != 2 {
		t.Fatalf("unexpected upload result: %+v", up)
	}

	// List them back
	lreq, _ := http.NewRequest("GET", ts.URL+"/v1/reviews?limit=50", nil)
	lreq.Header.Set("X-Owner-ID", "7")
	lres, err := http.DefaultClient.Do(lreq)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer lres.Body.Close()
	if lres.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", lres.StatusCode)
	}
	var page struct {
		Items []struct {
			Platform string `json:"Platform"`
			Author   string `json:"Author"`
		} `json:"Items"`
	}
	if err := json.NewDecoder(lres.Body).Decode(&page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(page.Items))
	}
	// Newest first; blank author was defaulted at ingest time.
	if page.Items[0].Platform != "카카오" || page.Items[1].Author != "익명" {
		t.Fatalf("unexpected page: %+v", page.Items)
	}

	// A re-upload of the same file creates nothing new
	var buf2 bytes.Buffer
	mw2 := multipart.NewWriter(&buf2)
	fw2, _ := mw2.CreateFormFile("file", "reviews.csv")
	_, _ = fw2.Write([]byte(csv))
	_ = mw2.Close()

	req2, _ := http.NewRequest("POST", ts.URL+"/v1/reviews/bulk", &buf2)
	req2.Header.Set("Content-Type", mw2.FormDataContentType())
	req2.Header.Set("X-Owner-ID", "7")
	res2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("POST again: %v", err)
	}
	defer res2.Body.Close()
	var up2 struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
	}
	if err := json.NewDecoder(res2.Body).Decode(&up2); err != nil {
		t.Fatalf("decode re-upload: %v", err)
	}
	if up2.Created != 0 || up2.Skipped != 2 {
		t.Fatalf("re-upload should skip everything: %+v", up2)
	}
}
