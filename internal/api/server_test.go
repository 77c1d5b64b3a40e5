package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelsort/reelsort/internal/config"
	"github.com/reelsort/reelsort/internal/intent"
	"github.com/reelsort/reelsort/internal/logger"
	"github.com/reelsort/reelsort/internal/metadata"
	"github.com/reelsort/reelsort/internal/organizer"
	"github.com/reelsort/reelsort/internal/scan"
	"github.com/reelsort/reelsort/internal/scheduler"
	"github.com/reelsort/reelsort/internal/testutil"
	"github.com/reelsort/reelsort/internal/websocket"
)

func newTestServer(t *testing.T) (*Server, int64) {
	t.Helper()

	tdb := testutil.NewTestDB(t)
	store := metadata.NewStore(tdb.Conn, tdb.Logger)

	seriesID := tdb.SeedSeries(t, "Show Name")
	tdb.SeedEpisode(t, seriesID, 1, 2, "Pilot")
	if err := store.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	cfg := config.Default()
	cfg.Rules = intent.FilterRules{BlacklistExtensions: []string{"tmp"}}

	log := zerolog.New(zerolog.NewTestWriter(t))
	hub := websocket.NewHub()
	go hub.Run()

	sched, err := scheduler.New(log)
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}

	server := NewServer(
		cfg,
		store,
		scan.NewService(log, hub, 2),
		organizer.NewService(log, false),
		sched,
		hub,
		logger.NewStream(10),
		log,
	)
	return server, seriesID
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"clients":0`) {
		t.Errorf("body missing client count: %s", rec.Body.String())
	}
}

func TestGetSeriesEndpoint(t *testing.T) {
	s, seriesID := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/series/"+itoa(seriesID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var detail struct {
		Series   string             `json:"series"`
		Episodes []metadata.Episode `json:"episodes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Series != "Show Name" {
		t.Errorf("series = %q, want %q", detail.Series, "Show Name")
	}
	if len(detail.Episodes) != 1 || detail.Episodes[0].Title != "Pilot" {
		t.Errorf("episodes = %+v", detail.Episodes)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/series/999", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestClassifyEndpoint(t *testing.T) {
	s, seriesID := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/classify",
		`{"path":"Show.Name.S01E02.mkv","seriesId":`+itoa(seriesID)+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result intent.FileIntent
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Action != intent.ActionRename {
		t.Errorf("action = %v, want rename", result.Action)
	}
	wantDest := filepath.Join("Season 01", "Show Name-S01E02-Pilot.mkv")
	if result.Dest != wantDest {
		t.Errorf("dest = %q, want %q", result.Dest, wantDest)
	}
}

func TestClassifyUnknownSeries(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/classify",
		`{"path":"Show.Name.S01E02.mkv","seriesId":999}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestScanAndFetchReport(t *testing.T) {
	s, seriesID := newTestServer(t)

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Show.Name.S01E02.mkv"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	body := `{"root":` + jsonString(root) + `,"seriesId":` + itoa(seriesID) + `}`
	rec := doJSON(t, s, http.MethodPost, "/api/scans", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report scan.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Counts["rename"] != 1 {
		t.Errorf("counts = %v", report.Counts)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/scans/"+report.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get scan status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/scans/"+report.ID+"?format=yaml", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "action: rename") {
		t.Errorf("yaml export status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/scans/does-not-exist", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing scan status = %d, want 404", rec.Code)
	}
}

func TestApplyScanDryRun(t *testing.T) {
	s, seriesID := newTestServer(t)

	root := t.TempDir()
	src := filepath.Join(root, "Show.Name.S01E02.mkv")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/scans",
		`{"root":`+jsonString(root)+`,"seriesId":`+itoa(seriesID)+`}`)
	var report scan.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/scans/"+report.ID+"/apply", `{"dryRun":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var summary organizer.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if !summary.DryRun || summary.Renamed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if _, err := os.Stat(src); err != nil {
		t.Error("dry run moved the source file")
	}
}

func TestRefreshSeriesEndpoint(t *testing.T) {
	s, seriesID := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/series/"+itoa(seriesID)+"/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"episodes":1`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/series/999/refresh", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func itoa(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func jsonString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
