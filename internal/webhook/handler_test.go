package webhook

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mementolabs/dosetrack/db"
	"github.com/mementolabs/dosetrack/db/models"
	"github.com/mementolabs/dosetrack/internal/command"
	"github.com/mementolabs/dosetrack/internal/ingest"
	"github.com/mementolabs/dosetrack/internal/mediastore"
	"github.com/mementolabs/dosetrack/internal/store"
)

func twimlDoc(text string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><Response><Message>` + text + `</Message></Response>`
}

type pipeline struct {
	store   *store.Store
	handler *Handler
}

func newPipeline(t *testing.T, client *http.Client, now time.Time) *pipeline {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = ":memory:"
	gdb, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	st, err := store.New(gdb)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	media, err := mediastore.New(filepath.Join(t.TempDir(), "media"))
	if err != nil {
		t.Fatalf("mediastore.New() error = %v", err)
	}
	dispatcher, err := command.New(command.Options{
		Store:    st,
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("command.New() error = %v", err)
	}
	ingestor, err := ingest.New(ingest.Options{
		Store:  st,
		Media:  media,
		Client: client,
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("ingest.New() error = %v", err)
	}
	handler, err := New(Options{Users: st, Dispatch: dispatcher, Ingest: ingestor})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &pipeline{store: st, handler: handler}
}

func (p *pipeline) get(t *testing.T, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/twilio?"+params.Encode(), nil)
	p.handler.ServeHTTP(rec, r)
	return rec
}

func TestServeHTTP_MissingFrom(t *testing.T) {
	p := newPipeline(t, nil, time.Unix(1000, 0))
	rec := p.get(t, url.Values{"Body": {"hello"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("body = %q, want empty", rec.Body.String())
	}
}

func TestServeHTTP_UnknownUser(t *testing.T) {
	p := newPipeline(t, nil, time.Unix(1000, 0))
	rec := p.get(t, url.Values{"From": {"+15550001111"}, "Body": {"hello"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != twimlDoc(ReplyAmbiguousUser) {
		t.Fatalf("body = %q, want ambiguous-user reply", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("content type = %q, want text/xml", ct)
	}
}

func TestServeHTTP_AmbiguousUser(t *testing.T) {
	p := newPipeline(t, nil, time.Unix(1000, 0))
	ctx := context.Background()
	for id := int64(1); id <= 2; id++ {
		u := &models.User{ID: id, Username: fmt.Sprintf("u%d", id), Phone: "+15550001111"}
		if err := p.store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}
	rec := p.get(t, url.Values{"From": {"+15550001111"}, "Body": {"setcount 1 2"}})
	if got := rec.Body.String(); got != twimlDoc(ReplyAmbiguousUser) {
		t.Fatalf("body = %q, want ambiguous-user reply", got)
	}
}

func TestServeHTTP_NoteFlow(t *testing.T) {
	now := time.Date(2026, 3, 7, 15, 4, 0, 0, time.UTC)
	p := newPipeline(t, nil, now)
	ctx := context.Background()
	if err := p.store.CreateUser(ctx, &models.User{ID: 1, Username: "ada", Phone: "+15550001111"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := p.store.CreateExperience(ctx, &models.Experience{Title: "trip", Date: now.Unix(), Owner: 1}); err != nil {
		t.Fatalf("CreateExperience() error = %v", err)
	}

	rec := p.get(t, url.Values{"From": {"+15550001111"}, "Body": {"feeling pretty good"}})
	if got := rec.Body.String(); got != twimlDoc("Note added.") {
		t.Fatalf("body = %q, want note-added reply", got)
	}

	exp, err := p.store.CurrentExperience(ctx, 1)
	if err != nil {
		t.Fatalf("CurrentExperience() error = %v", err)
	}
	if exp.Notes != "\n1504 -- feeling pretty good" {
		t.Fatalf("notes = %q", exp.Notes)
	}
}

func TestServeHTTP_MediaFlow(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("img"))
	}))
	defer origin.Close()

	now := time.Unix(5000, 0)
	p := newPipeline(t, origin.Client(), now)
	ctx := context.Background()
	if err := p.store.CreateUser(ctx, &models.User{ID: 1, Username: "ada", Phone: "+15550001111"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := p.store.CreateExperience(ctx, &models.Experience{Title: "trip", Date: 100, Owner: 1}); err != nil {
		t.Fatalf("CreateExperience() error = %v", err)
	}

	rec := p.get(t, url.Values{
		"From":      {"+15550001111"},
		"NumMedia":  {"2"},
		"MediaUrl0": {origin.URL + "/a"},
		"MediaUrl1": {origin.URL + "/b"},
	})
	if got := rec.Body.String(); got != twimlDoc("Processed 2 objects.") {
		t.Fatalf("body = %q, want processed reply", got)
	}

	latest, err := p.store.LatestMedia(ctx, 1)
	if err != nil {
		t.Fatalf("LatestMedia() error = %v", err)
	}
	if !strings.HasPrefix(latest.Title, "SMS Upload ") {
		t.Fatalf("latest media title = %q", latest.Title)
	}
}

func TestServeHTTP_MediaWithoutExperience(t *testing.T) {
	p := newPipeline(t, nil, time.Unix(5000, 0))
	ctx := context.Background()
	if err := p.store.CreateUser(ctx, &models.User{ID: 1, Username: "ada", Phone: "+15550001111"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	rec := p.get(t, url.Values{
		"From":      {"+15550001111"},
		"NumMedia":  {"1"},
		"MediaUrl0": {"http://127.0.0.1:0/never"},
	})
	if got := rec.Body.String(); got != twimlDoc("No experiences to add to!") {
		t.Fatalf("body = %q, want no-experiences reply", got)
	}
}

func TestServeHTTP_CommandsFlow(t *testing.T) {
	p := newPipeline(t, nil, time.Unix(1000, 0))
	ctx := context.Background()
	if err := p.store.CreateUser(ctx, &models.User{ID: 1, Username: "ada", Phone: "+15550001111"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	rec := p.get(t, url.Values{"From": {"+15550001111"}, "Body": {"commands"}})
	if got := rec.Body.String(); got != twimlDoc(command.ReplyUsage) {
		t.Fatalf("body = %q, want usage reply", got)
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	p := newPipeline(t, nil, time.Unix(1000, 0))
	rec := httptest.NewRecorder()
	r := httptest.NewRequest("DELETE", "/twilio", nil)
	p.handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
