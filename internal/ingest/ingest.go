// Package ingest handles MMS attachment batches: fan out one download+insert
// per attachment, join on a completion counter, reply exactly once.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mementolabs/dosetrack/db/models"
	"github.com/mementolabs/dosetrack/internal/mediastore"
	"github.com/mementolabs/dosetrack/internal/store"
)

const (
	ReplyNoExperiences = "No experiences to add to!"
	ReplyInternalError = "Something went wrong."

	associationExperience = "experience"

	defaultMaxBytes = 20 * 1024 * 1024
)

// Store is the slice of the data-access collaborator the ingestor needs.
type Store interface {
	CurrentExperience(ctx context.Context, owner int64) (*models.Experience, error)
	CreateMedia(ctx context.Context, m *models.Media) error
}

type Options struct {
	Store    Store
	Media    *mediastore.Dir
	Client   *http.Client
	MaxBytes int64
	Now      func() time.Time
	Logger   *slog.Logger
}

type Ingestor struct {
	store    Store
	media    *mediastore.Dir
	client   *http.Client
	maxBytes int64
	nowFn    func() time.Time
	logger   *slog.Logger
}

func New(opts Options) (*Ingestor, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Media == nil {
		return nil, fmt.Errorf("media dir is required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:    opts.Store,
		media:    opts.Media,
		client:   client,
		maxBytes: maxBytes,
		nowFn:    nowFn,
		logger:   logger,
	}, nil
}

// Process ingests every attachment of one inbound message and returns the
// reply text. The reply is produced once, only after all len(urls) attachments
// have signalled completion, successful or not.
func (ing *Ingestor) Process(ctx context.Context, owner int64, urls []string) string {
	exp, err := ing.store.CurrentExperience(ctx, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ReplyNoExperiences
		}
		ing.logger.Error("ingest_experience_lookup", "error", err.Error())
		return ReplyInternalError
	}

	// The barrier counts against the declared attachment total, not loop
	// progress, so interleaved completions can't fire the reply early.
	total := len(urls)
	var completed int32
	finished := make(chan struct{})
	var once sync.Once

	for i, url := range urls {
		go func(index int, url string) {
			if err := ing.ingestOne(ctx, owner, exp.ID, url); err != nil {
				ing.logger.Warn("media_ingest_failed", "index", index, "error", err.Error())
			}
			if atomic.AddInt32(&completed, 1) == int32(total) {
				once.Do(func() { close(finished) })
			}
		}(i, url)
	}

	<-finished
	plural := ""
	if total > 1 {
		plural = "s"
	}
	return fmt.Sprintf("Processed %d object%s.", total, plural)
}

// ingestOne downloads one attachment and records its media row. A failed
// download is logged by the caller but does not suppress the insert: the row
// keeps the batch accounting and the generated title visible to namemedia.
func (ing *Ingestor) ingestOne(ctx context.Context, owner, experienceID int64, url string) error {
	name, err := mediastore.RandomName()
	if err != nil {
		return err
	}
	suffix, err := mediastore.RandomSuffix()
	if err != nil {
		return err
	}

	path := ing.media.Path(name)
	var downloadErr error
	if stored, err := ing.download(ctx, url, name); err != nil {
		downloadErr = err
	} else {
		path = stored
	}

	media := &models.Media{
		Filename:        path,
		Title:           "SMS Upload " + suffix,
		Date:            ing.nowFn().Unix(),
		AssociationType: associationExperience,
		Association:     experienceID,
		Owner:           owner,
	}
	if err := ing.store.CreateMedia(ctx, media); err != nil {
		if downloadErr != nil {
			return fmt.Errorf("%v; insert: %w", downloadErr, err)
		}
		return err
	}
	return downloadErr
}

func (ing *Ingestor) download(ctx context.Context, url, name string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("missing media url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := ing.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("media download http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	limited := &limitedReader{r: io.LimitReader(resp.Body, ing.maxBytes+1), max: ing.maxBytes}
	return ing.media.Save(name, limited)
}

// limitedReader errors instead of truncating once max bytes have streamed
// through, so an oversized attachment fails the save rather than storing a
// clipped file.
type limitedReader struct {
	r    io.Reader
	max  int64
	seen int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.seen += int64(n)
	if l.seen > l.max {
		return n, fmt.Errorf("media file too large (>%d bytes)", l.max)
	}
	return n, err
}
