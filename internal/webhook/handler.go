// Package webhook is the inbound-message entrypoint: it identifies the sender,
// routes to media ingestion or the command dispatcher, and writes exactly one
// TwiML reply per request.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/mementolabs/dosetrack/db/models"
	"github.com/mementolabs/dosetrack/internal/twiml"
)

const ReplyAmbiguousUser = "Ambiguous or no such user"

// UserStore resolves sender identity.
type UserStore interface {
	UsersByPhone(ctx context.Context, phone string) ([]models.User, error)
}

// Dispatcher runs a no-media message body and returns the reply text.
type Dispatcher interface {
	Handle(ctx context.Context, owner int64, body string) string
}

// Ingestor runs a media batch and returns the reply text.
type Ingestor interface {
	Process(ctx context.Context, owner int64, urls []string) string
}

type Options struct {
	Users    UserStore
	Dispatch Dispatcher
	Ingest   Ingestor
	Logger   *slog.Logger
}

type Handler struct {
	users    UserStore
	dispatch Dispatcher
	ingest   Ingestor
	logger   *slog.Logger
}

func New(opts Options) (*Handler, error) {
	if opts.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if opts.Dispatch == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if opts.Ingest == nil {
		return nil, fmt.Errorf("ingestor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		users:    opts.Users,
		dispatch: opts.Dispatch,
		ingest:   opts.Ingest,
		logger:   logger,
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	msg, err := ParseInbound(r)
	if err != nil {
		// No sender means nobody to reply to.
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	correlationID := "sms_" + uuid.NewString()
	logger := h.logger.With("correlation_id", correlationID)
	logger.Info("webhook_inbound", "from", msg.From, "num_media", len(msg.MediaURLs))

	ctx := r.Context()

	// Identity gate: possession of the phone number is the whole auth story,
	// and resolution must finish before any command or media work starts.
	users, err := h.users.UsersByPhone(ctx, msg.From)
	if err != nil {
		logger.Error("webhook_user_lookup", "error", err.Error())
		twiml.Write(w, "Something went wrong.")
		return
	}
	if len(users) != 1 {
		logger.Warn("webhook_identity_rejected", "matches", len(users))
		twiml.Write(w, ReplyAmbiguousUser)
		return
	}
	owner := users[0].ID

	var reply string
	if len(msg.MediaURLs) > 0 {
		reply = h.ingest.Process(ctx, owner, msg.MediaURLs)
	} else {
		reply = h.dispatch.Handle(ctx, owner, msg.Body)
	}

	logger.Info("webhook_reply", "reply", reply)
	twiml.Write(w, reply)
}
