package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mementolabs/dosetrack/db/models"
	"github.com/mementolabs/dosetrack/internal/store"
	"github.com/mementolabs/dosetrack/internal/tdelta"
)

// Reply literals. The SMS clients in the field pattern-match on some of these,
// so they are part of the contract.
const (
	ReplyUsage = "[quicknote], [image file], listcon, setcount [id] [count], dupcon [id], jumpcon [id], namemedia [name]"

	ReplyNoExperiences      = "No experiences!"
	ReplyNoExperiencesToAdd = "No experiences to add to!"
	ReplyNoConsumptions     = "No consumptions!"
	ReplyNoMedia            = "No media!"
	ReplyDuplicated         = "Duplicated consumption."
	ReplyDateJumped         = "Date jumped."
	ReplyNoteAdded          = "Note added."
	ReplyInternalError      = "Something went wrong."
)

// Store is the slice of the data-access collaborator the dispatcher needs.
// *store.Store satisfies it.
type Store interface {
	CurrentExperience(ctx context.Context, owner int64) (*models.Experience, error)
	ConsumptionByID(ctx context.Context, owner, id int64) (*models.Consumption, error)
	ListConsumptions(ctx context.Context, owner, experienceID int64) ([]store.ConsumptionRow, error)
	UpdateConsumptionCount(ctx context.Context, id int64, count float64) error
	UpdateConsumptionDate(ctx context.Context, id, epoch int64) error
	CreateConsumption(ctx context.Context, con *models.Consumption) error
	LatestMedia(ctx context.Context, owner int64) (*models.Media, error)
	UpdateMediaTitle(ctx context.Context, id int64, title string) error
	UpdateExperienceNotes(ctx context.Context, id int64, notes string) error
}

type Options struct {
	Store    Store
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

type Dispatcher struct {
	store  Store
	loc    *time.Location
	nowFn  func() time.Time
	logger *slog.Logger
}

func New(opts Options) (*Dispatcher, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:  opts.Store,
		loc:    loc,
		nowFn:  nowFn,
		logger: logger,
	}, nil
}

// Handle runs one message body through the grammar for the given owner and
// returns the reply text. Every path, including store failures, yields a
// reply.
func (d *Dispatcher) Handle(ctx context.Context, owner int64, body string) string {
	cmd := Parse(body)
	switch cmd.Kind {
	case KindCommands:
		return ReplyUsage
	case KindSetCount:
		return d.setCount(ctx, owner, cmd)
	case KindListCon:
		return d.listCon(ctx, owner)
	case KindDupCon:
		return d.dupCon(ctx, owner, cmd)
	case KindJumpCon:
		return d.jumpCon(ctx, owner, cmd)
	case KindNameMedia:
		return d.nameMedia(ctx, owner, cmd)
	default:
		return d.appendNote(ctx, owner, cmd.Body)
	}
}

func (d *Dispatcher) fail(event string, err error) string {
	d.logger.Error(event, "error", err.Error())
	return ReplyInternalError
}

func (d *Dispatcher) setCount(ctx context.Context, owner int64, cmd Command) string {
	if _, err := d.store.CurrentExperience(ctx, owner); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ReplyNoExperiences
		}
		return d.fail("setcount_experience_lookup", err)
	}

	// Malformed ids and counts resolve like lookup misses.
	id, err := strconv.ParseInt(cmd.arg(0), 10, 64)
	if err != nil {
		return ReplyNoConsumptions
	}
	count, err := strconv.ParseFloat(cmd.arg(1), 64)
	if err != nil {
		return ReplyNoConsumptions
	}

	con, err := d.store.ConsumptionByID(ctx, owner, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ReplyNoConsumptions
		}
		return d.fail("setcount_consumption_lookup", err)
	}
	if err := d.store.UpdateConsumptionCount(ctx, con.ID, count); err != nil {
		return d.fail("setcount_update", err)
	}
	return fmt.Sprintf("Updated from %s to %s", formatCount(con.Count), formatCount(count))
}

func (d *Dispatcher) listCon(ctx context.Context, owner int64) string {
	exp, err := d.store.CurrentExperience(ctx, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ReplyNoExperiencesToAdd
		}
		return d.fail("listcon_experience_lookup", err)
	}
	rows, err := d.store.ListConsumptions(ctx, owner, exp.ID)
	if err != nil {
		return d.fail("listcon_list", err)
	}
	if len(rows) == 0 {
		return ReplyNoConsumptions
	}
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%d: %s %s %s", row.ID, formatCount(row.Count), row.Unit, row.Name))
	}
	return strings.Join(parts, ", ")
}

func (d *Dispatcher) dupCon(ctx context.Context, owner int64, cmd Command) string {
	src, reply := d.resolveConsumption(ctx, owner, cmd, "dupcon")
	if reply != "" {
		return reply
	}
	// Owner and experience come from the source row: duplicating must not leak
	// the row into the acting user's current experience.
	dup := &models.Consumption{
		Date:         d.nowFn().Unix(),
		Count:        src.Count,
		DrugID:       src.DrugID,
		MethodID:     src.MethodID,
		Location:     src.Location,
		ExperienceID: src.ExperienceID,
		Owner:        src.Owner,
	}
	if err := d.store.CreateConsumption(ctx, dup); err != nil {
		return d.fail("dupcon_insert", err)
	}
	return ReplyDuplicated
}

func (d *Dispatcher) jumpCon(ctx context.Context, owner int64, cmd Command) string {
	src, reply := d.resolveConsumption(ctx, owner, cmd, "jumpcon")
	if reply != "" {
		return reply
	}
	if err := d.store.UpdateConsumptionDate(ctx, src.ID, d.nowFn().Unix()); err != nil {
		return d.fail("jumpcon_update", err)
	}
	return ReplyDateJumped
}

// resolveConsumption covers the shared current-experience + consumption-by-id
// chain of dupcon and jumpcon. A non-empty reply is terminal.
func (d *Dispatcher) resolveConsumption(ctx context.Context, owner int64, cmd Command, event string) (*models.Consumption, string) {
	if _, err := d.store.CurrentExperience(ctx, owner); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ReplyNoExperiences
		}
		return nil, d.fail(event+"_experience_lookup", err)
	}
	id, err := strconv.ParseInt(cmd.arg(0), 10, 64)
	if err != nil {
		return nil, ReplyNoConsumptions
	}
	con, err := d.store.ConsumptionByID(ctx, owner, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ReplyNoConsumptions
		}
		return nil, d.fail(event+"_consumption_lookup", err)
	}
	return con, ""
}

func (d *Dispatcher) nameMedia(ctx context.Context, owner int64, cmd Command) string {
	media, err := d.store.LatestMedia(ctx, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ReplyNoMedia
		}
		return d.fail("namemedia_lookup", err)
	}
	title := strings.Join(cmd.Args, " ")
	if err := d.store.UpdateMediaTitle(ctx, media.ID, title); err != nil {
		return d.fail("namemedia_update", err)
	}
	return fmt.Sprintf("Media renamed from %s to %s.", media.Title, title)
}

func (d *Dispatcher) appendNote(ctx context.Context, owner int64, body string) string {
	exp, err := d.store.CurrentExperience(ctx, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ReplyNoExperiences
		}
		return d.fail("note_experience_lookup", err)
	}

	now := d.nowFn()
	prefix := ""
	if exp.TTime != 0 {
		tzero, err := d.store.ConsumptionByID(ctx, owner, exp.TTime)
		switch {
		case err == nil:
			prefix = tdelta.Format(time.Unix(tzero.Date, 0), now)
		case errors.Is(err, store.ErrNotFound):
			// Dangling T-zero reference: fall back to the plain stamp.
			d.logger.Warn("note_tzero_missing", "experience_id", exp.ID, "ttime", exp.TTime)
		default:
			return d.fail("note_tzero_lookup", err)
		}
	}
	if prefix == "" {
		prefix = tdelta.Stamp(time.Unix(exp.Date, 0), now, d.loc)
	}

	notes := exp.Notes + "\n" + prefix + " -- " + body
	if err := d.store.UpdateExperienceNotes(ctx, exp.ID, notes); err != nil {
		return d.fail("note_update", err)
	}
	return ReplyNoteAdded
}

// formatCount prints counts without a forced decimal point so whole quantities
// read as "50", not "50.000000".
func formatCount(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}
