// Package store is the owner-scoped data-access layer for the webhook
// interpreter. Every read and write takes an explicit owner id; no operation
// touches a row whose owner column differs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mementolabs/dosetrack/db/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("store: not found")

type Store struct {
	gdb *gorm.DB
}

func New(gdb *gorm.DB) (*Store, error) {
	if gdb == nil {
		return nil, fmt.Errorf("gorm db is required")
	}
	return &Store{gdb: gdb}, nil
}

// UsersByPhone returns every user registered under the given phone number.
// Callers decide what zero or multiple matches mean.
func (s *Store) UsersByPhone(ctx context.Context, phone string) ([]models.User, error) {
	var users []models.User
	if err := s.gdb.WithContext(ctx).Where("phone = ?", phone).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("users by phone: %w", err)
	}
	return users, nil
}

// CurrentExperience is the experience with the maximum creation timestamp for
// the owner, or ErrNotFound when the owner has none.
func (s *Store) CurrentExperience(ctx context.Context, owner int64) (*models.Experience, error) {
	var exps []models.Experience
	err := s.gdb.WithContext(ctx).
		Where("owner = ?", owner).
		Order("date DESC").
		Limit(1).
		Find(&exps).Error
	if err != nil {
		return nil, fmt.Errorf("current experience: %w", err)
	}
	if len(exps) == 0 {
		return nil, ErrNotFound
	}
	return &exps[0], nil
}

// ConsumptionByID resolves a consumption by id within the owner scope. If the
// id somehow matches multiple rows the newest wins.
func (s *Store) ConsumptionByID(ctx context.Context, owner, id int64) (*models.Consumption, error) {
	var cons []models.Consumption
	err := s.gdb.WithContext(ctx).
		Where("owner = ? AND id = ?", owner, id).
		Order("date DESC").
		Limit(1).
		Find(&cons).Error
	if err != nil {
		return nil, fmt.Errorf("consumption by id: %w", err)
	}
	if len(cons) == 0 {
		return nil, ErrNotFound
	}
	return &cons[0], nil
}

// ConsumptionRow is a consumption joined with its drug's display fields.
type ConsumptionRow struct {
	ID    int64
	Count float64
	Unit  string
	Name  string
}

// ListConsumptions returns every consumption of an experience, newest first,
// joined with the drug name and unit.
func (s *Store) ListConsumptions(ctx context.Context, owner, experienceID int64) ([]ConsumptionRow, error) {
	var rows []ConsumptionRow
	err := s.gdb.WithContext(ctx).
		Table("consumptions").
		Select("consumptions.id AS id, consumptions.count AS count, drugs.unit AS unit, drugs.name AS name").
		Joins("LEFT JOIN drugs ON drugs.id = consumptions.drug_id").
		Where("consumptions.owner = ? AND consumptions.experience_id = ?", owner, experienceID).
		Order("consumptions.date DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list consumptions: %w", err)
	}
	return rows, nil
}

func (s *Store) UpdateConsumptionCount(ctx context.Context, id int64, count float64) error {
	err := s.gdb.WithContext(ctx).
		Model(&models.Consumption{}).
		Where("id = ?", id).
		Update("count", count).Error
	if err != nil {
		return fmt.Errorf("update consumption count: %w", err)
	}
	return nil
}

func (s *Store) UpdateConsumptionDate(ctx context.Context, id, epoch int64) error {
	err := s.gdb.WithContext(ctx).
		Model(&models.Consumption{}).
		Where("id = ?", id).
		Update("date", epoch).Error
	if err != nil {
		return fmt.Errorf("update consumption date: %w", err)
	}
	return nil
}

func (s *Store) CreateConsumption(ctx context.Context, con *models.Consumption) error {
	if con == nil {
		return fmt.Errorf("consumption is required")
	}
	if err := s.gdb.WithContext(ctx).Create(con).Error; err != nil {
		return fmt.Errorf("create consumption: %w", err)
	}
	return nil
}

// LatestMedia is the most recently dated media row for the owner, or
// ErrNotFound.
func (s *Store) LatestMedia(ctx context.Context, owner int64) (*models.Media, error) {
	var media []models.Media
	err := s.gdb.WithContext(ctx).
		Where("owner = ?", owner).
		Order("date DESC").
		Limit(1).
		Find(&media).Error
	if err != nil {
		return nil, fmt.Errorf("latest media: %w", err)
	}
	if len(media) == 0 {
		return nil, ErrNotFound
	}
	return &media[0], nil
}

func (s *Store) UpdateMediaTitle(ctx context.Context, id int64, title string) error {
	err := s.gdb.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ?", id).
		Update("title", title).Error
	if err != nil {
		return fmt.Errorf("update media title: %w", err)
	}
	return nil
}

func (s *Store) CreateMedia(ctx context.Context, m *models.Media) error {
	if m == nil {
		return fmt.Errorf("media is required")
	}
	if err := s.gdb.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

func (s *Store) UpdateExperienceNotes(ctx context.Context, id int64, notes string) error {
	err := s.gdb.WithContext(ctx).
		Model(&models.Experience{}).
		Where("id = ?", id).
		Update("notes", notes).Error
	if err != nil {
		return fmt.Errorf("update experience notes: %w", err)
	}
	return nil
}

// UpdateExperienceTTime designates (or clears, with 0) the consumption that
// serves as the experience's T-zero reference.
func (s *Store) UpdateExperienceTTime(ctx context.Context, id, ttime int64) error {
	err := s.gdb.WithContext(ctx).
		Model(&models.Experience{}).
		Where("id = ?", id).
		Update("ttime", ttime).Error
	if err != nil {
		return fmt.Errorf("update experience ttime: %w", err)
	}
	return nil
}

// Creation helpers below back the registration/CRUD surface that lives outside
// the interpreter. The webhook handlers never call them directly.

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	if err := s.gdb.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) CreateExperience(ctx context.Context, exp *models.Experience) error {
	if exp == nil {
		return fmt.Errorf("experience is required")
	}
	if err := s.gdb.WithContext(ctx).Create(exp).Error; err != nil {
		return fmt.Errorf("create experience: %w", err)
	}
	return nil
}

func (s *Store) CreateDrug(ctx context.Context, d *models.Drug) error {
	if d == nil {
		return fmt.Errorf("drug is required")
	}
	if err := s.gdb.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("create drug: %w", err)
	}
	return nil
}

func (s *Store) CreateMethod(ctx context.Context, m *models.Method) error {
	if m == nil {
		return fmt.Errorf("method is required")
	}
	if err := s.gdb.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create method: %w", err)
	}
	return nil
}
