package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/parsbill/parsbill/internal/collaborator/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, collaborator *domain.Collaborator) error {
	return db.WithContext(ctx).Create(collaborator).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Collaborator, error) {
	var collaborator domain.Collaborator
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM collaborators WHERE id = ?`, id,
	).Scan(&collaborator).Error
	if err != nil {
		return nil, err
	}
	if collaborator.ID == 0 {
		return nil, nil
	}
	return &collaborator, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Collaborator, error) {
	var collaborator domain.Collaborator
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM collaborators WHERE code = ?`, code,
	).Scan(&collaborator).Error
	if err != nil {
		return nil, err
	}
	if collaborator.ID == 0 {
		return nil, nil
	}
	return &collaborator, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Collaborator, error) {
	var collaborators []domain.Collaborator
	err := db.WithContext(ctx).
		Model(&domain.Collaborator{}).
		Order("created_at desc, id desc").
		Find(&collaborators).Error
	if err != nil {
		return nil, err
	}
	return collaborators, nil
}

func (r *repo) AccrueEarnings(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE collaborators
		 SET current_earnings = current_earnings + ?,
		     total_earnings = total_earnings + ?,
		     updated_at = ?
		 WHERE id = ?`,
		amount, amount, time.Now().UTC(), id,
	).Error
}

func (r *repo) ReverseEarnings(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE collaborators
		 SET current_earnings = current_earnings - ?,
		     total_earnings = total_earnings - ?,
		     updated_at = ?
		 WHERE id = ? AND current_earnings >= ?`,
		amount, amount, time.Now().UTC(), id, amount,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ApplyPayout(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE collaborators
		 SET current_earnings = current_earnings - ?,
		     total_payouts = total_payouts + ?,
		     updated_at = ?
		 WHERE id = ? AND current_earnings >= ?`,
		amount, amount, time.Now().UTC(), id, amount,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertPayout(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).Create(payout).Error
}

func (r *repo) ListPayouts(ctx context.Context, db *gorm.DB, collaboratorID snowflake.ID) ([]domain.Payout, error) {
	var payouts []domain.Payout
	err := db.WithContext(ctx).
		Model(&domain.Payout{}).
		Where("collaborator_id = ?", collaboratorID).
		Order("created_at desc, id desc").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}
