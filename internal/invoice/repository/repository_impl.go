package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/parsbill/parsbill/internal/invoice/domain"
	"github.com/parsbill/parsbill/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "invoice_no"}},
			DoNothing: true,
		}).
		Create(invoice)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByNo(ctx context.Context, db *gorm.DB, invoiceNo string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("invoice_no = ?", invoiceNo).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) LoadItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.Item, error) {
	var items []domain.Item
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) LoadPayments(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.RepresentativeID != nil {
		stmt = stmt.Where("representative_id = ?", *filter.RepresentativeID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.IssuedFrom != nil {
		stmt = stmt.Where("issue_date >= ?", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		stmt = stmt.Where("issue_date <= ?", *filter.IssuedTo)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, id)
	}
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	var invoices []*domain.Invoice
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) ApplyPayment(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, amount int64) (*domain.Invoice, error) {
	err := db.WithContext(ctx).Exec(
		`UPDATE invoices SET paid_amount = paid_amount + ?, updated_at = ? WHERE id = ?`,
		amount, time.Now().UTC(), invoiceID,
	).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, db, invoiceID)
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, from []domain.Status, to domain.Status, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case domain.StatusPaid:
		updates["paid_date"] = at
	case domain.StatusCancelled:
		updates["cancelled_at"] = at
	}

	result := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ? AND status IN ?", invoiceID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkOverdueBefore(ctx context.Context, db *gorm.DB, asOf time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE status = ? AND due_date < ?`,
		domain.StatusOverdue, time.Now().UTC(), domain.StatusPending, asOf,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
