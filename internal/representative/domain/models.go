// Package domain contains persistence models for representatives.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status represents representative account states.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// SourcingType says who introduced the representative.
type SourcingType string

const (
	SourcingDirect       SourcingType = "direct"
	SourcingCollaborator SourcingType = "collaborator"
)

// Representative is a reseller account that receives invoices.
// Invariant: SourcingType == collaborator ⇔ CollaboratorID != nil.
type Representative struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Code       string       `gorm:"type:text;not null;uniqueIndex:ux_representatives_code" json:"code"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	Phone      string       `gorm:"type:text" json:"phone,omitempty"`
	TelegramID string       `gorm:"type:text" json:"telegram_id,omitempty"`

	Status         Status        `gorm:"type:text;not null;default:'active'" json:"status"`
	SourcingType   SourcingType  `gorm:"type:text;not null;default:'direct'" json:"sourcing_type"`
	CollaboratorID *snowflake.ID `gorm:"index" json:"collaborator_id,omitempty"`

	// Per-representative price table, in Toman. Zero means "unset, use the
	// system default" for that cell.
	PriceTable PriceTable `gorm:"embedded" json:"price_table"`

	// CommissionOverride, when set, wins over the owning collaborator's
	// commission percentage.
	CommissionOverride decimal.NullDecimal `gorm:"type:numeric(5,2)" json:"commission_override,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Representative) TableName() string { return "representatives" }

// PriceTable holds the 12 unit-price slots: six limited (volume-capped) and
// six unlimited rates, one per subscription duration bucket.
type PriceTable struct {
	Limited1M   int64 `gorm:"column:limited_1m;not null;default:0" json:"limited_1m"`
	Limited2M   int64 `gorm:"column:limited_2m;not null;default:0" json:"limited_2m"`
	Limited3M   int64 `gorm:"column:limited_3m;not null;default:0" json:"limited_3m"`
	Limited4M   int64 `gorm:"column:limited_4m;not null;default:0" json:"limited_4m"`
	Limited5M   int64 `gorm:"column:limited_5m;not null;default:0" json:"limited_5m"`
	Limited6M   int64 `gorm:"column:limited_6m;not null;default:0" json:"limited_6m"`
	Unlimited1M int64 `gorm:"column:unlimited_1m;not null;default:0" json:"unlimited_1m"`
	Unlimited2M int64 `gorm:"column:unlimited_2m;not null;default:0" json:"unlimited_2m"`
	Unlimited3M int64 `gorm:"column:unlimited_3m;not null;default:0" json:"unlimited_3m"`
	Unlimited4M int64 `gorm:"column:unlimited_4m;not null;default:0" json:"unlimited_4m"`
	Unlimited5M int64 `gorm:"column:unlimited_5m;not null;default:0" json:"unlimited_5m"`
	Unlimited6M int64 `gorm:"column:unlimited_6m;not null;default:0" json:"unlimited_6m"`
}

// Limited returns the limited-class slots indexed by duration, 1-based.
func (t PriceTable) Limited() [6]int64 {
	return [6]int64{t.Limited1M, t.Limited2M, t.Limited3M, t.Limited4M, t.Limited5M, t.Limited6M}
}

// Unlimited returns the unlimited-class slots indexed by duration, 1-based.
func (t PriceTable) Unlimited() [6]int64 {
	return [6]int64{t.Unlimited1M, t.Unlimited2M, t.Unlimited3M, t.Unlimited4M, t.Unlimited5M, t.Unlimited6M}
}
