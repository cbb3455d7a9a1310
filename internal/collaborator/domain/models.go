// Package domain contains persistence models for collaborators.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Collaborator is a referral agent earning commission on the representatives
// they introduced.
type Collaborator struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	Code              string          `gorm:"type:text;not null;uniqueIndex:ux_collaborators_code" json:"code"`
	Name              string          `gorm:"type:text;not null" json:"name"`
	Phone             string          `gorm:"type:text" json:"phone,omitempty"`
	TelegramID        string          `gorm:"type:text" json:"telegram_id,omitempty"`
	CommissionPercent decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"commission_percent"`

	// CurrentEarnings is the unpaid balance owed to the collaborator.
	// Invariant: CurrentEarnings = TotalEarnings - TotalPayouts, never negative.
	CurrentEarnings int64 `gorm:"not null;default:0" json:"current_earnings"`
	TotalEarnings   int64 `gorm:"not null;default:0" json:"total_earnings"`
	TotalPayouts    int64 `gorm:"not null;default:0" json:"total_payouts"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Collaborator) TableName() string { return "collaborators" }

// Payout is a withdrawal transaction reducing a collaborator's accumulated
// earnings.
type Payout struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	CollaboratorID snowflake.ID `gorm:"not null;index" json:"collaborator_id"`
	Amount         int64        `gorm:"not null" json:"amount"`
	Reference      string       `gorm:"type:text;not null" json:"reference"`
	Note           string       `gorm:"type:text" json:"note,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payout) TableName() string { return "collaborator_payouts" }
