package models

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

// Lot is a single acquisition record tracked for cost basis. The
// engine only ever reads lots - adjustments are stored separately so
// every application stays non-destructive and replayable.
type Lot struct {
	ID         uuid.UUID       `json:"id" gorm:"primary_key" sql:"type:uuid;"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	AssetID    uuid.UUID       `json:"asset_id" gorm:"not null;index" sql:"type:uuid;"`
	Qty        decimal.Decimal `json:"qty" gorm:"type:decimal;not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal;not null"`
	AcquiredAt time.Time       `json:"acquired_at" gorm:"type:timestamp with time zone;not null;index"`
}

func (l *Lot) BeforeCreate(scope *gorm.Scope) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.Must(uuid.NewV4())
	}
	return nil
}

// CostBasis is the capital invested in the lot.
func (l *Lot) CostBasis() decimal.Decimal {
	return l.Qty.Mul(l.Price)
}
