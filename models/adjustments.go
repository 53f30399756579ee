package models

import (
	"time"

	"github.com/alpacahq/corpactions/models/enum"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// TransactionAdjustment records the effect of one applied corporate
// action on one acquisition lot. Rows are append-only: the only
// permitted update is flipping IsReversed, which soft-voids the row.
// Original lot records are never touched.
type TransactionAdjustment struct {
	ID                uint      `json:"id" gorm:"primary_key"`
	CreatedAt         time.Time `json:"created_at"`
	CorporateActionID uuid.UUID `json:"corporate_action_id" gorm:"not null;index" sql:"type:uuid;"`
	// the lot this adjustment applies to
	OriginalTransactionID uuid.UUID `json:"original_transaction_id" gorm:"not null;index" sql:"type:uuid;"`
	// oldest lot = 0, per the lot provider's acquisition ordering
	FIFOLotOrder      int                    `json:"fifo_lot_order" gorm:"column:fifo_lot_order;not null"`
	AdjustedQty       decimal.Decimal        `json:"adjusted_qty" gorm:"type:decimal;not null"`
	AdjustedPrice     decimal.Decimal        `json:"adjusted_price" gorm:"type:decimal;not null"`
	TotalDividend     *decimal.Decimal       `json:"total_dividend" gorm:"type:decimal"`
	DividendTaxStatus enum.DividendTaxStatus `json:"dividend_tax_status" gorm:"not null" sql:"type:text"`
	IsReversed        bool                   `json:"is_reversed" gorm:"not null"`
}
