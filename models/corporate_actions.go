package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/alpacahq/corpactions/models/enum"
	"github.com/alpacahq/corpactions/utils/date"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofrs/uuid"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

// CorporateAction is the durable record of a declared corporate
// event. It is created pending by the host application, and its
// status is mutated only by the applier (apply/reverse) or an
// explicit cancel. Rows are never deleted - together with the
// transaction adjustments they form the audit trail.
type CorporateAction struct {
	ID          uuid.UUID                  `json:"id" gorm:"primary_key" sql:"type:uuid;"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
	Type        enum.CorporateActionType   `json:"type" gorm:"not null;index" sql:"type:text"`
	AssetID     uuid.UUID                  `json:"asset_id" gorm:"not null;index" sql:"type:uuid;"`
	ExDate      date.Date                  `json:"ex_date" gorm:"not null" sql:"type:date"`
	PayDate     *date.Date                 `json:"pay_date" sql:"type:date"`
	Description string                     `json:"description" sql:"type:text"`

	// splits & stock dividends
	RatioFrom *decimal.Decimal `json:"ratio_from" gorm:"type:decimal"`
	RatioTo   *decimal.Decimal `json:"ratio_to" gorm:"type:decimal"`

	// cash dividends
	DividendAmount    *decimal.Decimal `json:"dividend_amount" gorm:"type:decimal"`
	DividendCurrency  *string          `json:"dividend_currency" sql:"type:varchar(3)"`
	QualifiedDividend bool             `json:"qualified_dividend"`

	// mergers
	MergerType    *enum.MergerType `json:"merger_type" sql:"type:text"`
	NewAssetID    *uuid.UUID       `json:"new_asset_id" sql:"type:uuid"`
	ExchangeRatio *decimal.Decimal `json:"exchange_ratio" gorm:"type:decimal"`

	Status         enum.CorporateActionStatus `json:"status" gorm:"not null;index" sql:"type:text"`
	AppliedBy      *string                    `json:"applied_by" sql:"type:text"`
	AppliedAt      *time.Time                 `json:"applied_at"`
	ReversalReason *string                    `json:"reversal_reason" sql:"type:text"`
}

func (a *CorporateAction) BeforeCreate(scope *gorm.Scope) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.Must(uuid.NewV4())
	}
	if a.Status == "" {
		a.Status = enum.ActionPending
	}
	return nil
}

var currencyPattern = regexp.MustCompile("^[A-Z]{3}$")

// Validate checks the type-specific payload at creation time.
// Positivity constraints mirror the arithmetic in the applier:
// a zero or negative ratio would destroy cost basis.
func (a *CorporateAction) Validate() error {
	if !enum.ValidCorporateActionType(a.Type) {
		return fmt.Errorf("invalid corporate action type %q", a.Type)
	}

	// validation.Required only sees zero time.Time, not a zero civil
	// date, so the presence check stays on the date type itself
	if a.ExDate.IsZero() {
		return fmt.Errorf("ex_date is required")
	}

	switch a.Type {
	case enum.StockSplit, enum.StockDividend:
		if a.RatioFrom == nil || a.RatioTo == nil {
			return fmt.Errorf("%v requires ratio_from and ratio_to", a.Type)
		}
		// ozzo threshold rules skip zero values, so strict positivity
		// is checked on the decimals directly
		if !a.RatioFrom.IsPositive() {
			return fmt.Errorf("ratio_from must be greater than 0")
		}
		if !a.RatioTo.IsPositive() {
			return fmt.Errorf("ratio_to must be greater than 0")
		}
	case enum.CashDividend:
		if a.DividendAmount == nil {
			return fmt.Errorf("%v requires dividend_amount", a.Type)
		}
		amt, _ := a.DividendAmount.Float64()
		if err := validation.Validate(amt, validation.Min(float64(0))); err != nil {
			return fmt.Errorf("dividend_amount must not be negative")
		}
		if a.DividendCurrency != nil {
			if err := validation.Validate(
				*a.DividendCurrency,
				validation.Match(currencyPattern),
			); err != nil {
				return fmt.Errorf("dividend_currency must be an ISO 4217 code")
			}
		}
	case enum.Merger:
		if a.MergerType == nil {
			return fmt.Errorf("merger requires merger_type")
		}
		if !enum.ValidMergerType(*a.MergerType) {
			return fmt.Errorf("invalid merger type %q", *a.MergerType)
		}
		if a.NewAssetID == nil || *a.NewAssetID == uuid.Nil {
			return fmt.Errorf("merger requires new_asset_id")
		}
		if a.ExchangeRatio == nil {
			return fmt.Errorf("merger requires exchange_ratio")
		}
		if !a.ExchangeRatio.IsPositive() {
			return fmt.Errorf("exchange_ratio must be greater than 0")
		}
	}

	if a.PayDate != nil && a.PayDate.Before(a.ExDate) {
		return fmt.Errorf("pay_date must not precede ex_date")
	}

	return nil
}
