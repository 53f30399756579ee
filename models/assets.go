package models

import (
	"time"

	"github.com/alpacahq/corpactions/models/enum"
	"github.com/gofrs/uuid"
	"github.com/jinzhu/gorm"
)

// Asset is the stable identity a symbol resolves to. Mergers
// reference two of them: the absorbed asset and the surviving one.
type Asset struct {
	ID        uuid.UUID        `json:"id" gorm:"primary_key" sql:"type:uuid;"`
	CreatedAt time.Time        `json:"-"`
	UpdatedAt time.Time        `json:"-"`
	Exchange  string           `json:"exchange" gorm:"unique_index:idx_asset_exchange_symbol" sql:"type:text"`
	Symbol    string           `json:"symbol" gorm:"unique_index:idx_asset_exchange_symbol" sql:"type:text"`
	SymbolOld string           `json:"-" sql:"type:text"`
	CUSIP     string           `json:"-" gorm:"column:cusip" sql:"type:text"`
	Status    enum.AssetStatus `json:"status" sql:"type:text"`
}

func (a *Asset) BeforeCreate(scope *gorm.Scope) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.Must(uuid.NewV4())
	}
	return nil
}

func (a *Asset) Active() bool {
	return a.Status == enum.AssetActive
}
