package lothistory

import (
	"github.com/alpacahq/corpactions/caerrors"
	"github.com/alpacahq/corpactions/models"
	"github.com/alpacahq/corpactions/models/enum"
	"github.com/alpacahq/corpactions/utils/date"
	"github.com/alpacahq/gopaca/calendar"
	"github.com/gofrs/uuid"
	"github.com/jinzhu/gorm"
)

// LotProvider hands the applier the acquisition lots of an asset as
// of a date, ascending by acquisition time. That ordering is
// authoritative: the applier tags adjustments with the slice index as
// the FIFO lot order. Lot values must reflect whatever corporate
// actions have already been applied as of that date, so that a later
// action computes from the numeric consequences of earlier ones.
type LotProvider interface {
	LotsAsOf(assetID uuid.UUID, asOf date.Date) ([]models.Lot, error)
}

// SymbolResolver resolves asset references (including a merger's
// surviving asset) to stable identities.
type SymbolResolver interface {
	GetByID(assetID uuid.UUID) (*models.Asset, error)
	GetBySymbol(symbol string) (*models.Asset, error)
}

type LotHistoryService interface {
	LotProvider
	SymbolResolver
	WithTx(tx *gorm.DB) LotHistoryService
}

type lotHistoryService struct {
	LotHistoryService
	tx *gorm.DB
}

func Service() LotHistoryService {
	return &lotHistoryService{}
}

func (s *lotHistoryService) WithTx(tx *gorm.DB) LotHistoryService {
	s.tx = tx
	return s
}

// lot quantities and prices re-base under these action types; cash
// dividends leave them unchanged, and merger lots are re-parented by
// the lot history owner rather than re-based in place
var rebasingTypes = []enum.CorporateActionType{
	enum.StockSplit,
	enum.StockDividend,
}

// LotsAsOf returns lots acquired on or before asOf, interpreted in
// the NY trading calendar. Each lot carries its re-based quantity and
// price: the non-reversed adjustments of actions already applied with
// ex-dates on or before asOf overwrite the raw acquisition values, in
// ex-date order, so the most recent application wins.
func (s *lotHistoryService) LotsAsOf(assetID uuid.UUID, asOf date.Date) ([]models.Lot, error) {
	lots := []models.Lot{}

	q := s.tx.
		Where("asset_id = ? AND acquired_at < ?", assetID, asOf.EndOfDay(calendar.NY)).
		Order("acquired_at ASC, created_at ASC").
		Find(&lots)

	if q.Error != nil && q.Error != gorm.ErrRecordNotFound {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	applied := []models.CorporateAction{}

	q = s.tx.
		Where("asset_id = ? AND status = ? AND ex_date <= ?", assetID, enum.ActionApplied, asOf).
		Where("type IN (?)", rebasingTypes).
		Order("ex_date ASC, created_at ASC").
		Find(&applied)

	if q.Error != nil && q.Error != gorm.ErrRecordNotFound {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	rebased := map[uuid.UUID]models.TransactionAdjustment{}

	for i := range applied {
		adjustments := []models.TransactionAdjustment{}

		q = s.tx.
			Where("corporate_action_id = ? AND is_reversed = ?", applied[i].ID, false).
			Find(&adjustments)

		if q.Error != nil && q.Error != gorm.ErrRecordNotFound {
			return nil, caerrors.InternalServerError.WithError(q.Error)
		}

		for _, adj := range adjustments {
			rebased[adj.OriginalTransactionID] = adj
		}
	}

	for i := range lots {
		if adj, ok := rebased[lots[i].ID]; ok {
			lots[i].Qty = adj.AdjustedQty
			lots[i].Price = adj.AdjustedPrice
		}
	}

	return lots, nil
}

func (s *lotHistoryService) GetByID(assetID uuid.UUID) (*models.Asset, error) {
	asset := &models.Asset{}

	q := s.tx.Where("id = ?", assetID).Find(asset)

	if q.RecordNotFound() {
		return nil, caerrors.NotFound.WithMsg("asset not found")
	}

	if q.Error != nil {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	return asset, nil
}

func (s *lotHistoryService) GetBySymbol(symbol string) (*models.Asset, error) {
	asset := &models.Asset{}

	// clearing firm files sometimes carry the pre-update symbol
	q := s.tx.Where("symbol = ? OR symbol_old = ?", symbol, symbol).Find(asset)

	if q.RecordNotFound() {
		return nil, caerrors.NotFound.WithMsg("asset not found")
	}

	if q.Error != nil {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	return asset, nil
}
