package applier

import (
	"fmt"

	"github.com/alpacahq/corpactions/caerrors"
	"github.com/alpacahq/corpactions/models"
	"github.com/alpacahq/corpactions/models/enum"
)

// validateSupported rejects action types the engine has no algorithm
// for. Kept separate from payload validation so callers can tell
// "invalid" apart from "not yet implemented".
func validateSupported(action *models.CorporateAction) error {
	if !action.Type.Supported() {
		return caerrors.NotSupported.WithMsg(
			fmt.Sprintf("%v actions are not supported", action.Type))
	}

	if action.Type == enum.Merger && action.MergerType != nil && *action.MergerType != enum.StockForStock {
		return caerrors.NotSupported.WithMsg(
			fmt.Sprintf("%v mergers are not supported", *action.MergerType))
	}

	return nil
}

// computeAdjustments derives one adjustment per lot. It is pure and
// shared by Apply and Preview so the dry run can never diverge from
// the real thing. The slice index of each lot is its FIFO order.
//
// For splits and stock dividends the quantity scales by to/from and
// the price re-bases by from/to, so qty*price is conserved up to
// division rounding. Mergers record the exchange multiplier and leave
// re-parenting the lot to the surviving asset to the lot history
// owner.
func computeAdjustments(action *models.CorporateAction, lots []models.Lot) ([]models.TransactionAdjustment, error) {
	if err := validateSupported(action); err != nil {
		return nil, err
	}

	adjustments := make([]models.TransactionAdjustment, 0, len(lots))

	for i, lot := range lots {
		adj := models.TransactionAdjustment{
			CorporateActionID:     action.ID,
			OriginalTransactionID: lot.ID,
			FIFOLotOrder:          i,
			DividendTaxStatus:     enum.DividendNA,
		}

		switch action.Type {
		case enum.StockSplit, enum.StockDividend:
			adj.AdjustedQty = lot.Qty.Mul(*action.RatioTo).Div(*action.RatioFrom)
			adj.AdjustedPrice = lot.Price.Mul(*action.RatioFrom).Div(*action.RatioTo)
		case enum.CashDividend:
			adj.AdjustedQty = lot.Qty
			adj.AdjustedPrice = lot.Price

			total := lot.Qty.Mul(*action.DividendAmount)
			adj.TotalDividend = &total

			if action.QualifiedDividend {
				adj.DividendTaxStatus = enum.DividendQualified
			} else {
				adj.DividendTaxStatus = enum.DividendOrdinary
			}
		case enum.Merger:
			adj.AdjustedQty = lot.Qty.Mul(*action.ExchangeRatio)
			adj.AdjustedPrice = lot.Price.Div(*action.ExchangeRatio)
		}

		adjustments = append(adjustments, adj)
	}

	return adjustments, nil
}
