package enum

type CorporateActionType string

const (
	StockSplit      CorporateActionType = "stock_split"
	CashDividend    CorporateActionType = "cash_dividend"
	StockDividend   CorporateActionType = "stock_dividend"
	Merger          CorporateActionType = "merger"
	Spinoff         CorporateActionType = "spinoff"
	ReturnOfCapital CorporateActionType = "return_of_capital"
)

func ValidCorporateActionType(t CorporateActionType) bool {
	switch t {
	case StockSplit:
		fallthrough
	case CashDividend:
		fallthrough
	case StockDividend:
		fallthrough
	case Merger:
		fallthrough
	case Spinoff:
		fallthrough
	case ReturnOfCapital:
		return true
	}
	return false
}

// Supported reports whether the applier has an adjustment algorithm
// for the action type. Spinoffs and returns of capital are declared
// but not yet implemented.
func (t CorporateActionType) Supported() bool {
	switch t {
	case StockSplit, CashDividend, StockDividend, Merger:
		return true
	}
	return false
}

type CorporateActionStatus string

const (
	// declared, not yet applied to any lots
	ActionPending CorporateActionStatus = "pending"
	// adjustments written
	ActionApplied CorporateActionStatus = "applied"
	// adjustments soft-voided after application
	ActionReversed CorporateActionStatus = "reversed"
	// withdrawn before ever being applied
	ActionCancelled CorporateActionStatus = "cancelled"
)

// CanTransitionTo enforces the monotonic lifecycle:
// pending -> applied -> reversed, or pending -> cancelled.
func (s CorporateActionStatus) CanTransitionTo(next CorporateActionStatus) bool {
	switch s {
	case ActionPending:
		return next == ActionApplied || next == ActionCancelled
	case ActionApplied:
		return next == ActionReversed
	}
	return false
}

type MergerType string

const (
	StockForStock MergerType = "stock_for_stock"
	CashForStock  MergerType = "cash_for_stock"
)

func ValidMergerType(t MergerType) bool {
	return t == StockForStock || t == CashForStock
}

type DividendTaxStatus string

const (
	DividendQualified DividendTaxStatus = "qualified"
	DividendOrdinary  DividendTaxStatus = "ordinary"
	DividendROC       DividendTaxStatus = "return_of_capital"
	DividendNA        DividendTaxStatus = "n/a"
)

type AssetStatus string

const (
	AssetActive   AssetStatus = "active"
	AssetInactive AssetStatus = "inactive"
)
