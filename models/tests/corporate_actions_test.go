package models

import (
	"testing"

	"github.com/alpacahq/corpactions/models"
	"github.com/alpacahq/corpactions/models/enum"
	"github.com/alpacahq/corpactions/utils/date"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validSplit() *models.CorporateAction {
	rf := decimal.New(1, 0)
	rt := decimal.New(2, 0)
	exDate, _ := date.ParseDate("2024-05-01")
	return &models.CorporateAction{
		Type:      enum.StockSplit,
		AssetID:   uuid.Must(uuid.NewV4()),
		ExDate:    exDate,
		RatioFrom: &rf,
		RatioTo:   &rt,
	}
}

func TestValidateSplit(t *testing.T) {
	assert.Nil(t, validSplit().Validate())

	{
		action := validSplit()
		action.RatioFrom = nil
		assert.NotNil(t, action.Validate())
	}

	{
		action := validSplit()
		zero := decimal.Zero
		action.RatioTo = &zero
		assert.NotNil(t, action.Validate())
	}

	{
		action := validSplit()
		neg := decimal.New(-1, 0)
		action.RatioFrom = &neg
		assert.NotNil(t, action.Validate())
	}

	{
		action := validSplit()
		action.ExDate = date.Date{}
		assert.NotNil(t, action.Validate())
	}
}

func TestValidateDividend(t *testing.T) {
	exDate, _ := date.ParseDate("2024-06-03")
	amt := decimal.New(25, -2)
	ccy := "USD"

	action := &models.CorporateAction{
		Type:             enum.CashDividend,
		AssetID:          uuid.Must(uuid.NewV4()),
		ExDate:           exDate,
		DividendAmount:   &amt,
		DividendCurrency: &ccy,
	}
	assert.Nil(t, action.Validate())

	// zero is a valid declared amount
	zero := decimal.Zero
	action.DividendAmount = &zero
	assert.Nil(t, action.Validate())

	neg := decimal.New(-25, -2)
	action.DividendAmount = &neg
	assert.NotNil(t, action.Validate())

	action.DividendAmount = &amt
	bad := "usd"
	action.DividendCurrency = &bad
	assert.NotNil(t, action.Validate())

	action.DividendCurrency = nil
	action.DividendAmount = nil
	assert.NotNil(t, action.Validate())
}

func TestValidateMerger(t *testing.T) {
	exDate, _ := date.ParseDate("2024-07-01")
	mt := enum.StockForStock
	ratio := decimal.New(5, -1)
	survivor := uuid.Must(uuid.NewV4())

	action := &models.CorporateAction{
		Type:          enum.Merger,
		AssetID:       uuid.Must(uuid.NewV4()),
		ExDate:        exDate,
		MergerType:    &mt,
		NewAssetID:    &survivor,
		ExchangeRatio: &ratio,
	}
	assert.Nil(t, action.Validate())

	action.NewAssetID = nil
	assert.NotNil(t, action.Validate())

	action.NewAssetID = &survivor
	zero := decimal.Zero
	action.ExchangeRatio = &zero
	assert.NotNil(t, action.Validate())

	action.ExchangeRatio = &ratio
	bad := enum.MergerType("hostile")
	action.MergerType = &bad
	assert.NotNil(t, action.Validate())
}

func TestValidatePayDate(t *testing.T) {
	action := validSplit()

	early, _ := date.ParseDate("2024-04-01")
	action.PayDate = &early
	assert.NotNil(t, action.Validate())

	late, _ := date.ParseDate("2024-05-15")
	action.PayDate = &late
	assert.Nil(t, action.Validate())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, enum.ActionPending.CanTransitionTo(enum.ActionApplied))
	assert.True(t, enum.ActionPending.CanTransitionTo(enum.ActionCancelled))
	assert.True(t, enum.ActionApplied.CanTransitionTo(enum.ActionReversed))

	assert.False(t, enum.ActionPending.CanTransitionTo(enum.ActionReversed))
	assert.False(t, enum.ActionApplied.CanTransitionTo(enum.ActionPending))
	assert.False(t, enum.ActionApplied.CanTransitionTo(enum.ActionCancelled))
	assert.False(t, enum.ActionReversed.CanTransitionTo(enum.ActionApplied))
	assert.False(t, enum.ActionReversed.CanTransitionTo(enum.ActionPending))
	assert.False(t, enum.ActionCancelled.CanTransitionTo(enum.ActionApplied))
}

func TestSupportedTypes(t *testing.T) {
	assert.True(t, enum.StockSplit.Supported())
	assert.True(t, enum.CashDividend.Supported())
	assert.True(t, enum.StockDividend.Supported())
	assert.True(t, enum.Merger.Supported())

	assert.False(t, enum.Spinoff.Supported())
	assert.False(t, enum.ReturnOfCapital.Supported())

	assert.True(t, enum.ValidCorporateActionType(enum.Spinoff))
	assert.False(t, enum.ValidCorporateActionType(enum.CorporateActionType("ipo")))
}
