package applier

import (
	"testing"
	"time"

	"github.com/alpacahq/corpactions/caerrors"
	"github.com/alpacahq/corpactions/dbtest"
	"github.com/alpacahq/corpactions/models"
	"github.com/alpacahq/corpactions/models/enum"
	"github.com/alpacahq/corpactions/service/adjustment"
	"github.com/alpacahq/corpactions/service/corporateaction"
	"github.com/alpacahq/corpactions/service/lothistory"
	"github.com/alpacahq/corpactions/utils/date"
	"github.com/alpacahq/gopaca/calendar"
	"github.com/alpacahq/gopaca/db"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ApplierTestSuite struct {
	dbtest.Suite
	asset    *models.Asset
	survivor *models.Asset
}

func TestApplierTestSuite(t *testing.T) {
	suite.Run(t, new(ApplierTestSuite))
}

func (s *ApplierTestSuite) SetupSuite() {
	s.SetupDB()

	s.asset = &models.Asset{
		Exchange: "NASDAQ",
		Symbol:   "AAPL",
		Status:   enum.AssetActive,
	}
	s.survivor = &models.Asset{
		Exchange: "NASDAQ",
		Symbol:   "MSFT",
		Status:   enum.AssetActive,
	}

	for _, asset := range []*models.Asset{s.asset, s.survivor} {
		if err := db.DB().Create(asset).Error; err != nil {
			assert.FailNow(s.T(), err.Error())
		}
	}

	// two lots inside the ex-date window, one after it
	lots := []models.Lot{
		{
			AssetID:    s.asset.ID,
			Qty:        decimal.New(100, 0),
			Price:      decimal.New(200, 0),
			AcquiredAt: time.Date(2024, time.January, 10, 10, 30, 0, 0, calendar.NY),
		},
		{
			AssetID:    s.asset.ID,
			Qty:        decimal.New(50, 0),
			Price:      decimal.New(100, 0),
			AcquiredAt: time.Date(2024, time.March, 5, 14, 0, 0, 0, calendar.NY),
		},
		{
			AssetID:    s.asset.ID,
			Qty:        decimal.New(25, 0),
			Price:      decimal.New(90, 0),
			AcquiredAt: time.Date(2024, time.August, 20, 11, 0, 0, 0, calendar.NY),
		},
	}

	for i := range lots {
		if err := db.DB().Create(&lots[i]).Error; err != nil {
			assert.FailNow(s.T(), err.Error())
		}
	}
}

func (s *ApplierTestSuite) TearDownSuite() {
	s.TeardownDB()
}

func (s *ApplierTestSuite) service() ApplierService {
	lh := lothistory.Service().WithTx(db.DB())
	return Service(lh, lh).WithTx(db.DB())
}

func (s *ApplierTestSuite) createSplit(exDate string) *models.CorporateAction {
	rf := decimal.New(1, 0)
	rt := decimal.New(2, 0)
	ex, _ := date.ParseDate(exDate)

	action, err := corporateaction.Service().WithTx(db.DB()).Create(&models.CorporateAction{
		Type:      enum.StockSplit,
		AssetID:   s.asset.ID,
		ExDate:    ex,
		RatioFrom: &rf,
		RatioTo:   &rt,
	})
	require.Nil(s.T(), err)

	return action
}

func (s *ApplierTestSuite) TestApply() {
	action := s.createSplit("2024-05-01")

	summary, err := s.service().Apply(action, "ops@test.db")
	require.Nil(s.T(), err)
	assert.Equal(s.T(), action.ID, summary.CorporateActionID)
	assert.Equal(s.T(), 2, summary.AdjustmentsCreated)
	assert.Equal(s.T(), enum.ActionApplied, summary.Status)

	stored, err := corporateaction.Service().WithTx(db.DB()).GetByID(action.ID, false)
	require.Nil(s.T(), err)
	assert.Equal(s.T(), enum.ActionApplied, stored.Status)
	require.NotNil(s.T(), stored.AppliedBy)
	assert.Equal(s.T(), "ops@test.db", *stored.AppliedBy)
	assert.NotNil(s.T(), stored.AppliedAt)

	adjustments, err := adjustment.Service().WithTx(db.DB()).ByCorporateAction(action.ID)
	require.Nil(s.T(), err)
	require.Len(s.T(), adjustments, 2)

	// FIFO: oldest lot first
	assert.Equal(s.T(), 0, adjustments[0].FIFOLotOrder)
	assert.True(s.T(), decimal.New(200, 0).Equal(adjustments[0].AdjustedQty))
	assert.True(s.T(), decimal.New(100, 0).Equal(adjustments[0].AdjustedPrice))
	assert.Equal(s.T(), 1, adjustments[1].FIFOLotOrder)
	assert.True(s.T(), decimal.New(100, 0).Equal(adjustments[1].AdjustedQty))
	assert.True(s.T(), decimal.New(50, 0).Equal(adjustments[1].AdjustedPrice))

	// a second apply is a clean state error, not a double adjustment
	_, err = s.service().Apply(action, "ops@test.db")
	require.NotNil(s.T(), err)
	assert.True(s.T(), caerrors.IsConflict(err))

	adjustments, err = adjustment.Service().WithTx(db.DB()).ByCorporateAction(action.ID)
	require.Nil(s.T(), err)
	assert.Len(s.T(), adjustments, 2)
}

func (s *ApplierTestSuite) TestApplyZeroLots() {
	// ex-date precedes every acquisition; still transitions to applied
	action := s.createSplit("2023-12-29")

	summary, err := s.service().Apply(action, "ops@test.db")
	require.Nil(s.T(), err)
	assert.Equal(s.T(), 0, summary.AdjustmentsCreated)
	assert.Equal(s.T(), enum.ActionApplied, summary.Status)
}

func (s *ApplierTestSuite) TestApplyUnsupported() {
	ex, _ := date.ParseDate("2024-05-01")

	action := &models.CorporateAction{
		Type:    enum.Spinoff,
		AssetID: s.asset.ID,
		ExDate:  ex,
	}
	require.Nil(s.T(), db.DB().Create(action).Error)

	_, err := s.service().Apply(action, "ops@test.db")
	require.NotNil(s.T(), err)
	assert.True(s.T(), caerrors.IsNotSupported(err))

	// no mutation took place
	stored, err := corporateaction.Service().WithTx(db.DB()).GetByID(action.ID, false)
	require.Nil(s.T(), err)
	assert.Equal(s.T(), enum.ActionPending, stored.Status)

	adjustments, err := adjustment.Service().WithTx(db.DB()).ByCorporateAction(action.ID)
	require.Nil(s.T(), err)
	assert.Empty(s.T(), adjustments)
}

func (s *ApplierTestSuite) TestApplyCancelled() {
	action := s.createSplit("2024-05-01")

	require.Nil(s.T(), corporateaction.Service().WithTx(db.DB()).Cancel(action.ID))

	_, err := s.service().Apply(action, "ops@test.db")
	require.NotNil(s.T(), err)
	assert.True(s.T(), caerrors.IsConflict(err))
}

func (s *ApplierTestSuite) TestApplyMergerMissingSurvivor() {
	mt := enum.StockForStock
	ratio := decimal.New(1, 0)
	missing := uuid.Must(uuid.NewV4())
	ex, _ := date.ParseDate("2024-05-01")

	action, err := corporateaction.Service().WithTx(db.DB()).Create(&models.CorporateAction{
		Type:          enum.Merger,
		AssetID:       s.asset.ID,
		ExDate:        ex,
		MergerType:    &mt,
		NewAssetID:    &missing,
		ExchangeRatio: &ratio,
	})
	require.Nil(s.T(), err)

	_, err = s.service().Apply(action, "ops@test.db")
	require.NotNil(s.T(), err)
	assert.True(s.T(), caerrors.IsNotFound(err))

	stored, err := corporateaction.Service().WithTx(db.DB()).GetByID(action.ID, false)
	require.Nil(s.T(), err)
	assert.Equal(s.T(), enum.ActionPending, stored.Status)
}

func (s *ApplierTestSuite) TestPreview() {
	// a dedicated asset, so actions applied by other cases cannot
	// re-base the lots under preview
	asset := &models.Asset{
		Exchange: "NYSE",
		Symbol:   "ORCL",
		Status:   enum.AssetActive,
	}
	require.Nil(s.T(), db.DB().Create(asset).Error)

	lots := []models.Lot{
		{
			AssetID:    asset.ID,
			Qty:        decimal.New(100, 0),
			Price:      decimal.New(200, 0),
			AcquiredAt: time.Date(2024, time.January, 10, 10, 30, 0, 0, calendar.NY),
		},
		{
			AssetID:    asset.ID,
			Qty:        decimal.New(50, 0),
			Price:      decimal.New(100, 0),
			AcquiredAt: time.Date(2024, time.March, 5, 14, 0, 0, 0, calendar.NY),
		},
	}
	for i := range lots {
		require.Nil(s.T(), db.DB().Create(&lots[i]).Error)
	}

	rf := decimal.New(1, 0)
	rt := decimal.New(2, 0)
	ex, _ := date.ParseDate("2024-05-01")

	action, err := corporateaction.Service().WithTx(db.DB()).Create(&models.CorporateAction{
		Type:      enum.StockSplit,
		AssetID:   asset.ID,
		ExDate:    ex,
		RatioFrom: &rf,
		RatioTo:   &rt,
	})
	require.Nil(s.T(), err)

	preview, err := s.service().Preview(action)
	require.Nil(s.T(), err)
	require.Len(s.T(), preview.AffectedTransactions, 2)
	require.Len(s.T(), preview.EstimatedAdjustments, 2)
	assert.True(s.T(), decimal.New(200, 0).Equal(preview.EstimatedAdjustments[0].AdjustedQty))

	// dry run: nothing persisted, no status change
	stored, err := corporateaction.Service().WithTx(db.DB()).GetByID(action.ID, false)
	require.Nil(s.T(), err)
	assert.Equal(s.T(), enum.ActionPending, stored.Status)

	adjustments, err := adjustment.Service().WithTx(db.DB()).ByCorporateAction(action.ID)
	require.Nil(s.T(), err)
	assert.Empty(s.T(), adjustments)
}

func (s *ApplierTestSuite) TestReverse() {
	amt := decimal.New(1, 0)
	ex, _ := date.ParseDate("2024-06-03")

	action, err := corporateaction.Service().WithTx(db.DB()).Create(&models.CorporateAction{
		Type:              enum.CashDividend,
		AssetID:           s.asset.ID,
		ExDate:            ex,
		DividendAmount:    &amt,
		QualifiedDividend: true,
	})
	require.Nil(s.T(), err)

	// reversing a pending action is a state error
	_, err = s.service().Reverse(action.ID, "fat finger")
	require.NotNil(s.T(), err)
	assert.True(s.T(), caerrors.IsConflict(err))

	_, err = s.service().Apply(action, "ops@test.db")
	require.Nil(s.T(), err)

	reversal, err := s.service().Reverse(action.ID, "issuer restated the dividend")
	require.Nil(s.T(), err)
	assert.Equal(s.T(), 2, reversal.AdjustmentsReversed)

	stored, err := corporateaction.Service().WithTx(db.DB()).GetByID(action.ID, false)
	require.Nil(s.T(), err)
	assert.Equal(s.T(), enum.ActionReversed, stored.Status)
	require.NotNil(s.T(), stored.ReversalReason)
	assert.Equal(s.T(), "issuer restated the dividend", *stored.ReversalReason)

	// adjustments are voided, never deleted
	adjustments, err := adjustment.Service().WithTx(db.DB()).ByCorporateAction(action.ID)
	require.Nil(s.T(), err)
	require.Len(s.T(), adjustments, 2)
	for _, adj := range adjustments {
		assert.True(s.T(), adj.IsReversed)
	}

	// a second reversal is a state error
	_, err = s.service().Reverse(action.ID, "again")
	require.NotNil(s.T(), err)
	assert.True(s.T(), caerrors.IsConflict(err))
}

func (s *ApplierTestSuite) TestReverseNotFound() {
	_, err := s.service().Reverse(uuid.Must(uuid.NewV4()), "no such action")
	require.NotNil(s.T(), err)
	assert.True(s.T(), caerrors.IsNotFound(err))
}
