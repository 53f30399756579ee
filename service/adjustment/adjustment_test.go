package adjustment

import (
	"testing"

	"github.com/alpacahq/corpactions/dbtest"
	"github.com/alpacahq/corpactions/models"
	"github.com/alpacahq/corpactions/models/enum"
	"github.com/alpacahq/gopaca/db"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AdjustmentTestSuite struct {
	dbtest.Suite
	actionID uuid.UUID
}

func TestAdjustmentTestSuite(t *testing.T) {
	suite.Run(t, new(AdjustmentTestSuite))
}

func (s *AdjustmentTestSuite) SetupSuite() {
	s.SetupDB()
	s.actionID = uuid.Must(uuid.NewV4())

	srv := Service().WithTx(db.DB())

	// insert in reverse lot order to prove read ordering
	for i := 2; i >= 0; i-- {
		_, err := srv.Create(&models.TransactionAdjustment{
			CorporateActionID:     s.actionID,
			OriginalTransactionID: uuid.Must(uuid.NewV4()),
			FIFOLotOrder:          i,
			AdjustedQty:           decimal.New(int64(100*(i+1)), 0),
			AdjustedPrice:         decimal.New(50, 0),
			DividendTaxStatus:     enum.DividendNA,
		})
		if err != nil {
			assert.FailNow(s.T(), err.Error())
		}
	}
}

func (s *AdjustmentTestSuite) TearDownSuite() {
	s.TeardownDB()
}

func (s *AdjustmentTestSuite) TestByCorporateAction() {
	srv := Service().WithTx(db.DB())

	adjustments, err := srv.ByCorporateAction(s.actionID)
	require.Nil(s.T(), err)
	require.Len(s.T(), adjustments, 3)

	for i, adj := range adjustments {
		assert.Equal(s.T(), i, adj.FIFOLotOrder)
	}

	adjustments, err = srv.ByCorporateAction(uuid.Must(uuid.NewV4()))
	require.Nil(s.T(), err)
	assert.Empty(s.T(), adjustments)
}

func (s *AdjustmentTestSuite) TestMarkReversed() {
	srv := Service().WithTx(db.DB())
	actionID := uuid.Must(uuid.NewV4())

	for i := 0; i < 2; i++ {
		_, err := srv.Create(&models.TransactionAdjustment{
			CorporateActionID:     actionID,
			OriginalTransactionID: uuid.Must(uuid.NewV4()),
			FIFOLotOrder:          i,
			AdjustedQty:           decimal.New(10, 0),
			AdjustedPrice:         decimal.New(5, 0),
			DividendTaxStatus:     enum.DividendNA,
		})
		require.Nil(s.T(), err)
	}

	reversed, err := srv.MarkReversed(actionID)
	require.Nil(s.T(), err)
	assert.Equal(s.T(), 2, reversed)

	adjustments, err := srv.ByCorporateAction(actionID)
	require.Nil(s.T(), err)
	for _, adj := range adjustments {
		assert.True(s.T(), adj.IsReversed)
	}

	// already voided rows are not re-counted
	reversed, err = srv.MarkReversed(actionID)
	require.Nil(s.T(), err)
	assert.Equal(s.T(), 0, reversed)
}
