package ingest

import (
	"testing"
	"time"

	"github.com/alpacahq/corpactions/dbtest"
	"github.com/alpacahq/corpactions/models"
	"github.com/alpacahq/corpactions/models/enum"
	"github.com/alpacahq/corpactions/service/corporateaction"
	"github.com/alpacahq/gopaca/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var sample = []byte(`AAPL|stock_split|2024-05-01||1|2|||||||2-for-1 split
AAPL|cash_dividend|2024-06-03|2024-06-17|||$0.25|USD|Y||||quarterly dividend
`)

func TestParse(t *testing.T) {
	report := &DeclarationReport{}

	require.Nil(t, Parse(sample, report))
	require.Len(t, report.declarations, 2)

	split := report.declarations[0]
	assert.Equal(t, "AAPL", split.Symbol)
	assert.Equal(t, enum.StockSplit, split.Action)
	assert.Equal(t, "2024-05-01", split.ExDate)
	assert.Nil(t, split.PayDate)
	require.NotNil(t, split.RatioFrom)
	require.NotNil(t, split.RatioTo)
	assert.True(t, decimal.New(2, 0).Equal(*split.RatioTo))

	dividend := report.declarations[1]
	assert.Equal(t, enum.CashDividend, dividend.Action)
	require.NotNil(t, dividend.PayDate)
	assert.Equal(t, "2024-06-17", *dividend.PayDate)
	require.NotNil(t, dividend.DividendAmount)
	// dollar signs are stripped
	assert.True(t, decimal.New(25, -2).Equal(*dividend.DividendAmount))
	assert.Equal(t, "Y", dividend.Qualified)
}

func TestParseFieldMismatch(t *testing.T) {
	report := &DeclarationReport{}

	err := Parse([]byte("AAPL|stock_split|2024-05-01\n"), report)
	require.NotNil(t, err)
}

type IngestTestSuite struct {
	dbtest.Suite
	asset *models.Asset
}

func TestIngestTestSuite(t *testing.T) {
	suite.Run(t, new(IngestTestSuite))
}

func (s *IngestTestSuite) SetupSuite() {
	s.SetupDB()

	s.asset = &models.Asset{
		Exchange: "NASDAQ",
		Symbol:   "AAPL",
		Status:   enum.AssetActive,
	}
	if err := db.DB().Create(s.asset).Error; err != nil {
		assert.FailNow(s.T(), err.Error())
	}
}

func (s *IngestTestSuite) TearDownSuite() {
	s.TeardownDB()
}

func (s *IngestTestSuite) TestSync() {
	report := &DeclarationReport{}
	require.Nil(s.T(), Parse(sample, report))

	// a row for an unknown symbol fails without aborting the file
	report.declarations = append(report.declarations, Declaration{
		Symbol: "NOPE",
		Action: enum.StockSplit,
		ExDate: "2024-05-01",
	})

	asOf := time.Date(2024, time.April, 15, 6, 0, 0, 0, time.UTC)

	stored, failed := report.Sync(asOf, db.DB())
	assert.Equal(s.T(), uint(2), stored)
	assert.Equal(s.T(), uint(1), failed)

	pending, err := corporateaction.Service().WithTx(db.DB()).Pending(&s.asset.ID)
	require.Nil(s.T(), err)
	require.Len(s.T(), pending, 2)

	assert.Equal(s.T(), enum.StockSplit, pending[0].Type)
	assert.Equal(s.T(), enum.CashDividend, pending[1].Type)
	assert.True(s.T(), pending[1].QualifiedDividend)
	require.NotNil(s.T(), pending[1].PayDate)

	batchErrors := []models.BatchError{}
	q := db.DB().Where("source = ?", report.Source()).Find(&batchErrors)
	require.Nil(s.T(), q.Error)
	assert.Len(s.T(), batchErrors, 1)
}
