// Package ingest parses delimited corporate action declaration files
// into pending actions. Declaration feeds arrive as pipe-delimited
// rows, one declared event per line.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/alpacahq/corpactions/models"
	"github.com/alpacahq/corpactions/models/enum"
	"github.com/alpacahq/corpactions/service/corporateaction"
	"github.com/alpacahq/corpactions/service/lothistory"
	"github.com/alpacahq/corpactions/utils/date"
	"github.com/alpacahq/gopaca/clock"
	"github.com/alpacahq/gopaca/log"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DeclarationFile is a parseable feed of declared corporate events.
type DeclarationFile interface {
	Source() string
	Delimiter() string
	Header() bool
	Value() reflect.Value
	Append(v interface{})
	Sync(asOf time.Time, tx *gorm.DB) (uint, uint)
}

// Declaration is one row of the feed. Field order matches the file
// column order.
type Declaration struct {
	Symbol           string
	Action           enum.CorporateActionType
	ExDate           string
	PayDate          *string
	RatioFrom        *decimal.Decimal
	RatioTo          *decimal.Decimal
	DividendAmount   *decimal.Decimal
	DividendCurrency *string
	Qualified        string
	MergerType       *string
	NewSymbol        *string
	ExchangeRatio    *decimal.Decimal
	Description      string
}

type DeclarationReport struct {
	declarations []Declaration
}

func (dr *DeclarationReport) Source() string {
	return "declarations"
}

func (dr *DeclarationReport) Delimiter() string {
	return "|"
}

func (dr *DeclarationReport) Header() bool {
	return false
}

func (dr *DeclarationReport) Value() reflect.Value {
	return reflect.ValueOf(dr.declarations)
}

func (dr *DeclarationReport) Append(v interface{}) {
	dr.declarations = append(dr.declarations, v.(Declaration))
}

// Parse parses a given DeclarationFile from the raw byte array
func Parse(b []byte, file DeclarationFile) error {
	r := bufio.NewReader(bytes.NewReader(b))
	if file.Header() {
		_, _, err := r.ReadLine()
		if err != nil {
			log.Error("declaration file parse error", "source", file.Source(), "error", err)
			return err
		}
	}
	start := clock.Now()
	rows, err := unmarshal(r, file)
	elapsed := clock.Now().Sub(start)
	if err != nil {
		log.Error("declaration file parse error", "source", file.Source(), "error", err)
		return err
	}
	log.Info(
		"declaration file parsed",
		"source", file.Source(),
		"rows", rows,
		"elapsed", elapsed,
	)
	return nil
}

func unmarshal(r *bufio.Reader, v DeclarationFile) (rows int, err error) {
	sl := v.Value()
	st := sl.Type().Elem()

	for {
		b, _, err := r.ReadLine()
		if err != nil {
			// file is finished
			if err == io.EOF {
				return rows, nil
			}
			return 0, err
		}

		if len(b) == 0 {
			return rows, nil
		}

		record := strings.Split(string(b), v.Delimiter())
		newRow := reflect.New(st).Elem()

		if newRow.NumField() != len(record) {
			return 0, fmt.Errorf(
				"%v field mismatch %v : %v",
				v.Source(),
				newRow.NumField(),
				len(record),
			)
		}

		for i := 0; i < newRow.NumField(); i++ {
			f := newRow.Field(i)
			if record[i] == "" {
				continue
			}
			switch f.Type().String() {
			case "int":
				iVal, err := strconv.ParseInt(record[i], 10, 0)
				if err != nil {
					return 0, err
				}
				f.SetInt(iVal)
			case "decimal.Decimal":
				d, err := decimal.NewFromString(strings.Replace(record[i], "$", "", 1))
				if err != nil {
					return 0, fmt.Errorf("invalid decimal string %v", record[i])
				}
				f.Set(reflect.ValueOf(d))
			case "*decimal.Decimal":
				d, err := decimal.NewFromString(strings.Replace(record[i], "$", "", 1))
				if err != nil {
					return 0, fmt.Errorf("invalid decimal string %v", record[i])
				}
				f.Set(reflect.ValueOf(&d))
			case "*string":
				f.Set(reflect.ValueOf(&record[i]))
			default:
				f.Set(reflect.ValueOf(record[i]).Convert(f.Type()))
			}
		}
		v.Append(newRow.Interface())
		rows++
	}
}

// Sync stores each declaration as a pending corporate action. Rows
// that fail to resolve or validate are recorded as batch errors and
// skipped; a bad row never aborts the file.
func (dr *DeclarationReport) Sync(asOf time.Time, tx *gorm.DB) (uint, uint) {
	var (
		errs    = []models.BatchError{}
		assets  = lothistory.Service().WithTx(tx)
		actions = corporateaction.Service().WithTx(tx)
	)

	for _, decl := range dr.declarations {
		action, err := dr.toAction(assets, decl)
		if err != nil {
			errs = append(errs, dr.genError(asOf, decl, err))
			continue
		}

		if _, err = actions.Create(action); err != nil {
			errs = append(errs, dr.genError(asOf, decl, err))
		}
	}

	if len(errs) > 0 {
		for _, batchErr := range errs {
			if dbErr := tx.FirstOrCreate(&batchErr).Error; dbErr != nil {
				log.Error("declaration error storage failure", "error", dbErr)
			}
		}
	}

	return uint(len(dr.declarations) - len(errs)), uint(len(errs))
}

func (dr *DeclarationReport) toAction(assets lothistory.SymbolResolver, decl Declaration) (*models.CorporateAction, error) {
	asset, err := assets.GetBySymbol(strings.ToUpper(decl.Symbol))
	if err != nil {
		return nil, errors.Wrap(err, "failed to find asset")
	}

	exDate, err := date.ParseDate(decl.ExDate)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ex_date")
	}

	action := &models.CorporateAction{
		Type:              decl.Action,
		AssetID:           asset.ID,
		ExDate:            exDate,
		Description:       decl.Description,
		RatioFrom:         decl.RatioFrom,
		RatioTo:           decl.RatioTo,
		DividendAmount:    decl.DividendAmount,
		DividendCurrency:  decl.DividendCurrency,
		QualifiedDividend: strings.EqualFold(decl.Qualified, "Y"),
		ExchangeRatio:     decl.ExchangeRatio,
	}

	if decl.PayDate != nil {
		payDate, err := date.ParseDate(*decl.PayDate)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse pay_date")
		}
		action.PayDate = &payDate
	}

	if decl.MergerType != nil {
		mt := enum.MergerType(*decl.MergerType)
		action.MergerType = &mt
	}

	if decl.NewSymbol != nil {
		survivor, err := assets.GetBySymbol(strings.ToUpper(*decl.NewSymbol))
		if err != nil {
			return nil, errors.Wrap(err, "failed to find surviving asset")
		}
		action.NewAssetID = &survivor.ID
	}

	return action, nil
}

func (dr *DeclarationReport) genError(asOf time.Time, decl Declaration, err error) models.BatchError {
	log.Error("declaration sync error", "source", dr.Source(), "error", err)
	buf, _ := json.Marshal(map[string]interface{}{
		"error":       err.Error(),
		"declaration": decl,
	})

	return models.BatchError{
		ProcessDate:               asOf.Format("2006-01-02"),
		Source:                    dr.Source(),
		PrimaryRecordIdentifier:   strings.ToUpper(decl.Symbol),
		SecondaryRecordIdentifier: string(decl.Action) + ":" + decl.ExDate,
		Error:                     buf,
	}
}
