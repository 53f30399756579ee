package batch

import (
	"context"
	"encoding/json"

	"github.com/alpacahq/corpactions/caerrors"
	"github.com/alpacahq/corpactions/models"
	"github.com/alpacahq/corpactions/service/applier"
	"github.com/alpacahq/corpactions/service/corporateaction"
	"github.com/alpacahq/corpactions/service/lothistory"
	"github.com/alpacahq/gopaca/calendar"
	"github.com/alpacahq/gopaca/clock"
	"github.com/alpacahq/gopaca/db"
	"github.com/alpacahq/gopaca/log"
	"github.com/gofrs/uuid"
)

type Failure struct {
	CorporateActionID uuid.UUID `json:"corporate_action_id"`
	Error             string    `json:"error"`
}

type BatchSummary struct {
	ActionsProcessed int       `json:"actions_processed"`
	TotalAdjustments int       `json:"total_adjustments"`
	Failures         []Failure `json:"failures"`
}

// BatchService applies every pending action for an asset in
// chronological order. Callers must ensure at most one in-flight
// mutation per asset so the ordering guarantee holds.
type BatchService interface {
	ApplyPending(ctx context.Context, assetID uuid.UUID, appliedBy string) (*BatchSummary, error)
}

type batchService struct {
	BatchService
	lots   lothistory.LotProvider
	assets lothistory.SymbolResolver
}

func Service(lots lothistory.LotProvider, assets lothistory.SymbolResolver) BatchService {
	return &batchService{lots: lots, assets: assets}
}

// ApplyPending loads the asset's pending actions ascending by ex_date
// (ties by creation order) and applies each in its own transaction. A
// failing action does not roll back earlier successes - its error is
// aggregated and stored, and the batch moves on. The context is
// checked between applications for cooperative cancellation; an
// individual application is never interrupted.
func (s *batchService) ApplyPending(ctx context.Context, assetID uuid.UUID, appliedBy string) (*BatchSummary, error) {
	pending, err := corporateaction.Service().WithTx(db.DB()).Pending(&assetID)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{Failures: []Failure{}}
	batchErrors := []models.BatchError{}

	for i := range pending {
		action := &pending[i]

		if err := ctx.Err(); err != nil {
			storeErrors(batchErrors)
			return summary, err
		}

		tx := db.RepeatableRead()

		res, err := applier.Service(s.lots, s.assets).WithTx(tx).Apply(action, appliedBy)
		if err != nil {
			tx.Rollback()

			log.Error(
				"batch apply failure",
				"corporate_action", action.ID,
				"type", action.Type,
				"error", caerrors.Format(err),
			)

			summary.Failures = append(summary.Failures, Failure{
				CorporateActionID: action.ID,
				Error:             err.Error(),
			})
			batchErrors = append(batchErrors, genError(action, err))

			continue
		}

		if err = tx.Commit().Error; err != nil {
			summary.Failures = append(summary.Failures, Failure{
				CorporateActionID: action.ID,
				Error:             err.Error(),
			})
			batchErrors = append(batchErrors, genError(action, err))

			continue
		}

		summary.ActionsProcessed++
		summary.TotalAdjustments += res.AdjustmentsCreated
	}

	storeErrors(batchErrors)

	return summary, nil
}

func genError(action *models.CorporateAction, err error) models.BatchError {
	buf, _ := json.Marshal(map[string]interface{}{
		"error":  err.Error(),
		"action": action,
	})

	return models.BatchError{
		ProcessDate:               clock.Now().In(calendar.NY).Format("2006-01-02"),
		Source:                    "batch_apply",
		PrimaryRecordIdentifier:   action.ID.String(),
		SecondaryRecordIdentifier: string(action.Type),
		Error:                     buf,
	}
}

// storeErrors stores the per-action failures reported during a batch
// run for audit.
func storeErrors(errors []models.BatchError) {
	if len(errors) > 0 {
		tx := db.Begin()
		for _, err := range errors {
			if dbErr := tx.FirstOrCreate(&err).Error; dbErr != nil {
				log.Error("batch error storage failure", "error", dbErr)
			}
		}
		tx.Commit()
	}
}
