package applier

import (
	"fmt"

	"github.com/alpacahq/corpactions/caerrors"
	"github.com/alpacahq/corpactions/models"
	"github.com/alpacahq/corpactions/models/enum"
	"github.com/alpacahq/corpactions/service/adjustment"
	"github.com/alpacahq/corpactions/service/corporateaction"
	"github.com/alpacahq/corpactions/service/lothistory"
	"github.com/alpacahq/gopaca/clock"
	"github.com/alpacahq/gopaca/log"
	"github.com/gofrs/uuid"
	"github.com/jinzhu/gorm"
)

type ApplySummary struct {
	CorporateActionID  uuid.UUID                  `json:"corporate_action_id"`
	AdjustmentsCreated int                        `json:"adjustments_created"`
	Status             enum.CorporateActionStatus `json:"status"`
}

type PreviewSummary struct {
	AffectedTransactions []models.Lot                   `json:"affected_transactions"`
	EstimatedAdjustments []models.TransactionAdjustment `json:"estimated_adjustments"`
}

type ReversalSummary struct {
	CorporateActionID   uuid.UUID `json:"corporate_action_id"`
	AdjustmentsReversed int       `json:"adjustments_reversed"`
}

// ApplierService applies, previews and reverses corporate actions.
// Callers must serialize mutations per action (and per asset when
// mixing direct applies with batch runs) - the service itself does
// not lock across calls beyond the row lock it takes on the action.
//
// Apply and Reverse write the adjustment rows and the action's status
// in separate statements, so the *gorm.DB handed to WithTx must be a
// caller-managed transaction that commits or rolls back the whole
// call; on a bare connection a mid-call failure would leave orphan
// adjustments on a still-pending action. The batch scheduler runs
// each application inside its own repeatable-read transaction.
type ApplierService interface {
	Apply(action *models.CorporateAction, appliedBy string) (*ApplySummary, error)
	Preview(action *models.CorporateAction) (*PreviewSummary, error)
	Reverse(actionID uuid.UUID, reason string) (*ReversalSummary, error)
	WithTx(tx *gorm.DB) ApplierService
}

type applierService struct {
	ApplierService
	tx     *gorm.DB
	lots   lothistory.LotProvider
	assets lothistory.SymbolResolver
}

// Service builds an applier on top of the lot history collaborators.
// The providers are handed in already bound to their own data source;
// the engine never writes to the records they serve.
func Service(lots lothistory.LotProvider, assets lothistory.SymbolResolver) ApplierService {
	return &applierService{lots: lots, assets: assets}
}

func (s *applierService) WithTx(tx *gorm.DB) ApplierService {
	s.tx = tx
	return s
}

// Apply validates the action lifecycle, derives one adjustment per
// affected lot, persists them, and marks the action applied. A run
// that affects zero lots still transitions to applied with zero
// adjustments recorded.
func (s *applierService) Apply(action *models.CorporateAction, appliedBy string) (*ApplySummary, error) {
	// reload under lock - the caller's copy may be stale
	action, err := corporateaction.Service().WithTx(s.tx).GetByID(action.ID, true)
	if err != nil {
		return nil, err
	}

	if err = s.checkApplicable(action); err != nil {
		return nil, err
	}

	lots, err := s.affectedLots(action)
	if err != nil {
		return nil, err
	}

	adjustments, err := computeAdjustments(action, lots)
	if err != nil {
		return nil, err
	}

	adjSrv := adjustment.Service().WithTx(s.tx)

	for i := range adjustments {
		if _, err = adjSrv.Create(&adjustments[i]); err != nil {
			return nil, err
		}
	}

	now := clock.Now()

	q := s.tx.Model(action).Updates(map[string]interface{}{
		"status":     enum.ActionApplied,
		"applied_by": appliedBy,
		"applied_at": now,
	})

	if q.Error != nil {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	log.Info(
		"corporate action applied",
		"corporate_action", action.ID,
		"type", action.Type,
		"asset", action.AssetID,
		"adjustments", len(adjustments),
		"applied_by", appliedBy,
	)

	return &ApplySummary{
		CorporateActionID:  action.ID,
		AdjustmentsCreated: len(adjustments),
		Status:             enum.ActionApplied,
	}, nil
}

// Preview computes the adjustments Apply would write, with no
// persistence and no status change.
func (s *applierService) Preview(action *models.CorporateAction) (*PreviewSummary, error) {
	// the action may not have been through the store yet
	if err := action.Validate(); err != nil {
		return nil, caerrors.InvalidRequestParam.WithMsg(err.Error())
	}

	if err := validateSupported(action); err != nil {
		return nil, err
	}

	lots, err := s.affectedLots(action)
	if err != nil {
		return nil, err
	}

	adjustments, err := computeAdjustments(action, lots)
	if err != nil {
		return nil, err
	}

	return &PreviewSummary{
		AffectedTransactions: lots,
		EstimatedAdjustments: adjustments,
	}, nil
}

// Reverse soft-voids every adjustment tied to an applied action. The
// engine does not recompute pre-adjustment values - consumers fall
// back to the original lot records, which were never modified.
func (s *applierService) Reverse(actionID uuid.UUID, reason string) (*ReversalSummary, error) {
	action, err := corporateaction.Service().WithTx(s.tx).GetByID(actionID, true)
	if err != nil {
		return nil, err
	}

	if !action.Status.CanTransitionTo(enum.ActionReversed) {
		return nil, caerrors.Conflict.WithMsg(
			fmt.Sprintf("corporate action is %v, only applied actions can be reversed", action.Status))
	}

	reversed, err := adjustment.Service().WithTx(s.tx).MarkReversed(actionID)
	if err != nil {
		return nil, err
	}

	q := s.tx.Model(action).Updates(map[string]interface{}{
		"status":          enum.ActionReversed,
		"reversal_reason": reason,
	})

	if q.Error != nil {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	log.Info(
		"corporate action reversed",
		"corporate_action", actionID,
		"adjustments_reversed", reversed,
		"reason", reason,
	)

	return &ReversalSummary{
		CorporateActionID:   actionID,
		AdjustmentsReversed: reversed,
	}, nil
}

func (s *applierService) checkApplicable(action *models.CorporateAction) error {
	switch action.Status {
	case enum.ActionPending:
	case enum.ActionApplied:
		return caerrors.Conflict.WithMsg("corporate action is already applied")
	case enum.ActionReversed:
		return caerrors.Conflict.WithMsg("corporate action is already reversed")
	default:
		return caerrors.Conflict.WithMsg(
			fmt.Sprintf("corporate action is %v", action.Status))
	}

	return validateSupported(action)
}

// affectedLots resolves the asset references and loads the lots in
// scope on the ex-date. The provider's acquisition ordering is
// authoritative for FIFO lot order.
func (s *applierService) affectedLots(action *models.CorporateAction) ([]models.Lot, error) {
	if _, err := s.assets.GetByID(action.AssetID); err != nil {
		return nil, err
	}

	if action.Type == enum.Merger {
		if _, err := s.assets.GetByID(*action.NewAssetID); err != nil {
			return nil, err
		}
	}

	return s.lots.LotsAsOf(action.AssetID, action.ExDate)
}
