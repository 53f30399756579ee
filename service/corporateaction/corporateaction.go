package corporateaction

import (
	"github.com/alpacahq/corpactions/caerrors"
	"github.com/alpacahq/corpactions/models"
	"github.com/alpacahq/corpactions/models/enum"
	"github.com/alpacahq/corpactions/utils/date"
	"github.com/alpacahq/gopaca/db"
	"github.com/gofrs/uuid"
	"github.com/jinzhu/gorm"
)

type CorporateActionService interface {
	Create(action *models.CorporateAction) (*models.CorporateAction, error)
	GetByID(id uuid.UUID, forUpdate bool) (*models.CorporateAction, error)
	ByAsset(assetID uuid.UUID) ([]models.CorporateAction, error)
	ByDateRange(from, to date.Date) ([]models.CorporateAction, error)
	Pending(assetID *uuid.UUID) ([]models.CorporateAction, error)
	Cancel(id uuid.UUID) error
	WithTx(tx *gorm.DB) CorporateActionService
}

type corporateActionService struct {
	CorporateActionService
	tx *gorm.DB
}

func Service() CorporateActionService {
	return &corporateActionService{}
}

func (s *corporateActionService) WithTx(tx *gorm.DB) CorporateActionService {
	s.tx = tx
	return s
}

func (s *corporateActionService) Create(action *models.CorporateAction) (*models.CorporateAction, error) {
	if err := action.Validate(); err != nil {
		return nil, caerrors.InvalidRequestParam.WithMsg(err.Error())
	}

	if action.Status != "" && action.Status != enum.ActionPending {
		return nil, caerrors.InvalidRequestParam.WithMsg("corporate actions must be created pending")
	}

	if err := s.tx.Create(action).Error; err != nil {
		return nil, caerrors.InternalServerError.WithError(err)
	}

	return action, nil
}

func (s *corporateActionService) GetByID(id uuid.UUID, forUpdate bool) (*models.CorporateAction, error) {
	action := &models.CorporateAction{}

	q := s.tx

	if forUpdate {
		q = q.Set("gorm:query_option", db.ForUpdate)
	}

	q = q.Where("id = ?", id).Find(action)

	if q.RecordNotFound() {
		return nil, caerrors.NotFound.WithMsg("corporate action not found")
	}

	if q.Error != nil {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	return action, nil
}

func (s *corporateActionService) ByAsset(assetID uuid.UUID) ([]models.CorporateAction, error) {
	actions := []models.CorporateAction{}

	q := s.tx.
		Where("asset_id = ?", assetID).
		Order("ex_date ASC, created_at ASC").
		Find(&actions)

	if q.Error != nil && q.Error != gorm.ErrRecordNotFound {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	return actions, nil
}

func (s *corporateActionService) ByDateRange(from, to date.Date) ([]models.CorporateAction, error) {
	actions := []models.CorporateAction{}

	q := s.tx.
		Where("ex_date BETWEEN ? AND ?", from.String(), to.String()).
		Order("ex_date ASC, created_at ASC").
		Find(&actions)

	if q.Error != nil && q.Error != gorm.ErrRecordNotFound {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	return actions, nil
}

// Pending returns pending actions ascending by ex_date with ties
// broken by creation order. The batch applier relies on this ordering
// so that later actions see the numeric effects of earlier ones.
func (s *corporateActionService) Pending(assetID *uuid.UUID) ([]models.CorporateAction, error) {
	actions := []models.CorporateAction{}

	q := s.tx.Where("status = ?", enum.ActionPending)

	if assetID != nil {
		q = q.Where("asset_id = ?", *assetID)
	}

	q = q.Order("ex_date ASC, created_at ASC").Find(&actions)

	if q.Error != nil && q.Error != gorm.ErrRecordNotFound {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	return actions, nil
}

func (s *corporateActionService) Cancel(id uuid.UUID) error {
	action, err := s.GetByID(id, true)
	if err != nil {
		return err
	}

	if !action.Status.CanTransitionTo(enum.ActionCancelled) {
		return caerrors.Conflict.WithMsg("only pending corporate actions can be cancelled")
	}

	return s.tx.Model(action).Update("status", enum.ActionCancelled).Error
}
