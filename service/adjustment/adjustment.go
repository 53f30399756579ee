package adjustment

import (
	"github.com/alpacahq/corpactions/caerrors"
	"github.com/alpacahq/corpactions/models"
	"github.com/gofrs/uuid"
	"github.com/jinzhu/gorm"
)

type AdjustmentService interface {
	Create(adj *models.TransactionAdjustment) (*models.TransactionAdjustment, error)
	ByCorporateAction(actionID uuid.UUID) ([]models.TransactionAdjustment, error)
	MarkReversed(actionID uuid.UUID) (int, error)
	WithTx(tx *gorm.DB) AdjustmentService
}

type adjustmentService struct {
	AdjustmentService
	tx *gorm.DB
}

func Service() AdjustmentService {
	return &adjustmentService{}
}

func (s *adjustmentService) WithTx(tx *gorm.DB) AdjustmentService {
	s.tx = tx
	return s
}

func (s *adjustmentService) Create(adj *models.TransactionAdjustment) (*models.TransactionAdjustment, error) {
	if err := s.tx.Create(adj).Error; err != nil {
		return nil, caerrors.InternalServerError.WithError(err)
	}

	return adj, nil
}

// ByCorporateAction returns the adjustments for an action in FIFO lot
// order, oldest lot first.
func (s *adjustmentService) ByCorporateAction(actionID uuid.UUID) ([]models.TransactionAdjustment, error) {
	adjustments := []models.TransactionAdjustment{}

	q := s.tx.
		Where("corporate_action_id = ?", actionID).
		Order("fifo_lot_order ASC").
		Find(&adjustments)

	if q.Error != nil && q.Error != gorm.ErrRecordNotFound {
		return nil, caerrors.InternalServerError.WithError(q.Error)
	}

	return adjustments, nil
}

// MarkReversed soft-voids every adjustment tied to the action. Rows
// are never deleted or recomputed - downstream consumers treat
// is_reversed rows as void and fall back to the original lot values.
func (s *adjustmentService) MarkReversed(actionID uuid.UUID) (int, error) {
	q := s.tx.
		Model(&models.TransactionAdjustment{}).
		Where("corporate_action_id = ? AND is_reversed = ?", actionID, false).
		Update("is_reversed", true)

	if q.Error != nil {
		return 0, caerrors.InternalServerError.WithError(q.Error)
	}

	return int(q.RowsAffected), nil
}
