package migration

import (
	"github.com/alpacahq/corpactions/models"
	"github.com/jinzhu/gorm"
	gormigrate "gopkg.in/gormigrate.v1"
)

// Migration contains all of the incremental migrations that the
// database requires to keep its schema up to date with the current
// engine source code.
func Migration(db *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// initial migration
		{
			ID: "202408121030",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&models.Asset{}).Error; err != nil {
					return err
				}
				if err := tx.AutoMigrate(&models.Lot{}).Error; err != nil {
					return err
				}
				if err := tx.AutoMigrate(&models.CorporateAction{}).Error; err != nil {
					return err
				}
				if err := tx.AutoMigrate(&models.TransactionAdjustment{}).Error; err != nil {
					return err
				}
				return tx.AutoMigrate(&models.BatchError{}).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.DropTableIfExists(
					"batch_errors",
					"transaction_adjustments",
					"corporate_actions",
					"lots",
					"assets",
				).Error
			},
		},
		// adjustments are read back per action in lot order
		{
			ID: "202408191420",
			Migrate: func(tx *gorm.DB) error {
				return tx.Model(&models.TransactionAdjustment{}).
					AddIndex(
						"idx_adjustment_action_lot_order",
						"corporate_action_id", "fifo_lot_order",
					).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Model(&models.TransactionAdjustment{}).
					RemoveIndex("idx_adjustment_action_lot_order").Error
			},
		},
	})
}
