package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/database"
	"tradingjournal/src/model"
)

type MT5AccountRepository struct {
	db *gorm.DB
}

func NewMT5AccountRepository() *MT5AccountRepository {
	logger.WithField("component", "MT5AccountRepository").
		Info("Creating new MT5AccountRepository with MainDB")

	return &MT5AccountRepository{db: database.MainDB}
}

func (r *MT5AccountRepository) WithDB(db *gorm.DB) *MT5AccountRepository {
	return &MT5AccountRepository{db: db}
}

// FindByUser returns (nil, nil) when the user has not configured MT5.
func (r *MT5AccountRepository) FindByUser(ctx context.Context, userID uint) (*model.MT5Account, error) {
	var account model.MT5Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *MT5AccountRepository) Save(ctx context.Context, account *model.MT5Account) error {
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "MT5AccountRepository",
			"op":      "Save",
			"user_id": account.UserID,
		}).WithError(err).Error("Failed to save MT5 account")
		return err
	}
	return nil
}

// DeleteByUser reports false when there was nothing to delete.
func (r *MT5AccountRepository) DeleteByUser(ctx context.Context, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.MT5Account{})
	return res.RowsAffected > 0, res.Error
}

// ListDue returns the active accounts whose sync interval has elapsed,
// least recently synced first.
func (r *MT5AccountRepository) ListDue(ctx context.Context, now time.Time) ([]model.MT5Account, error) {
	var active []model.MT5Account
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&active).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "MT5AccountRepository",
			"op":   "ListDue",
		}).WithError(err).Error("Failed to list active MT5 accounts")
		return nil, err
	}

	due := make([]model.MT5Account, 0, len(active))
	for _, a := range active {
		if a.IsDue(now) {
			due = append(due, a)
		}
	}
	return due, nil
}

// RecordSync stores the outcome of one sync run. It reports false for an
// unknown account.
func (r *MT5AccountRepository) RecordSync(ctx context.Context, update model.MT5StatusUpdate, at time.Time) (bool, error) {
	fields := map[string]interface{}{
		"last_sync_at":      at,
		"last_sync_status":  update.Status,
		"last_sync_message": update.Message,
	}
	if update.LastTradeTime != nil {
		fields["last_trade_time"] = *update.LastTradeTime
	}

	res := r.db.WithContext(ctx).
		Model(&model.MT5Account{}).
		Where("id = ?", update.AccountID).
		Updates(fields)
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "MT5AccountRepository",
			"op":         "RecordSync",
			"account_id": update.AccountID,
		}).WithError(res.Error).Error("Failed to record sync status")
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequestSync clears the last sync time so the next scheduler pass picks
// the account up.
func (r *MT5AccountRepository) RequestSync(ctx context.Context, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.MT5Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"last_sync_at":      nil,
			"last_sync_status":  model.SyncPending,
			"last_sync_message": "Manual sync requested",
		})
	return res.RowsAffected > 0, res.Error
}
