package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/database"
	"tradingjournal/src/model"
)

// JournalRepository stores journal entries and the user's tags.
type JournalRepository struct {
	db *gorm.DB
}

func NewJournalRepository() *JournalRepository {
	logger.WithField("component", "JournalRepository").
		Info("Creating new JournalRepository with MainDB")

	return &JournalRepository{db: database.MainDB}
}

func (r *JournalRepository) WithDB(db *gorm.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// FindEntry returns (nil, nil) when the trade has no entry yet.
func (r *JournalRepository) FindEntry(ctx context.Context, userID, tradeID uint) (*model.JournalEntry, error) {
	var entry model.JournalEntry
	err := r.db.WithContext(ctx).
		Where("trade_id = ? AND user_id = ?", tradeID, userID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveEntry inserts a new entry or updates an existing one.
func (r *JournalRepository) SaveEntry(ctx context.Context, entry *model.JournalEntry) error {
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "JournalRepository",
			"op":       "SaveEntry",
			"trade_id": entry.TradeID,
		}).WithError(err).Error("Failed to save journal entry")
		return err
	}
	return nil
}

// ListEntries returns a user's entries, most recently edited first.
func (r *JournalRepository) ListEntries(ctx context.Context, userID uint, limit, offset int) ([]model.JournalEntry, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var entries []model.JournalEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *JournalRepository) CreateTag(ctx context.Context, tag *model.TradeTag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

// FindTagByName returns (nil, nil) when the user has no tag of that name.
func (r *JournalRepository) FindTagByName(ctx context.Context, userID uint, name string) (*model.TradeTag, error) {
	var tag model.TradeTag
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindTag returns (nil, nil) unless the tag exists and belongs to userID.
func (r *JournalRepository) FindTag(ctx context.Context, userID, tagID uint) (*model.TradeTag, error) {
	var tag model.TradeTag
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", tagID, userID).
		First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *JournalRepository) ListTags(ctx context.Context, userID uint) ([]model.TradeTag, error) {
	var tags []model.TradeTag
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&tags).Error
	return tags, err
}
