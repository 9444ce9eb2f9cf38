package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/database"
	"tradingjournal/src/model"
)

// TradeRepository handles read/write operations for trades and their tags.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new repository instance using the main read/write database.
func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Info("Creating new TradeRepository with MainDB")

	return &TradeRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// TradeSearchOptions filters the trade list. Zero Limit/Offset mean "no
// limit" and "from the start".
type TradeSearchOptions struct {
	UserID    uint
	Symbol    *string
	StartDate *time.Time
	EndDate   *time.Time
	IsClosed  *bool
	WithTags  bool
	Limit     int
	Offset    int
}

func (r *TradeRepository) Create(ctx context.Context, trade *model.Trade) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "TradeRepository",
		"op":      "Create",
		"user_id": trade.UserID,
		"symbol":  trade.Symbol,
		"source":  trade.Source,
	}).Debug("Creating new trade")

	if err := r.db.WithContext(ctx).Omit("Tags").Create(trade).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create trade")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Create",
		"trade_id": trade.ID,
	}).Info("Trade created successfully")

	return nil
}

// FindByIDAndUser fetches a trade owned by userID, tags included.
// Returns (nil, nil) if the trade is not found.
func (r *TradeRepository) FindByIDAndUser(ctx context.Context, id, userID uint) (*model.Trade, error) {
	var trade model.Trade
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Where("id = ? AND user_id = ?", id, userID).
		First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "FindByIDAndUser",
			"trade_id": id,
			"user_id":  userID,
		}).WithError(err).Error("Failed to fetch trade")
		return nil, err
	}
	return &trade, nil
}

// Search lists a user's trades, newest opened first.
func (r *TradeRepository) Search(ctx context.Context, options TradeSearchOptions) ([]model.Trade, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("user_id = ?", options.UserID)

	if options.Symbol != nil {
		query = query.Where("symbol = ?", *options.Symbol)
	}
	if options.StartDate != nil {
		query = query.Where("open_time >= ?", *options.StartDate)
	}
	if options.EndDate != nil {
		query = query.Where("open_time <= ?", *options.EndDate)
	}
	if options.IsClosed != nil {
		query = query.Where("is_closed = ?", *options.IsClosed)
	}
	if options.WithTags {
		query = query.Preload("Tags")
	}

	query = query.Order("open_time DESC, id DESC")
	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}
	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	var trades []model.Trade
	if err := query.Find(&trades).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeRepository",
			"op":      "Search",
			"user_id": options.UserID,
		}).WithError(err).Error("Failed to search trades")
		return nil, err
	}

	return trades, nil
}

// ListClosed returns the closed trades whose close time falls in [from, to],
// ordered by close time then id so equal timestamps keep insertion order.
func (r *TradeRepository) ListClosed(ctx context.Context, userID uint, from, to *time.Time) ([]model.Trade, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND is_closed = ?", userID, true)
	if from != nil {
		query = query.Where("close_time >= ?", *from)
	}
	if to != nil {
		query = query.Where("close_time <= ?", *to)
	}

	var trades []model.Trade
	if err := query.Order("close_time ASC, id ASC").Find(&trades).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeRepository",
			"op":      "ListClosed",
			"user_id": userID,
		}).WithError(err).Error("Failed to list closed trades")
		return nil, err
	}
	return trades, nil
}

// Update persists every column of trade except its tags.
func (r *TradeRepository) Update(ctx context.Context, trade *model.Trade) error {
	if err := r.db.WithContext(ctx).Omit("Tags").Save(trade).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "Update",
			"trade_id": trade.ID,
		}).WithError(err).Error("Failed to update trade")
		return err
	}
	return nil
}

// Delete removes a user's trade with its journal entry and tag links.
// It reports false when the trade does not exist for that user.
func (r *TradeRepository) Delete(ctx context.Context, id, userID uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trade := model.Trade{ID: id}
		res := tx.Where("user_id = ?", userID).First(&trade)
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Model(&trade).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("trade_id = ?", id).Delete(&model.JournalEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&trade).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "Delete",
			"trade_id": id,
		}).WithError(err).Error("Failed to delete trade")
		return false, err
	}
	return deleted, nil
}

// CountBySource counts a user's trades from one source.
func (r *TradeRepository) CountBySource(ctx context.Context, userID uint, source model.TradeSource) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("user_id = ? AND trade_source = ?", userID, source).
		Count(&count).Error
	return count, err
}

// AddTag links a tag to a trade. Linking twice is a no-op.
func (r *TradeRepository) AddTag(ctx context.Context, trade *model.Trade, tag *model.TradeTag) error {
	return r.db.WithContext(ctx).Model(trade).Association("Tags").Append(tag)
}

func (r *TradeRepository) RemoveTag(ctx context.Context, trade *model.Trade, tag *model.TradeTag) error {
	return r.db.WithContext(ctx).Model(trade).Association("Tags").Delete(tag)
}

type UpsertResult string

const (
	UpsertInserted UpsertResult = "inserted"
	UpsertClosed   UpsertResult = "closed"
	UpsertSkipped  UpsertResult = "skipped"
)

// closeColumns are overwritten when a synced open trade gets its exit.
var closeColumns = []string{
	"close_price", "close_time", "profit", "commission", "swap", "net_profit", "is_closed", "volume", "updated_at",
}

// UpsertMT5Trade stores a trade pulled from a terminal, keyed by
// (user_id, mt5_ticket). New tickets are inserted. A known ticket is only
// touched when it is stored open and now arrives closed.
func (r *TradeRepository) UpsertMT5Trade(ctx context.Context, trade *model.Trade) (UpsertResult, error) {
	if trade.MT5Ticket == nil {
		return UpsertSkipped, errors.New("mt5 trade without ticket")
	}

	result := UpsertSkipped
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Trade
		err := tx.Where("user_id = ? AND mt5_ticket = ?", trade.UserID, *trade.MT5Ticket).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Omit("Tags").Create(trade).Error; err != nil {
				return err
			}
			result = UpsertInserted
			return nil
		}
		if err != nil {
			return err
		}

		if existing.IsClosed || !trade.IsClosed {
			trade.ID = existing.ID
			return nil
		}

		trade.ID = existing.ID
		trade.CreatedAt = existing.CreatedAt
		if err := tx.Model(&existing).Select(closeColumns).Updates(trade).Error; err != nil {
			return err
		}
		result = UpsertClosed
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// another worker inserted the same ticket first
		return UpsertSkipped, nil
	}
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeRepository",
			"op":      "UpsertMT5Trade",
			"user_id": trade.UserID,
			"ticket":  *trade.MT5Ticket,
		}).WithError(err).Error("Failed to upsert synced trade")
		return UpsertSkipped, err
	}
	return result, nil
}

// CloseMT5Trade applies an exit deal to the stored open trade with the same
// ticket. The entry commission already stored is kept and the exit's added;
// swap is taken from the exit deal alone. It returns nil when there is no
// open trade to close.
func (r *TradeRepository) CloseMT5Trade(ctx context.Context, exit model.MT5Close) (*model.Trade, error) {
	var closed *model.Trade
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Trade
		err := tx.Where("user_id = ? AND mt5_ticket = ?", exit.UserID, exit.Ticket).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if existing.IsClosed {
			return nil
		}

		commission := decimal.NewFromFloat(existing.Commission).Add(decimal.NewFromFloat(exit.Commission))
		net := decimal.NewFromFloat(exit.Profit).Add(commission).Add(decimal.NewFromFloat(exit.Swap))

		closePrice := exit.ClosePrice
		closeTime := exit.CloseTime
		profit := exit.Profit
		netProfit := net.Round(8).InexactFloat64()
		existing.ClosePrice = &closePrice
		existing.CloseTime = &closeTime
		existing.Profit = &profit
		existing.Commission = commission.Round(8).InexactFloat64()
		existing.Swap = exit.Swap
		existing.NetProfit = &netProfit
		existing.IsClosed = true

		if err := tx.Model(&existing).Select(closeColumns).Updates(&existing).Error; err != nil {
			return err
		}
		closed = &existing
		return nil
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeRepository",
			"op":      "CloseMT5Trade",
			"user_id": exit.UserID,
			"ticket":  exit.Ticket,
		}).WithError(err).Error("Failed to close synced trade")
		return nil, err
	}
	return closed, nil
}
