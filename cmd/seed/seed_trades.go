package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradingjournal/src/cache"
	"tradingjournal/src/database"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
)

type instrument struct {
	symbol string
	price  float64
	volume float64
	// typical move as a fraction of price
	move float64
}

var instruments = []instrument{
	{"EURUSD", 1.0850, 10000, 0.004},
	{"GBPUSD", 1.2650, 10000, 0.005},
	{"XAUUSD", 2030, 1, 0.01},
	{"US30", 37500, 0.1, 0.008},
	{"BTCUSD", 43000, 0.01, 0.03},
}

// SeedTrades fills a user's journal with demo trades.
type SeedTrades struct {
	Email string
	Count int
}

func (t *SeedTrades) Start() error {
	config := GetConfig()
	if t.Email == "" {
		t.Email = config.UserEmail
	}
	if t.Count <= 0 {
		t.Count = config.Count
	}
	if t.Email == "" {
		return fmt.Errorf("seed user email is required")
	}

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}
	ctx := context.Background()

	user, err := repository.NewUserRepository().FindByEmail(ctx, t.Email)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", t.Email)
	}

	rng := rand.New(rand.NewSource(config.RandSeed))
	trades := GenerateTrades(user.ID, t.Count, config.Days, time.Now().UTC(), rng)

	repo := repository.NewTradeRepository()
	for _, trade := range trades {
		if err := repo.Create(ctx, trade); err != nil {
			return err
		}
	}

	analyticsCache, closeCache, err := cache.New(ctx, cache.GetConfig())
	if err != nil {
		logrus.WithError(err).Warn("analytics cache unavailable, skipping invalidation")
	} else {
		defer func() { _ = closeCache() }()
		if err := analyticsCache.Invalidate(ctx, user.ID); err != nil {
			logrus.WithError(err).Warn("Failed to invalidate analytics cache")
		}
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "trades": len(trades)}).Info("Seeded trades")
	return nil
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// GenerateTrades builds count manual trades opened within the last days
// before end. Roughly one in ten stays open.
func GenerateTrades(userID uint, count, days int, end time.Time, rng *rand.Rand) []*model.Trade {
	if days <= 0 {
		days = 1
	}
	window := time.Duration(days) * 24 * time.Hour

	trades := make([]*model.Trade, 0, count)
	for i := 0; i < count; i++ {
		inst := instruments[rng.Intn(len(instruments))]
		side := model.TradeBuy
		if rng.Intn(2) == 1 {
			side = model.TradeSell
		}

		openTime := end.Add(-window + time.Duration(rng.Int63n(int64(window)))).Truncate(time.Minute)
		openPrice := round(inst.price*(1+(rng.Float64()-0.5)*0.05), 5)
		commission := round(rng.Float64()*3, 2)

		payload := model.CreateTradePayload{
			Symbol:     inst.symbol,
			TradeType:  side,
			Volume:     inst.volume,
			OpenPrice:  openPrice,
			OpenTime:   openTime,
			Commission: &commission,
		}

		if rng.Intn(10) != 0 {
			closeTime := openTime.Add(time.Duration(5+rng.Intn(600)) * time.Minute)
			if closeTime.After(end) {
				closeTime = end
			}
			closePrice := round(openPrice*(1+rng.NormFloat64()*inst.move), 5)
			if closePrice <= 0 {
				closePrice = openPrice
			}
			payload.CloseTime = &closeTime
			payload.ClosePrice = &closePrice
		}

		trades = append(trades, payload.ToTrade(userID))
	}
	return trades
}
