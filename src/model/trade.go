package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

func (t TradeType) Valid() bool {
	return t == TradeBuy || t == TradeSell
}

type TradeSource string

const (
	SourceManual TradeSource = "manual"
	SourceMT5    TradeSource = "mt5_auto"
)

// Trade is one position, opened and possibly closed. Close fields and
// NetProfit stay nil while the position is open.
type Trade struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	UserID     uint        `gorm:"not null;index;uniqueIndex:idx_trades_user_ticket" json:"user_id"`
	MT5Ticket  *string     `gorm:"column:mt5_ticket;size:64;uniqueIndex:idx_trades_user_ticket" json:"mt5_ticket,omitempty"`
	Source     TradeSource `gorm:"column:trade_source;size:20;not null;index" json:"trade_source"`
	Symbol     string      `gorm:"size:50;not null;index" json:"symbol"`
	TradeType  TradeType   `gorm:"size:10;not null" json:"trade_type"`
	Volume     float64     `gorm:"not null" json:"volume"`
	OpenPrice  float64     `gorm:"not null" json:"open_price"`
	ClosePrice *float64    `json:"close_price"`
	StopLoss   *float64    `json:"stop_loss"`
	TakeProfit *float64    `json:"take_profit"`
	OpenTime   time.Time   `gorm:"not null;index" json:"open_time"`
	CloseTime  *time.Time  `gorm:"index" json:"close_time"`
	Profit     *float64    `json:"profit"`
	Commission float64     `gorm:"not null;default:0" json:"commission"`
	Swap       float64     `gorm:"not null;default:0" json:"swap"`
	NetProfit  *float64    `json:"net_profit"`
	IsClosed   bool        `gorm:"not null;index" json:"is_closed"`
	Tags       []TradeTag  `gorm:"many2many:trade_tag_associations;" json:"tags,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// MT5Close is the exit deal of a synced position whose entry deal lies
// before the history window. It only closes a trade that is already stored.
type MT5Close struct {
	UserID     uint
	Ticket     string
	ClosePrice float64
	CloseTime  time.Time
	Profit     float64
	Commission float64
	Swap       float64
}

// PriceProfit is the gross result of moving volume from open to close in
// the trade's direction.
func PriceProfit(tradeType TradeType, openPrice, closePrice, volume float64) float64 {
	diff := decimal.NewFromFloat(closePrice).Sub(decimal.NewFromFloat(openPrice))
	if tradeType == TradeSell {
		diff = diff.Neg()
	}
	return diff.Mul(decimal.NewFromFloat(volume)).Round(8).InexactFloat64()
}

// refreshNetProfit keeps NetProfit = Profit - Commission - Swap.
func (t *Trade) refreshNetProfit() {
	if t.Profit == nil {
		t.NetProfit = nil
		return
	}
	net := decimal.NewFromFloat(*t.Profit).
		Sub(decimal.NewFromFloat(t.Commission)).
		Sub(decimal.NewFromFloat(t.Swap)).
		Round(8).InexactFloat64()
	t.NetProfit = &net
}

func (t *Trade) hasCloseData() bool {
	return t.ClosePrice != nil && t.CloseTime != nil
}

type CreateTradePayload struct {
	Symbol     string     `json:"symbol"`
	TradeType  TradeType  `json:"trade_type"`
	Volume     float64    `json:"volume"`
	OpenPrice  float64    `json:"open_price"`
	ClosePrice *float64   `json:"close_price"`
	StopLoss   *float64   `json:"stop_loss"`
	TakeProfit *float64   `json:"take_profit"`
	OpenTime   time.Time  `json:"open_time"`
	CloseTime  *time.Time `json:"close_time"`
	Profit     *float64   `json:"profit"`
	Commission *float64   `json:"commission"`
	Swap       *float64   `json:"swap"`
	IsClosed   *bool      `json:"is_closed"`
}

func (p CreateTradePayload) Validate() error {
	var errs ValidationErrors
	symbol := strings.TrimSpace(p.Symbol)
	if symbol == "" {
		errs.Add("symbol", "field required")
	} else if len(symbol) > 50 {
		errs.Add("symbol", "ensure this value has at most 50 characters")
	}
	if !p.TradeType.Valid() {
		errs.Add("trade_type", "value is not a valid enumeration member; permitted: 'buy', 'sell'")
	}
	if p.Volume <= 0 {
		errs.Add("volume", "ensure this value is greater than 0")
	}
	if p.OpenPrice <= 0 {
		errs.Add("open_price", "ensure this value is greater than 0")
	}
	if p.ClosePrice != nil && *p.ClosePrice <= 0 {
		errs.Add("close_price", "ensure this value is greater than 0")
	}
	if p.OpenTime.IsZero() {
		errs.Add("open_time", "field required")
	}
	if p.CloseTime != nil && !p.OpenTime.IsZero() && p.CloseTime.Before(p.OpenTime) {
		errs.Add("close_time", "close_time must not be before open_time")
	}
	return errs.Err()
}

// ToTrade builds a manual trade and derives profit, net profit and the
// closed flag from whatever the payload left out.
func (p CreateTradePayload) ToTrade(userID uint) *Trade {
	t := &Trade{
		UserID:     userID,
		Source:     SourceManual,
		Symbol:     strings.ToUpper(strings.TrimSpace(p.Symbol)),
		TradeType:  p.TradeType,
		Volume:     p.Volume,
		OpenPrice:  p.OpenPrice,
		ClosePrice: p.ClosePrice,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		OpenTime:   p.OpenTime,
		CloseTime:  p.CloseTime,
		Profit:     p.Profit,
	}
	if p.Commission != nil {
		t.Commission = *p.Commission
	}
	if p.Swap != nil {
		t.Swap = *p.Swap
	}

	if t.Profit == nil && t.ClosePrice != nil {
		profit := PriceProfit(t.TradeType, t.OpenPrice, *t.ClosePrice, t.Volume)
		t.Profit = &profit
	}
	t.refreshNetProfit()

	if p.IsClosed != nil {
		t.IsClosed = *p.IsClosed
	} else {
		t.IsClosed = t.hasCloseData()
	}
	return t
}

// UpdateTradePayload is a partial update; nil fields are left untouched.
type UpdateTradePayload struct {
	Symbol     *string    `json:"symbol"`
	TradeType  *TradeType `json:"trade_type"`
	Volume     *float64   `json:"volume"`
	OpenPrice  *float64   `json:"open_price"`
	ClosePrice *float64   `json:"close_price"`
	StopLoss   *float64   `json:"stop_loss"`
	TakeProfit *float64   `json:"take_profit"`
	OpenTime   *time.Time `json:"open_time"`
	CloseTime  *time.Time `json:"close_time"`
	Profit     *float64   `json:"profit"`
	Commission *float64   `json:"commission"`
	Swap       *float64   `json:"swap"`
	IsClosed   *bool      `json:"is_closed"`
}

func (p UpdateTradePayload) Validate() error {
	var errs ValidationErrors
	if p.Symbol != nil && strings.TrimSpace(*p.Symbol) == "" {
		errs.Add("symbol", "must not be empty")
	}
	if p.TradeType != nil && !p.TradeType.Valid() {
		errs.Add("trade_type", "value is not a valid enumeration member; permitted: 'buy', 'sell'")
	}
	if p.Volume != nil && *p.Volume <= 0 {
		errs.Add("volume", "ensure this value is greater than 0")
	}
	if p.OpenPrice != nil && *p.OpenPrice <= 0 {
		errs.Add("open_price", "ensure this value is greater than 0")
	}
	if p.ClosePrice != nil && *p.ClosePrice <= 0 {
		errs.Add("close_price", "ensure this value is greater than 0")
	}
	return errs.Err()
}

// ValidateAgainst checks the times the trade would have once the payload
// is applied to t.
func (p UpdateTradePayload) ValidateAgainst(t *Trade) error {
	open := t.OpenTime
	if p.OpenTime != nil {
		open = *p.OpenTime
	}
	closeTime := t.CloseTime
	if p.CloseTime != nil {
		closeTime = p.CloseTime
	}

	var errs ValidationErrors
	if closeTime != nil && closeTime.Before(open) {
		errs.Add("close_time", "close_time must not be before open_time")
	}
	return errs.Err()
}

// Apply merges the payload into t and recomputes the derived fields the
// same way a create does.
func (p UpdateTradePayload) Apply(t *Trade) {
	if p.Symbol != nil {
		t.Symbol = strings.ToUpper(strings.TrimSpace(*p.Symbol))
	}
	if p.TradeType != nil {
		t.TradeType = *p.TradeType
	}
	if p.Volume != nil {
		t.Volume = *p.Volume
	}
	if p.OpenPrice != nil {
		t.OpenPrice = *p.OpenPrice
	}
	if p.ClosePrice != nil {
		t.ClosePrice = p.ClosePrice
	}
	if p.StopLoss != nil {
		t.StopLoss = p.StopLoss
	}
	if p.TakeProfit != nil {
		t.TakeProfit = p.TakeProfit
	}
	if p.OpenTime != nil {
		t.OpenTime = *p.OpenTime
	}
	if p.CloseTime != nil {
		t.CloseTime = p.CloseTime
	}
	if p.Commission != nil {
		t.Commission = *p.Commission
	}
	if p.Swap != nil {
		t.Swap = *p.Swap
	}

	pricesChanged := p.ClosePrice != nil || p.OpenPrice != nil || p.Volume != nil || p.TradeType != nil
	switch {
	case p.Profit != nil:
		t.Profit = p.Profit
	case pricesChanged && t.ClosePrice != nil:
		profit := PriceProfit(t.TradeType, t.OpenPrice, *t.ClosePrice, t.Volume)
		t.Profit = &profit
	}

	if p.Profit != nil || p.Commission != nil || p.Swap != nil || pricesChanged {
		t.refreshNetProfit()
	}

	if p.IsClosed != nil {
		t.IsClosed = *p.IsClosed
	} else {
		t.IsClosed = t.hasCloseData()
	}
}
