package mt5sync

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"tradingjournal/src/model"
)

// Deal types and entry directions as reported by the terminal.
const (
	DealBuy  = 0
	DealSell = 1

	EntryIn  = 0
	EntryOut = 1
)

// Deal is one execution from the terminal's history. Time is unix seconds.
type Deal struct {
	Ticket     int64   `json:"ticket"`
	PositionID int64   `json:"position_id"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Entry      int     `json:"entry"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Time       int64   `json:"time"`
}

// Position is a currently open position on the account.
type Position struct {
	Ticket       int64   `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Type         int     `json:"type"`
	Volume       float64 `json:"volume"`
	PriceOpen    float64 `json:"price_open"`
	PriceCurrent float64 `json:"price_current"`
	StopLoss     float64 `json:"sl"`
	TakeProfit   float64 `json:"tp"`
	Profit       float64 `json:"profit"`
	Swap         float64 `json:"swap"`
	Time         int64   `json:"time"`
}

// Batch is the outcome of grouping one history window.
type Batch struct {
	Trades []model.Trade
	// Closes are exit deals whose entry lies before the window. They can
	// only close a trade stored by an earlier sync.
	Closes []model.MT5Close
	// LastTradeTime is where the next window may start without losing the
	// entry deal of a position that is still open. Nil when nothing traded.
	LastTradeTime *time.Time
}

type dealPair struct {
	entry *Deal
	exit  *Deal
}

func unix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func tradeType(t int) model.TradeType {
	if t == DealBuy {
		return model.TradeBuy
	}
	return model.TradeSell
}

func ticket(id int64) *string {
	s := strconv.FormatInt(id, 10)
	return &s
}

func optionalPrice(p float64) *float64 {
	if p <= 0 {
		return nil
	}
	return &p
}

func sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(8).InexactFloat64()
}

// BuildTrades turns raw deals and open positions into trades for userID.
// Non-trade deals (balance, credit, ...) are ignored. A position with both
// an entry and an exit deal is closed; one with only an entry is open.
// An exit deal whose entry lies outside the window becomes a close for the
// trade stored earlier under the same ticket.
func BuildTrades(userID uint, deals []Deal, positions []Position) Batch {
	pairs := make(map[int64]*dealPair)
	var order []int64
	for i := range deals {
		d := deals[i]
		if d.Type > DealSell {
			continue
		}
		p, ok := pairs[d.PositionID]
		if !ok {
			p = &dealPair{}
			pairs[d.PositionID] = p
			order = append(order, d.PositionID)
		}
		switch d.Entry {
		case EntryIn:
			p.entry = &d
		case EntryOut:
			p.exit = &d
		}
	}

	open := make(map[int64]Position, len(positions))
	for _, pos := range positions {
		open[pos.Ticket] = pos
	}

	var (
		batch      Batch
		newestExit time.Time
		oldestOpen time.Time
	)
	for _, id := range order {
		p := pairs[id]
		if p.entry == nil {
			if p.exit == nil {
				continue
			}
			exit := p.exit
			closeTime := unix(exit.Time)
			batch.Closes = append(batch.Closes, model.MT5Close{
				UserID:     userID,
				Ticket:     *ticket(id),
				ClosePrice: exit.Price,
				CloseTime:  closeTime,
				Profit:     exit.Profit,
				Commission: exit.Commission,
				Swap:       exit.Swap,
			})
			if closeTime.After(newestExit) {
				newestExit = closeTime
			}
			continue
		}
		entry := p.entry
		trade := model.Trade{
			UserID:    userID,
			MT5Ticket: ticket(id),
			Source:    model.SourceMT5,
			Symbol:    entry.Symbol,
			TradeType: tradeType(entry.Type),
			Volume:    entry.Volume,
			OpenPrice: entry.Price,
			OpenTime:  unix(entry.Time),
		}

		if p.exit == nil {
			trade.Commission = entry.Commission
			trade.Swap = entry.Swap
			if pos, ok := open[id]; ok {
				trade.StopLoss = optionalPrice(pos.StopLoss)
				trade.TakeProfit = optionalPrice(pos.TakeProfit)
				trade.Swap = pos.Swap
				delete(open, id)
			}
			if oldestOpen.IsZero() || trade.OpenTime.Before(oldestOpen) {
				oldestOpen = trade.OpenTime
			}
			batch.Trades = append(batch.Trades, trade)
			continue
		}

		exit := p.exit
		closePrice := exit.Price
		closeTime := unix(exit.Time)
		profit := exit.Profit
		trade.ClosePrice = &closePrice
		trade.CloseTime = &closeTime
		trade.Profit = &profit
		trade.Commission = sum(entry.Commission, exit.Commission)
		trade.Swap = sum(entry.Swap, exit.Swap)
		net := sum(profit, trade.Commission, trade.Swap)
		trade.NetProfit = &net
		trade.IsClosed = true
		if closeTime.After(newestExit) {
			newestExit = closeTime
		}
		batch.Trades = append(batch.Trades, trade)
	}

	// positions opened before the window
	var rest []Position
	for _, pos := range open {
		rest = append(rest, pos)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Ticket < rest[j].Ticket })
	for _, pos := range rest {
		batch.Trades = append(batch.Trades, model.Trade{
			UserID:     userID,
			MT5Ticket:  ticket(pos.Ticket),
			Source:     model.SourceMT5,
			Symbol:     pos.Symbol,
			TradeType:  tradeType(pos.Type),
			Volume:     pos.Volume,
			OpenPrice:  pos.PriceOpen,
			StopLoss:   optionalPrice(pos.StopLoss),
			TakeProfit: optionalPrice(pos.TakeProfit),
			OpenTime:   unix(pos.Time),
			Swap:       pos.Swap,
		})
	}

	switch {
	case newestExit.IsZero() && oldestOpen.IsZero():
	case newestExit.IsZero():
		batch.LastTradeTime = &oldestOpen
	case !oldestOpen.IsZero() && oldestOpen.Before(newestExit):
		batch.LastTradeTime = &oldestOpen
	default:
		batch.LastTradeTime = &newestExit
	}
	return batch
}
