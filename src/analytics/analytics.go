// Package analytics reduces a list of trades into performance metrics and
// chart series. Every function here is pure: the same input always yields
// the same output and nothing is retained between calls.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradingjournal/src/model"
	"tradingjournal/src/session"
)

// ProfitFactorSentinel stands in for an infinite profit factor (wins and no
// losses). ProfitFactorInfinite is set alongside it so callers need not
// compare against the magic number.
const ProfitFactorSentinel = 999.0

var hundred = decimal.NewFromInt(100)

type Summary struct {
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	BreakevenTrades      int     `json:"breakeven_trades"`
	WinRate              float64 `json:"win_rate"`
	TotalProfit          float64 `json:"total_profit"`
	NetProfit            float64 `json:"net_profit"`
	GrossProfit          float64 `json:"gross_profit"`
	GrossLoss            float64 `json:"gross_loss"`
	TotalLoss            float64 `json:"total_loss"` // same as gross_loss, kept for older dashboards
	AverageWin           float64 `json:"average_win"`
	AverageLoss          float64 `json:"average_loss"`
	ProfitFactor         float64 `json:"profit_factor"`
	ProfitFactorInfinite bool    `json:"profit_factor_infinite"`
	Expectancy           float64 `json:"expectancy"`
	LargestWin           float64 `json:"largest_win"`
	LargestLoss          float64 `json:"largest_loss"`
	MaxDrawdown          float64 `json:"max_drawdown"`
}

type CumulativePoint struct {
	TradeID    uint      `json:"trade_id"`
	Date       time.Time `json:"date"`
	Symbol     string    `json:"symbol"`
	Profit     float64   `json:"profit"`
	Cumulative float64   `json:"cumulative"`
}

type SymbolStat struct {
	Symbol  string  `json:"symbol"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Profit  float64 `json:"profit"`
	WinRate float64 `json:"win_rate"`
}

type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type MonthStat struct {
	Month  string  `json:"month"`
	Profit float64 `json:"profit"`
	Trades int     `json:"trades"`
}

type SessionStat struct {
	Session session.Session `json:"session"`
	Trades  int             `json:"trades"`
	Profit  float64         `json:"profit"`
	WinRate float64         `json:"win_rate"`
}

// Report is the full dashboard payload.
type Report struct {
	Summary         Summary           `json:"summary"`
	ProfitOverTime  []CumulativePoint `json:"profit_over_time"`
	TradesBySymbol  []SymbolStat      `json:"trades_by_symbol"`
	WinLossData     []Slice           `json:"win_loss_data"`
	ProfitByMonth   []MonthStat       `json:"profit_by_month"`
	ProfitBySession []SessionStat     `json:"profit_by_session"`
}

// Compute builds the summary and every series for trades, which the caller
// has already narrowed to the closed trades of the requested range.
func Compute(trades []model.Trade) Report {
	return Report{
		Summary:         Summarize(trades),
		ProfitOverTime:  ProfitOverTime(trades),
		TradesBySymbol:  TradesBySymbol(trades),
		WinLossData:     WinLossData(trades),
		ProfitByMonth:   ProfitByMonth(trades),
		ProfitBySession: ProfitBySession(trades),
	}
}

// netOf reads a trade's net profit, treating a missing value as zero.
func netOf(t model.Trade) decimal.Decimal {
	if t.NetProfit == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*t.NetProfit)
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(whole))))
}

func Summarize(trades []model.Trade) Summary {
	var s Summary
	s.TotalTrades = len(trades)
	if s.TotalTrades == 0 {
		return s
	}

	total := decimal.Zero
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	largestWin := decimal.Zero
	largestLoss := decimal.Zero

	for _, t := range trades {
		net := netOf(t)
		total = total.Add(net)

		switch net.Sign() {
		case 1:
			s.WinningTrades++
			grossProfit = grossProfit.Add(net)
			if net.GreaterThan(largestWin) {
				largestWin = net
			}
		case -1:
			s.LosingTrades++
			grossLoss = grossLoss.Add(net.Abs())
			if net.LessThan(largestLoss) {
				largestLoss = net
			}
		default:
			s.BreakevenTrades++
		}
	}

	s.WinRate = percent(s.WinningTrades, s.TotalTrades)
	s.TotalProfit = round2(total)
	s.NetProfit = s.TotalProfit
	s.GrossProfit = round2(grossProfit)
	s.GrossLoss = round2(grossLoss)
	s.TotalLoss = s.GrossLoss
	s.LargestWin = round2(largestWin)
	s.LargestLoss = round2(largestLoss)
	s.Expectancy = round2(total.Div(decimal.NewFromInt(int64(s.TotalTrades))))

	if s.WinningTrades > 0 {
		s.AverageWin = round2(grossProfit.Div(decimal.NewFromInt(int64(s.WinningTrades))))
	}
	if s.LosingTrades > 0 {
		s.AverageLoss = round2(grossLoss.Div(decimal.NewFromInt(int64(s.LosingTrades))))
	}

	switch {
	case grossLoss.IsPositive():
		s.ProfitFactor = round2(grossProfit.Div(grossLoss))
	case grossProfit.IsPositive():
		s.ProfitFactor = ProfitFactorSentinel
		s.ProfitFactorInfinite = true
	}

	s.MaxDrawdown = maxDrawdown(byCloseTime(trades))
	return s
}

// byCloseTime returns the trades that carry a close time, stable sorted
// ascending so trades sharing a timestamp keep their input order.
func byCloseTime(trades []model.Trade) []model.Trade {
	closed := make([]model.Trade, 0, len(trades))
	for _, t := range trades {
		if t.CloseTime != nil {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].CloseTime.Before(*closed[j].CloseTime)
	})
	return closed
}

func maxDrawdown(ordered []model.Trade) float64 {
	running := decimal.Zero
	peak := decimal.Zero
	worst := decimal.Zero
	for _, t := range ordered {
		running = running.Add(netOf(t))
		if running.GreaterThan(peak) {
			peak = running
		}
		if dd := peak.Sub(running); dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return round2(worst)
}

// ProfitOverTime is the running sum of net profit by ascending close time.
// Trades without a close time are left out.
func ProfitOverTime(trades []model.Trade) []CumulativePoint {
	ordered := byCloseTime(trades)
	points := make([]CumulativePoint, 0, len(ordered))
	running := decimal.Zero
	for _, t := range ordered {
		net := netOf(t)
		running = running.Add(net)
		points = append(points, CumulativePoint{
			TradeID:    t.ID,
			Date:       *t.CloseTime,
			Symbol:     t.Symbol,
			Profit:     round2(net),
			Cumulative: round2(running),
		})
	}
	return points
}

type bucket struct {
	trades int
	wins   int
	losses int
	profit decimal.Decimal
}

func (b *bucket) add(net decimal.Decimal) {
	b.trades++
	b.profit = b.profit.Add(net)
	switch net.Sign() {
	case 1:
		b.wins++
	case -1:
		b.losses++
	}
}

// TradesBySymbol groups by symbol, busiest symbol first, ties by name.
func TradesBySymbol(trades []model.Trade) []SymbolStat {
	buckets := map[string]*bucket{}
	for _, t := range trades {
		b, ok := buckets[t.Symbol]
		if !ok {
			b = &bucket{profit: decimal.Zero}
			buckets[t.Symbol] = b
		}
		b.add(netOf(t))
	}

	stats := make([]SymbolStat, 0, len(buckets))
	for symbol, b := range buckets {
		stats = append(stats, SymbolStat{
			Symbol:  symbol,
			Trades:  b.trades,
			Wins:    b.wins,
			Losses:  b.losses,
			Profit:  round2(b.profit),
			WinRate: percent(b.wins, b.trades),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Trades != stats[j].Trades {
			return stats[i].Trades > stats[j].Trades
		}
		return stats[i].Symbol < stats[j].Symbol
	})
	return stats
}

func WinLossData(trades []model.Trade) []Slice {
	var wins, losses, even int
	for _, t := range trades {
		switch netOf(t).Sign() {
		case 1:
			wins++
		case -1:
			losses++
		default:
			even++
		}
	}
	return []Slice{
		{Name: "Wins", Value: wins},
		{Name: "Losses", Value: losses},
		{Name: "Breakeven", Value: even},
	}
}

// ProfitByMonth buckets by the UTC calendar month of the close time.
func ProfitByMonth(trades []model.Trade) []MonthStat {
	buckets := map[string]*bucket{}
	for _, t := range trades {
		if t.CloseTime == nil {
			continue
		}
		month := t.CloseTime.UTC().Format("2006-01")
		b, ok := buckets[month]
		if !ok {
			b = &bucket{profit: decimal.Zero}
			buckets[month] = b
		}
		b.add(netOf(t))
	}

	stats := make([]MonthStat, 0, len(buckets))
	for month, b := range buckets {
		stats = append(stats, MonthStat{Month: month, Profit: round2(b.profit), Trades: b.trades})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Month < stats[j].Month })
	return stats
}

// ProfitBySession buckets by the New York session the trade was opened in.
func ProfitBySession(trades []model.Trade) []SessionStat {
	buckets := map[session.Session]*bucket{}
	for _, t := range trades {
		s := session.Of(t.OpenTime)
		b, ok := buckets[s]
		if !ok {
			b = &bucket{profit: decimal.Zero}
			buckets[s] = b
		}
		b.add(netOf(t))
	}

	stats := make([]SessionStat, 0, len(buckets))
	for _, s := range session.Ordered {
		b, ok := buckets[s]
		if !ok {
			continue
		}
		stats = append(stats, SessionStat{
			Session: s,
			Trades:  b.trades,
			Profit:  round2(b.profit),
			WinRate: percent(b.wins, b.trades),
		})
	}
	return stats
}
