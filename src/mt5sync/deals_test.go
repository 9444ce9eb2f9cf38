package mt5sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingjournal/src/model"
)

func TestBuildTrades_PairsEntryAndExit(t *testing.T) {
	deals := []Deal{
		{Ticket: 1, PositionID: 100, Symbol: "EURUSD", Type: DealBuy, Entry: EntryIn, Volume: 0.5, Price: 1.1000, Commission: -1.5, Swap: 0, Time: 1700000000},
		{Ticket: 2, PositionID: 0, Type: 2, Profit: 1000, Time: 1700000001}, // balance
		{Ticket: 3, PositionID: 100, Symbol: "EURUSD", Type: DealSell, Entry: EntryOut, Volume: 0.5, Price: 1.1050, Profit: 25, Commission: -1.5, Swap: -0.4, Time: 1700003600},
	}

	batch := BuildTrades(7, deals, nil)
	require.Len(t, batch.Trades, 1)

	tr := batch.Trades[0]
	assert.Equal(t, uint(7), tr.UserID)
	assert.Equal(t, "100", *tr.MT5Ticket)
	assert.Equal(t, model.SourceMT5, tr.Source)
	assert.Equal(t, model.TradeBuy, tr.TradeType)
	assert.Equal(t, 1.1, tr.OpenPrice)
	assert.Equal(t, 1.105, *tr.ClosePrice)
	assert.Equal(t, 25.0, *tr.Profit)
	assert.Equal(t, -3.0, tr.Commission)
	assert.Equal(t, -0.4, tr.Swap)
	assert.Equal(t, 21.6, *tr.NetProfit)
	assert.True(t, tr.IsClosed)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), tr.OpenTime)

	require.NotNil(t, batch.LastTradeTime)
	assert.Equal(t, time.Unix(1700003600, 0).UTC(), *batch.LastTradeTime)
}

func TestBuildTrades_EntryOnlyIsOpen(t *testing.T) {
	deals := []Deal{
		{PositionID: 200, Symbol: "XAUUSD", Type: DealSell, Entry: EntryIn, Volume: 1, Price: 1950, Commission: -2, Time: 1700000000},
		{PositionID: 100, Symbol: "EURUSD", Type: DealBuy, Entry: EntryIn, Volume: 1, Price: 1.1, Time: 1690000000},
		{PositionID: 100, Symbol: "EURUSD", Type: DealSell, Entry: EntryOut, Volume: 1, Price: 1.2, Profit: 10, Time: 1710000000},
	}
	positions := []Position{{Ticket: 200, Symbol: "XAUUSD", Type: DealSell, StopLoss: 1980, TakeProfit: 0, Swap: -1.2, Time: 1700000000}}

	batch := BuildTrades(1, deals, positions)
	require.Len(t, batch.Trades, 2)

	open := batch.Trades[0]
	assert.Equal(t, "200", *open.MT5Ticket)
	assert.Equal(t, model.TradeSell, open.TradeType)
	assert.False(t, open.IsClosed)
	assert.Nil(t, open.ClosePrice)
	assert.Nil(t, open.CloseTime)
	assert.Nil(t, open.NetProfit)
	require.NotNil(t, open.StopLoss)
	assert.Equal(t, 1980.0, *open.StopLoss)
	assert.Nil(t, open.TakeProfit)
	assert.Equal(t, -1.2, open.Swap)

	// the next window has to start at the open entry so its exit can pair up
	require.NotNil(t, batch.LastTradeTime)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *batch.LastTradeTime)
}

func TestBuildTrades_ExitWithoutEntryBecomesClose(t *testing.T) {
	deals := []Deal{
		{PositionID: 300, Symbol: "GBPUSD", Type: DealSell, Entry: EntryOut, Price: 1.3, Profit: 5, Commission: -0.5, Swap: -0.25, Time: 1700000000},
	}
	batch := BuildTrades(1, deals, nil)
	assert.Empty(t, batch.Trades)
	require.Len(t, batch.Closes, 1)

	exit := batch.Closes[0]
	assert.Equal(t, uint(1), exit.UserID)
	assert.Equal(t, "300", exit.Ticket)
	assert.Equal(t, 1.3, exit.ClosePrice)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), exit.CloseTime)
	assert.Equal(t, 5.0, exit.Profit)
	assert.Equal(t, -0.5, exit.Commission)
	assert.Equal(t, -0.25, exit.Swap)

	require.NotNil(t, batch.LastTradeTime)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *batch.LastTradeTime)
}

func TestBuildTrades_PositionOpenedBeforeWindow(t *testing.T) {
	positions := []Position{
		{Ticket: 9, Symbol: "US30", Type: DealBuy, Volume: 0.1, PriceOpen: 35000, PriceCurrent: 35100, Profit: 10, Time: 1600000000},
		{Ticket: 5, Symbol: "NAS100", Type: DealSell, Volume: 0.2, PriceOpen: 15000, Time: 1600000100},
	}
	batch := BuildTrades(4, nil, positions)
	require.Len(t, batch.Trades, 2)
	assert.Equal(t, "5", *batch.Trades[0].MT5Ticket)
	assert.Equal(t, "9", *batch.Trades[1].MT5Ticket)
	assert.Equal(t, 35000.0, batch.Trades[1].OpenPrice)
	assert.Nil(t, batch.Trades[1].Profit)
	assert.Nil(t, batch.LastTradeTime)
}
