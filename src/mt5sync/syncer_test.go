package mt5sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingjournal/src/events"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
)

type mockSource struct {
	accounts []model.SyncAccount
	err      error
	reports  []model.MT5StatusUpdate
}

func (m *mockSource) DueAccounts(ctx context.Context) ([]model.SyncAccount, error) {
	return m.accounts, m.err
}

func (m *mockSource) ReportStatus(ctx context.Context, update model.MT5StatusUpdate) error {
	m.reports = append(m.reports, update)
	return nil
}

type mockSink struct {
	seen   map[string]bool
	closed map[string]bool
	closes []model.MT5Close
	err    error
}

func (m *mockSink) CloseMT5Trade(ctx context.Context, exit model.MT5Close) (*model.Trade, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.closes = append(m.closes, exit)
	if !m.seen[exit.Ticket] || m.closed[exit.Ticket] {
		return nil, nil
	}
	if m.closed == nil {
		m.closed = map[string]bool{}
	}
	m.closed[exit.Ticket] = true
	ticket := exit.Ticket
	return &model.Trade{UserID: exit.UserID, MT5Ticket: &ticket, IsClosed: true}, nil
}

func (m *mockSink) UpsertMT5Trade(ctx context.Context, trade *model.Trade) (repository.UpsertResult, error) {
	if m.err != nil {
		return repository.UpsertSkipped, m.err
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[*trade.MT5Ticket] {
		return repository.UpsertSkipped, nil
	}
	m.seen[*trade.MT5Ticket] = true
	return repository.UpsertInserted, nil
}

type mockSession struct {
	deals     []Deal
	positions []Position
	from, to  time.Time
	closed    bool
}

func (m *mockSession) Deals(ctx context.Context, from, to time.Time) ([]Deal, error) {
	m.from, m.to = from, to
	return m.deals, nil
}

func (m *mockSession) Positions(ctx context.Context) ([]Position, error) {
	return m.positions, nil
}

func (m *mockSession) Close(ctx context.Context) error {
	m.closed = true
	return nil
}

type mockTerminal struct {
	session *mockSession
	err     error
	logins  []string
}

func (m *mockTerminal) Open(ctx context.Context, account model.SyncAccount) (Session, error) {
	m.logins = append(m.logins, account.Login)
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

type mockNotifier struct {
	calls []events.EventType
}

func (m *mockNotifier) TradeChanged(ctx context.Context, eventType events.EventType, userID uint, trade *model.Trade) {
	m.calls = append(m.calls, eventType)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSyncer(source AccountSource, sink TradeSink, terminal Terminal) *Syncer {
	s := NewSyncer(source, sink, terminal, Config{HistoryLookback: 365 * 24 * time.Hour})
	s.now = func() time.Time { return fixedNow }
	return s
}

func closedPair(position int64, exitTime int64) []Deal {
	return []Deal{
		{PositionID: position, Symbol: "EURUSD", Type: DealBuy, Entry: EntryIn, Volume: 1, Price: 1.1, Time: exitTime - 60},
		{PositionID: position, Symbol: "EURUSD", Type: DealSell, Entry: EntryOut, Volume: 1, Price: 1.2, Profit: 10, Time: exitTime},
	}
}

func TestSyncer_RunOnceReportsSuccess(t *testing.T) {
	exit := fixedNow.Add(-time.Hour).Unix()
	session := &mockSession{deals: closedPair(1, exit)}
	source := &mockSource{accounts: []model.SyncAccount{{AccountID: 3, UserID: 9, Login: "123"}}}
	notifier := &mockNotifier{}

	s := newTestSyncer(source, &mockSink{}, &mockTerminal{session: session}).WithNotifier(notifier)
	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, source.reports, 1)
	report := source.reports[0]
	assert.Equal(t, uint(3), report.AccountID)
	assert.Equal(t, model.SyncSuccess, report.Status)
	assert.Equal(t, "Synced 1 new trades", report.Message)
	require.NotNil(t, report.LastTradeTime)
	assert.Equal(t, exit, report.LastTradeTime.Unix())

	assert.Equal(t, []events.EventType{events.TradeSynced}, notifier.calls)
	assert.True(t, session.closed)
	assert.Equal(t, fixedNow.Add(-365*24*time.Hour), session.from)
}

func TestSyncer_WindowStartsAtLastTradeTime(t *testing.T) {
	last := fixedNow.Add(-48 * time.Hour)
	session := &mockSession{}
	s := newTestSyncer(&mockSource{}, &mockSink{}, &mockTerminal{session: session})

	res := s.SyncAccount(context.Background(), model.SyncAccount{AccountID: 1, LastTradeTime: &last})
	assert.Equal(t, model.SyncSuccess, res.Status)
	assert.Equal(t, "Synced 0 new trades", res.Message)
	assert.Nil(t, res.LastTradeTime)
	assert.Equal(t, last, session.from)
	assert.Equal(t, fixedNow, session.to)
}

func TestSyncer_SecondRunSkipsKnownTickets(t *testing.T) {
	session := &mockSession{deals: closedPair(1, fixedNow.Add(-time.Hour).Unix())}
	sink := &mockSink{}
	s := newTestSyncer(&mockSource{}, sink, &mockTerminal{session: session})

	first := s.SyncAccount(context.Background(), model.SyncAccount{AccountID: 1})
	second := s.SyncAccount(context.Background(), model.SyncAccount{AccountID: 1, LastTradeTime: first.LastTradeTime})
	assert.Equal(t, 1, first.TradesSynced)
	assert.Equal(t, 0, second.TradesSynced)
	assert.Nil(t, second.LastTradeTime)
}

func TestSyncer_LoginFailureReportsError(t *testing.T) {
	source := &mockSource{accounts: []model.SyncAccount{{AccountID: 1}, {AccountID: 2}}}
	terminal := &mockTerminal{err: errors.New("Login failed: invalid account")}

	s := newTestSyncer(source, &mockSink{}, terminal)
	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, source.reports, 2)
	for _, r := range source.reports {
		assert.Equal(t, model.SyncError, r.Status)
		assert.Equal(t, "Login failed: invalid account", r.Message)
		assert.Nil(t, r.LastTradeTime)
	}
}

func TestSyncer_SinkFailure(t *testing.T) {
	session := &mockSession{deals: closedPair(1, fixedNow.Unix())}
	s := newTestSyncer(&mockSource{}, &mockSink{err: assert.AnError}, &mockTerminal{session: session})

	res := s.SyncAccount(context.Background(), model.SyncAccount{AccountID: 1})
	assert.Equal(t, model.SyncError, res.Status)
	assert.Contains(t, res.Message, assert.AnError.Error())
	assert.True(t, session.closed)
}

func TestSyncer_SourceFailure(t *testing.T) {
	s := newTestSyncer(&mockSource{err: assert.AnError}, &mockSink{}, &mockTerminal{})
	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSyncer_RunStopsOnCancel(t *testing.T) {
	s := newTestSyncer(&mockSource{}, &mockSink{}, &mockTerminal{})
	s.config.CheckInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

type mockAccountStore struct {
	accounts []model.MT5Account
	recorded []model.MT5StatusUpdate
	found    bool
}

func (m *mockAccountStore) ListDue(ctx context.Context, now time.Time) ([]model.MT5Account, error) {
	return m.accounts, nil
}

func (m *mockAccountStore) RecordSync(ctx context.Context, update model.MT5StatusUpdate, at time.Time) (bool, error) {
	m.recorded = append(m.recorded, update)
	return m.found, nil
}

type mockDecrypter struct{}

func (mockDecrypter) Decrypt(encoded string) (string, error) {
	if encoded == "bad" {
		return "", errors.New("cannot decrypt")
	}
	return "plain-" + encoded, nil
}

func TestRepositorySource(t *testing.T) {
	store := &mockAccountStore{accounts: []model.MT5Account{
		{ID: 1, UserID: 10, Login: "111", PasswordEncrypted: "x", Server: "Demo"},
		{ID: 2, UserID: 11, Login: "222", PasswordEncrypted: "bad", Server: "Demo"},
	}}
	src := NewRepositorySource(store, mockDecrypter{})

	accounts, err := src.DueAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "plain-x", accounts[0].Password)
	assert.Equal(t, uint(10), accounts[0].UserID)

	err = src.ReportStatus(context.Background(), model.MT5StatusUpdate{AccountID: 5, Status: model.SyncSuccess})
	assert.Error(t, err)

	store.found = true
	err = src.ReportStatus(context.Background(), model.MT5StatusUpdate{AccountID: 1, Status: model.SyncSuccess})
	assert.NoError(t, err)
	assert.Len(t, store.recorded, 2)
}

func TestSyncer_ClosesPositionOpenedBeforeWindow(t *testing.T) {
	openedAt := fixedNow.AddDate(-2, 0, 0).Unix()
	session := &mockSession{
		positions: []Position{{Ticket: 9, Symbol: "US30", Type: DealBuy, Volume: 0.1, PriceOpen: 35000, Time: openedAt}},
	}
	sink := &mockSink{}
	notifier := &mockNotifier{}
	s := newTestSyncer(&mockSource{}, sink, &mockTerminal{session: session}).WithNotifier(notifier)
	account := model.SyncAccount{AccountID: 1, UserID: 4, Login: "5001"}

	first := s.SyncAccount(context.Background(), account)
	require.Equal(t, model.SyncSuccess, first.Status)
	assert.Equal(t, 1, first.TradesSynced)
	assert.True(t, sink.seen["9"])

	exitAt := fixedNow.Add(-time.Hour)
	session.positions = nil
	session.deals = []Deal{
		{PositionID: 9, Symbol: "US30", Type: DealSell, Entry: EntryOut, Volume: 0.1, Price: 35100, Profit: 10, Time: exitAt.Unix()},
	}

	second := s.SyncAccount(context.Background(), account)
	require.Equal(t, model.SyncSuccess, second.Status)
	assert.Equal(t, 1, second.TradesSynced)
	assert.Equal(t, "Synced 1 new trades", second.Message)
	require.Len(t, sink.closes, 1)
	assert.Equal(t, "9", sink.closes[0].Ticket)
	assert.True(t, sink.closed["9"])
	require.NotNil(t, second.LastTradeTime)
	assert.Equal(t, exitAt.UTC().Truncate(time.Second), *second.LastTradeTime)
	assert.Len(t, notifier.calls, 2)
}

func TestSyncer_CloseForUnknownTicketIsSkipped(t *testing.T) {
	session := &mockSession{deals: []Deal{
		{PositionID: 77, Symbol: "EURUSD", Type: DealSell, Entry: EntryOut, Price: 1.1, Profit: 3, Time: fixedNow.Add(-time.Hour).Unix()},
	}}
	sink := &mockSink{}
	s := newTestSyncer(&mockSource{}, sink, &mockTerminal{session: session})

	res := s.SyncAccount(context.Background(), model.SyncAccount{AccountID: 1, UserID: 4})
	assert.Equal(t, model.SyncSuccess, res.Status)
	assert.Equal(t, 0, res.TradesSynced)
	assert.Len(t, sink.closes, 1)
}
