package social

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-alert-relay/internal/database"
	"trade-alert-relay/internal/models"
)

// MockClient is a mock implementation of the ClientInterface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Publish(ctx context.Context, text, inReplyTo string) (Post, error) {
	args := m.Called(text, inReplyTo)
	return args.Get(0).(Post), args.Error(1)
}

func (m *MockClient) Timeline(ctx context.Context, maxID string, count int) ([]Post, error) {
	args := m.Called(maxID, count)
	return args.Get(0).([]Post), args.Error(1)
}

// setupPoster creates a Poster backed by the mock client and a fresh in-memory index.
func setupPoster(t *testing.T, dryRun bool) (*Poster, *ThreadIndex, *MockClient) {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)

	mockClient := new(MockClient)
	index := NewThreadIndex(db, zap.NewNop())
	return NewPoster(mockClient, index, 2, dryRun, zap.NewNop()), index, mockClient
}

func equityTrade(ticker, tradeType string) models.Trade {
	return models.Trade{
		Quantity:         "10",
		Ticker:           ticker,
		AssetDescription: models.EquityDescription,
		Price:            "1.5",
		Date:             "2024-03-01",
		Time:             "14:30:00+0000",
		Instrument:       models.InstrumentEquity,
		TradeType:        tradeType,
	}
}

func containsText(s string) interface{} {
	return mock.MatchedBy(func(text string) bool { return strings.Contains(text, s) })
}

func TestThreadIndex(t *testing.T) {
	_, index, mockClient := setupPoster(t, false)
	ctx := context.Background()

	mockClient.On("Timeline", "", 2).Return([]Post{
		{ID: "500", Text: "-----POSITION ALERT----- \n$AAPL $MSFT"},
		{ID: "400", Text: "+5 $MSFT SHARES"},
	}, nil).Once()
	mockClient.On("Timeline", "399", 2).Return([]Post{
		{ID: "300", Text: "+1 $AAPL SHARES"},
		{ID: "200", Text: "+1 $AAPL SHARES older"},
	}, nil).Once()
	mockClient.On("Timeline", "199", 2).Return([]Post{}, nil).Once()

	require.NoError(t, index.Load(ctx, mockClient, 2))
	mockClient.AssertExpectations(t)

	t.Run("NewestNonPositionPostWins", func(t *testing.T) {
		id, found, err := index.Lookup(ctx, "AAPL")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "300", id)
	})

	t.Run("NoMatch", func(t *testing.T) {
		_, found, err := index.Lookup(ctx, "TSLA")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("MatchIsCaseSensitive", func(t *testing.T) {
		_, found, err := index.Lookup(ctx, "aapl")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("RecordedPostBecomesNewest", func(t *testing.T) {
		require.NoError(t, index.Record(ctx, Post{ID: "600", Text: "-1 $AAPL SHARES"}))

		id, found, err := index.Lookup(ctx, "AAPL")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "600", id)
	})

	t.Run("ReloadClearsPreviousRun", func(t *testing.T) {
		mockClient.On("Timeline", "", 2).Return([]Post{}, nil).Once()
		require.NoError(t, index.Load(ctx, mockClient, 2))

		_, found, err := index.Lookup(ctx, "AAPL")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestPoster_PostTrades(t *testing.T) {
	t.Run("ThreadsReplyToPriorTickerPost", func(t *testing.T) {
		poster, _, mockClient := setupPoster(t, false)
		mockClient.On("Timeline", "", 2).Return([]Post{
			{ID: "20", Text: "-----POSITION ALERT----- \n$AAPL"},
			{ID: "10", Text: "-----TRADE ALERT----- \n+3 $AAPL SHARES"},
		}, nil).Once()
		mockClient.On("Timeline", "9", 2).Return([]Post{}, nil).Once()
		mockClient.On("Publish", containsText("+10 $AAPL SHARES"), "10").Return(Post{ID: "30", Text: "x $AAPL"}, nil).Once()
		mockClient.On("Publish", containsText("-10 $MSFT SHARES"), "").Return(Post{ID: "31", Text: "x $MSFT"}, nil).Once()
		// The second AAPL trade threads onto the alert posted moments earlier.
		mockClient.On("Publish", containsText("-10 $AAPL SHARES"), "30").Return(Post{ID: "32", Text: "y $AAPL"}, nil).Once()

		res := poster.PostTrades(context.Background(), []models.Trade{
			equityTrade("AAPL", "BUY TRADE"),
			equityTrade("MSFT", "SELL TRADE"),
			equityTrade("AAPL", "SELL TRADE"),
		})

		assert.Equal(t, Result{Posted: 3}, res)
		mockClient.AssertExpectations(t)
	})

	t.Run("FailureIsIsolatedPerTrade", func(t *testing.T) {
		poster, _, mockClient := setupPoster(t, false)
		mockClient.On("Timeline", "", 2).Return([]Post{}, nil).Once()
		mockClient.On("Publish", containsText("$AAPL"), "").Return(Post{}, errors.New("duplicate status")).Once()
		mockClient.On("Publish", containsText("$MSFT"), "").Return(Post{ID: "2"}, nil).Once()

		res := poster.PostTrades(context.Background(), []models.Trade{
			equityTrade("AAPL", "BUY TRADE"),
			{Ticker: "BTC", Instrument: "CRYPTO"},
			equityTrade("MSFT", "BUY TRADE"),
		})

		assert.Equal(t, Result{Posted: 1, Failed: 1, Skipped: 1}, res)
		mockClient.AssertExpectations(t)
	})

	t.Run("TimelineFailurePostsTopLevel", func(t *testing.T) {
		poster, _, mockClient := setupPoster(t, false)
		mockClient.On("Timeline", "", 2).Return([]Post{}, errors.New("rate limited")).Once()
		mockClient.On("Publish", containsText("$AAPL"), "").Return(Post{ID: "2"}, nil).Once()

		res := poster.PostTrades(context.Background(), []models.Trade{equityTrade("AAPL", "BUY TRADE")})

		assert.Equal(t, Result{Posted: 1}, res)
		mockClient.AssertExpectations(t)
	})

	t.Run("NoTradesReadsNothing", func(t *testing.T) {
		poster, _, mockClient := setupPoster(t, false)

		res := poster.PostTrades(context.Background(), nil)

		assert.Equal(t, Result{}, res)
		mockClient.AssertNotCalled(t, "Timeline", mock.Anything, mock.Anything)
	})

	t.Run("DryRun", func(t *testing.T) {
		poster, _, mockClient := setupPoster(t, true)
		mockClient.On("Timeline", "", 2).Return([]Post{}, nil).Once()

		res := poster.PostTrades(context.Background(), []models.Trade{equityTrade("AAPL", "BUY TRADE")})

		assert.Equal(t, Result{Posted: 1}, res)
		mockClient.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestPoster_PostPositions(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		poster, _, mockClient := setupPoster(t, false)
		mockClient.On("Publish", PositionsBody([]string{"AAPL", "MSFT"}), "").Return(Post{ID: "1"}, nil).Once()

		err := poster.PostPositions(context.Background(), []string{"AAPL", "MSFT"})

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Failure", func(t *testing.T) {
		poster, _, mockClient := setupPoster(t, false)
		mockClient.On("Publish", mock.Anything, "").Return(Post{}, errors.New("unauthorized")).Once()

		err := poster.PostPositions(context.Background(), []string{"AAPL"})

		assert.ErrorContains(t, err, "failed to post positions")
	})
}
