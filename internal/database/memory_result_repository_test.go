package database

import (
	"context"
	"testing"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveScores(t *testing.T, repo ResultRepository, userID string, scores ...int) {
	t.Helper()
	for _, score := range scores {
		_, err := repo.SaveResult(context.Background(), models.ResultRequest{
			UserID:     userID,
			Score:      score,
			Difficulty: "normal",
		})
		require.NoError(t, err)
	}
}

func TestMemoryResultRepository_TopResultsOrdered(t *testing.T) {
	repo := NewMemoryResultRepository(10)
	saveScores(t, repo, "alice", 300, 1200)
	saveScores(t, repo, "bob", 800)

	results, err := repo.GetTopResults(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []int{1200, 800, 300}, []int{results[0].Score, results[1].Score, results[2].Score})
	for i, result := range results {
		assert.Equal(t, i+1, result.Rank)
	}
	assert.Equal(t, "bob", results[1].UserID)
}

func TestMemoryResultRepository_TiesKeepInsertionOrder(t *testing.T) {
	repo := NewMemoryResultRepository(10)
	saveScores(t, repo, "first", 500)
	saveScores(t, repo, "second", 500)

	results, err := repo.GetTopResults(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].UserID)
	assert.Equal(t, "second", results[1].UserID)
}

func TestMemoryResultRepository_KeepsOnlyTopScores(t *testing.T) {
	repo := NewMemoryResultRepository(3)
	saveScores(t, repo, "p", 10, 50, 20, 40, 30)

	results, err := repo.GetTopResults(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 50, results[0].Score)
	assert.Equal(t, 30, results[2].Score)
}

func TestMemoryResultRepository_DefaultSize(t *testing.T) {
	repo := NewMemoryResultRepository(0)
	for i := 0; i < DefaultLeaderboardSize+5; i++ {
		saveScores(t, repo, "p", i)
	}

	results, err := repo.GetTopResults(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, results, DefaultLeaderboardSize)
}

func TestMemoryResultRepository_UserBestAndRanking(t *testing.T) {
	repo := NewMemoryResultRepository(10)
	saveScores(t, repo, "alice", 100, 900)
	saveScores(t, repo, "bob", 1000, 200)

	best, err := repo.GetUserBestScore(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 900, best.Score)

	ranking, err := repo.GetUserRanking(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, ranking)
	assert.Equal(t, 2, ranking.Rank)
	assert.Equal(t, 900, ranking.Score)

	ranking, err = repo.GetUserRanking(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, ranking.Rank)
}

func TestMemoryResultRepository_UnknownUser(t *testing.T) {
	repo := NewMemoryResultRepository(10)

	best, err := repo.GetUserBestScore(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.Nil(t, best)

	ranking, err := repo.GetUserRanking(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.Nil(t, ranking)
}

func TestMemoryResultRepository_SaveAssignsIDs(t *testing.T) {
	repo := NewMemoryResultRepository(10)
	first, err := repo.SaveResult(context.Background(), models.ResultRequest{UserID: "a", Score: 1, LinesCleared: 2})
	require.NoError(t, err)
	second, err := repo.SaveResult(context.Background(), models.ResultRequest{UserID: "a", Score: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, 2, first.LinesCleared)
	assert.WithinDuration(t, time.Now(), first.CreatedAt, time.Minute)
}
