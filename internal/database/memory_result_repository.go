package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/models"
)

// DefaultLeaderboardSize はメモリ版リポジトリが保持するスコア件数の既定値です。
const DefaultLeaderboardSize = 10

// memoryResultRepository はプロセス内に上位スコアだけを保持するResultRepositoryです。
// データベースが設定されていない開発環境で使用します。
type memoryResultRepository struct {
	mu      sync.RWMutex
	size    int
	nextID  int64
	results []models.Result // スコア降順、同点は古い順
	now     func() time.Time
}

// NewMemoryResultRepository は上位 size 件だけを保持するリポジトリを作成します。
// size が0以下の場合は DefaultLeaderboardSize を使います。
func NewMemoryResultRepository(size int) ResultRepository {
	if size <= 0 {
		size = DefaultLeaderboardSize
	}
	return &memoryResultRepository{
		size: size,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryResultRepository) SaveResult(_ context.Context, req models.ResultRequest) (*models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	result := models.Result{
		ID:           r.nextID,
		UserID:       req.UserID,
		Score:        req.Score,
		LinesCleared: req.LinesCleared,
		Difficulty:   req.Difficulty,
		CreatedAt:    r.now(),
	}

	// 同点の場合は既存の記録の後ろに入る
	idx := sort.Search(len(r.results), func(i int) bool {
		return r.results[i].Score < result.Score
	})
	r.results = append(r.results, models.Result{})
	copy(r.results[idx+1:], r.results[idx:])
	r.results[idx] = result

	if len(r.results) > r.size {
		r.results = r.results[:r.size]
	}

	return &result, nil
}

func (r *memoryResultRepository) GetTopResults(_ context.Context, limit int) ([]models.ResultResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.results) {
		limit = len(r.results)
	}
	responses := make([]models.ResultResponse, 0, limit)
	for i := 0; i < limit; i++ {
		responses = append(responses, models.NewResultResponse(r.results[i], i+1))
	}
	return responses, nil
}

func (r *memoryResultRepository) GetUserBestScore(_ context.Context, userID string) (*models.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOfUser(userID); i >= 0 {
		result := r.results[i]
		return &result, nil
	}
	return nil, nil
}

func (r *memoryResultRepository) GetUserRanking(_ context.Context, userID string) (*models.ResultResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOfUser(userID); i >= 0 {
		resp := models.NewResultResponse(r.results[i], i+1)
		return &resp, nil
	}
	return nil, nil
}

// indexOfUser はユーザーの最上位の記録の位置を返します。呼び出し側でロックを保持してください。
func (r *memoryResultRepository) indexOfUser(userID string) int {
	for i, result := range r.results {
		if result.UserID == userID {
			return i
		}
	}
	return -1
}
