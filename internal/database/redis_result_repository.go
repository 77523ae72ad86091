package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/blockfall-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "blockfall:results"

// redisResultRepository はRedisのソート済みセットでランキングを管理するResultRepositoryです。
//
// キー構成:
//
//	<prefix>:seq               結果IDの採番
//	<prefix>:entry:<id>        結果本体 (hash)
//	<prefix>:leaderboard       全体ランキング (zset)
//	<prefix>:user:<userID>     ユーザーごとの記録 (zset)
//
// zset のスコアは符号を反転して保存し、昇順取得で「スコア降順・同点は古い順」になるようにしています。
// メンバーはゼロ埋めしたIDなので、同点時は辞書順がそのまま登録順になります。
type redisResultRepository struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisResultRepository はRedis版ResultRepositoryを作成します。prefix が空なら既定値を使います。
func NewRedisResultRepository(rdb redis.UniversalClient, prefix string) ResultRepository {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &redisResultRepository{rdb: rdb, prefix: prefix}
}

// NewRedisClient はURLからRedisクライアントを作成し、PINGで疎通を確認します。
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("Redis URLの解析に失敗しました: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("RedisのPingに失敗しました: %w", err)
	}
	log.Info("Redisに正常に接続しました。")
	return client, nil
}

func (r *redisResultRepository) seqKey() string         { return r.prefix + ":seq" }
func (r *redisResultRepository) leaderboardKey() string { return r.prefix + ":leaderboard" }
func (r *redisResultRepository) entryKey(member string) string {
	return r.prefix + ":entry:" + member
}
func (r *redisResultRepository) userKey(userID string) string {
	return r.prefix + ":user:" + userID
}

func resultMember(id int64) string {
	return fmt.Sprintf("%020d", id)
}

func (r *redisResultRepository) SaveResult(ctx context.Context, req models.ResultRequest) (*models.Result, error) {
	id, err := r.rdb.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("結果IDの採番に失敗しました: %w", err)
	}

	result := models.Result{
		ID:           id,
		UserID:       req.UserID,
		Score:        req.Score,
		LinesCleared: req.LinesCleared,
		Difficulty:   req.Difficulty,
		CreatedAt:    time.Now().UTC(),
	}
	member := resultMember(id)
	z := redis.Z{Score: -float64(result.Score), Member: member}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.entryKey(member), resultFields(result))
		pipe.ZAdd(ctx, r.leaderboardKey(), z)
		pipe.ZAdd(ctx, r.userKey(result.UserID), z)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ゲーム結果の保存に失敗しました: %w", err)
	}
	return &result, nil
}

func (r *redisResultRepository) GetTopResults(ctx context.Context, limit int) ([]models.ResultResponse, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	members, err := r.rdb.ZRange(ctx, r.leaderboardKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("ランキングの取得に失敗しました: %w", err)
	}

	responses := make([]models.ResultResponse, 0, len(members))
	for i, member := range members {
		result, err := r.loadResult(ctx, member)
		if err != nil {
			return nil, err
		}
		responses = append(responses, models.NewResultResponse(*result, i+1))
	}
	return responses, nil
}

func (r *redisResultRepository) GetUserBestScore(ctx context.Context, userID string) (*models.Result, error) {
	member, err := r.bestMember(ctx, userID)
	if err != nil || member == "" {
		return nil, err
	}
	return r.loadResult(ctx, member)
}

func (r *redisResultRepository) GetUserRanking(ctx context.Context, userID string) (*models.ResultResponse, error) {
	member, err := r.bestMember(ctx, userID)
	if err != nil || member == "" {
		return nil, err
	}

	rank, err := r.rdb.ZRank(ctx, r.leaderboardKey(), member).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーランキング順位の取得に失敗しました: %w", err)
	}

	result, err := r.loadResult(ctx, member)
	if err != nil {
		return nil, err
	}
	resp := models.NewResultResponse(*result, int(rank)+1)
	return &resp, nil
}

// bestMember はユーザーの最高記録のメンバーを返します。記録がなければ空文字です。
func (r *redisResultRepository) bestMember(ctx context.Context, userID string) (string, error) {
	members, err := r.rdb.ZRange(ctx, r.userKey(userID), 0, 0).Result()
	if err != nil {
		return "", fmt.Errorf("ユーザーの最高スコア取得に失敗しました: %w", err)
	}
	if len(members) == 0 {
		return "", nil
	}
	return members[0], nil
}

func (r *redisResultRepository) loadResult(ctx context.Context, member string) (*models.Result, error) {
	fields, err := r.rdb.HGetAll(ctx, r.entryKey(member)).Result()
	if err != nil {
		return nil, fmt.Errorf("ゲーム結果 %s の取得に失敗しました: %w", member, err)
	}
	return parseResultFields(fields)
}

func resultFields(result models.Result) map[string]interface{} {
	return map[string]interface{}{
		"id":            result.ID,
		"user_id":       result.UserID,
		"score":         result.Score,
		"lines_cleared": result.LinesCleared,
		"difficulty":    result.Difficulty,
		"created_at":    result.CreatedAt.Format(time.RFC3339Nano),
	}
}

func parseResultFields(fields map[string]string) (*models.Result, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("ゲーム結果のデータが見つかりません")
	}

	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("結果IDの解析に失敗しました: %w", err)
	}
	score, err := strconv.Atoi(fields["score"])
	if err != nil {
		return nil, fmt.Errorf("スコアの解析に失敗しました: %w", err)
	}
	lines, err := strconv.Atoi(fields["lines_cleared"])
	if err != nil {
		return nil, fmt.Errorf("消去ライン数の解析に失敗しました: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("作成日時の解析に失敗しました: %w", err)
	}

	return &models.Result{
		ID:           id,
		UserID:       fields["user_id"],
		Score:        score,
		LinesCleared: lines,
		Difficulty:   fields["difficulty"],
		CreatedAt:    createdAt,
	}, nil
}
