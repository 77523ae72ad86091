package tetris

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDifficulty は存在しない難易度が指定された場合に返されます。
var ErrInvalidDifficulty = errors.New("invalid difficulty")

// Difficulty はゲームの難易度です。スコア倍率と自動落下間隔を決めます。
type Difficulty string

const (
	DifficultyBaby       Difficulty = "baby"
	DifficultyNormal     Difficulty = "normal"
	DifficultyNightmares Difficulty = "nightmares"
)

// DifficultySettings は難易度ごとの設定値です。
type DifficultySettings struct {
	Name         Difficulty    `json:"name"`
	Multiplier   float64       `json:"multiplier"`    // スコア倍率
	FallInterval time.Duration `json:"fall_interval"` // 自動落下の間隔
}

var difficultyPresets = []DifficultySettings{
	{Name: DifficultyBaby, Multiplier: 0.5, FallInterval: 1000 * time.Millisecond},
	{Name: DifficultyNormal, Multiplier: 1, FallInterval: 500 * time.Millisecond},
	{Name: DifficultyNightmares, Multiplier: 5, FallInterval: 200 * time.Millisecond},
}

// Difficulties は選択可能な難易度を易しい順に返します。
func Difficulties() []DifficultySettings {
	return append([]DifficultySettings(nil), difficultyPresets...)
}

// ParseDifficulty は難易度名から設定値を取得します。空文字列は normal として扱います。
func ParseDifficulty(name string) (DifficultySettings, error) {
	if name == "" {
		name = string(DifficultyNormal)
	}
	for _, d := range difficultyPresets {
		if string(d.Name) == name {
			return d, nil
		}
	}
	return DifficultySettings{}, fmt.Errorf("%w: %q", ErrInvalidDifficulty, name)
}

// GetFallInterval は難易度に応じた自動落下間隔を返します。
func GetFallInterval(d Difficulty) time.Duration {
	settings, err := ParseDifficulty(string(d))
	if err != nil {
		return 500 * time.Millisecond
	}
	return settings.FallInterval
}
