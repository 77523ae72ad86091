package tetris

import (
	"errors"
	"fmt"
)

// ErrUnknownAction は未対応のアクション名が指定された場合に返されます。
var ErrUnknownAction = errors.New("unknown action")

// クライアントから送られてくるアクション名です。
const (
	ActionMoveLeft    = "move_left"
	ActionMoveRight   = "move_right"
	ActionMoveDown    = "move_down"
	ActionSoftDrop    = "soft_drop" // move_down の別名
	ActionRotate      = "rotate"
	ActionRotateRight = "rotate_right" // rotate の別名
	ActionHardDrop    = "hard_drop"
)

// ApplyPlayerInput はプレイヤーの入力（アクション）に基づいて、
// 指定されたプレイヤーのゲーム状態を更新します。
// 移動できない操作はエラーではなく、Moved が false の結果になります。
//
// Parameters:
//   state  : 更新するプレイヤーのゲーム状態のポインタ
//   action : プレイヤーが実行したアクション（例: "move_left", "rotate"）
// Returns:
//   CommandResult: コマンドの実行結果
//   error: アクション名が不明な場合 (ErrUnknownAction)
func ApplyPlayerInput(state *PlayerGameState, action string) (CommandResult, error) {
	switch action {
	case ActionMoveLeft:
		return state.MoveLeft(), nil
	case ActionMoveRight:
		return state.MoveRight(), nil
	case ActionMoveDown, ActionSoftDrop:
		return state.MoveDown(), nil
	case ActionRotate, ActionRotateRight:
		return state.Rotate(), nil
	case ActionHardDrop:
		return state.HardDrop(), nil
	default:
		return CommandResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// ResetsGravity は自動落下タイマーをリセットすべきアクションかどうかを返します。
// 下方向の操作をしたら次の自動落下まで再び一定時間待ちます。
func ResetsGravity(action string) bool {
	switch action {
	case ActionMoveDown, ActionSoftDrop, ActionHardDrop:
		return true
	}
	return false
}
