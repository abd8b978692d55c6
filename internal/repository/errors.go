package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ロック待ちタイムアウト・デッドロック・直列化失敗。リトライしてよい
	ErrConflict = errors.New("concurrent update conflict")

	// ユニーク制約違反
	ErrDuplicate = errors.New("duplicate key")
)
