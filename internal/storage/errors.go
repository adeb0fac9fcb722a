// Package storage описывает общие ошибки хранилищ аккаунтов.
// Конкретные реализации находятся в подпакетах mongodb и postgresql.
package storage

import "errors"

var (
	// ErrAccountNotFound аккаунт с указанным идентификатором отсутствует.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists нарушена уникальность userID или email.
	ErrAccountExists = errors.New("account already exists")
	// ErrSubscriptionTaken идентификатор подписки уже привязан к другому аккаунту.
	ErrSubscriptionTaken = errors.New("subscription already bound to another account")
	// ErrVersionConflict аккаунт был изменён после чтения.
	ErrVersionConflict = errors.New("account was modified concurrently")
)
