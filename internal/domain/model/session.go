package model

import "time"

// Session — аутентифицированная сессия браузера.
type Session struct {
	// ID — непрозрачный идентификатор (ключ в хранилище сессий)
	ID string
	// Email — email пользователя из проверенного ID token
	Email string
	// CreatedAt — время входа
	CreatedAt time.Time
	// ExpiresAt — время истечения сессии
	ExpiresAt time.Time
}

// Authenticated сообщает, установлена ли личность пользователя.
func (s *Session) Authenticated() bool {
	return s != nil && s.Email != ""
}

// Expired проверяет истечение сессии на момент now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
