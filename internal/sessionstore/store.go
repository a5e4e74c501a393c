// Пакет sessionstore — хранилища сессий браузера: в памяти процесса
// (LRU с TTL) и в PostgreSQL.
package sessionstore

import "errors"

// ErrNotFound — сессия не найдена или истекла.
var ErrNotFound = errors.New("сессия не найдена")
