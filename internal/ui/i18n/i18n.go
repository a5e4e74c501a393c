// Пакет i18n — интернационализация UI портала.
// Предоставляет функции T(ctx, key) и Tf(ctx, key, args...) для получения
// переведённых строк из контекста HTTP-запроса и FuncMap для html/template.
// Поддерживаемые языки: English (en), Русский (ru).
// Язык определяется middleware: cookie "lang" → Accept-Language → default "en".
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLang — язык по умолчанию и fallback для отсутствующих ключей.
const DefaultLang = "en"

// Поддерживаемые языки
var (
	// SupportedLanguages — список поддерживаемых тегов языков.
	SupportedLanguages = []language.Tag{
		language.English,
		language.Russian,
	}

	// matcher — языковой matcher для Accept-Language.
	matcher = language.NewMatcher(SupportedLanguages)

	// supportedCodes — базовые коды языков в порядке SupportedLanguages.
	supportedCodes = baseCodes(SupportedLanguages)
)

// contextKey — тип ключа для контекста (избегаем коллизий).
type contextKey string

const (
	// contextKeyLang — текущий язык в контексте запроса.
	contextKeyLang contextKey = "i18n_lang"
)

// Bundle — хранилище переводов для всех языков.
// Загружается один раз при старте приложения.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string // lang → key → translation
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{
		catalogs: make(map[string]map[string]string),
		logger:   logger,
	}
}

// LoadMessages загружает JSON-каталог переводов для указанного языка.
// JSON формат: {"key": "translation", ...} (плоский).
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: ошибка парсинга каталога %s: %w", lang, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogs[lang] = messages

	if b.logger != nil {
		b.logger.Debug("i18n каталог загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

// Translate возвращает перевод по ключу для указанного языка.
// Если ключ не найден — возвращает ключ как есть (для отладки).
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if catalog, ok := b.catalogs[lang]; ok {
		if msg, ok := catalog[key]; ok {
			return msg
		}
	}

	if lang != DefaultLang {
		if catalog, ok := b.catalogs[DefaultLang]; ok {
			if msg, ok := catalog[key]; ok {
				return msg
			}
		}
	}

	return key
}

// Translatef возвращает перевод по ключу с подстановкой аргументов (fmt.Sprintf).
// Формат-строка загружается из JSON-каталога во время выполнения,
// поэтому go vet не может проверить соответствие аргументов.
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	template := b.Translate(lang, key)
	if len(args) == 0 {
		return template
	}
	return formatFunc(template, args...)
}

// Catalog возвращает копию каталога языка (для передачи строк в JS).
func (b *Bundle) Catalog(lang string) map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]string)
	for k, v := range b.catalogs[DefaultLang] {
		out[k] = v
	}
	for k, v := range b.catalogs[lang] {
		out[k] = v
	}
	return out
}

// FuncMap возвращает функции шаблонов:
// t — перевод ({{ t .Lang "key" }}), tf — перевод с аргументами.
func (b *Bundle) FuncMap() template.FuncMap {
	return template.FuncMap{
		"t":  b.Translate,
		"tf": b.Translatef,
	}
}

// --- Глобальный Bundle (singleton) ---

var (
	globalBundle *Bundle
	globalOnce   sync.Once
)

// Init инициализирует глобальный Bundle. Вызывается один раз при старте.
func Init(logger *slog.Logger) *Bundle {
	globalOnce.Do(func() {
		globalBundle = NewBundle(logger)
	})
	return globalBundle
}

// GetBundle возвращает глобальный Bundle (nil если не инициализирован).
func GetBundle() *Bundle {
	return globalBundle
}

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKeyLang, lang)
}

// LangFromContext извлекает язык из контекста. Default: "en".
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKeyLang).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// T возвращает перевод по ключу, используя язык из контекста.
func T(ctx context.Context, key string) string {
	if globalBundle == nil {
		return key
	}
	return globalBundle.Translate(LangFromContext(ctx), key)
}

// Tf возвращает перевод по ключу с аргументами (fmt.Sprintf).
func Tf(ctx context.Context, key string, args ...any) string {
	if globalBundle == nil {
		if len(args) == 0 {
			return key
		}
		return formatFunc(key, args...)
	}
	return globalBundle.Translatef(LangFromContext(ctx), key, args...)
}

// formatFunc — ссылка на fmt.Sprintf через переменную для обхода go vet printf-анализатора:
// формат-строки загружаются из JSON-каталогов во время выполнения.
//
//nolint:govet // обход go vet printf-анализатора
var formatFunc = fmt.Sprintf

// IsSupported сообщает, поддерживается ли код языка.
func IsSupported(lang string) bool {
	return slices.Contains(supportedCodes, lang)
}

// Languages возвращает коды поддерживаемых языков.
func Languages() []string {
	return slices.Clone(supportedCodes)
}

// MatchLanguage определяет лучший язык из Accept-Language заголовка.
func MatchLanguage(acceptLanguage string) string {
	_, index, confidence := matcher.Match(parseAccept(acceptLanguage)...)
	if confidence == language.No {
		return DefaultLang
	}
	return supportedCodes[index]
}

func parseAccept(accept string) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil {
		return nil
	}
	return tags
}

func baseCodes(tags []language.Tag) []string {
	codes := make([]string, 0, len(tags))
	for _, tag := range tags {
		base, _ := tag.Base()
		codes = append(codes, base.String())
	}
	return codes
}
