// language.go — обработчик переключения языка UI.
package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bigkaa/drive-transfer-portal/internal/ui/i18n"
)

// Срок хранения выбранного языка.
const langCookieTTL = 365 * 24 * time.Hour

// HandleSetLanguage обрабатывает POST /set-language.
// Устанавливает cookie "lang" и перенаправляет обратно.
// Параметр lang: "en" или "ru" (из формы или query).
func HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("lang")
	if !i18n.IsSupported(lang) {
		lang = i18n.DefaultLang
	}

	http.SetCookie(w, &http.Cookie{
		Name:     i18n.LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   int(langCookieTTL.Seconds()),
		HttpOnly: false, // JS может читать для UI-логики
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(langCookieTTL),
	})

	http.Redirect(w, r, backPath(r.Header.Get("Referer")), http.StatusSeeOther)
}

// backPath возвращает путь страницы из Referer. Внешние адреса
// заменяются на "/", чтобы не делать open redirect.
func backPath(referer string) string {
	u, err := url.Parse(referer)
	if referer == "" || err != nil || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	back := u.Path
	if u.RawQuery != "" {
		back += "?" + u.RawQuery
	}
	return back
}
