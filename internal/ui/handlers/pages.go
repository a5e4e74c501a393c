// Пакет handlers — HTTP-обработчики страниц UI.
// pages.go — страницы входа, нового переноса и истории.
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
	"github.com/bigkaa/drive-transfer-portal/internal/service"
	"github.com/bigkaa/drive-transfer-portal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/drive-transfer-portal/internal/ui/middleware"
	"github.com/bigkaa/drive-transfer-portal/internal/ui/templates"
)

// Имена страниц (файлы шаблонов <name>.html).
const (
	pageSignIn   = "sign_in"
	pageTransfer = "transfer"
	pageHistory  = "history"
)

// SessionReader — чтение сессии (auth.SessionManager).
type SessionReader interface {
	Current(r *http.Request) (*model.Session, error)
}

// JobHistory — страница истории заданий.
type JobHistory interface {
	Jobs(ctx context.Context, q service.HistoryQuery) (*model.JobPage, error)
}

// PageData — данные, общие для всех страниц.
type PageData struct {
	Lang      string
	Languages []string
	Messages  map[string]string
	Email     string
	Active    string
	ClientID  string

	// Только для страницы переноса
	StorageClasses []model.StorageClass

	// Только для страницы истории (nil при ошибке загрузки)
	History *model.JobPage
	Limit   int
}

// PageHandler — рендеринг страниц UI на html/template.
type PageHandler struct {
	pages    map[string]*template.Template
	bundle   *i18n.Bundle
	sessions SessionReader
	history  JobHistory
	clientID string
	logger   *slog.Logger
}

// NewPageHandler разбирает шаблоны страниц. Ошибка шаблона — ошибка старта.
func NewPageHandler(
	bundle *i18n.Bundle,
	sessions SessionReader,
	history JobHistory,
	clientID string,
	logger *slog.Logger,
) (*PageHandler, error) {
	funcs := bundle.FuncMap()
	funcs["timestamp"] = formatTimestamp
	funcs["inc"] = func(n int) int { return n + 1 }
	funcs["dec"] = func(n int) int { return n - 1 }

	pages := make(map[string]*template.Template, 3)
	for _, name := range []string{pageSignIn, pageTransfer, pageHistory} {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templates.FS, "layout.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("разбор шаблона %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		pages:    pages,
		bundle:   bundle,
		sessions: sessions,
		history:  history,
		clientID: clientID,
		logger:   logger.With(slog.String("component", "ui.pages")),
	}, nil
}

// HandleSignIn обрабатывает GET /sign-in. Вошедший пользователь
// перенаправляется на форму переноса.
func (h *PageHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if session, err := h.sessions.Current(r); err == nil && session.Authenticated() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	data := h.baseData(r, "")
	data.ClientID = h.clientID
	h.render(w, r, pageSignIn, data)
}

// HandleTransfer обрабатывает GET / — форма нового переноса.
func (h *PageHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	data := h.baseData(r, pageTransfer)
	data.StorageClasses = []model.StorageClass{
		model.StorageClassStandard,
		model.StorageClassNearline,
		model.StorageClassColdline,
		model.StorageClassArchive,
	}
	h.render(w, r, pageTransfer, data)
}

// HandleHistory обрабатывает GET /history?page=&limit=&cursor=.
// Ошибка загрузки истории показывается на странице, а не кодом ответа.
func (h *PageHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	data := h.baseData(r, pageHistory)

	q := service.HistoryQuery{
		UserID: data.Email,
		Page:   atoiOrZero(r.URL.Query().Get("page")),
		Limit:  atoiOrZero(r.URL.Query().Get("limit")),
		Cursor: r.URL.Query().Get("cursor"),
	}
	data.Limit = q.Limit
	if data.Limit < 1 || data.Limit > service.MaxJobLimit {
		data.Limit = service.DefaultJobLimit
	}

	page, err := h.history.Jobs(r.Context(), q)
	if err != nil {
		h.logger.Error("Ошибка загрузки истории",
			slog.String("user", data.Email),
			slog.String("error", err.Error()),
		)
	} else {
		data.History = page
	}
	h.render(w, r, pageHistory, data)
}

func (h *PageHandler) baseData(r *http.Request, active string) PageData {
	lang := i18n.LangFromContext(r.Context())
	data := PageData{
		Lang:      lang,
		Languages: i18n.Languages(),
		Messages:  h.bundle.Catalog(lang),
		Active:    active,
	}
	if session := uimiddleware.SessionFromContext(r.Context()); session != nil {
		data.Email = session.Email
	}
	return data
}

// render выполняет шаблон в буфер, чтобы ошибка не оставила
// наполовину записанную страницу.
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, name string, data PageData) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("Ошибка рендеринга страницы",
			slog.String("page", name),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func formatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "—"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
