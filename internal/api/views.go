package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/ReyGenteng/galaxy/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// docEndpoint is one row of the /docs page.
type docEndpoint struct {
	Method      string
	Path        string
	Params      string
	Description string
}

var h2hEndpoints = []docEndpoint{
	{Method: "GET", Path: "/h2h/deposit/create", Params: "apikey, reff_id, nominal", Description: "Create QRIS payment"},
	{Method: "GET", Path: "/h2h/deposit/status", Params: "apikey, reff_id", Description: "Check payment status"},
	{Method: "GET", Path: "/h2h/deposit/poll", Params: "apikey, reff_id", Description: "Lightweight status polling"},
}

// viewData is the model handed to every page template.
type viewData struct {
	Session *SessionClaims
	Error   string
	Success string

	Dashboard   *domain.Dashboard
	APIKeys     []domain.APIKey
	Users       []domain.UserWithKey
	Transaction *domain.Transaction
	Endpoints   []docEndpoint
	FeeLabel    string
}

type views struct {
	pages map[string]*template.Template
}

var viewFuncs = template.FuncMap{
	"rupiah":   formatRupiah,
	"datetime": formatTimestamp,
	"badge":    statusBadge,
	"imgsrc": imageSource,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// imageSource trusts https URLs and inline images from the processor; anything else is dropped.
func imageSource(raw string) template.URL {
	if strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "data:image/") {
		return template.URL(raw)
	}
	return ""
}

// loadViews parses every page together with the shared layout.
func loadViews() (*views, error) {
	entries, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	v := &views{pages: make(map[string]*template.Template)}
	for _, entry := range entries {
		name := strings.TrimSuffix(path.Base(entry), ".html")
		if name == "layout" {
			continue
		}
		tmpl, err := template.New(name).Funcs(viewFuncs).ParseFS(templateFS, "templates/layout.html", entry)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		v.pages[name] = tmpl
	}
	return v, nil
}

// render executes a page into a buffer first so template errors never produce half a page.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, page string, data viewData) {
	tmpl, ok := h.views.pages[page]
	if !ok {
		h.logger.Error("unknown template", "component", "views", "page", page)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	data.Error = q.Get("error")
	data.Success = q.Get("success")
	if data.Session == nil {
		if claims, ok := GetSession(r.Context()); ok {
			data.Session = claims
		} else if claims, err := h.sessions.Parse(r); err == nil {
			data.Session = claims
		}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("render template failed", "component", "views", "page", page, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// formatRupiah renders 1500000 as "Rp 1.500.000".
func formatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	return sign + "Rp " + b.String()
}

func statusBadge(status string) string {
	switch status {
	case domain.StatusSuccess:
		return "bg-success"
	case domain.StatusPending:
		return "bg-warning text-dark"
	default:
		return "bg-danger"
	}
}
