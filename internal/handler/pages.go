// Package handler contains HTTP request handlers for the storefront.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (URL params, query, cookies)
// 2. Call business logic (service layer) or render templates
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic; they are the glue between HTTP
// and the services.
package handler

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/model"
)

// pages lists the template for each rendered page. Every page is parsed
// together with base.html, which defines the layout and pulls in "content".
var pages = map[string]string{
	"home":    "home.html",
	"shop":    "shop.html",
	"careers": "careers.html",
}

var providerLabels = map[string]string{
	auth.Google: "Google",
	auth.GitHub: "GitHub",
}

var templateFuncs = template.FuncMap{
	"label": func(provider string) string {
		if l, ok := providerLabels[provider]; ok {
			return l
		}
		return provider
	},
}

// PageData is what every page template receives.
type PageData struct {
	Title     string
	User      *model.User // nil when anonymous
	Flash     string
	Providers []string
}

// PageHandler renders the marketing pages.
// Templates are parsed once at startup and reused for every request.
type PageHandler struct {
	templates map[string]*template.Template
	sessions  *auth.Sessions
	providers []string
	logger    *slog.Logger
}

// NewPageHandler parses the page templates from fsys. providers are the
// configured identity provider names offered as login links.
func NewPageHandler(fsys fs.FS, sessions *auth.Sessions, providers []string, logger *slog.Logger) (*PageHandler, error) {
	tmpls := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, "base.html", file)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s: %w", file, err)
		}
		tmpls[name] = t
	}

	return &PageHandler{
		templates: tmpls,
		sessions:  sessions,
		providers: providers,
		logger:    logger,
	}, nil
}

// HandleHome serves GET /.
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "home", "Storefront")
}

// HandleShop serves GET /shop.
func (h *PageHandler) HandleShop(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "shop", "Shop · Storefront")
}

// HandleCareers serves GET /careers.
func (h *PageHandler) HandleCareers(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "careers", "Careers · Storefront")
}

// RedirectHome sends the browser to /. Used for /about and for any path
// the router does not know.
func (h *PageHandler) RedirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, page, title string) {
	user, _ := auth.PrincipalFromContext(r.Context())
	data := PageData{
		Title:     title,
		User:      user,
		Flash:     h.sessions.PopFlash(w, r),
		Providers: h.providers,
	}

	// Set content type header BEFORE writing the body
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates[page].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
