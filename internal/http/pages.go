package httpx

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
)

//go:embed templates/*.html
var templatesFS embed.FS

// TemplateRenderer renders the embedded HTML pages.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// NewTemplateRenderer parses the embedded page templates.
func NewTemplateRenderer(logger *slog.Logger) (*TemplateRenderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// pageData is the payload every page template receives.
type pageData struct {
	Title    string
	Claims   *domainauth.Claims
	Verified bool
}

// Render writes the named page, buffering so template failures become clean
// 500s instead of torn output.
func (tr *TemplateRenderer) Render(w http.ResponseWriter, name string, data pageData) {
	var buf bytes.Buffer
	if err := tr.t.ExecuteTemplate(&buf, name, data); err != nil {
		tr.logger.Error("render template", "template", name, "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		return
	}
}

// PageHandlers serves the minimal page shell around the auth flows. The
// role-gated pages rely on SessionGate for admission; they only read claims
// for display.
type PageHandlers struct {
	Renderer *TemplateRenderer
}

func (p *PageHandlers) page(title, tmpl string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := GetClaimsFromContext(r.Context())
		p.Renderer.Render(w, tmpl, pageData{Title: title, Claims: claims})
	}
}

// Home handles GET /. The mux "/" pattern is a catch-all, so unmatched paths
// 404 here instead of rendering the landing page.
func (p *PageHandlers) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	claims, _ := GetClaimsFromContext(r.Context())
	p.Renderer.Render(w, "home.html", pageData{Title: "Marketplace", Claims: claims})
}

// Login handles GET /login.
func (p *PageHandlers) Login(w http.ResponseWriter, r *http.Request) {
	p.Renderer.Render(w, "login.html", pageData{
		Title:    "Log in",
		Verified: r.URL.Query().Get("verified") == "1",
	})
}

// Signup handles GET /signup.
func (p *PageHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	p.page("Sign up", "signup.html")(w, r)
}

// About handles GET /about.
func (p *PageHandlers) About(w http.ResponseWriter, r *http.Request) {
	p.page("About", "about.html")(w, r)
}

// SignupRole handles GET /signup/role, the federated role-selection step.
func (p *PageHandlers) SignupRole(w http.ResponseWriter, r *http.Request) {
	p.page("Choose your role", "signup_role.html")(w, r)
}

// ConsumerHome handles GET /consumer.
func (p *PageHandlers) ConsumerHome(w http.ResponseWriter, r *http.Request) {
	p.page("Consumer home", "consumer_home.html")(w, r)
}

// ConsumerDashboard handles GET /consumer/dashboard.
func (p *PageHandlers) ConsumerDashboard(w http.ResponseWriter, r *http.Request) {
	p.page("Your orders", "consumer_dashboard.html")(w, r)
}

// MerchantHome handles GET /merchant.
func (p *PageHandlers) MerchantHome(w http.ResponseWriter, r *http.Request) {
	p.page("Merchant home", "merchant_home.html")(w, r)
}

// MerchantDashboard handles GET /merchant/dashboard.
func (p *PageHandlers) MerchantDashboard(w http.ResponseWriter, r *http.Request) {
	p.page("Store dashboard", "merchant_dashboard.html")(w, r)
}
