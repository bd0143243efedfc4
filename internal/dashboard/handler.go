package dashboard

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/HerbHall/cdndash/internal/server"
	"github.com/HerbHall/cdndash/internal/version"
	"go.uber.org/zap"
)

// StatusSource looks up the progress of an invalidation request.
type StatusSource interface {
	InvalidationStatus(ctx context.Context, id string) (string, error)
}

// Handler serves the dashboard page and its actions.
type Handler struct {
	dash   *Dashboard
	status StatusSource
	logger *zap.Logger
	tmpl   *template.Template
}

// NewHandler parses the page templates and returns a Handler.
func NewHandler(dash *Dashboard, status StatusSource, logger *zap.Logger) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard templates: %w", err)
	}
	return &Handler{
		dash:   dash,
		status: status,
		logger: logger,
		tmpl:   tmpl,
	}, nil
}

// RegisterRoutes mounts the dashboard routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /index.html", h.handleIndex)
	mux.HandleFunc("GET /nav/{button}", h.handleNavigate)
	mux.HandleFunc("POST /invalidate", h.handleInvalidate)
	mux.HandleFunc("GET /invalidateStatus/{id}", h.handleInvalidateStatus)
}

// pageData is the template input for index.html.
type pageData struct {
	ServiceButtons []Button
	NodeButtons    []Button
	Services       template.HTML
	Nodes          template.HTML
	Pattern        string
	Status         string
	StatusID       string
	Alert          string
	Version        string
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := NewPageView(nil)
	h.dash.Load(r.Context(), view)
	h.render(w, r, view, "")
}

// handleNavigate redirects to the button's page. The row picked in the
// button's list arrives as the radio group value and becomes ?name=.
func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("button")
	server.Annotate(r.Context(), zap.String("button", id))
	view := NewPageView(nil)
	if err := h.dash.Navigate(view, id); err != nil {
		server.NotFound(w, err.Error(), r.URL.Path)
		return
	}
	// Pages live next to the dashboard, one level above /nav/.
	target := "../" + view.NavigatedTo()
	if b, ok := ButtonFor(id); ok {
		if sel := r.URL.Query().Get(b.Radio()); sel != "" {
			server.Annotate(r.Context(), zap.String("selected", sel))
			target += "?" + url.Values{"name": {sel}}.Encode()
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		server.BadRequest(w, "invalid form: "+err.Error(), r.URL.Path)
		return
	}
	pattern := r.PostFormValue(InputPattern)
	view := NewPageView(map[string]string{
		InputPattern: pattern,
	})

	var statusID string
	res, err := h.dash.Invalidate(r.Context(), view)
	if err == nil {
		statusID = res.StatusID
		server.Annotate(r.Context(), zap.String("pattern", pattern), zap.String("status_id", statusID))
	} else {
		server.Annotate(r.Context(), zap.String("pattern", pattern), zap.NamedError("invalidate_error", err))
	}

	h.dash.Load(r.Context(), view)
	h.render(w, r, view, statusID)
}

func (h *Handler) handleInvalidateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	server.Annotate(r.Context(), zap.String("status_id", id))
	status, err := h.status.InvalidationStatus(r.Context(), id)
	if err != nil {
		h.logger.Warn("fetching invalidation status", zap.String("id", id), zap.Error(err))
		server.BadGateway(w, err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(status))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, view *PageView, statusID string) {
	data := pageData{
		Services: content(view, TargetServices),
		Nodes:    content(view, TargetNodes),
		Pattern:  view.Value(InputPattern),
		Status:   view.Text(OutputInvalidate),
		StatusID: statusID,
		Alert:    view.AlertMessage(),
		Version:  version.Short(),
	}
	for _, b := range Buttons {
		if b.Radio() == RadioServices {
			data.ServiceButtons = append(data.ServiceButtons, b)
		} else {
			data.NodeButtons = append(data.NodeButtons, b)
		}
	}

	var buf strings.Builder
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		h.logger.Error("rendering dashboard", zap.String("path", r.URL.Path), zap.Error(err))
		server.InternalError(w, "failed to render dashboard", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}

// content returns what the dashboard wrote into target as safe HTML. Markup
// comes from HTMLMarkup, which escapes every value it embeds.
func content(view *PageView, target string) template.HTML {
	if m := view.HTML(target); m != "" {
		return template.HTML(m) //nolint:gosec // built by HTMLMarkup from escaped values
	}
	return template.HTML(html.EscapeString(view.Text(target))) //nolint:gosec // escaped above
}
