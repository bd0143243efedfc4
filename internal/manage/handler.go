package manage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/HerbHall/cdndash/internal/backend"
	"github.com/HerbHall/cdndash/internal/server"
	"github.com/HerbHall/cdndash/internal/version"
	"go.uber.org/zap"
)

// Backend is the entity API of the configuration server.
type Backend interface {
	GetDeliveryService(ctx context.Context, name string) (*backend.DeliveryService, error)
	CreateDeliveryService(ctx context.Context, ds backend.DeliveryService) (string, error)
	UpdateDeliveryService(ctx context.Context, ds backend.DeliveryService) (string, error)
	DeleteDeliveryService(ctx context.Context, name string) (string, error)
	GetConfigNode(ctx context.Context, name string) (*backend.CacheNode, error)
	CreateConfigNode(ctx context.Context, cn backend.CacheNode) (string, error)
	UpdateConfigNode(ctx context.Context, cn backend.CacheNode) (string, error)
	DeleteConfigNode(ctx context.Context, name string) (string, error)
}

// Handler serves the management pages.
type Handler struct {
	api    Backend
	logger *zap.Logger
	tmpl   *template.Template
}

// NewHandler parses the page templates.
func NewHandler(api Backend, logger *zap.Logger) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse manage templates: %w", err)
	}
	return &Handler{api: api, logger: logger, tmpl: tmpl}, nil
}

// RegisterRoutes mounts one GET route per page, plus POST for pages that
// change state.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	for _, p := range Pages {
		mux.HandleFunc("GET /"+p.File, h.show(p))
		if p.Submits() {
			mux.HandleFunc("POST /"+p.File, h.submit(p))
		}
	}
}

type pageData struct {
	Page    Page
	Name    string
	Service backend.DeliveryService
	Rules   string
	Node    backend.CacheNode
	Detail  string
	Message string
	Error   string
	Types   []string
	Version string
}

func (h *Handler) newPageData(p Page) *pageData {
	return &pageData{
		Page:    p,
		Types:   []string{backend.NodeTypeMid, backend.NodeTypeEdge},
		Version: version.Short(),
	}
}

// show renders a page. A ?name= query loads the entity for get and modify
// pages and pre-fills the name elsewhere.
func (h *Handler) show(p Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := h.newPageData(p)
		data.Name = strings.TrimSpace(r.URL.Query().Get(fieldName))
		data.Service.Name = data.Name
		data.Node.Name = data.Name
		annotate(r, data)

		code := http.StatusOK
		if data.Name != "" && (p.Action == ActionGet || p.Action == ActionModify) {
			if err := h.load(r.Context(), data); err != nil {
				code = h.fail(data, err)
			}
		}
		h.render(w, code, data)
	}
}

// submit applies a POSTed form and re-renders the page with the outcome.
func (h *Handler) submit(p Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			server.BadRequest(w, "invalid form: "+err.Error(), r.URL.Path)
			return
		}
		data := h.newPageData(p)
		data.Name = strings.TrimSpace(r.PostForm.Get(fieldName))
		annotate(r, data)

		code := http.StatusOK
		msg, err := h.apply(r.Context(), data, r.PostForm)
		if err != nil {
			code = h.fail(data, err)
		} else {
			data.Message = msg
			h.logger.Info("entity changed",
				zap.String("kind", string(p.Kind)),
				zap.String("action", string(p.Action)),
				zap.String("name", data.Name),
			)
		}
		h.render(w, code, data)
	}
}

// annotate tags the access log line with the entity the page works on.
func annotate(r *http.Request, data *pageData) {
	server.Annotate(r.Context(),
		zap.String("kind", string(data.Page.Kind)),
		zap.String("action", string(data.Page.Action)),
		zap.String("name", data.Name),
	)
}

func (h *Handler) load(ctx context.Context, data *pageData) error {
	var entity any
	switch data.Page.Kind {
	case KindService:
		ds, err := h.api.GetDeliveryService(ctx, data.Name)
		if err != nil {
			return err
		}
		data.Service, data.Rules, entity = *ds, rulesJSON(ds.RewriteRules), ds
	case KindNode:
		cn, err := h.api.GetConfigNode(ctx, data.Name)
		if err != nil {
			return err
		}
		data.Node, entity = *cn, cn
	}
	if data.Page.Action == ActionGet {
		detail, err := json.MarshalIndent(entity, "", "  ")
		if err != nil {
			return err
		}
		data.Detail = string(detail)
	}
	return nil
}

// apply performs the page's action. The submitted values are kept in data so
// a failed submission shows the form as it was sent.
func (h *Handler) apply(ctx context.Context, data *pageData, form url.Values) (string, error) {
	p := data.Page
	if p.Action == ActionDelete {
		if data.Name == "" {
			return "", invalid(errors.New("name is required"))
		}
		if p.Kind == KindService {
			return h.api.DeleteDeliveryService(ctx, data.Name)
		}
		return h.api.DeleteConfigNode(ctx, data.Name)
	}

	switch p.Kind {
	case KindService:
		data.Rules = strings.TrimSpace(form.Get(fieldRewriteRules))
		ds, err := serviceFromForm(form)
		data.Service = ds
		if err != nil {
			return "", err
		}
		if p.Action == ActionAdd {
			return h.api.CreateDeliveryService(ctx, ds)
		}
		return h.api.UpdateDeliveryService(ctx, ds)
	default:
		cn, err := nodeFromForm(form)
		data.Node = cn
		if err != nil {
			return "", err
		}
		if p.Action == ActionAdd {
			return h.api.CreateConfigNode(ctx, cn)
		}
		return h.api.UpdateConfigNode(ctx, cn)
	}
}

// fail records err on the page and returns the HTTP status to answer with.
func (h *Handler) fail(data *pageData, err error) int {
	data.Error = err.Error()

	var se *backend.StatusError
	switch {
	case errors.Is(err, ErrInvalidForm):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrNotFound):
		data.Error = fmt.Sprintf("%s %q not found", kindLabel(data.Page.Kind), data.Name)
		return http.StatusNotFound
	case errors.As(err, &se) && se.Code >= 400 && se.Code < 500:
		// The configuration server rejected the request; show its reason.
		if body := strings.TrimSpace(se.Body); body != "" {
			data.Error = body
		}
		return se.Code
	default:
		h.logger.Warn("management request failed",
			zap.String("page", data.Page.File),
			zap.String("name", data.Name),
			zap.Error(err),
		)
		return http.StatusBadGateway
	}
}

func (h *Handler) render(w http.ResponseWriter, code int, data *pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "page.html", data); err != nil {
		h.logger.Error("rendering management page", zap.String("page", data.Page.File), zap.Error(err))
		server.InternalError(w, "failed to render page", "/"+data.Page.File)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

func kindLabel(k Kind) string {
	if k == KindService {
		return "delivery service"
	}
	return "config node"
}
