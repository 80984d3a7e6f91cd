package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yangxb919/prspares-website/internal/auth"
	"github.com/yangxb919/prspares-website/internal/catalog"
	apperrors "github.com/yangxb919/prspares-website/pkg/errors"
	"github.com/yangxb919/prspares-website/pkg/httputil"
	"github.com/yangxb919/prspares-website/pkg/logger"
)

// Messages shown by the results region.
const (
	LoadErrorMessage = "Unable to load products. Please try again later."
	EmptyMessage     = "No matching products"
	EmptyGuidance    = "Try a different search term or clear the model filter."
)

//go:embed templates/*.html
var templateFS embed.FS

var pricingTemplate = template.Must(template.New("pricing.html").ParseFS(templateFS, "templates/pricing.html"))

// FetcherFactory returns a catalog Fetcher for the origin serving r.
// *client.CatalogClient implements it.
type FetcherFactory interface {
	For(r *http.Request) catalog.Fetcher
}

// PricingHandler renders the gated pricing catalog page.
type PricingHandler struct {
	fetchers FetcherFactory
	logger   *slog.Logger
}

// NewPricingHandler creates a new pricing page handler.
func NewPricingHandler(fetchers FetcherFactory, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{
		fetchers: fetchers,
		logger:   logger,
	}
}

// pricingParams is the page state carried in the URL.
type pricingParams struct {
	Search  string
	Model   string
	Page    int
	Preview string
	Debug   bool
}

func parsePricingParams(r *http.Request) pricingParams {
	q := r.URL.Query()
	p := pricingParams{
		Search:  strings.TrimSpace(q.Get("search")),
		Model:   strings.ToLower(strings.TrimSpace(q.Get("model"))),
		Page:    1,
		Preview: q.Get("preview"),
		Debug:   q.Get("debug") == "1",
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	return p
}

// URL returns the page URL for p. Defaults are omitted.
func (p pricingParams) URL() string {
	v := url.Values{}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Model != "" {
		v.Set("model", p.Model)
	}
	if p.Page > 1 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Preview != "" {
		v.Set("preview", p.Preview)
	}
	if p.Debug {
		v.Set("debug", "1")
	}
	if len(v) == 0 {
		return "/pricing"
	}
	return "/pricing?" + v.Encode()
}

// --- View model ---

type categoryLink struct {
	Label  string
	Href   string
	Active bool
}

type productCard struct {
	ID         string
	Title      string
	Image      string
	Price      string
	PreviewURL string
}

type pageLink struct {
	Page     int
	Href     string
	Current  bool
	Ellipsis bool
}

type lightboxView struct {
	Open     bool
	Image    string
	Title    string
	CloseURL string
}

type pricingView struct {
	UserEmail   string
	Search      string
	Model       string
	ModelLabel  string
	Categories  []categoryLink
	View        string
	Products    []productCard
	TotalCount  int
	CurrentPage int
	TotalPages  int
	Pages       []pageLink
	PrevURL     string
	NextURL     string
	ClearURL    string
	Lightbox    lightboxView
	ScrollLock  bool
	ErrorDetail string

	LoadErrorMessage string
	EmptyMessage     string
	EmptyGuidance    string
}

// ServeHTTP handles GET /pricing.
func (h *PricingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.FromContext(ctx)
	params := parsePricingParams(r)

	browser := catalog.NewBrowser(h.fetchers.For(r),
		catalog.WithServerPaging(),
		catalog.WithInitialState(params.Search, params.Model, params.Page),
	)
	if err := browser.Fetch(ctx); err != nil {
		l.ErrorContext(ctx, "failed to load pricing catalog",
			slog.String("error", err.Error()),
			slog.String("search", params.Search),
			slog.String("model", params.Model),
		)
	}
	state := browser.Snapshot()

	view := buildPricingView(state, params)
	if d, ok := auth.DecisionFromContext(ctx); ok && d.User != nil {
		view.UserEmail = d.User.Email
	}

	var buf bytes.Buffer
	if err := pricingTemplate.Execute(&buf, view); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteNoStore(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func buildPricingView(state catalog.BrowserState, params pricingParams) pricingView {
	// Links carry the effective state, which may differ from the request
	// after the page was clamped.
	base := pricingParams{
		Search: state.SearchTerm,
		Model:  state.SelectedCategory,
		Page:   state.CurrentPage,
		Debug:  params.Debug,
	}

	view := pricingView{
		Search:           state.SearchTerm,
		Model:            state.SelectedCategory,
		View:             state.View.String(),
		TotalCount:       state.TotalCount,
		CurrentPage:      state.CurrentPage,
		TotalPages:       state.TotalPages,
		LoadErrorMessage: LoadErrorMessage,
		EmptyMessage:     EmptyMessage,
		EmptyGuidance:    EmptyGuidance,
	}
	if c, ok := catalog.LookupCategory(state.SelectedCategory); ok {
		view.ModelLabel = c.Label
	}

	for _, c := range catalog.Categories {
		link := base
		link.Page = 1
		link.Model = c.Token
		if c.Token == state.SelectedCategory {
			link.Model = ""
		}
		view.Categories = append(view.Categories, categoryLink{
			Label:  c.Label,
			Href:   link.URL(),
			Active: c.Token == state.SelectedCategory,
		})
	}

	reset := base
	reset.Search, reset.Model, reset.Page = "", "", 1
	view.ClearURL = reset.URL()

	if state.Err != nil && params.Debug {
		view.ErrorDetail = errorDetail(state.Err)
	}

	lb := &catalog.Lightbox{}
	for _, p := range state.Visible {
		preview := base
		preview.Preview = p.ID
		card := productCard{
			ID:         p.ID,
			Title:      p.DisplayTitle(),
			Image:      p.PrimaryImage(),
			Price:      catalog.FormatPrice(p.Specs),
			PreviewURL: preview.URL(),
		}
		view.Products = append(view.Products, card)
		if params.Preview != "" && p.ID == params.Preview {
			lb.Open(card.Image, card.Title)
		}
	}
	if lb.IsOpen() {
		image, title := lb.Current()
		view.Lightbox = lightboxView{Open: true, Image: image, Title: title, CloseURL: base.URL()}
	}
	view.ScrollLock = lb.ScrollLocked()

	for _, item := range state.Pages {
		link := base
		link.Page = item.Page
		pl := pageLink{Page: item.Page, Current: item.Current, Ellipsis: item.Ellipsis}
		if !item.Ellipsis {
			pl.Href = link.URL()
		}
		view.Pages = append(view.Pages, pl)
	}
	if state.HasPrev() {
		prev := base
		prev.Page = state.CurrentPage - 1
		view.PrevURL = prev.URL()
	}
	if state.HasNext() {
		next := base
		next.Page = state.CurrentPage + 1
		view.NextURL = next.URL()
	}
	return view
}

// errorDetail is the raw failure shown in debug mode.
func errorDetail(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
