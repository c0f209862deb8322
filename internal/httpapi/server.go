// Package httpapi serves the monitor-b3 dashboard: a server-rendered page
// with post/redirect/get watchlist commands, plus a small JSON API.
package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"monitorb3/internal/dashboard"
	"monitorb3/internal/domain"
	"monitorb3/internal/session"
	"monitorb3/internal/universe"
	"monitorb3/internal/util"
	"monitorb3/internal/watchlist"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// quoteConcurrency bounds parallel quote lookups for one page render.
const quoteConcurrency = 4

// UniverseSource provides the parsed spreadsheet.
type UniverseSource interface {
	Load(ctx context.Context) (*universe.Universe, error)
}

// MarketData provides quotes and index series.
type MarketData interface {
	Quote(ctx context.Context, t domain.Ticker) domain.PriceQuote
	Series(ctx context.Context, idx domain.Index, windowDays int) (domain.IndexSeries, error)
	Provider() string
}

// Options configures a DashboardServer.
type Options struct {
	Universe   UniverseSource
	Market     MarketData
	Watchlist  *watchlist.Service
	Sessions   *session.Registry
	Calendar   *util.TradingCalendar
	Indices    []domain.Index
	WindowDays int
	StoreName  string
}

// DashboardServer serves the dashboard page and API.
type DashboardServer struct {
	universe   UniverseSource
	market     MarketData
	watchlist  *watchlist.Service
	sessions   *session.Registry
	calendar   *util.TradingCalendar
	indices    []domain.Index
	windowDays int
	storeName  string
	log        *slog.Logger
	now        func() time.Time
}

// NewDashboardServer creates a new dashboard HTTP server.
func NewDashboardServer(opts Options) *DashboardServer {
	return &DashboardServer{
		universe:   opts.Universe,
		market:     opts.Market,
		watchlist:  opts.Watchlist,
		sessions:   opts.Sessions,
		calendar:   opts.Calendar,
		indices:    opts.Indices,
		windowDays: opts.WindowDays,
		storeName:  opts.StoreName,
		log:        slog.Default().With("component", "httpapi"),
		now:        time.Now,
	}
}

// RegisterRoutes registers all routes on the given mux.
func (s *DashboardServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("POST /identity", s.handleIdentity)
	mux.HandleFunc("POST /watchlist/add", s.handleAdd)
	mux.HandleFunc("POST /watchlist/remove", s.handleRemove)
	mux.HandleFunc("POST /watchlist/clear", s.handleClear)
	mux.HandleFunc("POST /watchlist/remove-all", s.handleRemoveAll)

	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("GET /api/quote/{ticker}", s.handleQuote)
	mux.HandleFunc("GET /api/tickers", s.handleTickers)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns an http.Handler with request logging.
func (s *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.logMiddleware(mux)
}

func (s *DashboardServer) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *DashboardServer) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("rendering template", "template", name, "error", err)
	}
}

// ---------------------------------------------------------------------------
// Page
// ---------------------------------------------------------------------------

func (s *DashboardServer) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := s.sessions.Get(w, r)

	u, err := s.universe.Load(ctx)
	if err != nil {
		s.renderUniverseError(w, err)
		return
	}

	sess.Lock()
	flash := sess.TakeFlash()
	email := sess.Email
	items := append(watchlist.List(nil), sess.Watchlist.Items...)
	sess.Unlock()

	page := Page{
		Title:     "📈 Monitor B3",
		Flash:     flash,
		Email:     email,
		Universe:  u.Tickers(),
		Watchlist: items,
		Caption:   dashboard.Caption(len(items)),
		Empty:     len(items) == 0,
		Provider:  s.market.Provider(),
		UpdatedAt: u.LoadedAt.In(s.calendar.Location()).Format("02/01/2006 15:04"),
	}
	page.MarketOpen = s.calendar.IsMarketOpen(s.now())

	selected := s.selectIndex(r.URL.Query().Get("index"))
	for _, idx := range s.indices {
		page.Indices = append(page.Indices, IndexOption{
			Name:     idx.Name,
			Selected: idx.Name == selected.Name,
			Href:     "/?index=" + url.QueryEscape(idx.Name),
		})
	}
	page.Index = selected.Name
	page.Chart = s.chart(ctx, selected)

	if !page.Empty {
		page.Summary = dashboard.BuildSummary(u, items)
		page.CardColumns = dashboard.Columns(s.cards(ctx, u, items), dashboard.CardColumns)
	}

	s.render(w, http.StatusOK, "page.html", page)
}

// renderUniverseError shows the fatal universe page. Nothing else renders
// while the spreadsheet cannot be used.
func (s *DashboardServer) renderUniverseError(w http.ResponseWriter, err error) {
	s.log.Error("universe unavailable", "error", err)
	data := ErrorPage{Title: "📈 Monitor B3", Message: "Não foi possível carregar a planilha."}

	var mc *universe.MissingColumnError
	var pe *universe.ParseError
	switch {
	case errors.As(err, &mc):
		data.Message = "Coluna " + mc.Column + " não encontrada. Colunas detectadas:"
		data.Columns = mc.Found
	case errors.As(err, &pe):
		data.Message = "Não foi possível interpretar a planilha."
		for _, a := range pe.Attempts {
			data.Details = append(data.Details, a.String())
		}
	default:
		data.Details = []string{err.Error()}
	}
	s.render(w, http.StatusBadGateway, "error.html", data)
}

// selectIndex returns the configured index named name, or the first one.
func (s *DashboardServer) selectIndex(name string) domain.Index {
	for _, idx := range s.indices {
		if idx.Name == name {
			return idx
		}
	}
	if len(s.indices) > 0 {
		return s.indices[0]
	}
	return domain.Index{}
}

func (s *DashboardServer) chart(ctx context.Context, idx domain.Index) dashboard.Chart {
	if idx.Symbol == "" {
		return dashboard.BuildChart(domain.IndexSeries{Index: idx})
	}
	series, err := s.market.Series(ctx, idx, s.windowDays)
	if err != nil {
		s.log.Warn("index series unavailable", "index", idx.Name, "error", err)
		series = domain.IndexSeries{Index: idx}
	}
	return dashboard.BuildChart(series)
}

// cards looks up quotes for items concurrently, keeping list order.
func (s *DashboardServer) cards(ctx context.Context, u *universe.Universe, items []domain.Ticker) []dashboard.Card {
	quotes := make([]domain.PriceQuote, len(items))
	var g errgroup.Group
	g.SetLimit(quoteConcurrency)
	for i, t := range items {
		g.Go(func() error {
			quotes[i] = s.market.Quote(ctx, t)
			return nil
		})
	}
	g.Wait()

	cards := make([]dashboard.Card, len(quotes))
	for i, q := range quotes {
		cards[i] = dashboard.BuildCard(q, u)
	}
	return cards
}

// ---------------------------------------------------------------------------
// Commands (post/redirect/get)
// ---------------------------------------------------------------------------

// command runs fn on the request's session under its lock, stores the flash
// for fn's error and redirects back to the page.
func (s *DashboardServer) command(w http.ResponseWriter, r *http.Request, name string, fn func(ctx context.Context, sess *session.Session) (success string, err error)) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	sess, _ := s.sessions.Get(w, r)

	sess.Lock()
	success, err := fn(r.Context(), sess)
	if level, text, ok := dashboard.FlashFor(err); ok {
		sess.SetFlash(level, text)
	} else if success != "" {
		sess.SetFlash(session.LevelSuccess, success)
	}
	sess.Unlock()

	if err != nil {
		s.log.Info("command rejected", "command", name, "session", sess.ID, "error", err)
	}

	target := "/"
	if idx := r.PostFormValue("index"); idx != "" {
		target += "?index=" + url.QueryEscape(idx)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *DashboardServer) handleIdentity(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, "identity", func(ctx context.Context, sess *session.Session) (string, error) {
		email := strings.TrimSpace(r.PostFormValue("email"))
		if email == "" {
			sess.Email = ""
			return "", nil
		}
		// The session keeps its previous identity until the new list is in.
		if err := s.watchlist.Load(ctx, &sess.Watchlist, email); err != nil {
			return "", err
		}
		sess.Email = email
		return "Lista carregada.", nil
	})
}

func (s *DashboardServer) handleAdd(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, "add", func(ctx context.Context, sess *session.Session) (string, error) {
		t := domain.NormalizeTicker(r.PostFormValue("ticker"))
		if u, err := s.universe.Load(ctx); err == nil && t.Valid() && !u.Contains(t) {
			return "", watchlist.ErrInvalidTicker
		}
		return "", s.watchlist.Add(ctx, &sess.Watchlist, t, sess.Email)
	})
}

func (s *DashboardServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, "remove", func(ctx context.Context, sess *session.Session) (string, error) {
		t := domain.NormalizeTicker(r.PostFormValue("ticker"))
		return "", s.watchlist.Remove(ctx, &sess.Watchlist, t, sess.Email)
	})
}

func (s *DashboardServer) handleClear(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, "clear", func(_ context.Context, sess *session.Session) (string, error) {
		s.watchlist.Clear(&sess.Watchlist)
		return "", nil
	})
}

func (s *DashboardServer) handleRemoveAll(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, "remove-all", func(ctx context.Context, sess *session.Session) (string, error) {
		if err := s.watchlist.RemoveAll(ctx, &sess.Watchlist, sess.Email); err != nil {
			return "", err
		}
		return "Lista removida.", nil
	})
}

// ---------------------------------------------------------------------------
// JSON API
// ---------------------------------------------------------------------------

func (s *DashboardServer) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.sessions.Get(w, r)
	sess.Lock()
	items := append(watchlist.List(nil), sess.Watchlist.Items...)
	email := sess.Email
	sess.Unlock()

	resp := WatchlistResponse{Email: email, Max: watchlist.MaxItems, Tickers: make([]QuoteJSON, 0, len(items))}
	for _, t := range items {
		resp.Tickers = append(resp.Tickers, convertQuote(s.market.Quote(r.Context(), t)))
	}
	writeJSON(w, resp)
}

func (s *DashboardServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	t := domain.NormalizeTicker(r.PathValue("ticker"))
	if !t.Valid() {
		writeError(w, http.StatusBadRequest, "ticker required")
		return
	}
	writeJSON(w, convertQuote(s.market.Quote(r.Context(), t)))
}

func (s *DashboardServer) handleTickers(w http.ResponseWriter, r *http.Request) {
	u, err := s.universe.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	tickers := u.Tickers()
	out := make([]string, len(tickers))
	for i, t := range tickers {
		out[i] = t.String()
	}
	writeJSON(w, TickersResponse{Tickers: out})
}

func (s *DashboardServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Store:    s.storeName,
		Provider: s.market.Provider(),
		Sessions: s.sessions.Len(),
	}
	u, err := s.universe.Load(r.Context())
	if err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(resp)
		return
	}
	resp.UniverseTickers = len(u.Tickers())
	writeJSON(w, resp)
}
