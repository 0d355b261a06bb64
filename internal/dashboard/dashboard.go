// Package dashboard assembles the multi-panel dashboard snapshot: one
// synchronous pass of fingerprint resolution, page fetch, normalization,
// rollups and cache writes per request.
package dashboard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/catalog"
	"sales-dashboard/internal/fetch"
	"sales-dashboard/internal/fingerprint"
	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/normalize"
	"sales-dashboard/internal/rollup"
	"sales-dashboard/internal/store"
	"sales-dashboard/internal/types"
)

const (
	warnNoSheet     = "Cadastre primeiro a URL da planilha de análise de vendas em Configurações."
	warnSheetFailed = "Erro ao buscar análise na planilha: "
	warnDailyFailed = "Erro ao buscar pedidos: "
	warnMonthFailed = "Lista do mês incompleta: "
)

type Config struct {
	PageSize        int
	MaxPages        int
	ProductMaxPages int
	DailyPageSize   int
	DailyMaxPages   int
	SpanDays        int
	MaxDays         int
	FetchDetails    bool
}

// ConfigFrom maps the pagination and daily sections of the process config
func ConfigFrom(cfg *store.Config) Config {
	return Config{
		PageSize:        cfg.Pagination.PageSize,
		MaxPages:        cfg.Pagination.MaxPages,
		ProductMaxPages: cfg.Pagination.ProductMaxPages,
		DailyPageSize:   cfg.Pagination.DailyPageSize,
		DailyMaxPages:   cfg.Pagination.DailyMaxPages,
		SpanDays:        cfg.Daily.SpanDays,
		MaxDays:         cfg.Daily.MaxDays,
		FetchDetails:    cfg.Daily.FetchDetails == nil || *cfg.Daily.FetchDetails,
	}
}

// SheetSettings supplies the stored margin sheet URL
type SheetSettings interface {
	SheetURL() string
}

// Deps are the collaborators of a Service. Margins and Settings may be nil,
// which disables margin lookups.
type Deps struct {
	Source    interfaces.OrderSource
	Catalog   *catalog.Catalog
	Location  *time.Location
	Margins   interfaces.MarginSource
	Settings  SheetSettings
	Panels    *cache.Panels
	Snapshots *cache.Snapshots
	// Now defaults to time.Now
	Now func() time.Time
}

type Service struct {
	cfg       Config
	source    interfaces.OrderSource
	norm      *normalize.Normalizer
	engine    *rollup.Engine
	fetcher   *fetch.Fetcher
	resolver  *fingerprint.Resolver
	margins   interfaces.MarginSource
	settings  SheetSettings
	panels    *cache.Panels
	snapshots *cache.Snapshots
	now       func() time.Time

	mu      sync.Mutex
	lastRaw *types.RawPair
}

var _ interfaces.Dashboard = (*Service)(nil)

func New(cfg Config, deps Deps) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 12
	}
	if cfg.ProductMaxPages <= 0 {
		cfg.ProductMaxPages = 20
	}
	if cfg.DailyPageSize <= 0 {
		cfg.DailyPageSize = 50
	}
	if cfg.DailyMaxPages <= 0 {
		cfg.DailyMaxPages = 1
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 3
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Panels == nil {
		deps.Panels = cache.NewPanels()
	}
	if deps.Snapshots == nil {
		deps.Snapshots = cache.NewSnapshots()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	norm := normalize.New(deps.Catalog, deps.Location)
	return &Service{
		cfg:       cfg,
		source:    deps.Source,
		norm:      norm,
		engine:    rollup.New(deps.Catalog, norm, deps.Source),
		fetcher:   fetch.New(deps.Source),
		resolver:  fingerprint.New(deps.Source),
		margins:   deps.Margins,
		settings:  deps.Settings,
		panels:    deps.Panels,
		snapshots: deps.Snapshots,
		now:       deps.Now,
	}
}

// Snapshot returns the dashboard for req, served from the snapshot cache
// when neither fingerprint moved. A forced request skips fingerprint
// resolution and every cache read and write.
//
// The pass runs to completion even when the caller goes away: upstream
// calls only see ctx's values, never its cancellation.
func (s *Service) Snapshot(ctx context.Context, req types.DashboardRequest) (*types.Snapshot, error) {
	ctx = context.WithoutCancel(ctx)
	today := types.Day(s.now().In(s.norm.Location()))
	p := s.plan(req, today)

	if !req.Force {
		p.fps.Daily = s.resolver.Resolve(ctx, p.daily)
		p.fps.Month = s.resolver.Resolve(ctx, p.month)
	}

	key := cache.SnapshotKey{
		Daily:       p.daily,
		Status:      p.req.Status,
		DailyFP:     p.fps.Daily,
		Month:       p.month,
		MonthFP:     p.fps.Month,
		Sort:        p.req.Sort,
		WithMargins: p.req.WithMargins,
	}
	snap, hit, err := s.snapshots.Get(ctx, key, req.Force, func(ctx context.Context) (*types.Snapshot, bool, error) {
		snap, complete := s.build(ctx, p)
		return snap, complete, nil
	})
	if err != nil {
		return nil, err
	}

	if last, ok := snap.LastRaw(); ok {
		s.mu.Lock()
		s.lastRaw = &last
		s.mu.Unlock()
	}

	if hit {
		cp := *snap
		cp.FromCache = true
		return &cp, nil
	}
	return snap, nil
}

// LastRaw is the raw payload pair of the last order of the most recent
// snapshot served
func (s *Service) LastRaw(ctx context.Context) (types.RawPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRaw == nil {
		return types.RawPair{}, false
	}
	return *s.lastRaw, true
}

// plan holds the resolved inputs of one pass
type plan struct {
	req   types.DashboardRequest
	today types.DateRange
	daily types.DateRange
	month types.DateRange
	fps   types.Fingerprints
}

func (s *Service) plan(req types.DashboardRequest, today time.Time) plan {
	req.Sort = types.SortToggles{
		ProductsDay:   types.ParseSortMode(string(req.Sort.ProductsDay)),
		ProductsMonth: types.ParseSortMode(string(req.Sort.ProductsMonth)),
		Statuses:      types.ParseSortMode(string(req.Sort.Statuses)),
		Vendors:       types.ParseSortMode(string(req.Sort.Vendors)),
	}
	req.Status = strings.TrimSpace(req.Status)

	return plan{
		req:   req,
		today: types.NewDateRange(today, today),
		daily: DailyRange(req.Range, today, s.cfg.SpanDays),
		month: MonthRange(today),
		fps:   types.Fingerprints{Daily: types.EmptyFingerprint, Month: types.EmptyFingerprint},
	}
}

// DailyRange is r with its bounds in today's location, or the span of
// spanDays days before today through today when r is unbounded. Reversed
// bounds are swapped.
func DailyRange(r types.DateRange, today time.Time, spanDays int) types.DateRange {
	if r.IsZero() || r.From.IsZero() || r.To.IsZero() {
		return types.NewDateRange(today.AddDate(0, 0, -spanDays), today)
	}
	loc := today.Location()
	from := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, loc)
	to := time.Date(r.To.Year(), r.To.Month(), r.To.Day(), 0, 0, 0, 0, loc)
	if to.Before(from) {
		from, to = to, from
	}
	return types.DateRange{From: from, To: to}
}

// MonthRange is the calendar month containing today
func MonthRange(today time.Time) types.DateRange {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	return types.DateRange{From: first, To: first.AddDate(0, 1, -1)}
}

// build assembles a snapshot. complete is false when a listing was cut short
// by a cancelled or expired context.
func (s *Service) build(ctx context.Context, p plan) (snap *types.Snapshot, complete bool) {
	op := logger.StartOperation(ctx, "dashboard.build",
		"daily", p.daily.String(),
		"month", p.month.String(),
		"status", p.req.Status,
	)
	ctx = op.Context()

	snap = &types.Snapshot{
		Period:       p.daily,
		Month:        p.month,
		Status:       p.req.Status,
		MonthLabel:   p.month.From.Format("01/2006"),
		Sort:         p.req.Sort,
		WithMargins:  p.req.WithMargins,
		Fingerprints: p.fps,
		GeneratedAt:  s.now(),
	}

	// one detail cache serves every pass of the request
	details := rollup.NewDetailCache(s.source)

	var dailyCut bool
	snap.Orders, dailyCut = s.dailyOrders(ctx, p, snap, details)
	if p.req.WithMargins && len(snap.Orders) > 0 {
		s.applyMargins(ctx, snap)
	}

	snap.DailyPanels, snap.DailyTotals = s.engine.DailyVendors(snap.Orders, p.daily, s.cfg.MaxDays)
	snap.ProductsToday = s.engine.Products(ctx, snap.Orders, p.today, p.req.Sort.ProductsDay, details)

	month := newMonthSet(s, p.month)
	monthPanel := func(maxPages int, compute func([]types.Order) types.Panel) cache.Compute {
		return func(ctx context.Context) (types.Panel, bool) {
			orders, cut := month.orders(ctx, maxPages)
			return compute(orders), !cut
		}
	}
	snap.MonthStatus = s.panel(ctx, p, cache.KindMonthStatus, "sort="+string(p.req.Sort.Statuses), monthPanel(s.cfg.MaxPages, func(orders []types.Order) types.Panel {
		return s.engine.Statuses(orders, p.month, p.req.Sort.Statuses)
	}))
	snap.MonthVendor = s.panel(ctx, p, cache.KindMonthVendor, "sort="+string(p.req.Sort.Vendors), monthPanel(s.cfg.MaxPages, func(orders []types.Order) types.Panel {
		return s.engine.Vendors(ctx, orders, p.month, p.req.Sort.Vendors, details)
	}))
	snap.MonthDay = s.panel(ctx, p, cache.KindMonthDay, "", monthPanel(s.cfg.MaxPages, func(orders []types.Order) types.Panel {
		return s.engine.Days(orders, p.month)
	}))
	snap.ProductsMonth = s.panel(ctx, p, cache.KindProductsMonth, "sort="+string(p.req.Sort.ProductsMonth), monthPanel(s.cfg.ProductMaxPages, func(orders []types.Order) types.Panel {
		return s.engine.Products(ctx, orders, p.month, p.req.Sort.ProductsMonth, details)
	}))
	snap.Warnings = append(snap.Warnings, month.warnings...)
	snap.Chart = Chart(snap.MonthDay)

	complete = !dailyCut && !month.interrupted
	op.End("orders", len(snap.Orders), "warnings", len(snap.Warnings), "complete", complete)
	return snap, complete
}

func (s *Service) panel(ctx context.Context, p plan, kind cache.PanelKind, filters string, compute cache.Compute) types.Panel {
	key := cache.PanelKey{
		Range:       p.month,
		Fingerprint: p.fps.Month,
		Kind:        kind,
		Filters:     filters,
	}
	panel, _ := s.panels.Get(ctx, key, p.req.Force, compute)
	return panel
}

// dailyOrders lists the short range with the status filter and enriches
// every record with its detail. interrupted reports a listing cut short by
// the context.
func (s *Service) dailyOrders(ctx context.Context, p plan, snap *types.Snapshot, details *rollup.DetailCache) (orders []types.Order, interrupted bool) {
	res := s.fetcher.Fetch(ctx, fetch.Query{
		Range:    p.daily,
		Status:   p.req.Status,
		PageSize: s.cfg.DailyPageSize,
		MaxPages: s.cfg.DailyMaxPages,
	})
	if res.Partial {
		snap.Warnings = append(snap.Warnings, warnDailyFailed+res.Err.Error())
	}

	orders = make([]types.Order, 0, len(res.Records))
	for _, rec := range res.Records {
		var det types.RawRecord
		if s.cfg.FetchDetails {
			if id, ok := normalize.RecordKey(rec); ok {
				det, _ = details.Get(ctx, id)
			}
		}
		orders = append(orders, s.norm.Order(ctx, rec, det))
	}
	return orders, res.Interrupted()
}

func (s *Service) applyMargins(ctx context.Context, snap *types.Snapshot) {
	sheetURL := ""
	if s.settings != nil {
		sheetURL = s.settings.SheetURL()
	}
	if sheetURL == "" || s.margins == nil {
		snap.Warnings = append(snap.Warnings, warnNoSheet)
		return
	}

	margins, err := s.margins.Margins(ctx, sheetURL)
	if err != nil {
		logger.Warn(ctx, "Margin sheet unavailable", "error", err.Error())
		snap.Warnings = append(snap.Warnings, warnSheetFailed+err.Error())
		return
	}
	for i := range snap.Orders {
		num := strings.TrimSpace(snap.Orders[i].DisplayNumber())
		if m, ok := margins[num]; ok && num != "" {
			snap.Orders[i].Margin = m
		}
	}
}

// Chart is the month-by-day panel as a series, oldest day first
func Chart(days types.Panel) types.Chart {
	c := types.Chart{
		Labels: make([]string, 0, len(days.Buckets)),
		Values: make([]decimal.Decimal, 0, len(days.Buckets)),
	}
	for i := len(days.Buckets) - 1; i >= 0; i-- {
		c.Labels = append(c.Labels, days.Buckets[i].Label)
		c.Values = append(c.Values, days.Buckets[i].Value)
	}
	return c
}

// monthSet fetches the month's records lazily, once per page ceiling, and
// shares them between the month panels of one pass
type monthSet struct {
	svc         *Service
	rng         types.DateRange
	byPages     map[int][]types.Order
	cut         map[int]bool
	warnings    []string
	interrupted bool
}

func newMonthSet(svc *Service, rng types.DateRange) *monthSet {
	return &monthSet{svc: svc, rng: rng, byPages: make(map[int][]types.Order), cut: make(map[int]bool)}
}

// orders returns the month's records for a page ceiling. interrupted is set
// when the listing was cut short by the context.
func (m *monthSet) orders(ctx context.Context, maxPages int) (orders []types.Order, interrupted bool) {
	if orders, ok := m.byPages[maxPages]; ok {
		return orders, m.cut[maxPages]
	}

	res := m.svc.fetcher.Fetch(ctx, fetch.Query{
		Range:    m.rng,
		PageSize: m.svc.cfg.PageSize,
		MaxPages: maxPages,
	})
	if res.Partial {
		m.warnings = append(m.warnings, warnMonthFailed+res.Err.Error())
	}

	orders = make([]types.Order, 0, len(res.Records))
	for _, rec := range res.Records {
		orders = append(orders, m.svc.norm.Order(ctx, rec, nil))
	}
	m.byPages[maxPages] = orders
	m.cut[maxPages] = res.Interrupted()
	if res.Interrupted() {
		m.interrupted = true
	}
	return orders, res.Interrupted()
}
