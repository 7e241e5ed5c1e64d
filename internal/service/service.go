package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"hotel-rate-intel/internal/alerting"
	"hotel-rate-intel/internal/cache"
	"hotel-rate-intel/internal/catalog"
	"hotel-rate-intel/internal/config"
	"hotel-rate-intel/internal/detector"
	"hotel-rate-intel/internal/domain"
	"hotel-rate-intel/internal/metrics"
	"hotel-rate-intel/internal/scheduler"
	"hotel-rate-intel/internal/seasonal"
	"hotel-rate-intel/internal/window"
)

const (
	defaultCacheTTL    = 4 * time.Hour
	defaultHistorySize = 28
	defaultRunTimeout  = 30 * time.Minute
	refreshKey         = "refresh"
)

// Collector produces one observation per hotel.
type Collector interface {
	Collect(ctx context.Context, hotels []domain.Hotel) []domain.RateObservation
}

// Snapshot is the result of one completed refresh. Opportunities, windows and
// observations always come from the same run.
type Snapshot struct {
	RunID         string
	GeneratedAt   time.Time
	Opportunities []domain.Opportunity
	Windows       map[string]domain.BookingWindow
	Observations  []domain.RateObservation
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Catalog   catalog.Source
	Collector Collector
	Model     seasonal.Model
	Detector  *detector.Detector
	Analyzer  *window.Analyzer
	Scheduler *scheduler.Scheduler
	Notifier  alerting.Notifier
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Service orchestrates collection, detection, analysis, caching and alerting.
type Service struct {
	hotels    catalog.Source
	collector Collector
	model     seasonal.Model
	detector  *detector.Detector
	analyzer  *window.Analyzer
	scheduler *scheduler.Scheduler
	notifier  alerting.Notifier
	deduper   *alerting.Deduper
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time

	snapshot *cache.Cache[Snapshot]
	group    singleflight.Group

	histMu      sync.Mutex
	history     map[string][]domain.RateObservation
	historySize int

	runTimeout time.Duration
	limit      int
	channels   []string
	alertsOn   bool
}

// New constructs the rate intelligence service.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	historySize := cfg.Analysis.HistorySize
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	runTimeout := cfg.Scheduler.TickTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	limit := cfg.Detector.Limit
	if limit <= 0 {
		limit = detector.DefaultLimit
	}

	det := deps.Detector
	if det == nil {
		det = detector.New(deps.Catalog, detector.Options{
			Limit:           limit,
			SeasonalHorizon: cfg.Detector.SeasonalHorizon,
			Now:             now,
		}, logger)
	}
	analyzer := deps.Analyzer
	if analyzer == nil {
		analyzer = window.New(deps.Model, now)
	}

	return &Service{
		hotels:      deps.Catalog,
		collector:   deps.Collector,
		model:       deps.Model,
		detector:    det,
		analyzer:    analyzer,
		scheduler:   deps.Scheduler,
		notifier:    deps.Notifier,
		deduper:     alerting.NewDeduper(cfg.Alerting.Cooldown, now),
		metrics:     deps.Metrics,
		logger:      logger.With().Str("component", "service").Logger(),
		now:         now,
		snapshot:    cache.New[Snapshot](ttl, now),
		history:     make(map[string][]domain.RateObservation),
		historySize: historySize,
		runTimeout:  runTimeout,
		limit:       limit,
		channels:    cfg.Alerting.Channels,
		alertsOn:    cfg.Alerting.Enabled,
	}
}

// Run performs refreshes on the scheduler cadence until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket 执行一次定时刷新。定时刷新不会清空缓存，未过期的旧快照在刷新期间继续提供。
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	s.logger.Debug().Time("bucket", bucket).Msg("scheduled refresh")
	_, err := s.Refresh(ctx)
	return err
}

// Refresh runs the pipeline once. Concurrent callers share the in-flight run.
// The run is detached from any single caller and bounded by the run timeout,
// so a caller giving up never fails the others. Refresh fails when ctx ends
// before the run completes, or when the run itself times out.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("refresh: %w", err)
	}

	ch := s.group.DoChan(refreshKey, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.runTimeout)
		defer cancel()
		return s.refresh(runCtx)
	})

	select {
	case <-ctx.Done():
		s.logger.Debug().Err(ctx.Err()).Msg("caller left in-flight refresh")
		return Snapshot{}, fmt.Errorf("refresh: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		if res.Shared {
			s.logger.Debug().Msg("joined in-flight refresh")
		}
		return res.Val.(Snapshot), nil
	}
}

func (s *Service) refresh(ctx context.Context) (snap Snapshot, err error) {
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Logger()
	start := time.Now()
	defer func() { s.metrics.ObserveRefresh(time.Since(start), err) }()

	hotels := s.hotels.Hotels()
	logger.Info().Int("hotels", len(hotels)).Msg("refresh started")

	observations := s.collector.Collect(ctx, hotels)
	if err := ctx.Err(); err != nil {
		logger.Warn().Err(err).Msg("refresh abandoned, snapshot left unchanged")
		return Snapshot{}, fmt.Errorf("refresh %s: %w", runID, err)
	}

	history := s.appendHistory(observations)
	opportunities := s.detector.Detect(ctx, observations, s.model, s.limit)

	windows := make(map[string]domain.BookingWindow, len(hotels))
	for _, h := range hotels {
		if w := s.analyzer.Analyze(h, history); w != nil {
			windows[h.ID] = *w
		}
	}

	snap = Snapshot{
		RunID:         runID,
		GeneratedAt:   s.now().UTC(),
		Opportunities: opportunities,
		Windows:       windows,
		Observations:  observations,
	}
	s.snapshot.Set(snap)
	s.metrics.SetOpportunities(countByOrigin(opportunities))

	logger.Info().
		Int("observations", len(observations)).
		Int("synthetic", countSynthetic(observations)).
		Int("opportunities", len(opportunities)).
		Int("windows", len(windows)).
		Dur("elapsed", time.Since(start)).
		Msg("refresh completed")

	s.notify(ctx, snap, logger)
	return snap, nil
}

// GetPerfectDayOpportunities returns the cached opportunity list, refreshing
// it when stale. It never returns an empty list.
func (s *Service) GetPerfectDayOpportunities(ctx context.Context) []domain.Opportunity {
	snap, err := s.current(ctx)
	if err != nil || len(snap.Opportunities) == 0 {
		s.logger.Warn().Err(err).Msg("serving fallback opportunities")
		return s.detector.Fallback(s.limit)
	}
	return cloneOpportunities(snap.Opportunities)
}

// ForceUpdate discards the cached snapshot, then recomputes it. Until the run
// completes, readers find no snapshot and join the run; if it fails they
// receive the fallback list.
func (s *Service) ForceUpdate(ctx context.Context) error {
	s.snapshot.Invalidate()
	_, err := s.Refresh(ctx)
	return err
}

// GetWeeklySuggestions 返回未来 30 天内的季节性最佳日期。
func (s *Service) GetWeeklySuggestions(limit int) []domain.Opportunity {
	return s.model.WeeklySuggestions(limit, s.now())
}

// GetCitySeasonalAnalysis returns every seasonal entry for hotels in city.
func (s *Service) GetCitySeasonalAnalysis(city string) []domain.SeasonalRateEntry {
	return s.model.CitySeasonalAnalysis(city)
}

// GetCuratedHotels returns the monitored hotels.
func (s *Service) GetCuratedHotels() []domain.Hotel {
	return s.hotels.Hotels()
}

// CurrentMonthOpportunities returns this month's strong seasonal deals.
func (s *Service) CurrentMonthOpportunities() []domain.Opportunity {
	return s.model.CurrentMonthOpportunities(s.now())
}

// GetBookingWindow returns the latest booking window for hotelID, refreshing
// stale results first. The boolean is false when the hotel has no observations.
func (s *Service) GetBookingWindow(ctx context.Context, hotelID string) (*domain.BookingWindow, bool) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, false
	}
	w, ok := snap.Windows[hotelID]
	if !ok {
		return nil, false
	}
	return &w, true
}

// Observations returns the observations of the latest completed refresh.
func (s *Service) Observations() []domain.RateObservation {
	entry, ok := s.snapshot.Entry()
	if !ok {
		return nil
	}
	return append([]domain.RateObservation(nil), entry.Data.Observations...)
}

// Collect fetches fresh observations without touching the caches.
func (s *Service) Collect(ctx context.Context, hotels []domain.Hotel) []domain.RateObservation {
	if len(hotels) == 0 {
		hotels = s.hotels.Hotels()
	}
	return s.collector.Collect(ctx, hotels)
}

// LastRefresh reports when the cached snapshot was computed.
func (s *Service) LastRefresh() (time.Time, bool) {
	entry, ok := s.snapshot.Entry()
	if !ok {
		return time.Time{}, false
	}
	return entry.ComputedAt, true
}

func (s *Service) current(ctx context.Context) (Snapshot, error) {
	if snap, ok := s.snapshot.Get(); ok {
		return snap, nil
	}
	return s.Refresh(ctx)
}

// appendHistory keeps the newest historySize observations per hotel and
// returns all retained observations.
func (s *Service) appendHistory(observations []domain.RateObservation) []domain.RateObservation {
	s.histMu.Lock()
	defer s.histMu.Unlock()

	for _, o := range observations {
		h := append(s.history[o.HotelID], o)
		if len(h) > s.historySize {
			h = h[len(h)-s.historySize:]
		}
		s.history[o.HotelID] = h
	}

	var all []domain.RateObservation
	for _, h := range s.history {
		all = append(all, h...)
	}
	return all
}

func (s *Service) notify(ctx context.Context, snap Snapshot, logger zerolog.Logger) {
	if !s.alertsOn || s.notifier == nil {
		return
	}
	var urgent []domain.Opportunity
	for _, o := range snap.Opportunities {
		if o.Urgency == domain.UrgencyHigh {
			urgent = append(urgent, o)
		}
	}
	urgent = s.deduper.Pending(urgent)
	if len(urgent) == 0 {
		return
	}

	note := alerting.Notification{
		RunID:         snap.RunID,
		GeneratedAt:   snap.GeneratedAt,
		Opportunities: urgent,
		Channels:      s.channels,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		logger.Error().Err(err).Str("channels", strings.Join(s.channels, ",")).Msg("failed to dispatch alert")
		return
	}
	s.deduper.MarkSent(urgent)
}

func countByOrigin(opps []domain.Opportunity) map[string]int {
	counts := map[string]int{
		string(domain.OriginRealtime): 0,
		string(domain.OriginSeasonal): 0,
	}
	for _, o := range opps {
		counts[string(o.Origin)]++
	}
	return counts
}

func countSynthetic(observations []domain.RateObservation) int {
	n := 0
	for _, o := range observations {
		if o.Synthetic {
			n++
		}
	}
	return n
}

func cloneOpportunities(in []domain.Opportunity) []domain.Opportunity {
	out := make([]domain.Opportunity, len(in))
	copy(out, in)
	return out
}
