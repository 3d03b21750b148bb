package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/redisx"
	"github.com/iwanyu/marketplace/internal/storage"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSeriesDays = 30
	maxSeriesDays     = 365
)

// ProductStats счётчики товаров. Pending считается как total - approved,
// PendingReview берётся из отдельного счётчика статуса pending.
// Эти значения расходятся, если есть черновики, отклонённые или архивные товары
type ProductStats struct {
	Total         int `json:"total"`
	Approved      int `json:"approved"`
	Pending       int `json:"pending"`
	PendingReview int `json:"pending_review"`
	Draft         int `json:"draft"`
	Rejected      int `json:"rejected"`
	Archived      int `json:"archived"`
}

// NewProductStats собирает счётчики из разбивки по статусам
func NewProductStats(counts map[models.ProductStatus]int) ProductStats {
	var total int
	for _, n := range counts {
		total += n
	}
	approved := counts[models.ProductApproved]
	return ProductStats{
		Total:         total,
		Approved:      approved,
		Pending:       total - approved,
		PendingReview: counts[models.ProductPending],
		Draft:         counts[models.ProductDraft],
		Rejected:      counts[models.ProductRejected],
		Archived:      counts[models.ProductArchived],
	}
}

type OrderStats struct {
	Total    int                        `json:"total"`
	ByStatus map[models.OrderStatus]int `json:"by_status"`
}

func newOrderStats(counts map[models.OrderStatus]int) OrderStats {
	var total int
	for _, n := range counts {
		total += n
	}
	if counts == nil {
		counts = map[models.OrderStatus]int{}
	}
	return OrderStats{Total: total, ByStatus: counts}
}

type VendorStats struct {
	Products       ProductStats   `json:"products"`
	Orders         OrderStats     `json:"orders"`
	Revenue        int64          `json:"revenue"`
	Balance        models.Balance `json:"balance"`
	UnreadMessages int            `json:"unread_messages"`
}

type AdminStats struct {
	Vendors        map[models.VendorStatus]int `json:"vendors"`
	TotalVendors   int                         `json:"total_vendors"`
	Products       ProductStats                `json:"products"`
	Orders         OrderStats                  `json:"orders"`
	GMV            int64                       `json:"gmv"`
	PendingPayouts int64                       `json:"pending_payouts"`
	GeneratedAt    time.Time                   `json:"generated_at"`
}

// StatsCache кэш посчитанной админской статистики
type StatsCache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// BalanceProvider источник баланса продавца
type BalanceProvider interface {
	Balance(ctx context.Context, vendorID int64) (models.Balance, error)
}

type DashboardServiceInterface interface {
	VendorStats(ctx context.Context, me *models.Principal) (*VendorStats, error)
	AdminStats(ctx context.Context) (*AdminStats, error)
	SalesSeries(ctx context.Context, vendorID *int64, days int) ([]models.DailyRevenue, error)
}

type DashboardService struct {
	log      *slog.Logger
	vendors  storage.VendorStorage
	products storage.ProductStorage
	orders   storage.OrderStorage
	payouts  storage.PayoutStorage
	messages storage.MessageStorage
	balances BalanceProvider
	cache    StatsCache
	now      func() time.Time
}

func NewDashboardService(
	log *slog.Logger,
	vendors storage.VendorStorage,
	products storage.ProductStorage,
	orders storage.OrderStorage,
	payouts storage.PayoutStorage,
	messages storage.MessageStorage,
	balances BalanceProvider,
	cache StatsCache,
) *DashboardService {
	return &DashboardService{
		log:      log,
		vendors:  vendors,
		products: products,
		orders:   orders,
		payouts:  payouts,
		messages: messages,
		balances: balances,
		cache:    cache,
		now:      time.Now,
	}
}

// VendorStats панель продавца, все счётчики запрашиваются параллельно
func (s *DashboardService) VendorStats(ctx context.Context, me *models.Principal) (*VendorStats, error) {
	const op = "service.DashboardService.VendorStats"

	if me.Vendor == nil {
		return nil, ErrForbidden
	}
	vendorID := me.Vendor.ID
	log := s.log.With(slog.String("op", op), slog.Int64("vendorID", vendorID))

	var (
		stats         VendorStats
		productCounts map[models.ProductStatus]int
		orderCounts   map[models.OrderStatus]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		productCounts, err = s.products.CountProductsByStatus(gctx, &vendorID)
		return err
	})
	g.Go(func() (err error) {
		orderCounts, err = s.orders.CountOrdersByStatus(gctx, &vendorID)
		return err
	})
	g.Go(func() (err error) {
		stats.Revenue, err = s.orders.SumRevenue(gctx, &vendorID)
		return err
	})
	g.Go(func() (err error) {
		stats.Balance, err = s.balances.Balance(gctx, vendorID)
		return err
	})
	g.Go(func() (err error) {
		stats.UnreadMessages, err = s.messages.CountUnread(gctx, me.Profile.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("failed to build vendor stats", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats.Products = NewProductStats(productCounts)
	stats.Orders = newOrderStats(orderCounts)
	return &stats, nil
}

// AdminStats берёт статистику из кэша, при промахе считает напрямую
func (s *DashboardService) AdminStats(ctx context.Context) (*AdminStats, error) {
	const op = "service.DashboardService.AdminStats"
	log := s.log.With(slog.String("op", op))

	if s.cache != nil {
		var cached AdminStats
		ok, err := s.cache.Get(ctx, redisx.KeyAdminStats, &cached)
		if err != nil {
			log.Warn("stats cache read failed", logger.Err(err))
		}
		if ok {
			return &cached, nil
		}
	}
	return s.RefreshAdminStats(ctx)
}

// RefreshAdminStats пересчитывает статистику и кладёт её в кэш
func (s *DashboardService) RefreshAdminStats(ctx context.Context) (*AdminStats, error) {
	const op = "service.DashboardService.RefreshAdminStats"
	log := s.log.With(slog.String("op", op))

	var (
		stats         AdminStats
		productCounts map[models.ProductStatus]int
		orderCounts   map[models.OrderStatus]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Vendors, err = s.vendors.CountVendorsByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		productCounts, err = s.products.CountProductsByStatus(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		orderCounts, err = s.orders.CountOrdersByStatus(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.GMV, err = s.orders.SumRevenue(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.PendingPayouts, err = s.payouts.SumAllByStatus(gctx, models.PayoutPending)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("failed to build admin stats", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if stats.Vendors == nil {
		stats.Vendors = map[models.VendorStatus]int{}
	}
	for _, n := range stats.Vendors {
		stats.TotalVendors += n
	}
	stats.Products = NewProductStats(productCounts)
	stats.Orders = newOrderStats(orderCounts)
	stats.GeneratedAt = s.now().UTC()

	if s.cache != nil {
		if err := s.cache.Set(ctx, redisx.KeyAdminStats, &stats, redisx.TTLAdminStats); err != nil {
			log.Warn("stats cache write failed", logger.Err(err))
		}
	}
	return &stats, nil
}

// SalesSeries выручка по дням за последние days дней. Дни без заказов
// заполняются нулями, чтобы у графика была непрерывная ось
func (s *DashboardService) SalesSeries(ctx context.Context, vendorID *int64, days int) ([]models.DailyRevenue, error) {
	const op = "service.DashboardService.SalesSeries"

	if days <= 0 {
		days = defaultSeriesDays
	}
	if days > maxSeriesDays {
		days = maxSeriesDays
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	points, err := s.orders.DailyRevenue(ctx, vendorID, since)
	if err != nil {
		s.log.Error("failed to load daily revenue", slog.String("op", op), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byDay := make(map[string]models.DailyRevenue, len(points))
	for _, p := range points {
		byDay[p.Day.UTC().Format(time.DateOnly)] = p
	}

	series := make([]models.DailyRevenue, 0, days)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		p, ok := byDay[d.Format(time.DateOnly)]
		if !ok {
			p = models.DailyRevenue{Day: d}
		}
		p.Day = d
		series = append(series, p)
	}
	return series, nil
}
