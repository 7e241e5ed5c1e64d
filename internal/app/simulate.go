package app

import (
	"context"
	"errors"
	"fmt"

	"hotel-rate-intel/internal/fetcher"
)

// SimulateAlert 以给定价格模拟一次酒店降价，走完整条刷新与告警流程。
func (a *App) SimulateAlert(ctx context.Context, hotelID string, rate float64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	cat, err := a.loadCatalog()
	if err != nil {
		return err
	}
	hotel, ok := cat.Lookup(hotelID)
	if !ok {
		return fmt.Errorf("unknown hotel %q", hotelID)
	}

	source := fetcher.NewMockSource()
	source.SetPrices(hotel.ID, hotel.PriceRange.Currency, rate)

	// 模拟数据无需限速。
	cfg := *a.Config
	cfg.Collector.RequestDelay = 0
	sim := *a
	sim.Config = &cfg

	svc, err := sim.buildService(nil, nil, source, notifier)
	if err != nil {
		return err
	}
	return svc.ProcessBucket(ctx, a.Now().UTC())
}
