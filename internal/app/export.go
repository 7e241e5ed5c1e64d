package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"hotel-rate-intel/internal/domain"
	"hotel-rate-intel/internal/seasonal"
)

// Export writes the current opportunities as CSV and/or a hotel's seasonal
// rate curve as PNG. Relative paths land in export.dir.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.PNGPath != "" && opts.HotelID == "" {
		return errors.New("--hotel is required for the seasonal chart")
	}

	cat, err := a.loadCatalog()
	if err != nil {
		return err
	}

	if opts.CSVPath != "" {
		svc, err := a.oneShotService()
		if err != nil {
			return err
		}
		opps := svc.GetPerfectDayOpportunities(ctx)
		path := a.exportPath(opts.CSVPath)
		if err := writeOpportunitiesCSV(path, opps); err != nil {
			return err
		}
		a.Logger.Info().Str("path", path).Int("rows", len(opps)).Msg("opportunities exported")
	}

	if opts.PNGPath != "" {
		hotel, ok := cat.Lookup(opts.HotelID)
		if !ok {
			return fmt.Errorf("unknown hotel %q", opts.HotelID)
		}
		model, err := a.loadModel(cat)
		if err != nil {
			return err
		}
		entries := monthlyEntries(model, hotel.ID)
		if len(entries) == 0 {
			return fmt.Errorf("%w: hotel %s", seasonal.ErrDataUnavailable, hotel.ID)
		}
		path := a.exportPath(opts.PNGPath)
		if err := writeSeasonalPNG(path, hotel, entries, a.Config.Export.ChartWidth, a.Config.Export.ChartHeight); err != nil {
			return err
		}
		a.Logger.Info().Str("path", path).Str("hotel", hotel.ID).Int("months", len(entries)).Msg("seasonal chart exported")
	}

	return nil
}

func (a *App) exportPath(p string) string {
	if filepath.IsAbs(p) || a.Config.Export.Dir == "" || strings.ContainsRune(p, filepath.Separator) {
		return p
	}
	return filepath.Join(a.Config.Export.Dir, p)
}

func monthlyEntries(model seasonal.Model, hotelID string) []domain.SeasonalRateEntry {
	var out []domain.SeasonalRateEntry
	for m := time.January; m <= time.December; m++ {
		if e, err := model.Entry(hotelID, m); err == nil {
			out = append(out, e)
		}
	}
	return out
}

func writeOpportunitiesCSV(path string, opps []domain.Opportunity) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"hotel_id", "hotel_name", "date", "current_rate", "average_rate", "savings_pct", "confidence", "urgency", "origin", "reasons"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range opps {
		record := []string{
			o.HotelID,
			o.HotelName,
			o.Date.Format(dateLayout),
			decimal.NewFromFloat(o.CurrentRate).StringFixed(2),
			decimal.NewFromFloat(o.AverageRate).StringFixed(2),
			decimal.NewFromFloat(o.SavingsPercentage).StringFixed(1),
			decimal.NewFromFloat(o.ConfidenceScore).StringFixed(3),
			string(o.Urgency),
			string(o.Origin),
			strings.Join(o.Reasons, "; "),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeSeasonalPNG(path string, hotel domain.Hotel, entries []domain.SeasonalRateEntry, width, height int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]float64, len(entries))
	average := make([]float64, len(entries))
	low := make([]float64, len(entries))
	perfect := make([]float64, len(entries))
	for i, e := range entries {
		x[i] = float64(e.Month)
		average[i] = e.AverageRate
		low[i] = e.LowRate
		perfect[i] = e.PerfectDayRate
	}

	monthFormatter := func(v interface{}) string {
		if f, ok := v.(float64); ok && f >= 1 && f <= 12 {
			return time.Month(int(f)).String()[:3]
		}
		return ""
	}
	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	ticks := make([]chart.Tick, 0, 12)
	for m := 1; m <= 12; m++ {
		ticks = append(ticks, chart.Tick{Value: float64(m), Label: time.Month(m).String()[:3]})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s (%s)", hotel.Name, hotel.PriceRange.Currency),
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			Name:           "Month",
			ValueFormatter: monthFormatter,
			Ticks:          ticks,
		},
		YAxis: chart.YAxis{
			Name:           "Nightly rate",
			ValueFormatter: rateFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "Average", XValues: x, YValues: average},
			chart.ContinuousSeries{Name: "Low", XValues: x, YValues: low},
			chart.ContinuousSeries{Name: "Perfect day", XValues: x, YValues: perfect},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
