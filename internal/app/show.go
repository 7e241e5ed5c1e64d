package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"hotel-rate-intel/internal/domain"
	"hotel-rate-intel/internal/service"
)

const dateLayout = "2006-01-02"

func (a *App) oneShotService() (*service.Service, error) {
	return a.buildService(nil, nil, nil, nil)
}

// Opportunities prints the merged perfect-day opportunity list.
func (a *App) Opportunities(ctx context.Context, opts ShowOptions) error {
	svc, err := a.oneShotService()
	if err != nil {
		return err
	}
	opps := svc.GetPerfectDayOpportunities(ctx)
	if opts.Limit > 0 && len(opps) > opts.Limit {
		opps = opps[:opts.Limit]
	}
	a.printOpportunities(opps)
	return nil
}

// Weekly prints seasonal suggestions for the next 30 days.
func (a *App) Weekly(opts ShowOptions) error {
	svc, err := a.oneShotService()
	if err != nil {
		return err
	}
	a.printOpportunities(svc.GetWeeklySuggestions(opts.Limit))
	return nil
}

// CurrentMonth prints this month's seasonal deals.
func (a *App) CurrentMonth() error {
	svc, err := a.oneShotService()
	if err != nil {
		return err
	}
	a.printOpportunities(svc.CurrentMonthOpportunities())
	return nil
}

// City prints the monthly seasonal table of a city.
func (a *App) City(opts ShowOptions) error {
	if strings.TrimSpace(opts.City) == "" {
		return fmt.Errorf("city is required")
	}
	svc, err := a.oneShotService()
	if err != nil {
		return err
	}
	entries := svc.GetCitySeasonalAnalysis(opts.City)
	if len(entries) == 0 {
		fmt.Fprintf(a.Out, "no seasonal data for %s\n", opts.City)
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Month\tHotel\tAverage\tLow\tHigh\tPerfect Day\tPerfect Rate\tSavings%\tGrade")
	for _, e := range entries {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.Month.String()[:3],
			e.HotelID,
			money(e.AverageRate),
			money(e.LowRate),
			money(e.HighRate),
			e.PerfectDay,
			money(e.PerfectDayRate),
			pct(e.SavingsPercentage),
			e.Recommendation,
		)
	}
	return writer.Flush()
}

// Hotels prints the curated catalog.
func (a *App) Hotels() error {
	svc, err := a.oneShotService()
	if err != nil {
		return err
	}
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tName\tCity\tStars\tCategory\tRange")
	for _, h := range svc.GetCuratedHotels() {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\t%s-%s %s\n",
			h.ID, h.Name, h.City, h.StarRating, h.Category,
			money(h.PriceRange.Min), money(h.PriceRange.Max), h.PriceRange.Currency)
	}
	return writer.Flush()
}

// Window collects live rates and prints the booking window of one hotel.
func (a *App) Window(ctx context.Context, opts ShowOptions) error {
	if opts.Hotel == "" {
		return fmt.Errorf("hotel id is required")
	}
	svc, err := a.oneShotService()
	if err != nil {
		return err
	}
	w, ok := svc.GetBookingWindow(ctx, opts.Hotel)
	if !ok {
		fmt.Fprintf(a.Out, "no observations for %s\n", opts.Hotel)
		return nil
	}

	s := w.SeasonalAnalysis
	fmt.Fprintf(a.Out, "Hotel: %s\nSeason: %s (demand %s, multiplier %s)\nAverage: %s, range %s-%s\n",
		w.HotelID, s.Season, s.DemandLevel, decimal.NewFromFloat(s.Multiplier).StringFixed(2),
		money(s.AveragePrice), money(s.PriceRange.Min), money(s.PriceRange.Max))

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Kind\tDate\tPrice\tSavings\tSavings%\tConfidence")
	for _, d := range w.BestDates {
		writeDated(writer, "best", d)
	}
	for _, d := range w.Recommendations.AvoidDates {
		writeDated(writer, "avoid", d)
	}
	if r := w.Recommendations.BestValue; r != nil {
		writeDated(writer, "best value", *r)
	}
	if r := w.Recommendations.BestAvailability; r != nil {
		writeDated(writer, "best availability", *r)
	}
	return writer.Flush()
}

// Collect fetches and prints one observation per selected hotel.
func (a *App) Collect(ctx context.Context, opts ShowOptions) error {
	svc, err := a.oneShotService()
	if err != nil {
		return err
	}

	var selected []domain.Hotel
	if len(opts.Hotels) > 0 {
		byID := make(map[string]domain.Hotel)
		for _, h := range svc.GetCuratedHotels() {
			byID[h.ID] = h
		}
		for _, id := range opts.Hotels {
			h, ok := byID[id]
			if !ok {
				return fmt.Errorf("unknown hotel %q", id)
			}
			selected = append(selected, h)
		}
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Hotel\tCurrent\tAverage\tSavings%\tConfidence\tSynthetic\tReason")
	for _, o := range svc.Collect(ctx, selected) {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			o.HotelID,
			money(o.CurrentPrice),
			money(o.AveragePrice),
			pct(domain.SavingsPercentage(o.AveragePrice, o.CurrentPrice)),
			decimal.NewFromFloat(o.Confidence).StringFixed(2),
			o.Synthetic,
			sanitizeInline(o.FailureReason),
		)
	}
	return writer.Flush()
}

func (a *App) printOpportunities(opps []domain.Opportunity) {
	if len(opps) == 0 {
		fmt.Fprintln(a.Out, "no opportunities found")
		return
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Hotel\tDate\tRate\tAverage\tSavings%\tConfidence\tUrgency\tOrigin")
	for _, o := range opps {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.HotelName,
			o.Date.Format(dateLayout),
			money(o.CurrentRate),
			money(o.AverageRate),
			pct(o.SavingsPercentage),
			decimal.NewFromFloat(o.ConfidenceScore).StringFixed(2),
			o.Urgency,
			o.Origin,
		)
	}
	writer.Flush()
}

func writeDated(w *tabwriter.Writer, kind string, d domain.DatedRate) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		kind,
		d.Date.Format(dateLayout),
		money(d.Price),
		money(d.Savings),
		pct(d.SavingsPercentage),
		decimal.NewFromFloat(d.Confidence).StringFixed(2),
	)
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(0)
}

func pct(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
