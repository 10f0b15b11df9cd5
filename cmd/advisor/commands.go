package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"krishi-advisor/internal/engine"
	"krishi-advisor/internal/models"
)

func (c *cli) recommendCmd() *cobra.Command {
	var (
		date      string
		top       int
		lang      string
		polygonID string
	)
	cmd := &cobra.Command{
		Use:   "recommend [city]",
		Short: "Rank crops for a city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if date != "" {
				var err error
				if day, err = time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
				}
			}

			ctx, cancel := c.withTimeout()
			defer cancel()

			res, err := c.orch.Recommend(ctx, models.Location{City: args[0], PolygonID: polygonID}, day, models.RequestOptions{
				Language: lang,
				TopN:     top,
			})
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return printRecommendations(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default: today)")
	cmd.Flags().IntVarP(&top, "top", "n", 0, "Show only the top N crops")
	cmd.Flags().StringVar(&lang, "lang", "en", "Alert language (en, hi)")
	cmd.Flags().StringVar(&polygonID, "polygon", "", "Field polygon ID for live soil moisture")
	return cmd
}

func (c *cli) alertsCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "alerts [city]",
		Short: "Evaluate weather risk for a city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout()
			defer cancel()

			report, err := c.orch.WeatherAlerts(ctx, models.Location{City: args[0]}, lang)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			out := cmd.OutOrStdout()
			if report.Stale {
				fmt.Fprintln(out, "Weather data unavailable; using regional averages.")
			}
			for i, code := range report.Alerts {
				fmt.Fprintf(out, "%-13s %s\n", code, report.AlertMessages[i])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "Alert language (en, hi)")
	return cmd
}

func (c *cli) predictCmd() *cobra.Command {
	var history []string
	cmd := &cobra.Command{
		Use:   "predict [city]",
		Short: "Forecast mandi prices for the catalog crops",
		Example: `  advisor predict Delhi
  advisor predict Jaipur --history Mustard=50,52,60`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := parseHistory(history)
			if err != nil {
				return err
			}

			ctx, cancel := c.withTimeout()
			defer cancel()

			preds, err := c.orch.PredictMandiPrices(ctx, models.PredictRequest{City: args[0], HistoricalPrices: series})
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), preds)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CROP\tCURRENT\tPREDICTED\tCHANGE\tTREND\tCONFIDENCE\tFACTORS")
			for _, p := range preds {
				fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%+.2f%%\t%s\t%.0f\t%s\n",
					p.CropName, p.CurrentPrice, p.PredictedPrice, p.PriceChangePercent, p.Trend, p.Confidence,
					strings.Join(p.SeasonalFactors, ", "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringArrayVar(&history, "history", nil, "Price history as CROP=P1,P2,... (repeatable)")
	return cmd
}

func (c *cli) trendCmd() *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "trend [crop]",
		Short: "Show the seasonal price curve for a crop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout()
			defer cancel()

			points, err := c.orch.SeasonalTrend(ctx, args[0], months)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), points)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MONTH\tPRICE/KG\tCONFIDENCE\tFACTORS")
			for _, p := range points {
				fmt.Fprintf(w, "%s\t%.2f\t%.0f\t%s\n", p.Month, p.PredictedPrice, p.Confidence, strings.Join(p.Factors, ", "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&months, "months", "m", 6, fmt.Sprintf("Horizon in months (1-%d)", engine.MaxHorizonMonths))
	return cmd
}

func (c *cli) pricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "List current mandi prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout()
			defer cancel()

			prices, stale := c.orch.MarketPrices(ctx)
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"prices": prices, "market_data_stale": stale})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CROP\tPRICE/KG\tMARKET\tTREND")
			for _, p := range prices {
				fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", p.CropName, p.PricePerKg, p.MarketName, p.PriceTrend)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if stale {
				fmt.Fprintln(cmd.OutOrStdout(), "Live prices unavailable; showing last known prices.")
			}
			return nil
		},
	}
}

func printRecommendations(out io.Writer, res *models.RecommendationResult) error {
	fmt.Fprintf(out, "%s, %s\n", res.City, res.Date)
	for _, msg := range res.AlertMessages {
		fmt.Fprintf(out, "  ! %s\n", msg)
	}
	for _, n := range res.Notices {
		fmt.Fprintf(out, "  * %s\n", n)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CROP\tSEASON\tSCORE\tYIELD\tPROFIT\tPRICE\tREASONS")
	for _, r := range res.Recommendations {
		profit := "-"
		if r.ProfitEstimate != nil {
			profit = strconv.FormatFloat(*r.ProfitEstimate, 'f', 0, 64)
		}
		price := "n/a"
		if r.PredictedPrice != nil {
			price = fmt.Sprintf("%.2f (%s)", *r.PredictedPrice, r.PriceTrend)
		}
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%.0f\t%s\t%s\t%s\n",
			r.CropName, r.GrowingSeason, r.ConfidencePercent, r.YieldForecast, profit, price, strings.Join(r.Reasons, "; "))
	}
	return w.Flush()
}

// parseHistory reads CROP=P1,P2,... flags.
func parseHistory(flags []string) (map[string][]float64, error) {
	out := make(map[string][]float64, len(flags))
	for _, f := range flags {
		crop, list, ok := strings.Cut(f, "=")
		crop = strings.TrimSpace(crop)
		if !ok || crop == "" {
			return nil, fmt.Errorf("invalid --history %q: expected CROP=P1,P2,...", f)
		}
		for _, raw := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid price %q for %s", raw, crop)
			}
			out[crop] = append(out[crop], v)
		}
	}
	return out, nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
