package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/trogers1052/crop-price-monitor/internal/client"
	"github.com/trogers1052/crop-price-monitor/internal/models"
	"github.com/trogers1052/crop-price-monitor/internal/monitor"
)

var (
	historyStart    string
	historyEnd      string
	historyWidth    int
	historyForecast bool
	historyJSON     bool
)

var historyCmd = &cobra.Command{
	Use:   "history <commodity> <location>",
	Short: "Print a sampled price history or forecast",
	Example: `  cropwatch history Wheat Lahore --start 2023-01-01 --end 2023-02-01
  cropwatch history Rice Karachi --forecast --end 2023-03-01`,
	Args: cobra.ExactArgs(2),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyStart, "start", "", "start date (YYYY-MM-DD)")
	historyCmd.Flags().StringVar(&historyEnd, "end", "", "end date (YYYY-MM-DD)")
	historyCmd.Flags().IntVar(&historyWidth, "width", 0, "chart width in pixels used to size the point budget")
	historyCmd.Flags().BoolVar(&historyForecast, "forecast", false, "show the price forecast instead of history")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the result as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	backend := client.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	svc := monitor.NewService(backend, nil, monitor.Options{
		Budget:       cfg.Chart.Budget,
		DefaultWidth: cfg.Chart.Width,
	}, logger)

	width := historyWidth
	if width <= 0 {
		width = cfg.Chart.Width
	}

	var screen *monitor.Screen
	if historyForecast {
		screen = svc.NewForecastScreen(args[0], args[1], width)
	} else {
		screen = svc.NewHistoryScreen(args[0], args[1], width)
	}

	if historyStart != "" || historyEnd != "" {
		draft := screen.Snapshot()
		start, end := draft.StartText, draft.EndText
		if historyStart != "" {
			start = historyStart
		}
		if historyEnd != "" {
			end = historyEnd
		}
		if err := screen.CommitRange(start, end); err != nil {
			return err
		}
	}

	if _, err := screen.Refresh(cmd.Context()); err != nil {
		return err
	}
	st := screen.Snapshot()

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	var (
		points   []models.PricePoint
		fallback bool
		message  string
	)
	if st.Forecast != nil {
		points, fallback, message = st.Forecast.Points, st.Forecast.Fallback, st.Forecast.Message
	} else if st.History != nil {
		points, fallback, message = st.History.Points, st.History.Fallback, st.History.Message
	}

	title := lipgloss.NewStyle().Bold(true)
	fmt.Println(title.Render(fmt.Sprintf("%s @ %s  %s", st.Commodity, st.Location, st.Range)))
	if st.History != nil {
		s := st.History.Stats
		fmt.Printf("current %s  high %s  low %s  avg %s  (%d of %d points)\n",
			s.Current.StringFixed(2), s.Highest.StringFixed(2), s.Lowest.StringFixed(2), s.Average.StringFixed(2),
			len(points), st.History.TotalPoints)
	}
	if fallback {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Render(message))
	}

	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{p.Date.String(), p.Price.StringFixed(2)})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DATE", "PRICE").
		Rows(rows...)
	fmt.Println(t.String())
	return nil
}
