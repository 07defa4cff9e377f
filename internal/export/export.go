// Package export renders leaderboard and rating data as downloadable files.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"github.com/xuri/excelize/v2"

	"github.com/okian/kala/internal/domain/model"
)

const (
	leaderboardSheet = "Leaderboard"

	chartWidth  = 640
	chartHeight = 360
)

var leaderboardHeader = []any{"Rank", "Player ID", "Display name", "Total score", "Games played", "Average score", "Last active"}

// LeaderboardXLSX writes entries as a single-sheet workbook, one row per player in rank order.
func LeaderboardXLSX(w io.Writer, entries []model.Standing, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leaderboardSheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	if err := f.SetSheetRow(leaderboardSheet, "A1", &leaderboardHeader); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx row %d: %w", i, err)
		}
		row := []any{e.Rank, e.PlayerID, e.DisplayName, e.TotalScore, e.GamesPlayed, e.AverageScore, e.LastActive.UTC().Format(time.RFC3339)}
		if err := f.SetSheetRow(leaderboardSheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i, err)
		}
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Leaderboard",
		Created: generatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("xlsx properties: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// RatingChartPNG draws a bar per star value with the count of active reviews giving it.
func RatingChartPNG(w io.Writer, artistID string, dist []int) error {
	bars := make([]chart.Value, len(dist))
	peak := 1
	for i, n := range dist {
		bars[i] = chart.Value{
			Label: strconv.Itoa(i+1) + " star",
			Value: float64(n),
			Style: chart.Style{FillColor: drawing.ColorFromHex("c0582b"), StrokeColor: drawing.ColorFromHex("8a3b1a")},
		}
		peak = max(peak, n)
	}

	graph := chart.BarChart{
		Title:      "Ratings for " + artistID,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   60,
		BarSpacing: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(peak)},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render rating chart: %w", err)
	}
	return nil
}
