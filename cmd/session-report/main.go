// Command session-report renders an HTML chart of a recorded visualizer
// session: smoothed band energy over time with the automatic mode
// switches marked.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/telemetry"
)

var (
	dbFile    = flag.String("db", "visualizer.db", "Path to the telemetry SQLite file")
	sessionID = flag.String("session", "", "Session ID to report (default: most recent)")
	outFile   = flag.String("out", "session_report.html", "Output HTML file")
	list      = flag.Bool("list", false, "List recorded sessions and exit")
)

func main() {
	flag.Parse()

	store, err := telemetry.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open telemetry db: %v", err)
	}
	defer store.Close()

	if *list {
		if err := listSessions(store); err != nil {
			log.Fatalf("Failed to list sessions: %v", err)
		}
		return
	}

	id := *sessionID
	if id == "" {
		sessions, err := store.ListSessions(1)
		if err != nil {
			log.Fatalf("Failed to query sessions: %v", err)
		}
		if len(sessions) == 0 {
			log.Fatal("No sessions recorded")
		}
		id = sessions[0].ID
		log.Printf("Using most recent session %s", id)
	}

	if err := render(store, id, *outFile); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	log.Printf("Report written to %s", *outFile)
}

func listSessions(store *telemetry.Store) error {
	sessions, err := store.ListSessions(50)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		end := "running"
		if s.EndedAt != nil {
			end = s.EndedAt.Sub(s.StartedAt).Round(1e9).String()
		}
		fmt.Printf("%s  %s  style=%s lights=%d %s\n",
			s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), s.Style, s.NumLights, end)
	}
	return nil
}

func render(store *telemetry.Store, id, out string) error {
	sess, err := store.GetSession(id)
	if err != nil {
		return err
	}
	samples, err := store.BandSamples(id)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("session %s has no band samples", id)
	}
	events, err := store.ModeEvents(id)
	if err != nil {
		return err
	}

	times := make([]string, len(samples))
	bass := make([]opts.LineData, len(samples))
	mids := make([]opts.LineData, len(samples))
	treble := make([]opts.LineData, len(samples))
	amp := make([]opts.LineData, len(samples))
	for i, s := range samples {
		times[i] = s.Timestamp.Format("15:04:05")
		bass[i] = opts.LineData{Value: s.Bass}
		mids[i] = opts.LineData{Value: s.Mids}
		treble[i] = opts.LineData{Value: s.Treble}
		amp[i] = opts.LineData{Value: s.Amplitude}
	}

	// Mode switches become vertical mark lines on the amplitude series.
	marks := make([]opts.MarkLineNameXAxisItem, 0, len(events))
	for _, ev := range events {
		marks = append(marks, opts.MarkLineNameXAxisItem{
			Name:  ev.Mode,
			XAxis: ev.Timestamp.Format("15:04:05"),
		})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Visualizer Session", Theme: "dark", Width: "1200px", Height: "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Band energy",
			Subtitle: fmt.Sprintf("session=%s style=%s lights=%d", sess.ID, sess.Style, sess.NumLights),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "level"}),
	)

	line.SetXAxis(times).
		AddSeries("bass", bass).
		AddSeries("mids", mids).
		AddSeries("treble", treble).
		AddSeries("amplitude", amp, charts.WithMarkLineNameXAxisItemOpts(marks...))

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
