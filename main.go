package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"cdr-exceptions/classifier"
	"cdr-exceptions/config"
	"cdr-exceptions/correlate"
	rowerrors "cdr-exceptions/errors"
	"cdr-exceptions/metrics"
	"cdr-exceptions/models"
	"cdr-exceptions/parser"
	"cdr-exceptions/report"
	"cdr-exceptions/summary"
)

const timeLayout = "2006-01-02 15:04:05"

func main() {
	// Define flags
	dir := flag.String("dir", "", "Directory containing CDR/CMR CSV exports (required)")
	start := flag.String("start", "", `Window start, UTC, format "2006-01-02 15:04:05" (required)`)
	end := flag.String("end", "", `Window end, UTC, format "2006-01-02 15:04:05" (required)`)
	settingsPath := flag.String("settings", "", "Exception settings file, JSON or YAML (required)")
	causePath := flag.String("cause-codes", "", "Cause code description catalog, JSON or YAML")
	format := flag.String("format", "text", "Stdout format: text|json")
	htmlPath := flag.String("report", "", "Write the HTML report to this file")
	xlsxPath := flag.String("xlsx", "", "Write an XLSX workbook to this file")
	metricsAddr := flag.String("metrics-addr", "", "Address to expose Prometheus metrics (e.g., :9090)")
	pushGateway := flag.String("push-url", "", "Pushgateway URL to push metrics to (e.g., http://localhost:9091)")
	wait := flag.Bool("wait", false, "Keep process running after completion to allow for metric scraping")

	// Parse command-line flags
	flag.Parse()

	// Start metrics server if address provided
	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
			fmt.Printf("Metrics server listening on %s/metrics\n", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				fmt.Printf("Metrics server error: %v\n", err)
			}
		}()
	}

	// Validate required flags
	for _, required := range []struct{ name, value string }{
		{"-dir", *dir}, {"-start", *start}, {"-end", *end}, {"-settings", *settingsPath},
	} {
		if required.value == "" {
			fmt.Printf("Error: %s flag is required\n\nUsage:\n", required.name)
			flag.PrintDefaults()
			os.Exit(1)
		}
	}

	// Validate format enum
	if *format != "text" && *format != "json" {
		fmt.Printf("Error: format must be one of: text, json (got: %s)\n", *format)
		os.Exit(1)
	}

	window, err := parseWindow(*start, *end)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	settings, err := config.Load(*settingsPath)
	if err != nil {
		fmt.Printf("Error loading settings: %v\n", err)
		os.Exit(1)
	}

	causeDescs := map[int]string{}
	if *causePath != "" {
		causeDescs, err = config.LoadCauseCodes(*causePath)
		if err != nil {
			fmt.Printf("Error loading cause codes: %v\n", err)
			os.Exit(1)
		}
	}

	files, err := discoverFiles(*dir)
	if err != nil {
		fmt.Printf("Error reading input directory: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("Error: no .csv files found in %s\n", *dir)
		os.Exit(1)
	}

	analysis, err := run(files, window, settings)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Output based on format
	switch *format {
	case "json":
		fmt.Print(report.FormatJSON(analysis, causeDescs))
	default: // "text"
		fmt.Print(report.FormatText(analysis, causeDescs))
	}

	if *htmlPath != "" {
		if err := writeHTMLFile(*htmlPath, analysis, causeDescs); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing HTML report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("HTML report written to %s\n", *htmlPath)
	}
	if *xlsxPath != "" {
		if err := report.WriteXLSX(*xlsxPath, analysis, causeDescs); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing XLSX workbook: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("XLSX workbook written to %s\n", *xlsxPath)
	}

	// Handle metrics pushing or waiting
	if *pushGateway != "" {
		jobName := "cdr_exceptions"
		if err := push.New(*pushGateway, jobName).Gatherer(metrics.Registry).Push(); err != nil {
			fmt.Fprintf(os.Stderr, "Error pushing to Pushgateway: %v\n", err)
		} else {
			fmt.Println("\nMetrics successfully pushed to Pushgateway")
		}
	}

	if *wait && *metricsAddr != "" {
		fmt.Println("\nProcess kept alive for metric scraping. Press Ctrl+C to exit.")
		// Wait for interrupt signal
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		fmt.Println("\nExiting...")
	}
}

func writeHTMLFile(path string, a *models.Analysis, causeDescs map[int]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteHTML(f, a, causeDescs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseWindow(start, end string) (models.Window, error) {
	s, err := time.ParseInLocation(timeLayout, start, time.UTC)
	if err != nil {
		return models.Window{}, fmt.Errorf("incorrectly formatted start date/time: %w", err)
	}
	e, err := time.ParseInLocation(timeLayout, end, time.UTC)
	if err != nil {
		return models.Window{}, fmt.Errorf("incorrectly formatted end date/time: %w", err)
	}
	if e.Before(s) {
		return models.Window{}, fmt.Errorf("end date/time precedes start date/time")
	}
	return models.Window{Start: s, End: e}, nil
}

// discoverFiles lists the directory's .csv files in lexical order, so
// ingestion order (and with it last-write-wins collision resolution)
// is reproducible between runs on the same inputs.
func discoverFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// run drives the pipeline: parse every file row by row into the call
// index, finalize, filter to the window, then classify and aggregate.
func run(files []string, window models.Window, settings *config.Settings) (*models.Analysis, error) {
	metrics.ResetRunGauges()
	parseStart := time.Now()

	index := correlate.NewIndex()
	rowErrors := 0
	opened := 0
	for _, path := range files {
		n, errs, err := ingestFile(path, index)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}
		opened++
		rowErrors += errs
		log.Printf("loaded %d records from %s", n, path)
	}
	if opened == 0 {
		return nil, fmt.Errorf("no input file could be opened")
	}
	metrics.ParseDurationSeconds.Observe(time.Since(parseStart).Seconds())

	calls, orphans := index.Finalize()
	metrics.OrphanQualityRecords.Set(float64(orphans))

	analysis := &models.Analysis{
		Window:        window,
		RowErrors:     rowErrors,
		OrphanQuality: orphans,
	}
	if len(calls) == 0 {
		analysis.Empty = true
		return analysis, nil
	}

	classifyStart := time.Now()
	inWindow := correlate.FilterWindow(calls, window)
	analysis.CallsInWindow = len(inWindow)
	metrics.CallsInWindow.Set(float64(len(inWindow)))

	analysis.Groups, analysis.AmberCount, analysis.RedCount = classifier.Classify(inWindow, settings)
	analysis.Dates, analysis.Devices, analysis.Causes = summary.Aggregate(inWindow, settings)
	metrics.ExceptionGroups.WithLabelValues("amber").Set(float64(analysis.AmberCount))
	metrics.ExceptionGroups.WithLabelValues("red").Set(float64(analysis.RedCount))
	metrics.ClassifyDurationSeconds.Observe(time.Since(classifyStart).Seconds())

	log.Printf("%d calls in window, %d exceptions (%d red, %d amber)",
		len(inWindow), len(analysis.Groups), analysis.RedCount, analysis.AmberCount)
	return analysis, nil
}

// ingestFile parses one export file into the index. Row-level failures
// are counted and skipped; only I/O and unknown-schema errors surface,
// and the caller skips the file.
func ingestFile(path string, index *correlate.Index) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	r, err := parser.NewReader(f)
	if err != nil {
		if err == rowerrors.ErrUnknownSchema {
			metrics.FilesSkippedTotal.Inc()
		}
		return 0, 0, err
	}

	records, rowErrs := 0, 0
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		var rowErr *rowerrors.RowParseError
		if asRowError(err, &rowErr) {
			rowErrs++
			metrics.RowErrorsTotal.WithLabelValues(rowErr.Err.Error()).Inc()
			log.Printf("%s: %v", path, rowErr)
			continue
		}
		if err != nil {
			// A read failure mid-file abandons the remainder but keeps
			// what was already ingested.
			log.Printf("%s: read failed after %d records: %v", path, records, err)
			break
		}
		index.Ingest(rec)
		records++
		metrics.RowsParsedTotal.WithLabelValues(r.Schema().String()).Inc()
	}
	return records, rowErrs, nil
}

func asRowError(err error, target **rowerrors.RowParseError) bool {
	if err == nil {
		return false
	}
	re, ok := err.(*rowerrors.RowParseError)
	if !ok {
		return false
	}
	*target = re
	return true
}
