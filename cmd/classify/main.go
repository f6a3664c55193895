// Command classify runs the tiered classification pipeline over a CSV export
// of support posts and writes back a labeled copy plus a metrics report.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	classifier "github.com/FrenchMajesty/tiered-classifier"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	var (
		inputPath  = flag.String("input", "", "input CSV file with a 'text' column (required)")
		outputPath = flag.String("output", "labeled.csv", "output CSV file")
		modeFlag   = flag.String("mode", "", "pipeline mode: fast, balanced or precise (overrides CLASSIFIER_MODE)")
		metricsDir = flag.String("metrics-dir", ".", "directory for the metrics report")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		return fmt.Errorf("missing -input")
	}

	logCfg := zap.NewProductionConfig()
	if *verbose {
		logCfg = zap.NewDevelopmentConfig()
	}
	log, err := logCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	envCfg, err := loadEnvConfig()
	if err != nil {
		return err
	}

	cfg := envCfg.pipelineConfig()
	cfg.Logger = log
	cfg.Progress = func(message string, fraction float64) {
		fmt.Fprintf(os.Stderr, "\r%-40s %3.0f%%", message, fraction*100)
	}
	if *modeFlag != "" {
		cfg.Mode = classifier.Mode(*modeFlag)
	}
	var llmOpts []classifier.LLMOption
	if envCfg.LLMModel != "" {
		llmOpts = append(llmOpts, classifier.WithLLMModel(envCfg.LLMModel))
	}
	if envCfg.LLMRateLimit > 0 {
		llmOpts = append(llmOpts, classifier.WithLLMRateLimit(envCfg.LLMRateLimit))
	}
	if len(llmOpts) > 0 {
		cfg.LLM = classifier.NewDefaultLLMTier(llmOpts...)
	}

	records, header, err := readRecords(*inputPath)
	if err != nil {
		return err
	}
	log.Info("loaded input", zap.String("file", *inputPath), zap.Int("records", len(records)))

	pipe, err := classifier.NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipe.Close()

	labeled, metrics, err := pipe.ClassifyCollection(context.Background(), records, "")
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	if err := writeRecords(*outputPath, header, labeled); err != nil {
		return err
	}

	reportPath, err := metrics.SaveToFile(*metricsDir)
	if err != nil {
		log.Warn("failed to save metrics report", zap.Error(err))
	}

	report := metrics.Report()
	log.Info("classification complete",
		zap.Int("records", report.TotalRecords),
		zap.Float64("seconds", report.TotalSeconds),
		zap.Float64("records_per_second", report.RecordsPerSecond),
		zap.Float64("cache_hit_rate_pct", report.CacheHitRatePct),
		zap.String("output", *outputPath),
		zap.String("metrics", reportPath))

	return nil
}

// readRecords loads the CSV and wraps each row into a Record. The text column
// is located by header name; every other column is carried through untouched.
func readRecords(path string) ([]classifier.Record, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("input CSV is empty")
	}

	header := rows[0]
	textCol := 0
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "text") {
			textCol = i
			break
		}
	}

	records := make([]classifier.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		fields := make(map[string]string, len(header))
		for j, name := range header {
			if j < len(row) && j != textCol {
				fields[name] = row[j]
			}
		}
		text := ""
		if textCol < len(row) {
			text = row[textCol]
		}
		records = append(records, classifier.Record{
			Index:  i,
			Text:   text,
			Fields: fields,
		})
	}
	return records, header, nil
}

// writeRecords writes the enriched copy: original columns plus the label fields
func writeRecords(path string, header []string, labeled []classifier.LabeledRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	outHeader := append(append([]string{}, header...),
		"sentiment", "topic", "urgency", "is_claim", "confidence", "label_source")
	if err := writer.Write(outHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range labeled {
		row := make([]string, 0, len(outHeader))
		for _, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), "text") {
				row = append(row, rec.Text)
			} else {
				row = append(row, rec.Fields[name])
			}
		}
		label := rec.Label
		row = append(row,
			label.Sentiment,
			label.Topic,
			label.Urgency,
			strconv.FormatBool(label.IsClaim != nil && *label.IsClaim),
			strconv.FormatFloat(label.Confidence, 'f', 2, 64),
			label.Source)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}
