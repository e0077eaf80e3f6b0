package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"safereport/internal/batch"
	"safereport/internal/llm"
	"safereport/internal/match"
	"safereport/internal/model"
	"safereport/internal/report"
	"safereport/internal/schema"
	"safereport/internal/xlsxio"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "safereport",
		Short: "Per-person safety training reports from violation and exam tables",
	}

	gen := generateCmd()
	root.AddCommand(gen, fieldsCmd())

	// Make "generate" the default when no subcommand is given.
	root.RunE = gen.RunE
	root.Flags().AddFlagSet(gen.Flags())

	return root
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate training analysis reports",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.StringP("violations", "v", "", "Path to the violation (两违) table")
	f.StringP("exams", "e", "", "Path to the training/exam table")
	f.StringSliceP("questions", "q", nil, "Paths to question bank files (repeatable)")
	f.StringP("output", "o", "", "Summary spreadsheet output path")
	f.String("json", "", "Report JSON output path (- for stdout)")
	f.Bool("ai", false, "Enrich risk analysis and suggestions via the generation API")
	f.Bool("ai-per-person", false, "Generate per person instead of per violation group (slower, more specific)")
	f.String("llm-url", "", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the generation API")
	f.String("llm-model", "moonshot-v1-8k", "Generation model name")
	f.IntP("concurrency", "c", 5, "Concurrent generation calls per wave")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func fieldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Show canonical fields and how a table's columns resolve",
		RunE:  runFields,
	}
	f := cmd.Flags()
	f.StringP("violations", "v", "", "Violation table to resolve (optional)")
	f.StringP("exams", "e", "", "Exam table to resolve (optional)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SAFEREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("safereport")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/safereport")
	v.AddConfigPath("/etc/safereport")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	vPath := v.GetString("violations")
	ePath := v.GetString("exams")
	if vPath == "" && ePath == "" {
		return fmt.Errorf("at least one of --violations and --exams is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var (
		vHeaders, eHeaders []string
		vRows, eRows       [][]string
		err                error
	)
	if vPath != "" {
		vHeaders, vRows, err = xlsxio.ReadTable(vPath)
		if err != nil {
			return fmt.Errorf("read violation table: %w", err)
		}
	}
	if ePath != "" {
		eHeaders, eRows, err = xlsxio.ReadTable(ePath)
		if err != nil {
			return fmt.Errorf("read exam table: %w", err)
		}
	}

	mapper := schema.NewMapper(slog.Default())
	parsed := mapper.ParseDatasets(vHeaders, vRows, eHeaders, eRows)
	slog.Info("parsed datasets",
		"persons", len(parsed.Persons),
		"violation_rows", len(vRows),
		"exam_rows", len(eRows),
		"skipped_violation_rows", parsed.SkippedViolationRows,
		"skipped_exam_rows", parsed.SkippedExamRows,
	)
	if len(parsed.Persons) == 0 {
		return fmt.Errorf("no persons resolved from input tables")
	}

	banks, err := loadBanks(v.GetStringSlice("questions"))
	if err != nil {
		return err
	}

	builder := report.NewBuilder(match.New(match.DefaultConfig()))
	reports, err := builder.BuildAll(ctx, parsed.Persons, banks, func(done, total int) {
		slog.Debug("baseline analysis progress", "done", done, "total", total)
	})
	if err != nil {
		return fmt.Errorf("build baseline reports: %w", err)
	}

	switch {
	case v.GetBool("ai-per-person"):
		if err := runPerPerson(ctx, v, reports); err != nil {
			return err
		}
	case v.GetBool("ai"):
		if err := runBatch(ctx, v, reports); err != nil {
			return err
		}
	}

	if out := v.GetString("output"); out != "" {
		if err := xlsxio.WriteSummary(out, reports); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		slog.Info("wrote summary spreadsheet", "path", out)
	}
	if jsonPath := v.GetString("json"); jsonPath != "" {
		if err := writeJSON(jsonPath, reports); err != nil {
			return err
		}
	}

	return nil
}

// runBatch enriches the reports in place via grouped generation calls. A
// cancelled or partially failed batch is not an error: everyone not covered
// keeps the baseline analysis.
func runBatch(ctx context.Context, v *viper.Viper, reports []model.Report) error {
	cfg := model.AIConfig{
		BaseURL: v.GetString("llm-url"),
		APIKey:  v.GetString("llm-key"),
		Model:   v.GetString("llm-model"),
		Enabled: true,
	}
	client := llm.New(cfg.BaseURL, cfg.APIKey, cfg.Model)
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("generation health check: %w", err)
	}

	orch := batch.New(client, v.GetInt("concurrency"), slog.Default())
	results, err := orch.Run(ctx, report.Pairs(reports), func(p model.BatchProgress) {
		slog.Info("batch progress",
			"completed", p.Completed, "total", p.Total,
			"failed", p.Failed, "group", p.CurrentGroup)
	})
	switch {
	case errors.Is(err, context.Canceled):
		slog.Warn("batch generation cancelled, remaining persons keep baseline analysis",
			"enriched", len(results))
	case err != nil:
		return fmt.Errorf("batch generation: %w", err)
	}

	report.MergeBatch(reports, results)
	return nil
}

// runPerPerson enriches every report with text generated from that person's
// own records, one call each. Cancellation keeps whatever was enriched.
func runPerPerson(ctx context.Context, v *viper.Viper, reports []model.Report) error {
	client := llm.New(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"))
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("generation health check: %w", err)
	}

	err := report.EnrichPerPerson(ctx, client, reports, slog.Default(), func(done, total int) {
		slog.Info("person generation progress", "done", done, "total", total)
	})
	if errors.Is(err, context.Canceled) {
		slog.Warn("person generation cancelled, remaining persons keep baseline analysis")
		return nil
	}
	return err
}

func loadBanks(paths []string) ([]model.QuestionBank, error) {
	var banks []model.QuestionBank
	for _, p := range paths {
		label := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		qb, err := xlsxio.ReadQuestionBank(p, label)
		if err != nil {
			return nil, fmt.Errorf("load question bank: %w", err)
		}
		slog.Info("loaded question bank", "path", p, "rows", len(qb.Rows))
		banks = append(banks, qb)
	}
	return banks, nil
}

func writeJSON(path string, reports []model.Report) error {
	var w io.Writer
	if path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create JSON output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := xlsxio.WriteReportsJSON(w, reports); err != nil {
		return err
	}
	if path != "-" {
		slog.Info("wrote report JSON", "path", path)
	}
	return nil
}

func runFields(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	printFields := func(title string, fields []schema.FieldSpec) {
		fmt.Printf("%s:\n", title)
		for _, f := range fields {
			fmt.Printf("  %-16s %s\n", f.Key, strings.Join(f.Aliases, " / "))
		}
	}
	printFields("两违表字段", schema.ViolationFields)
	printFields("实训表字段", schema.ExamFields)

	mapper := schema.NewMapper(slog.Default())
	show := func(path string, fields []schema.FieldSpec, resolve func([]string) schema.ColumnMap) error {
		headers, _, err := xlsxio.ReadTable(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		m := resolve(headers)
		fmt.Printf("\n%s:\n", path)
		for _, f := range fields {
			if idx := m[f.Key]; idx >= 0 && idx < len(headers) {
				fmt.Printf("  %s -> 第%d列 %q\n", f.Label, idx+1, headers[idx])
			} else {
				fmt.Printf("  %s -> 未匹配\n", f.Label)
			}
		}
		return nil
	}

	if p := v.GetString("violations"); p != "" {
		if err := show(p, schema.ViolationFields, mapper.MapViolations); err != nil {
			return err
		}
	}
	if p := v.GetString("exams"); p != "" {
		if err := show(p, schema.ExamFields, mapper.MapExams); err != nil {
			return err
		}
	}
	return nil
}
