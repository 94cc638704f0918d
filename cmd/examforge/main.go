package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"examforge/internal/exam"
	"examforge/internal/handler"
	appI18n "examforge/internal/i18n"
	"examforge/internal/llm"
	"examforge/internal/llm/prompts"
	"examforge/internal/model"
	"examforge/internal/notify"
	"examforge/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examforge",
		Short: "LLM-backed exam generation and grading service",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examforge --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examforge.db", "SQLite database path")
	f.String("llm-url", "https://api.together.xyz/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for LLM (empty = degraded mode with fallback content)")
	f.String("llm-model", "meta-llama/Llama-3-8b-chat-hf", "LLM model name")
	f.Float32("llm-temperature", 0.7, "Sampling temperature")
	f.Int("llm-max-tokens", 2000, "Maximum completion tokens")
	f.IntP("num-questions", "n", 5, "Number of questions per exam (1-30)")
	f.StringP("difficulty", "d", "intermediate", "Exam difficulty (beginner, intermediate, advanced)")
	f.StringP("topic", "t", "Computer Science", "Exam topic")
	f.String("additional-details", "", "Extra instructions passed to question generation")
	f.String("prompts-dir", "", "Directory with prompt template overrides")
	f.StringP("lang", "l", "en", "Response language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exam results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "examforge.db", "SQLite database path")
	f.String("subject", "", "Subject name for output (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("subject")

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

	v.SetEnvPrefix("EXAMFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examforge")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examforge")
	v.AddConfigPath("/etc/examforge")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.BaseURL = v.GetString("llm-url")
	llmCfg.APIKey = v.GetString("llm-key")
	llmCfg.Model = v.GetString("llm-model")
	llmCfg.Temperature = float32(v.GetFloat64("llm-temperature"))
	llmCfg.MaxTokens = v.GetInt("llm-max-tokens")
	gateway := llm.New(llmCfg)
	if !gateway.Available() {
		slog.Warn("no LLM credential configured, serving fallback content")
	}

	numQuestions := v.GetInt("num-questions")
	if numQuestions < 1 || numQuestions > 30 {
		return fmt.Errorf("num-questions must be between 1 and 30, got %d", numQuestions)
	}

	examCfg := model.ExamConfig{
		NumQuestions:      numQuestions,
		Topic:             v.GetString("topic"),
		Difficulty:        v.GetString("difficulty"),
		AdditionalDetails: v.GetString("additional-details"),
	}

	logger := slog.Default()
	promptSet := prompts.NewSet(v.GetString("prompts-dir"))
	notifier := notify.New(db, logger)
	svc := exam.NewService(db, gateway, promptSet, notifier, examCfg, logger)
	h := handler.New(svc, db, gateway, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	r.Group(h.Routes)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", llmCfg.Model,
		"llm_url", llmCfg.BaseURL,
		"llm_available", gateway.Available(),
		"lang", lang,
		"num_questions", examCfg.NumQuestions,
		"difficulty", examCfg.Difficulty,
		"topic", examCfg.Topic,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAllExams(v.GetString("subject"))
	if err != nil {
		return fmt.Errorf("export exams: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
