package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BTreeMap/PersonaPipe/internal/genai"
	"github.com/BTreeMap/PersonaPipe/internal/models"
	"github.com/BTreeMap/PersonaPipe/internal/output"
	"github.com/BTreeMap/PersonaPipe/internal/store"
	"github.com/BTreeMap/PersonaPipe/internal/util"
	"github.com/BTreeMap/PersonaPipe/internal/workflow"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for PersonaPipe state data
	DefaultStateDir = "/var/lib/personapipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "personapipe.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	envCfg := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(envCfg)

	// Build the run configuration from environment, run file and flags
	cfg, profile, events, err := buildRunConfig(envCfg, flags)
	if err != nil {
		slog.Error("Failed to build run configuration", "error", err)
		os.Exit(1)
	}

	client, err := buildModelClient(cfg)
	if err != nil {
		slog.Error("Failed to create model client", "error", err)
		os.Exit(1)
	}

	runStore, err := buildRunStore(flags)
	if err != nil {
		slog.Error("Failed to create run store", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping PersonaPipe",
		"model", cfg.Model,
		"apps", len(cfg.EnabledAppsWithData()),
		"output_dir", cfg.OutputDirectory)

	wf, err := workflow.NewWorkflow(cfg, client, workflow.WithRunStore(runStore))
	if err != nil {
		slog.Error("Failed to assemble workflow", "error", err)
		os.Exit(1)
	}

	result := wf.Run(profile, events)
	reportResult(result)

	manager := output.NewManager(cfg)
	if *flags.zipOutput && result.OutputPath != "" {
		if archive, err := manager.CreateArchive(result.OutputPath); err != nil {
			slog.Error("Failed to archive output", "error", err)
		} else {
			slog.Info("Output archived", "archive", archive)
		}
	}
	if *flags.keep > 0 {
		if _, err := manager.CleanupOldOutputs(*flags.keep); err != nil {
			slog.Error("Failed to clean up old outputs", "error", err)
		}
	}

	if !result.Success {
		os.Exit(1)
	}
	slog.Info("PersonaPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	OpenAIKey   string
	Model       string
	OutputDir   string
	StateDir    string
	DBDSN       string
	Seed        int
	Temperature float64
	EnableRefl  bool
	Fallback    bool
}

// Flags holds command line flag values
type Flags struct {
	runFile   *string
	outputDir *string
	openaiKey *string
	model     *string
	dbDSN     *string
	seed      *int64
	keep      *int
	zipOutput *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		Model:       os.Getenv("PERSONAPIPE_MODEL"),
		OutputDir:   os.Getenv("PERSONAPIPE_OUTPUT_DIR"),
		StateDir:    os.Getenv("PERSONAPIPE_STATE_DIR"),
		DBDSN:       os.Getenv("DATABASE_URL"),
		Seed:        util.ParseIntEnv("PERSONAPIPE_SEED", 0),
		Temperature: util.ParseFloatEnv("PERSONAPIPE_TEMPERATURE", models.NewConfig().Temperature),
		EnableRefl:  util.ParseBoolEnv("PERSONAPIPE_ENABLE_REFLECTION", true),
		Fallback:    util.ParseBoolEnv("PERSONAPIPE_USE_FALLBACK", true),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No PERSONAPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DBDSN == "" {
		config.DBDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DBDSN)
	}

	slog.Debug("environment variables loaded",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"PERSONAPIPE_MODEL", config.Model,
		"PERSONAPIPE_OUTPUT_DIR", config.OutputDir,
		"PERSONAPIPE_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		runFile:   flag.String("config", "", "path to a YAML run file with profile, events and config overrides"),
		outputDir: flag.String("out", config.OutputDir, "output directory for generated data (overrides $PERSONAPIPE_OUTPUT_DIR)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		model:     flag.String("model", config.Model, "model name (overrides $PERSONAPIPE_MODEL)"),
		dbDSN:     flag.String("db-dsn", config.DBDSN, "run history database DSN (overrides $DATABASE_URL)"),
		seed:      flag.Int64("seed", int64(config.Seed), "random seed for deterministic fallback synthesis, 0 for time-based"),
		keep:      flag.Int("keep", 0, "keep only the N newest output directories, 0 disables cleanup"),
		zipOutput: flag.Bool("zip", false, "create a zip archive of the output directory"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"runFile", *flags.runFile,
		"outputDir", *flags.outputDir,
		"openaiKeySet", *flags.openaiKey != "",
		"model", *flags.model,
		"dbDSN_set", *flags.dbDSN != "",
		"seed", *flags.seed,
		"keep", *flags.keep,
		"zip", *flags.zipOutput)

	return flags
}

// buildRunConfig merges defaults, environment values, the optional YAML run
// file and command line flags into the final run configuration.
func buildRunConfig(envCfg Config, flags Flags) (models.Config, map[string]any, []string, error) {
	cfg := models.NewConfig()
	cfg.APIKey = *flags.openaiKey
	cfg.Temperature = envCfg.Temperature
	cfg.EnableReflection = envCfg.EnableRefl
	cfg.UseFallbackSynthesis = envCfg.Fallback

	profile := exampleProfile()
	events := exampleEvents()

	if *flags.runFile != "" {
		runFile, err := LoadRunFile(*flags.runFile)
		if err != nil {
			return cfg, nil, nil, err
		}
		if err := runFile.Apply(&cfg); err != nil {
			return cfg, nil, nil, err
		}
		if len(runFile.Profile) > 0 {
			profile = runFile.Profile
		}
		if len(runFile.Events) > 0 {
			events = runFile.Events
		}
	} else {
		slog.Info("No run file given, using built-in example profile")
	}

	// Flags win over both environment and run file.
	if *flags.model != "" {
		cfg.Model = *flags.model
	}
	if *flags.outputDir != "" {
		cfg.OutputDirectory = *flags.outputDir
	}
	if *flags.seed != 0 {
		cfg.Seed = *flags.seed
	}
	return cfg, profile, events, nil
}

// buildModelClient constructs the OpenAI-backed client used by all stages.
func buildModelClient(cfg models.Config) (*genai.Client, error) {
	var genaiOpts []genai.Option
	if cfg.APIKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(cfg.APIKey))
	}
	if cfg.Model != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(cfg.Model))
	}
	return genai.NewClient(genaiOpts...)
}

// buildRunStore constructs run history storage from the DSN.
func buildRunStore(flags Flags) (store.RunStore, error) {
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL run store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite run store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// reportResult logs the run outcome per app.
func reportResult(result models.RunResult) {
	for _, app := range models.AllApps {
		validation, ok := result.ValidationResults[app]
		if !ok {
			continue
		}
		slog.Info("App result",
			"app", app,
			"entries", validation.EntryCount,
			"valid", validation.IsValid,
			"errors", validation.TotalErrors,
			"critical", validation.CriticalErrors)
	}
	slog.Info("Run complete",
		"success", result.Success,
		"output_path", result.OutputPath,
		"quality", result.ReflectionResults.OverallQuality,
		"errors", len(result.Errors))
	for _, e := range result.Errors {
		slog.Error("Run error", "error", e)
	}
}

// exampleProfile is the built-in demonstration profile used when no run file
// is supplied.
func exampleProfile() map[string]any {
	return map[string]any{
		"age":        28,
		"occupation": "Software Engineer",
		"location":   "San Francisco, CA",
		"lifestyle":  "active, tech-savvy, social",
		"interests":  []string{"technology", "hiking", "photography", "cooking"},
	}
}

func exampleEvents() []string {
	return []string{
		"Attending a tech conference next month",
		"Planning a weekend hiking trip with friends",
		"Preparing for a project deadline at work",
	}
}
