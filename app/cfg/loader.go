package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/regpipe.db" description:"SQLite database path"`

	// Application configuration
	DownloadDir       string `long:"download-dir" env:"DOWNLOAD_DIR" default:"./downloads" description:"Directory for retrieved document files"`
	ScheduleFile      string `long:"schedule-file" env:"SCHEDULE_FILE" default:"./schedules.yml" description:"Pipeline schedule configuration file"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Pipeline dispatch
	ExecutionMode  string `long:"execution-mode" env:"EXECUTION_MODE" default:"direct" choice:"direct" choice:"api" description:"Pipeline dispatch mode"`
	PipelineAPIURL string `long:"pipeline-api-url" env:"PIPELINE_API_URL" description:"Remote pipeline trigger URL (required for execution-mode=api)"`

	// External services
	PDFCoAPIKey string `long:"pdfco-api-key" env:"PDFCO_API_KEY" description:"PDF.co API key for OCR conversion"`
	GenAIAPIKey string `long:"genai-api-key" env:"GENAI_API_KEY" description:"Google GenAI API key for compliance analysis (optional)"`
	GenAIModel  string `long:"genai-model" env:"GENAI_MODEL" default:"gemini-2.0-flash" description:"GenAI model for compliance analysis"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RegPipe/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Karachi)"`
	Headless  bool   `long:"headless" env:"HEADLESS" description:"Run the browser headless"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.ExecutionMode == ExecutionModeAPI && raw.PipelineAPIURL == "" {
		return nil, fmt.Errorf("execution-mode=api requires pipeline-api-url")
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		DownloadDir:       raw.DownloadDir,
		ScheduleFile:      raw.ScheduleFile,
		Port:              raw.Port,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		ExecutionMode:     raw.ExecutionMode,
		PipelineAPIURL:    raw.PipelineAPIURL,
		PDFCoAPIKey:       raw.PDFCoAPIKey,
		GenAIAPIKey:       raw.GenAIAPIKey,
		GenAIModel:        raw.GenAIModel,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Headless:          raw.Headless,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
