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
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"vc_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"vc_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"vc_agents" description:"Database name"`

	// Application configuration
	SeedsFile         string `long:"seeds-file" env:"SEEDS_FILE" default:"./seeds.yml" description:"Seed file with organizations and news feeds"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for pipeline stages"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// External service credentials
	OpenAIAPIKey     string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key for extraction and drafting"`
	PerplexityAPIKey string `long:"perplexity-api-key" env:"PERPLEXITY_API_KEY" description:"Perplexity API key for website discovery"`
	NeynarAPIKey     string `long:"neynar-api-key" env:"NEYNAR_API_KEY" description:"Neynar API key for Farcaster lookups"`

	// Pipeline tuning
	DealsLookbackDays int     `long:"deals-lookback-days" env:"DEALS_LOOKBACK_DAYS" default:"90" description:"How far back to ingest funding rounds"`
	RecrawlAfterDays  int     `long:"recrawl-after-days" env:"RECRAWL_AFTER_DAYS" default:"30" description:"Days before an organization's team page is crawled again"`
	MinConfidence     float64 `long:"min-confidence" env:"MIN_CONFIDENCE" default:"0.6" description:"Minimum confidence for accepting inferred social handles"`
	BatchSize         int     `long:"batch-size" env:"BATCH_SIZE" default:"25" description:"Maximum entities processed per stage run"`
	StuckRunMaxAge    int     `long:"stuck-run-max-age" env:"STUCK_RUN_MAX_AGE" default:"120" description:"Minutes before a running run is considered stuck"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"VC Agents/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
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

	cfg := &Cfg{
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		SeedsFile:         raw.SeedsFile,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		PerplexityAPIKey:  raw.PerplexityAPIKey,
		NeynarAPIKey:      raw.NeynarAPIKey,
		DealsLookbackDays: raw.DealsLookbackDays,
		RecrawlAfterDays:  raw.RecrawlAfterDays,
		MinConfidence:     raw.MinConfidence,
		BatchSize:         raw.BatchSize,
		StuckRunMaxAge:    raw.StuckRunMaxAge,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
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
