package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	SeedsFile         string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// External service credentials
	OpenAIAPIKey     string
	PerplexityAPIKey string
	NeynarAPIKey     string

	// Pipeline tuning
	DealsLookbackDays int
	RecrawlAfterDays  int
	MinConfidence     float64
	BatchSize         int
	StuckRunMaxAge    int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
