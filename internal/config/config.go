package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoggingAdapterConfig describes one configured log destination
type LoggingAdapterConfig struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
	} `yaml:"server"`

	Fetcher struct {
		UserAgent         string        `yaml:"user_agent"`
		RequestTimeout    time.Duration `yaml:"request_timeout" default:"30s"`
		MaxRetries        int           `yaml:"max_retries" default:"3"`
		RequestDelay      time.Duration `yaml:"request_delay" default:"500ms"`
		Parallelism       int           `yaml:"parallelism" default:"2"`
		NoOpeningsPhrases []string      `yaml:"no_openings_phrases"`
		TitlePattern      string        `yaml:"title_pattern"`
	} `yaml:"fetcher"`

	Browser struct {
		HeadlessMode  bool          `yaml:"headless_mode" default:"true"`
		StealthMode   bool          `yaml:"stealth_mode" default:"true"`
		ChromePath    string        `yaml:"chrome_path"`
		NavTimeout    time.Duration `yaml:"nav_timeout" default:"30s"`
		SettleDelay   time.Duration `yaml:"settle_delay" default:"2s"`
		MaxRetries    int           `yaml:"max_retries" default:"3"`
		Debug         bool          `yaml:"debug" default:"false"`
		ScreenshotDir string        `yaml:"screenshot_dir" default:"./screenshots"`
	} `yaml:"browser"`

	Workers struct {
		PoolSize         int           `yaml:"pool_size" default:"10"`
		QueueSize        int           `yaml:"queue_size" default:"100"`
		RateLimit        int           `yaml:"rate_limit" default:"60"` // requests per minute per domain
		Timeout          time.Duration `yaml:"timeout" default:"90s"`
		FailureThreshold int           `yaml:"failure_threshold" default:"5"`
		RecoveryTimeout  time.Duration `yaml:"recovery_timeout" default:"5m"`
	} `yaml:"workers"`

	BackgroundTasks struct {
		MaxConcurrentTasks int           `yaml:"max_concurrent_tasks" default:"50"`
		TaskTimeout        time.Duration `yaml:"task_timeout" default:"300s"`
		CleanupInterval    time.Duration `yaml:"cleanup_interval" default:"1h"`
		MaxTaskAge         time.Duration `yaml:"max_task_age" default:"24h"`
	} `yaml:"background_tasks"`

	Captcha struct {
		Provider        string        `yaml:"provider" default:"2captcha"`
		APIKey          string        `yaml:"api_key"`
		Timeout         time.Duration `yaml:"timeout" default:"120s"`
		EnableAutoSolve bool          `yaml:"enable_auto_solve" default:"true"`
	} `yaml:"captcha"`

	Firecrawl struct {
		Enabled    bool          `yaml:"enabled" default:"false"`
		APIKey     string        `yaml:"api_key"`
		APIURL     string        `yaml:"api_url" default:"https://api.firecrawl.dev"`
		Timeout    time.Duration `yaml:"timeout" default:"60s"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
	} `yaml:"firecrawl"`

	Redis struct {
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
		TaskTTL  time.Duration `yaml:"task_ttl" default:"24h"`
	} `yaml:"redis"`

	Sync struct {
		Enabled        bool          `yaml:"enabled" default:"true"`
		Auto           bool          `yaml:"auto" default:"false"`
		DefaultBaseURL string        `yaml:"default_base_url"`
		Path           string        `yaml:"path" default:"/api/jobs/sync"`
		Secret         string        `yaml:"secret"`
		Timeout        time.Duration `yaml:"timeout" default:"30s"`
		MaxRetries     int           `yaml:"max_retries" default:"3"`
	} `yaml:"sync"`

	Spaces struct {
		BucketURL       string `yaml:"bucket_url"`
		CDNEndpoint     string `yaml:"cdn_endpoint"`
		AccessKeyID     string `yaml:"access_key_id"`
		AccessKeySecret string `yaml:"access_key_secret"`
		Region          string `yaml:"region" default:"blr1"`
		BucketName      string `yaml:"bucket_name"`
	} `yaml:"spaces"`

	Logging struct {
		Level    string                 `yaml:"level" default:"info"`
		Format   string                 `yaml:"format" default:"json"`
		Adapters []LoggingAdapterConfig `yaml:"adapters"`
	} `yaml:"logging"`
}

// DefaultNoOpeningsPhrases are the page phrases treated as an explicit
// "this company has no open positions" signal
var DefaultNoOpeningsPhrases = []string{
	"no positions available",
	"no current openings",
	"no job availabilities",
	"no opportunities",
}

// DefaultTitlePattern matches job-title-looking phrases in free page text
const DefaultTitlePattern = `(?i)\b(?:engineer|developer|manager|analyst|specialist|coordinator|director|lead|senior|junior)[a-z ]{5,50}`

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables.
// The file is optional; defaults plus environment variables are enough
// to run the service.
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	// Set defaults
	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.Fetcher.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	config.Fetcher.RequestTimeout = 30 * time.Second
	config.Fetcher.MaxRetries = 3
	config.Fetcher.RequestDelay = 500 * time.Millisecond
	config.Fetcher.Parallelism = 2
	config.Fetcher.NoOpeningsPhrases = append([]string(nil), DefaultNoOpeningsPhrases...)
	config.Fetcher.TitlePattern = DefaultTitlePattern

	config.Browser.HeadlessMode = true
	config.Browser.StealthMode = true
	config.Browser.NavTimeout = 30 * time.Second
	config.Browser.SettleDelay = 2 * time.Second
	config.Browser.MaxRetries = 3
	config.Browser.ScreenshotDir = "./screenshots"

	config.Workers.PoolSize = 10
	config.Workers.QueueSize = 100
	config.Workers.RateLimit = 60
	config.Workers.Timeout = 90 * time.Second
	config.Workers.FailureThreshold = 5
	config.Workers.RecoveryTimeout = 5 * time.Minute

	config.BackgroundTasks.MaxConcurrentTasks = 50
	config.BackgroundTasks.TaskTimeout = 300 * time.Second
	config.BackgroundTasks.CleanupInterval = 1 * time.Hour
	config.BackgroundTasks.MaxTaskAge = 24 * time.Hour

	config.Captcha.Provider = "2captcha"
	config.Captcha.Timeout = 120 * time.Second
	config.Captcha.EnableAutoSolve = true

	config.Firecrawl.APIURL = "https://api.firecrawl.dev"
	config.Firecrawl.Timeout = 60 * time.Second
	config.Firecrawl.MaxRetries = 3

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.Timeout = 5 * time.Second
	config.Redis.TaskTTL = 24 * time.Hour

	config.Sync.Enabled = true
	config.Sync.Path = "/api/jobs/sync"
	config.Sync.Timeout = 30 * time.Second
	config.Sync.MaxRetries = 3

	config.Spaces.Region = "blr1"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))
			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if userAgent := os.Getenv("FETCHER_USER_AGENT"); userAgent != "" {
		c.Fetcher.UserAgent = userAgent
	}

	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		c.Browser.ChromePath = chromePath
	}

	if headless := os.Getenv("BROWSER_HEADLESS"); headless != "" {
		c.Browser.HeadlessMode = headless == "true" || headless == "1"
	}

	if debug := os.Getenv("BROWSER_DEBUG"); debug != "" {
		c.Browser.Debug = debug == "true" || debug == "1"
	}

	if poolSize := os.Getenv("WORKERS_POOL_SIZE"); poolSize != "" {
		if size, err := strconv.Atoi(poolSize); err == nil {
			c.Workers.PoolSize = size
		}
	}

	if queueSize := os.Getenv("WORKERS_QUEUE_SIZE"); queueSize != "" {
		if size, err := strconv.Atoi(queueSize); err == nil {
			c.Workers.QueueSize = size
		}
	}

	if captchaAPIKey := os.Getenv("CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Captcha.APIKey = captchaAPIKey
	}

	// Also support 2CAPTCHA_API_KEY for compatibility
	if captchaAPIKey := os.Getenv("2CAPTCHA_API_KEY"); captchaAPIKey != "" {
		c.Captcha.APIKey = captchaAPIKey
	}

	if firecrawlAPIKey := os.Getenv("FIRECRAWL_API_KEY"); firecrawlAPIKey != "" {
		c.Firecrawl.APIKey = firecrawlAPIKey
		c.Firecrawl.Enabled = true
	}

	if firecrawlAPIURL := os.Getenv("FIRECRAWL_API_URL"); firecrawlAPIURL != "" {
		c.Firecrawl.APIURL = firecrawlAPIURL
	}

	if firecrawlEnabled := os.Getenv("FIRECRAWL_ENABLED"); firecrawlEnabled != "" {
		c.Firecrawl.Enabled = firecrawlEnabled == "true" || firecrawlEnabled == "1"
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}

	if taskTTL := os.Getenv("REDIS_TASK_TTL"); taskTTL != "" {
		if ttl, err := time.ParseDuration(taskTTL); err == nil {
			c.Redis.TaskTTL = ttl
		}
	}

	if syncEnabled := os.Getenv("SYNC_ENABLED"); syncEnabled != "" {
		c.Sync.Enabled = syncEnabled == "true" || syncEnabled == "1"
	}

	if syncAuto := os.Getenv("SYNC_AUTO"); syncAuto != "" {
		c.Sync.Auto = syncAuto == "true" || syncAuto == "1"
	}

	if syncBaseURL := os.Getenv("SYNC_BASE_URL"); syncBaseURL != "" {
		c.Sync.DefaultBaseURL = syncBaseURL
	}

	if syncPath := os.Getenv("SYNC_PATH"); syncPath != "" {
		c.Sync.Path = syncPath
	}

	if syncSecret := os.Getenv("SYNC_SECRET"); syncSecret != "" {
		c.Sync.Secret = syncSecret
	}

	if syncTimeout := os.Getenv("SYNC_TIMEOUT"); syncTimeout != "" {
		if timeout, err := time.ParseDuration(syncTimeout); err == nil {
			c.Sync.Timeout = timeout
		}
	}

	if syncMaxRetries := os.Getenv("SYNC_MAX_RETRIES"); syncMaxRetries != "" {
		if retries, err := strconv.Atoi(syncMaxRetries); err == nil {
			c.Sync.MaxRetries = retries
		}
	}

	if bucketURL := os.Getenv("BUCKET_URL"); bucketURL != "" {
		c.Spaces.BucketURL = bucketURL
	}

	if cdnEndpoint := os.Getenv("BUCKET_CDN_ENDPOINT"); cdnEndpoint != "" {
		c.Spaces.CDNEndpoint = cdnEndpoint
	}

	if accessKeyID := os.Getenv("BUCKET_ACCESS_KEY_ID"); accessKeyID != "" {
		c.Spaces.AccessKeyID = accessKeyID
	}

	if accessKeySecret := os.Getenv("BUCKET_ACCESS_KEY_SECRET"); accessKeySecret != "" {
		c.Spaces.AccessKeySecret = accessKeySecret
	}

	if region := os.Getenv("BUCKET_REGION"); region != "" {
		c.Spaces.Region = region
	}

	if bucketName := os.Getenv("BUCKET_NAME"); bucketName != "" {
		c.Spaces.BucketName = bucketName
	}

	// Handle Betterstack adapter enabled/disabled via environment variable
	if betterstackEnabled := os.Getenv("BETTERSTACK_ENABLED"); betterstackEnabled != "" {
		enabled := betterstackEnabled == "true" || betterstackEnabled == "1"
		for i := range c.Logging.Adapters {
			if c.Logging.Adapters[i].Name == "betterstack" || c.Logging.Adapters[i].Type == "betterstack" {
				c.Logging.Adapters[i].Enabled = enabled
				break
			}
		}
	}

	c.loadLoggingAdapterEnvVars()
}

// loadLoggingAdapterEnvVars loads environment variables for logging adapters
func (c *Config) loadLoggingAdapterEnvVars() {
	for i := range c.Logging.Adapters {
		adapter := &c.Logging.Adapters[i]

		if adapter.Type != "betterstack" {
			continue
		}

		setOption := func(key string, value interface{}) {
			if adapter.Options == nil {
				adapter.Options = make(map[string]interface{})
			}
			adapter.Options[key] = value
		}

		if token := os.Getenv("BETTERSTACK_SOURCE_TOKEN"); token != "" {
			setOption("source_token", token)
		}

		if endpoint := os.Getenv("BETTERSTACK_ENDPOINT"); endpoint != "" {
			setOption("endpoint", endpoint)
		}

		if batchSize := os.Getenv("BETTERSTACK_BATCH_SIZE"); batchSize != "" {
			if size, err := strconv.Atoi(batchSize); err == nil {
				setOption("batch_size", size)
			}
		}

		if flushInterval := os.Getenv("BETTERSTACK_FLUSH_INTERVAL"); flushInterval != "" {
			setOption("flush_interval", flushInterval)
		}

		if maxRetries := os.Getenv("BETTERSTACK_MAX_RETRIES"); maxRetries != "" {
			if retries, err := strconv.Atoi(maxRetries); err == nil {
				setOption("max_retries", retries)
			}
		}

		if timeout := os.Getenv("BETTERSTACK_TIMEOUT"); timeout != "" {
			setOption("timeout", timeout)
		}

		if userAgent := os.Getenv("BETTERSTACK_USER_AGENT"); userAgent != "" {
			setOption("user_agent", userAgent)
		}
	}
}

// GetNoOpeningsPhrases returns the configured phrase list, falling back to the defaults
func (c *Config) GetNoOpeningsPhrases() []string {
	if len(c.Fetcher.NoOpeningsPhrases) > 0 {
		return c.Fetcher.NoOpeningsPhrases
	}
	return DefaultNoOpeningsPhrases
}

// GetTitlePattern returns the configured free-text title pattern, falling back to the default
func (c *Config) GetTitlePattern() string {
	if c.Fetcher.TitlePattern != "" {
		return c.Fetcher.TitlePattern
	}
	return DefaultTitlePattern
}
