package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Server configuration
	Port         string `long:"port" env:"PORT" default:"3000" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"Social-Bot-RSS-Reader/1.0" description:"User agent string for feed requests"`
	Timezone     string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for posting hours and daily limits (e.g., UTC, Europe/Berlin)"`
	Debug        bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of workers per queue lane"`

	// Storage configuration
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/social-comb.db" description:"SQLite database file"`
	FeedsFile string `long:"feeds-file" env:"FEEDS_FILE" description:"YAML file with feeds to register at startup (optional)"`

	// Redis configuration
	RedisHost     string `long:"redis-host" env:"REDIS_HOST" description:"Redis host for job run locks (optional)"`
	RedisPort     string `long:"redis-port" env:"REDIS_PORT" default:"6379" description:"Redis port"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`

	// LLM configuration
	OpenRouterAPIKey  string `long:"openrouter-api-key" env:"OPENROUTER_API_KEY" description:"OpenRouter API key"`
	OpenRouterModel   string `long:"openrouter-model" env:"OPENROUTER_MODEL" default:"nvidia/nemotron-3-nano-30b-a3b:free" description:"OpenRouter model name"`
	OpenRouterBaseURL string `long:"openrouter-base-url" env:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1" description:"OpenAI-compatible API base URL"`

	// Platform credentials
	TwitterAPIKey        string `long:"twitter-api-key" env:"TWITTER_API_KEY" description:"Twitter API key"`
	TwitterAPISecret     string `long:"twitter-api-secret" env:"TWITTER_API_SECRET" description:"Twitter API secret"`
	TwitterAccessToken   string `long:"twitter-access-token" env:"TWITTER_ACCESS_TOKEN" description:"Twitter access token"`
	TwitterAccessSecret  string `long:"twitter-access-secret" env:"TWITTER_ACCESS_SECRET" description:"Twitter access secret"`
	TwitterBearerToken   string `long:"twitter-bearer-token" env:"TWITTER_BEARER_TOKEN" description:"Twitter bearer token"`
	LinkedInClientID     string `long:"linkedin-client-id" env:"LINKEDIN_CLIENT_ID" description:"LinkedIn client ID"`
	LinkedInClientSecret string `long:"linkedin-client-secret" env:"LINKEDIN_CLIENT_SECRET" description:"LinkedIn client secret"`
	LinkedInAccessToken  string `long:"linkedin-access-token" env:"LINKEDIN_ACCESS_TOKEN" description:"LinkedIn OAuth access token"`
	LinkedInRedirectURI  string `long:"linkedin-redirect-uri" env:"LINKEDIN_REDIRECT_URI" description:"LinkedIn OAuth redirect URI"`
	InstagramUsername    string `long:"instagram-username" env:"INSTAGRAM_USERNAME" description:"Instagram username"`
	InstagramPassword    string `long:"instagram-password" env:"INSTAGRAM_PASSWORD" description:"Instagram password"`
	InstagramBaseURL     string `long:"instagram-base-url" env:"INSTAGRAM_BASE_URL" default:"https://i.instagram.com/api/v1" description:"Instagram private API base URL"`

	// Job intervals
	RSSFetchIntervalMins          int `long:"rss-fetch-interval" env:"RSS_FETCH_INTERVAL_MINS" default:"30" description:"Minutes between feed processing runs"`
	TrendAnalysisIntervalMins     int `long:"trend-analysis-interval" env:"TREND_ANALYSIS_INTERVAL_MINS" default:"60" description:"Minutes between trend analysis runs"`
	ContentGenerationIntervalMins int `long:"content-generation-interval" env:"CONTENT_GENERATION_INTERVAL_MINS" default:"120" description:"Minutes between content generation runs"`
	PublishCheckIntervalMins      int `long:"publish-check-interval" env:"PUBLISH_CHECK_INTERVAL_MINS" default:"5" description:"Minutes between scheduled publish checks"`
	AnalyticsFetchIntervalMins    int `long:"analytics-fetch-interval" env:"ANALYTICS_FETCH_INTERVAL_MINS" default:"360" description:"Minutes between analytics refreshes"`

	// Posting policy
	PostingHoursStart int `long:"posting-hours-start" env:"POSTING_HOURS_START" default:"9" description:"First hour of the posting window"`
	PostingHoursEnd   int `long:"posting-hours-end" env:"POSTING_HOURS_END" default:"21" description:"Hour the posting window closes"`
	MaxPostsPerDay    int `long:"max-posts-per-day" env:"MAX_POSTS_PER_DAY" default:"6" description:"Maximum scheduled or published posts per day"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("Warning: failed to load .env file: %v\n", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := fromRaw(raw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func fromRaw(raw rawCfg) *Cfg {
	return &Cfg{
		Port:         raw.Port,
		APIAccessKey: raw.APIAccessKey,
		UserAgent:    raw.UserAgent,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		WorkerCount:  raw.WorkerCount,
		DBPath:       raw.DBPath,
		FeedsFile:    raw.FeedsFile,
		Redis: RedisCfg{
			Host:     raw.RedisHost,
			Port:     raw.RedisPort,
			Password: raw.RedisPassword,
		},
		LLM: LLMCfg{
			APIKey:  raw.OpenRouterAPIKey,
			Model:   raw.OpenRouterModel,
			BaseURL: raw.OpenRouterBaseURL,
		},
		Twitter: TwitterCfg{
			APIKey:       raw.TwitterAPIKey,
			APISecret:    raw.TwitterAPISecret,
			AccessToken:  raw.TwitterAccessToken,
			AccessSecret: raw.TwitterAccessSecret,
			BearerToken:  raw.TwitterBearerToken,
		},
		LinkedIn: LinkedInCfg{
			ClientID:     raw.LinkedInClientID,
			ClientSecret: raw.LinkedInClientSecret,
			AccessToken:  raw.LinkedInAccessToken,
			RedirectURI:  raw.LinkedInRedirectURI,
		},
		Instagram: InstagramCfg{
			Username: raw.InstagramUsername,
			Password: raw.InstagramPassword,
			BaseURL:  raw.InstagramBaseURL,
		},
		Intervals: IntervalsCfg{
			RSSFetch:          time.Duration(raw.RSSFetchIntervalMins) * time.Minute,
			TrendAnalysis:     time.Duration(raw.TrendAnalysisIntervalMins) * time.Minute,
			ContentGeneration: time.Duration(raw.ContentGenerationIntervalMins) * time.Minute,
			PublishCheck:      time.Duration(raw.PublishCheckIntervalMins) * time.Minute,
			AnalyticsFetch:    time.Duration(raw.AnalyticsFetchIntervalMins) * time.Minute,
		},
		Posting: PostingCfg{
			HoursStart:     raw.PostingHoursStart,
			HoursEnd:       raw.PostingHoursEnd,
			MaxPostsPerDay: raw.MaxPostsPerDay,
		},
		Version: GetVersion(),
	}
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
