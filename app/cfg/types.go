package cfg

import (
	"fmt"
	"net"
	"time"
)

type Cfg struct {
	// Server configuration
	Port         string
	APIAccessKey string
	UserAgent    string
	Timezone     string
	Debug        bool
	WorkerCount  int

	// Storage configuration
	DBPath    string
	FeedsFile string

	Redis     RedisCfg
	LLM       LLMCfg
	Twitter   TwitterCfg
	LinkedIn  LinkedInCfg
	Instagram InstagramCfg
	Intervals IntervalsCfg
	Posting   PostingCfg

	Version string
}

type RedisCfg struct {
	Host     string
	Port     string
	Password string
}

// Addr returns an empty string when Redis is not configured.
func (r RedisCfg) Addr() string {
	if r.Host == "" {
		return ""
	}
	return net.JoinHostPort(r.Host, r.Port)
}

type LLMCfg struct {
	APIKey  string
	Model   string
	BaseURL string
}

type TwitterCfg struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
	BearerToken  string
}

func (t TwitterCfg) Configured() bool {
	return t.BearerToken != ""
}

type LinkedInCfg struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RedirectURI  string
}

func (l LinkedInCfg) Configured() bool {
	return l.AccessToken != ""
}

type InstagramCfg struct {
	Username string
	Password string
	BaseURL  string
}

func (i InstagramCfg) Configured() bool {
	return i.Username != "" && i.Password != ""
}

type IntervalsCfg struct {
	RSSFetch          time.Duration
	TrendAnalysis     time.Duration
	ContentGeneration time.Duration
	PublishCheck      time.Duration
	AnalyticsFetch    time.Duration
}

type PostingCfg struct {
	HoursStart     int
	HoursEnd       int
	MaxPostsPerDay int
}

func (c *Cfg) Validate() error {
	if c.Posting.HoursStart < 0 || c.Posting.HoursStart > 23 {
		return fmt.Errorf("posting hours start must be within 0-23, got %d", c.Posting.HoursStart)
	}
	if c.Posting.HoursEnd < 1 || c.Posting.HoursEnd > 24 {
		return fmt.Errorf("posting hours end must be within 1-24, got %d", c.Posting.HoursEnd)
	}
	if c.Posting.HoursStart >= c.Posting.HoursEnd {
		return fmt.Errorf("posting hours start (%d) must be before end (%d)", c.Posting.HoursStart, c.Posting.HoursEnd)
	}
	if c.Posting.MaxPostsPerDay < 0 {
		return fmt.Errorf("max posts per day must not be negative, got %d", c.Posting.MaxPostsPerDay)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.WorkerCount)
	}

	intervals := map[string]time.Duration{
		"rss fetch":          c.Intervals.RSSFetch,
		"trend analysis":     c.Intervals.TrendAnalysis,
		"content generation": c.Intervals.ContentGeneration,
		"publish check":      c.Intervals.PublishCheck,
		"analytics fetch":    c.Intervals.AnalyticsFetch,
	}
	for name, d := range intervals {
		if d < time.Minute {
			return fmt.Errorf("%s interval must be at least one minute", name)
		}
	}

	return nil
}
