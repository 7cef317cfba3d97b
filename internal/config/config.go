// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
// 默认值即原始抓取脚本中写死的常量：三个频道、2015-01-01 至 2020-01-01。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go-subpull/internal/model"
)

const (
	DefaultBaseURL          = "https://api.pushshift.io/reddit/search/submission"
	DefaultEarliest         = 1420070400 // 2015-01-01T00:00:00Z
	DefaultInitialWatermark = 1577836800 // 2020-01-01T00:00:00Z
	DefaultPageSize         = 500
	DefaultRequestDelay     = 300 * time.Millisecond
	MaxPageSize             = 1000
)

// DefaultChannels 为未配置 CHANNELS 时使用的频道列表。
var DefaultChannels = []string{"whiskey", "scotch", "bourbon"}

type Config struct {
	Channels         []string      `yaml:"CHANNELS"`
	Earliest         int64         `yaml:"EARLIEST"`
	InitialWatermark int64         `yaml:"INITIAL_WATERMARK"`
	PageSize         int           `yaml:"PAGE_SIZE"`
	RequestDelay     time.Duration `yaml:"REQUEST_DELAY"`
	Pacer            string        `yaml:"PACER"` // fixed|rate|none
	API              API           `yaml:"API"`
	Output           Output        `yaml:"OUTPUT"`
	Database         Database      `yaml:"DATABASE"`
	ResetOnStart     bool          `yaml:"RESET_ON_START"`
	Metrics          Metrics       `yaml:"METRICS"`
	Proxy            Proxy         `yaml:"PROXY"`
	LogLevel         string        `yaml:"LOG_LEVEL"`
	LogFormat        string        `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale        string        `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor         string        `yaml:"LOG_COLOR"`  // auto|always|never
}

type API struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Retry     int           `yaml:"retry"` // 默认 0：请求失败即终止本次运行
	UserAgent string        `yaml:"user_agent"`
}

type Output struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // csv|json
	Suffix string `yaml:"suffix"` // <channel><suffix>.<format>
}

type Database struct {
	Enabled bool   `yaml:"enabled"`
	Type    string `yaml:"type"` // sqlite (default)
	DSN     string `yaml:"dsn"`
}

type Metrics struct {
	// Textfile 非空时，运行结束后以 node_exporter textfile 格式写出指标
	Textfile string `yaml:"textfile"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Default 返回仅含默认值的配置（等价于空配置文件）。
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

// Load 从文件读取 YAML 并反序列化为 Config；文件不存在时回退到默认配置。
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		c.Channels = append([]string(nil), DefaultChannels...)
	}
	seen := make(map[string]bool, len(c.Channels))
	for i, ch := range c.Channels {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			return fmt.Errorf("CHANNELS[%d] is empty", i)
		}
		// 频道名会拼进输出文件名
		if strings.ContainsAny(ch, `/\`) {
			return fmt.Errorf("CHANNELS[%d] %q contains a path separator", i, ch)
		}
		if seen[ch] {
			return fmt.Errorf("duplicate channel %q", ch)
		}
		seen[ch] = true
		c.Channels[i] = ch
	}
	if c.Earliest == 0 {
		c.Earliest = DefaultEarliest
	}
	if c.InitialWatermark == 0 {
		c.InitialWatermark = DefaultInitialWatermark
	}
	if err := c.Window().Validate(); err != nil {
		return err
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageSize < 0 || c.PageSize > MaxPageSize {
		return fmt.Errorf("PAGE_SIZE must be in 1..%d, got %d", MaxPageSize, c.PageSize)
	}
	if c.RequestDelay < 0 {
		return errors.New("REQUEST_DELAY must be >= 0")
	}
	if c.RequestDelay == 0 {
		c.RequestDelay = DefaultRequestDelay
	}
	c.Pacer = strings.ToLower(strings.TrimSpace(c.Pacer))
	switch c.Pacer {
	case "":
		c.Pacer = "fixed"
	case "fixed", "rate", "none":
	default:
		return fmt.Errorf("unsupported PACER: %s", c.Pacer)
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 25 * time.Second
	}
	if c.API.Retry < 0 {
		return errors.New("API.retry must be >= 0")
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	switch c.Output.Format {
	case "":
		c.Output.Format = "csv"
	case "csv", "json":
	default:
		return fmt.Errorf("unsupported OUTPUT.format: %s", c.Output.Format)
	}
	if c.Output.Suffix == "" {
		c.Output.Suffix = "_submissions"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./submissions.db"
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// Window 返回本次运行所有频道共用的时间窗口。
func (c *Config) Window() model.Window {
	return model.Window{Earliest: c.Earliest, Watermark: c.InitialWatermark}
}

// OverrideChannels 用逗号分隔的列表替换 CHANNELS（命令行 -channels），随后重新校验。
func (c *Config) OverrideChannels(list string) error {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	c.Channels = strings.Split(list, ",")
	return c.Validate()
}
