package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// 配置结构体：覆盖服务与 CLI 所需的全部参数，缺省值对齐线上默认行为
type Config struct {
	App struct {
		Env      string `toml:"env"`
		LogLevel string `toml:"log_level"`
		HTTPAddr string `toml:"http_addr"`
		Console  bool   `toml:"console"` // 同时在终端输出矩阵表格
	} `toml:"app"`

	Market struct {
		Symbol        string `toml:"symbol"`
		RESTBaseURL   string `toml:"rest_base_url"`
		WSBaseURL     string `toml:"ws_base_url"`
		SnapshotLimit int    `toml:"snapshot_limit"` // 当月快照取最近 N 根 1M K 线
	} `toml:"market"`

	Matrix struct {
		StartYear       int      `toml:"start_year"`
		EndYear         int      `toml:"end_year"`
		CycleAnchorYear int      `toml:"cycle_anchor_year"`
		HalvingMonths   []string `toml:"halving_months"`
	} `toml:"matrix"`

	Seed struct {
		Path        string `toml:"path"`
		ArchivePath string `toml:"archive_path"` // SQLite 归档；留空则禁用
	} `toml:"seed"`

	Render struct {
		DebounceMS int `toml:"debounce_ms"`
	} `toml:"render"`

	Chart struct {
		SMAPeriod int `toml:"sma_period"`
	} `toml:"chart"`
}

// Load 读取并解析 TOML 配置文件；文件不存在时回退为内置默认值
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("解析 TOML 失败: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// 无配置文件可运行，全部走默认值
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回内置默认配置
func Default() *Config {
	cfg, _ := Load("")
	return cfg
}

func applyDefaults(c *Config) {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8686"
	}
	if c.Market.Symbol == "" {
		c.Market.Symbol = "BTCUSDT"
	}
	if c.Market.RESTBaseURL == "" {
		c.Market.RESTBaseURL = "https://api.binance.com"
	}
	if c.Market.WSBaseURL == "" {
		c.Market.WSBaseURL = "wss://stream.binance.com:9443"
	}
	if c.Market.SnapshotLimit <= 0 {
		c.Market.SnapshotLimit = 2
	}
	if c.Matrix.StartYear == 0 {
		c.Matrix.StartYear = 2011
	}
	if c.Matrix.EndYear == 0 {
		c.Matrix.EndYear = 2030
	}
	if c.Matrix.CycleAnchorYear == 0 {
		c.Matrix.CycleAnchorYear = 2024
	}
	if len(c.Matrix.HalvingMonths) == 0 {
		c.Matrix.HalvingMonths = []string{"2012-11", "2016-06", "2020-05", "2024-04", "2028-04"}
	}
	if c.Seed.Path == "" {
		c.Seed.Path = "data/monthly-seed.json"
	}
	if c.Render.DebounceMS <= 0 {
		c.Render.DebounceMS = 120
	}
	if c.Chart.SMAPeriod <= 0 {
		c.Chart.SMAPeriod = 12
	}
}

func validate(c *Config) error {
	if c.Matrix.StartYear > c.Matrix.EndYear {
		return fmt.Errorf("matrix.start_year(%d) 不能大于 end_year(%d)", c.Matrix.StartYear, c.Matrix.EndYear)
	}
	if c.Market.Symbol == "" {
		return errors.New("market.symbol 不能为空")
	}
	return nil
}
