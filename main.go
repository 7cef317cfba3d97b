// 命令行入口：
// - 解析 flags 与 settings.yaml（缺省时使用内置的频道与时间窗口）
// - 初始化日志、HTTP 客户端、节流策略、可选的 SQLite 存档与指标
// - 逐个频道抓取并写出 <channel>_submissions.csv，最后打印总耗时（秒）
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go-subpull/internal/config"
	"go-subpull/internal/fetch"
	"go-subpull/internal/harvest"
	"go-subpull/internal/logx"
	"go-subpull/internal/metrics"
	"go-subpull/internal/pacer"
	"go-subpull/internal/search"
	"go-subpull/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml (optional)")
		channels   = flag.String("channels", "", "comma separated channel list, overrides CHANNELS")
	)
	flag.Parse()

	t0 := time.Now()
	err := run(*configPath, *channels)
	fmt.Println(time.Since(t0).Seconds())
	if err != nil {
		logx.Errorf("运行失败：%v", err)
		os.Exit(1)
	}
}

func run(configPath, channels string) error {
	// 1) 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.OverrideChannels(channels); err != nil {
		return fmt.Errorf("channels flag: %w", err)
	}
	// 2) 日志
	logx.Init(logx.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Locale: cfg.LogLocale, Color: cfg.LogColor})

	// 3) HTTP 客户端与搜索接口
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    cfg.API.Timeout,
		Retry:      cfg.API.Retry,
		UserAgent:  cfg.API.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("http client: %w", err)
	}
	api := search.New(cl, cfg.API.BaseURL)
	pc, err := pacer.New(cfg.Pacer, cfg.RequestDelay)
	if err != nil {
		return err
	}

	ctx := context.Background()
	// 4) 可选存档
	var st *store.SQLite
	if cfg.Database.Enabled {
		st, err = store.OpenSQLite(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer st.Close()
		if cfg.ResetOnStart {
			if err := st.Reset(ctx); err != nil {
				logx.Warnf("启动清理存档失败：%v", err)
			} else {
				logx.Infof("已清理存档表（submissions）")
			}
		}
	}

	// 5) 逐频道抓取
	m := metrics.New()
	sum, runErr := harvest.New(cfg, api, pc, st, m).Run(ctx)
	for _, c := range sum.Channels {
		logx.Infof("%s：%d 页，写出 %d 条 → %s（%s）", c.Channel, c.Pages, c.Written, c.Path, c.Elapsed.Round(time.Millisecond))
	}
	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logx.Warnf("%v", err)
		}
	}
	return runErr
}
