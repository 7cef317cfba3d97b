// 包 harvest 负责主流程编排：按配置顺序逐个频道
// - 从同一个初始窗口向后翻页抓取
// - 写出频道对应的输出文件
// - （可选）整体替换 SQLite 存档中该频道的记录
//
// 任一频道出错即终止整个运行；此前已写出的文件保留。
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-subpull/internal/config"
	"go-subpull/internal/export"
	"go-subpull/internal/logx"
	"go-subpull/internal/metrics"
	"go-subpull/internal/pacer"
	"go-subpull/internal/paginate"
	"go-subpull/internal/search"
	"go-subpull/internal/store"
)

// Runner 持有配置/分页器/存档/指标；各频道之间不共享任何累加状态。
type Runner struct {
	cfg     *config.Config
	pager   *paginate.Paginator
	store   *store.SQLite
	metrics *metrics.Metrics
}

// ChannelResult 为单个频道的处理结果。
type ChannelResult struct {
	Channel   string
	Pages     int
	Fetched   int
	Trimmed   int
	Written   int
	Watermark int64
	Reason    paginate.Reason
	Path      string
	Elapsed   time.Duration
}

// Summary 为一次运行的汇总，Channels 只包含成功处理的频道。
type Summary struct {
	Channels []ChannelResult
	Elapsed  time.Duration
}

// New 创建 Runner；st 与 m 可为 nil（不存档 / 不记录指标）。
func New(cfg *config.Config, s search.Searcher, pc pacer.Pacer, st *store.SQLite, m *metrics.Metrics) *Runner {
	opts := paginate.Options{PageSize: cfg.PageSize, Pacer: pc}
	if m != nil {
		s = m.Timed(s)
		opts.OnPage = m.ObservePage
	}
	return &Runner{
		cfg:     cfg,
		pager:   paginate.New(s, opts),
		store:   st,
		metrics: m,
	}
}

// Run 依次处理全部频道，遇到第一个错误即返回（附带已完成频道的汇总）。
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary
	if len(r.cfg.Channels) == 0 {
		return sum, errors.New("no channels configured")
	}
	w := r.cfg.Window()
	logx.Infof("频道=%v 窗口=[%d, %d) 页大小=%d", r.cfg.Channels, w.Earliest, w.Watermark, r.cfg.PageSize)
	for _, ch := range r.cfg.Channels {
		res, err := r.processChannel(ctx, ch)
		if err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("channel %s: %w", ch, err)
		}
		sum.Channels = append(sum.Channels, res)
	}
	sum.Elapsed = time.Since(start)
	if r.metrics != nil {
		r.metrics.MarkSuccess(time.Now())
	}
	return sum, nil
}

// processChannel 处理单个频道：抓取→写文件→存档。
func (r *Runner) processChannel(ctx context.Context, ch string) (ChannelResult, error) {
	start := time.Now()
	w := r.cfg.Window()
	res, err := r.pager.Run(ctx, ch, w)
	if err != nil {
		return ChannelResult{}, err
	}
	logx.Infof("[%s] 抓取完成：页数=%d 获取=%d 丢弃=%d 结束原因=%s", ch, res.Pages, res.Fetched, res.Trimmed, res.Reason)

	format := export.Format(r.cfg.Output.Format)
	path := export.PathFor(r.cfg.Output.Dir, ch, r.cfg.Output.Suffix, format)
	meta := export.Meta{Channel: ch, Window: w}
	if err := export.WriteFile(path, format, meta, res.Records); err != nil {
		return ChannelResult{}, err
	}
	logx.Infof("[%s] 已写出 %s（%d 条）", ch, path, len(res.Records))

	if r.store != nil {
		if err := r.store.ReplaceChannel(ctx, ch, res.Records); err != nil {
			return ChannelResult{}, fmt.Errorf("archive: %w", err)
		}
	}
	if r.metrics != nil {
		r.metrics.ObserveWritten(ch, len(res.Records))
	}
	return ChannelResult{
		Channel:   ch,
		Pages:     res.Pages,
		Fetched:   res.Fetched,
		Trimmed:   res.Trimmed,
		Written:   len(res.Records),
		Watermark: res.Watermark,
		Reason:    res.Reason,
		Path:      path,
		Elapsed:   time.Since(start),
	}, nil
}
