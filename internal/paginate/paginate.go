// 包 paginate 实现按时间窗口向后翻页的抓取循环：
// - 以水位线（开上界）请求更早的记录，每页后把水位线降到已收集记录的最小 created_utc
// - 水位线 <= earliest、遇到空页或水位线不再下降时结束
// - 结束后丢弃 created_utc < earliest 的记录
//
// 恰好落在旧水位线上的记录可能在下一页重复出现，这里不做去重。
package paginate

import (
	"context"
	"errors"
	"fmt"

	"go-subpull/internal/logx"
	"go-subpull/internal/model"
	"go-subpull/internal/pacer"
	"go-subpull/internal/search"
)

// State 为抓取循环的状态。
type State int

const (
	Fetching State = iota
	Done
)

func (s State) String() string {
	if s == Done {
		return "done"
	}
	return "fetching"
}

// Reason 说明循环进入 Done 的原因。
type Reason string

const (
	ReasonWindow  Reason = "watermark_reached_earliest"
	ReasonEmpty   Reason = "empty_page"
	ReasonStalled Reason = "watermark_stalled"
)

// PageEvent 在每次请求完成后回调，Watermark 为本页处理后的新水位线。
type PageEvent struct {
	Channel   string
	Iteration int
	Before    int64
	Count     int
	Watermark int64
}

// Result 为单个频道的抓取结果。
type Result struct {
	Records   []model.Record
	Pages     int
	Fetched   int
	Trimmed   int
	Watermark int64
	Reason    Reason
}

// Options 为分页器参数。
type Options struct {
	PageSize int
	Pacer    pacer.Pacer
	OnPage   func(PageEvent)
}

// Paginator 无内部可变状态，可被多个频道依次复用。
type Paginator struct {
	search   search.Searcher
	pageSize int
	pacer    pacer.Pacer
	onPage   func(PageEvent)
}

func New(s search.Searcher, opts Options) *Paginator {
	if opts.Pacer == nil {
		opts.Pacer = pacer.Nop
	}
	return &Paginator{search: s, pageSize: opts.PageSize, pacer: opts.Pacer, onPage: opts.OnPage}
}

// FetchChannel 抓取一个频道在窗口内的全部记录（按追加顺序，不保证按时间排序）。
func (p *Paginator) FetchChannel(ctx context.Context, channel string, w model.Window) ([]model.Record, error) {
	res, err := p.Run(ctx, channel, w)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Run 执行抓取循环并返回带统计信息的结果。任何请求错误都会直接返回，不做重试。
func (p *Paginator) Run(ctx context.Context, channel string, w model.Window) (Result, error) {
	if channel == "" {
		return Result{}, errors.New("empty channel")
	}
	if err := w.Validate(); err != nil {
		return Result{}, err
	}
	if p.pageSize <= 0 {
		return Result{}, fmt.Errorf("invalid page size %d", p.pageSize)
	}

	acc := NewAccumulator()
	res := Result{Watermark: w.Watermark, Reason: ReasonWindow}
	state := Fetching
	for state == Fetching && res.Watermark > w.Earliest {
		if err := p.pacer.Wait(ctx); err != nil {
			return Result{}, err
		}
		before := res.Watermark
		page, err := p.search.Search(ctx, search.Query{Channel: channel, Size: p.pageSize, Before: before})
		if err != nil {
			return Result{}, fmt.Errorf("channel %s page %d: %w", channel, res.Pages+1, err)
		}
		res.Pages++
		if err := acc.Append(page); err != nil {
			return Result{}, fmt.Errorf("channel %s page %d: %w", channel, res.Pages, err)
		}
		m, _ := acc.Min()
		switch {
		case len(page) == 0:
			state, res.Reason = Done, ReasonEmpty
		case m < before:
			res.Watermark = m
		default:
			// 接口忽略了 before，或整页都落在旧水位线上
			logx.Warnf("[%s] 水位线未下降（before=%d，本页 %d 条），提前结束", channel, before, len(page))
			state, res.Reason = Done, ReasonStalled
		}
		logx.Debugf("[%s] 第 %d 页：before=%d 条数=%d 新水位线=%d", channel, res.Pages, before, len(page), res.Watermark)
		if p.onPage != nil {
			p.onPage(PageEvent{
				Channel:   channel,
				Iteration: res.Pages,
				Before:    before,
				Count:     len(page),
				Watermark: res.Watermark,
			})
		}
	}

	res.Fetched = acc.Len()
	res.Records, res.Trimmed = acc.Trim(w.Earliest)
	return res, nil
}
