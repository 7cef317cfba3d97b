// 包 search 对接 pushshift 风格的搜索接口：
// GET <base>?subreddit=<频道>&size=<页大小>&before=<epoch 秒>，响应 {"data":[...]}。
package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go-subpull/internal/fetch"
	"go-subpull/internal/model"
)

// ErrMissingData 表示响应可解析但缺少 data 字段（或为 null）。
var ErrMissingData = errors.New("response has no data field")

// Query 为单页请求参数；Before 为开上界。
type Query struct {
	Channel string
	Size    int
	Before  int64
}

// Searcher 为分页器依赖的只读查询契约，测试中可替换为桩实现。
type Searcher interface {
	Search(ctx context.Context, q Query) ([]model.Record, error)
}

// Client 基于 fetch.Client 实现 Searcher。
type Client struct {
	fetch   *fetch.Client
	baseURL string
}

func New(cl *fetch.Client, baseURL string) *Client {
	return &Client{fetch: cl, baseURL: baseURL}
}

type page struct {
	Data *[]model.Record `json:"data"`
}

// Search 请求一页数据，并确认每条记录都带有可读的 created_utc。
func (c *Client) Search(ctx context.Context, q Query) ([]model.Record, error) {
	params := url.Values{}
	params.Set("subreddit", q.Channel)
	params.Set("size", strconv.Itoa(q.Size))
	params.Set("before", strconv.FormatInt(q.Before, 10))

	var p page
	if err := c.fetch.GetJSON(ctx, c.baseURL, params, &p); err != nil {
		return nil, fmt.Errorf("search %s before=%d: %w", q.Channel, q.Before, err)
	}
	if p.Data == nil {
		return nil, fmt.Errorf("search %s before=%d: %w", q.Channel, q.Before, ErrMissingData)
	}
	recs := *p.Data
	for i, r := range recs {
		if _, err := r.CreatedUTC(); err != nil {
			return nil, fmt.Errorf("search %s before=%d: record %d: %w", q.Channel, q.Before, i, err)
		}
	}
	return recs, nil
}
