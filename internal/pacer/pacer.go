// 包 pacer 提供请求前的节流策略，供分页器在每次请求前调用 Wait。
package pacer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer 在每次请求前阻塞，直到允许发出下一次请求或 ctx 结束。
type Pacer interface {
	Wait(ctx context.Context) error
}

// Fixed 每次请求前固定休眠 d（与原脚本的 sleep 行为一致）。
type Fixed time.Duration

func (f Fixed) Wait(ctx context.Context) error {
	d := time.Duration(f)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Limiter 为令牌桶节流：每 d 一个令牌，突发为 1，首个请求不等待。
type Limiter struct {
	l *rate.Limiter
}

func NewLimiter(d time.Duration) *Limiter {
	if d <= 0 {
		return &Limiter{l: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{l: rate.NewLimiter(rate.Every(d), 1)}
}

func (l *Limiter) Wait(ctx context.Context) error { return l.l.Wait(ctx) }

type nop struct{}

func (nop) Wait(ctx context.Context) error { return ctx.Err() }

// Nop 从不等待，用于测试。
var Nop Pacer = nop{}

// New 按名称构造节流策略：fixed|rate|none。
func New(kind string, d time.Duration) (Pacer, error) {
	switch kind {
	case "fixed", "":
		return Fixed(d), nil
	case "rate":
		return NewLimiter(d), nil
	case "none":
		return Nop, nil
	default:
		return nil, fmt.Errorf("unknown pacer %q", kind)
	}
}
