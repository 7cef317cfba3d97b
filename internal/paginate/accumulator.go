package paginate

import (
	"math"

	"go-subpull/internal/model"
)

// Accumulator 按追加顺序收集单个频道的记录，并维护其中最小的 created_utc。
// 每个频道新建一个，不跨频道复用。
type Accumulator struct {
	recs []model.Record
	ts   []int64
	min  int64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{min: math.MaxInt64}
}

// Append 追加一页记录；记录缺少 created_utc 时返回错误且不修改已有内容。
func (a *Accumulator) Append(page []model.Record) error {
	ts := make([]int64, len(page))
	for i, r := range page {
		t, err := r.CreatedUTC()
		if err != nil {
			return err
		}
		ts[i] = t
	}
	for i, r := range page {
		a.recs = append(a.recs, r)
		a.ts = append(a.ts, ts[i])
		if ts[i] < a.min {
			a.min = ts[i]
		}
	}
	return nil
}

// Min 返回已收集记录中最小的 created_utc；为空时 ok=false。
func (a *Accumulator) Min() (int64, bool) {
	if len(a.recs) == 0 {
		return 0, false
	}
	return a.min, true
}

func (a *Accumulator) Len() int { return len(a.recs) }

// Trim 返回满足 created_utc >= earliest 的记录（保持追加顺序）以及被丢弃的条数。
// 不修改累加器本身，重复调用结果一致。
func (a *Accumulator) Trim(earliest int64) ([]model.Record, int) {
	out := make([]model.Record, 0, len(a.recs))
	for i, r := range a.recs {
		if a.ts[i] >= earliest {
			out = append(out, r)
		}
	}
	return out, len(a.recs) - len(out)
}

// Filter 对任意记录切片应用同样的闭下界过滤。
func Filter(recs []model.Record, earliest int64) []model.Record {
	w := model.Window{Earliest: earliest}
	out := make([]model.Record, 0, len(recs))
	for _, r := range recs {
		if t, err := r.CreatedUTC(); err == nil && w.Retains(t) {
			out = append(out, r)
		}
	}
	return out
}
