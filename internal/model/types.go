// 包 model 定义抓取过程中流转的数据模型（记录/时间窗口）。
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// FieldCreatedUTC 为记录中唯一被核心逻辑解释的字段（秒级 epoch 时间戳）。
const FieldCreatedUTC = "created_utc"

// ErrNoCreatedUTC 表示记录缺少可读的 created_utc 字段。
var ErrNoCreatedUTC = errors.New("record has no readable created_utc")

// Record 为接口返回的一条帖子元数据：字段名 → 值，原样透传。
// 数字以 json.Number 保存，避免 id/时间戳在 float64 中失真。
type Record map[string]any

// CreatedUTC 读取 created_utc，兼容整数/浮点/数字字符串；小数部分向下取整。
func (r Record) CreatedUTC() (int64, error) {
	v, ok := r[FieldCreatedUTC]
	if !ok || v == nil {
		return 0, ErrNoCreatedUTC
	}
	switch t := v.(type) {
	case json.Number:
		return parseEpoch(string(t))
	case string:
		return parseEpoch(t)
	case float64:
		return floorEpoch(t)
	case float32:
		return floorEpoch(float64(t))
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d out of range", ErrNoCreatedUTC, t)
		}
		return int64(t), nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrNoCreatedUTC, v)
	}
}

// ID 返回记录的 id 字段（若存在），仅用于日志与存档。
func (r Record) ID() string {
	switch t := r["id"].(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func parseEpoch(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoCreatedUTC, s)
	}
	return floorEpoch(f)
}

func floorEpoch(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v", ErrNoCreatedUTC, f)
	}
	return int64(math.Floor(f)), nil
}

// Window 为一次运行的时间窗口：Earliest 为闭下界，Watermark 为初始开上界。
type Window struct {
	Earliest  int64 `json:"earliest" yaml:"earliest"`
	Watermark int64 `json:"initial_watermark" yaml:"initial_watermark"`
}

// Validate 校验 0 < Earliest < Watermark。
func (w Window) Validate() error {
	if w.Earliest <= 0 {
		return fmt.Errorf("earliest must be > 0, got %d", w.Earliest)
	}
	if w.Earliest >= w.Watermark {
		return fmt.Errorf("earliest (%d) must be < initial watermark (%d)", w.Earliest, w.Watermark)
	}
	return nil
}

// Retains 判断时间戳是否满足闭下界（保留 created_utc == earliest）。
func (w Window) Retains(ts int64) bool { return ts >= w.Earliest }
