package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"go-subpull/internal/model"
)

// Columns 返回所有记录字段名的并集（按字典序）。
func Columns(recs []model.Record) []string {
	set := map[string]struct{}{}
	for _, r := range recs {
		for k := range r {
			set[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// WriteCSV 写出表格：首列为空表头的行号（从 0 开始），其余为字段并集；
// 行内缺失的字段留空。
func WriteCSV(w io.Writer, recs []model.Record) error {
	cols := Columns(recs)
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(cols)+1)
	header = append(header, "")
	header = append(header, cols...)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(cols)+1)
	for i, r := range recs {
		row[0] = strconv.Itoa(i)
		for j, c := range cols {
			v, ok := r[c]
			if !ok {
				row[j+1] = ""
				continue
			}
			s, err := Cell(v)
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", i, c, err)
			}
			row[j+1] = s
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Cell 把单个字段值渲染为 CSV 单元格文本：
// 字符串原样、数字保留 JSON 文本、布尔为 True/False、null 为空、对象与数组写成 JSON。
func Cell(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "True", nil
		}
		return "False", nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
