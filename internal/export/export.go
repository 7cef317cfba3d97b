// 包 export 负责把单个频道的记录写成输出文件（CSV 或 JSON）。
// 先写同目录临时文件再 rename，失败时不会留下写了一半的文件。
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go-subpull/internal/model"
)

// Format 为输出格式。
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// PathFor 按频道名推导输出路径：<dir>/<channel><suffix>.<format>。
func PathFor(dir, channel, suffix string, f Format) string {
	return filepath.Join(dir, channel+suffix+"."+string(f))
}

// Meta 为 JSON 输出附带的元信息。
type Meta struct {
	Channel string
	Window  model.Window
}

// WriteFile 以指定格式写出记录。
func WriteFile(path string, f Format, meta Meta, recs []model.Record) error {
	switch f {
	case CSV:
		return atomicWrite(path, func(w io.Writer) error { return WriteCSV(w, recs) })
	case JSON:
		return atomicWrite(path, func(w io.Writer) error { return WriteJSON(w, meta, recs) })
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
}

func atomicWrite(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if err := fn(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
