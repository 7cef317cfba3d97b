package export

import (
	"io"

	"github.com/goccy/go-json"

	"go-subpull/internal/model"
)

// Document 为 JSON 输出的顶层结构。
type Document struct {
	Channel string         `json:"channel"`
	Window  model.Window   `json:"window"`
	Count   int            `json:"count"`
	Records []model.Record `json:"records"`
}

// WriteJSON 写出带缩进的 JSON 文档。
func WriteJSON(w io.Writer, meta Meta, recs []model.Record) error {
	if recs == nil {
		recs = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Channel: meta.Channel, Window: meta.Window, Count: len(recs), Records: recs})
}
