package export_test

import (
    "bytes"
    "encoding/csv"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/goccy/go-json"

    "go-subpull/internal/export"
    "go-subpull/internal/model"
)

func sample() []model.Record {
    return []model.Record{
        {"id": "a1", "created_utc": json.Number("1577000000"), "title": "Lagavulin, 16", "over_18": false},
        {"id": "a2", "created_utc": json.Number("1576000000"), "score": json.Number("7"), "media": map[string]any{"k": "v"}, "flair": nil},
    }
}

func TestWriteCSV_UnionColumnsAndIndex(t *testing.T) {
    var buf bytes.Buffer
    if err := export.WriteCSV(&buf, sample()); err != nil { t.Fatalf("write: %v", err) }
    rows, err := csv.NewReader(&buf).ReadAll()
    if err != nil { t.Fatalf("read back: %v", err) }
    if len(rows) != 3 { t.Fatalf("rows=%d want=3", len(rows)) }
    wantHeader := []string{"", "created_utc", "flair", "id", "media", "over_18", "score", "title"}
    if strings.Join(rows[0], "|") != strings.Join(wantHeader, "|") { t.Fatalf("header=%q", rows[0]) }
    if strings.Join(rows[1], "|") != "0|1577000000||a1||False||Lagavulin, 16" { t.Fatalf("row1=%q", rows[1]) }
    if strings.Join(rows[2], "|") != `1|1576000000||a2|{"k":"v"}||7|` { t.Fatalf("row2=%q", rows[2]) }
}

func TestCell(t *testing.T) {
    cases := map[string]any{
        "":      nil,
        "True":  true,
        "1.5":   1.5,
        "42":    int64(42),
        "[1,2]": []any{json.Number("1"), json.Number("2")},
    }
    for want, v := range cases {
        got, err := export.Cell(v)
        if err != nil || got != want { t.Fatalf("Cell(%#v)=%q,%v want %q", v, got, err, want) }
    }
}

func TestWriteFile_CSVAndJSON(t *testing.T) {
    dir := filepath.Join(t.TempDir(), "nested")
    w := model.Window{Earliest: 1420070400, Watermark: 1577836800}

    p := export.PathFor(dir, "whiskey", "_submissions", export.CSV)
    if filepath.Base(p) != "whiskey_submissions.csv" { t.Fatalf("path=%s", p) }
    if err := export.WriteFile(p, export.CSV, export.Meta{Channel: "whiskey", Window: w}, sample()); err != nil { t.Fatalf("write csv: %v", err) }

    jp := export.PathFor(dir, "whiskey", "_submissions", export.JSON)
    if err := export.WriteFile(jp, export.JSON, export.Meta{Channel: "whiskey", Window: w}, sample()); err != nil { t.Fatalf("write json: %v", err) }
    b, _ := os.ReadFile(jp)
    var doc export.Document
    if err := json.Unmarshal(b, &doc); err != nil { t.Fatalf("decode: %v", err) }
    if doc.Channel != "whiskey" || doc.Count != 2 || len(doc.Records) != 2 || doc.Window != w { t.Fatalf("doc=%+v", doc) }

    // 临时文件不应残留
    entries, _ := os.ReadDir(dir)
    if len(entries) != 2 { t.Fatalf("entries=%d want=2", len(entries)) }
}

func TestWriteFile_EmptyChannel(t *testing.T) {
    dir := t.TempDir()
    p := export.PathFor(dir, "empty", "_submissions", export.CSV)
    if err := export.WriteFile(p, export.CSV, export.Meta{Channel: "empty"}, nil); err != nil { t.Fatalf("write: %v", err) }
    if _, err := os.Stat(p); err != nil { t.Fatalf("artifact missing: %v", err) }

    jp := export.PathFor(dir, "empty", "_submissions", export.JSON)
    if err := export.WriteFile(jp, export.JSON, export.Meta{Channel: "empty"}, nil); err != nil { t.Fatalf("write json: %v", err) }
    b, _ := os.ReadFile(jp)
    var doc export.Document
    if err := json.Unmarshal(b, &doc); err != nil { t.Fatalf("decode: %v", err) }
    if doc.Count != 0 || doc.Records == nil { t.Fatalf("records should be an empty array: %s", b) }
}

func TestWriteFile_UnknownFormat(t *testing.T) {
    if err := export.WriteFile(filepath.Join(t.TempDir(), "x"), export.Format("xml"), export.Meta{}, nil); err == nil { t.Fatalf("expect error") }
}
