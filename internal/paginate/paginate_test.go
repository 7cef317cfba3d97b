package paginate_test

import (
    "context"
    "errors"
    "sort"
    "testing"

    "go-subpull/internal/model"
    "go-subpull/internal/paginate"
    "go-subpull/internal/search"
)

// scripted 按顺序返回预置页，并记录每次请求的 before。
type scripted struct {
    pages   [][]model.Record
    errAt   int // 第几次调用返回 err（从 1 开始，0 表示不出错）
    err     error
    befores []int64
    sizes   []int
}

func (s *scripted) Search(_ context.Context, q search.Query) ([]model.Record, error) {
    s.befores = append(s.befores, q.Before)
    s.sizes = append(s.sizes, q.Size)
    n := len(s.befores)
    if s.errAt == n { return nil, s.err }
    if n > len(s.pages) { return nil, nil }
    return s.pages[n-1], nil
}

// dataset 模拟真实接口：返回 created_utc < before 的记录，按时间倒序，最多 size 条。
type dataset struct {
    ts    []int64
    calls int
}

func (d *dataset) Search(_ context.Context, q search.Query) ([]model.Record, error) {
    d.calls++
    sorted := append([]int64(nil), d.ts...)
    sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
    var out []model.Record
    for _, t := range sorted {
        if t < q.Before {
            out = append(out, rec(t))
            if len(out) == q.Size { break }
        }
    }
    return out, nil
}

func rec(ts int64) model.Record { return model.Record{"created_utc": ts} }

func ts(t *testing.T, r model.Record) int64 {
    t.Helper()
    v, err := r.CreatedUTC()
    if err != nil { t.Fatalf("created_utc: %v", err) }
    return v
}

func TestRun_WhiskeyScenario(t *testing.T) {
    stub := &scripted{pages: [][]model.Record{
        {rec(1577000000), rec(1576000000)},
        {rec(1400000000)},
        {},
    }}
    p := paginate.New(stub, paginate.Options{PageSize: 2})
    w := model.Window{Earliest: 1420070400, Watermark: 1577836800}
    res, err := p.Run(context.Background(), "whiskey", w)
    if err != nil { t.Fatalf("run: %v", err) }

    want := []int64{1577836800, 1576000000}
    if len(stub.befores) != len(want) { t.Fatalf("befores=%v want=%v", stub.befores, want) }
    for i := range want {
        if stub.befores[i] != want[i] { t.Fatalf("befores=%v want=%v", stub.befores, want) }
        if stub.sizes[i] != 2 { t.Fatalf("size=%d want=2", stub.sizes[i]) }
    }
    if len(res.Records) != 2 { t.Fatalf("records=%d want=2", len(res.Records)) }
    if ts(t, res.Records[0]) != 1577000000 || ts(t, res.Records[1]) != 1576000000 {
        t.Fatalf("unexpected records: %v", res.Records)
    }
    if res.Fetched != 3 || res.Trimmed != 1 || res.Pages != 2 { t.Fatalf("stats: %+v", res) }
    if res.Watermark != 1400000000 || res.Reason != paginate.ReasonWindow { t.Fatalf("end: wm=%d reason=%s", res.Watermark, res.Reason) }
}

func TestRun_BoundsAndTermination(t *testing.T) {
    // 每周一条，从窗口上界以下一直延伸到 earliest 之前约十周
    w := model.Window{Earliest: 1420070400, Watermark: 1577836800}
    var data []int64
    inWindow := 0
    for v := w.Watermark - 1; v > w.Earliest-70*86400; v -= 7 * 86400 {
        data = append(data, v)
        if v >= w.Earliest { inWindow++ }
    }
    // 一条恰好等于 earliest 的记录必须保留
    data = append(data, w.Earliest)
    inWindow++

    ds := &dataset{ts: data}
    var events []paginate.PageEvent
    p := paginate.New(ds, paginate.Options{PageSize: 50, OnPage: func(ev paginate.PageEvent) { events = append(events, ev) }})
    res, err := p.Run(context.Background(), "scotch", w)
    if err != nil { t.Fatalf("run: %v", err) }

    if len(res.Records) != inWindow { t.Fatalf("records=%d want=%d", len(res.Records), inWindow) }
    sawEarliest := false
    for _, r := range res.Records {
        v := ts(t, r)
        if v < w.Earliest || v >= w.Watermark { t.Fatalf("record %d outside window", v) }
        if v == w.Earliest { sawEarliest = true }
    }
    if !sawEarliest { t.Fatalf("record at earliest was dropped") }

    // 水位线严格下降（非空页）
    prev := w.Watermark
    for i, ev := range events {
        if ev.Before != prev { t.Fatalf("event %d before=%d want=%d", i, ev.Before, prev) }
        if ev.Count > 0 && ev.Watermark >= ev.Before { t.Fatalf("event %d watermark did not decrease: %+v", i, ev) }
        prev = ev.Watermark
    }
    maxCalls := len(data)/50 + 2
    if ds.calls > maxCalls { t.Fatalf("calls=%d exceeds %d", ds.calls, maxCalls) }
}

func TestRun_EmptyFirstPageIsEndOfData(t *testing.T) {
    stub := &scripted{pages: [][]model.Record{{}}}
    p := paginate.New(stub, paginate.Options{PageSize: 500})
    res, err := p.Run(context.Background(), "bourbon", model.Window{Earliest: 100, Watermark: 200})
    if err != nil { t.Fatalf("run: %v", err) }
    if len(res.Records) != 0 || res.Pages != 1 || res.Reason != paginate.ReasonEmpty { t.Fatalf("unexpected: %+v", res) }
    if res.Watermark != 200 { t.Fatalf("watermark moved on empty page: %d", res.Watermark) }
}

func TestRun_EmptyPageAfterData(t *testing.T) {
    stub := &scripted{pages: [][]model.Record{{rec(180), rec(150)}, {}}}
    p := paginate.New(stub, paginate.Options{PageSize: 2})
    res, err := p.Run(context.Background(), "c", model.Window{Earliest: 100, Watermark: 200})
    if err != nil { t.Fatalf("run: %v", err) }
    if len(res.Records) != 2 || res.Reason != paginate.ReasonEmpty { t.Fatalf("unexpected: %+v", res) }
    if len(stub.befores) != 2 || stub.befores[1] != 150 { t.Fatalf("befores=%v", stub.befores) }
}

func TestRun_BoundaryDuplicatesKept(t *testing.T) {
    // 接口把恰好等于 before 的记录也返回了
    stub := &scripted{pages: [][]model.Record{
        {{"id": "a", "created_utc": int64(100)}, {"id": "b", "created_utc": int64(90)}},
        {{"id": "b", "created_utc": int64(90)}, {"id": "c", "created_utc": int64(80)}},
    }}
    p := paginate.New(stub, paginate.Options{PageSize: 2})
    got, err := p.FetchChannel(context.Background(), "c", model.Window{Earliest: 85, Watermark: 200})
    if err != nil { t.Fatalf("fetch: %v", err) }
    if len(got) != 3 { t.Fatalf("len=%d want=3", len(got)) }
    ids := []string{got[0].ID(), got[1].ID(), got[2].ID()}
    if ids[0] != "a" || ids[1] != "b" || ids[2] != "b" { t.Fatalf("ids=%v", ids) }
}

func TestRun_StalledWatermarkStops(t *testing.T) {
    stub := &scripted{pages: [][]model.Record{{rec(150)}, {rec(150)}, {rec(150)}}}
    p := paginate.New(stub, paginate.Options{PageSize: 10})
    res, err := p.Run(context.Background(), "c", model.Window{Earliest: 100, Watermark: 200})
    if err != nil { t.Fatalf("run: %v", err) }
    if res.Reason != paginate.ReasonStalled || res.Pages != 2 { t.Fatalf("unexpected: %+v", res) }
    if res.Watermark != 150 { t.Fatalf("watermark=%d", res.Watermark) }
}

func TestRun_NewerThanWatermarkDoesNotRaiseIt(t *testing.T) {
    stub := &scripted{pages: [][]model.Record{{rec(500)}}}
    p := paginate.New(stub, paginate.Options{PageSize: 10})
    res, err := p.Run(context.Background(), "c", model.Window{Earliest: 100, Watermark: 200})
    if err != nil { t.Fatalf("run: %v", err) }
    if res.Watermark != 200 || res.Reason != paginate.ReasonStalled { t.Fatalf("unexpected: %+v", res) }
}

func TestRun_ErrorAborts(t *testing.T) {
    boom := errors.New("boom")
    stub := &scripted{pages: [][]model.Record{{rec(180)}}, errAt: 2, err: boom}
    p := paginate.New(stub, paginate.Options{PageSize: 1})
    _, err := p.Run(context.Background(), "c", model.Window{Earliest: 100, Watermark: 200})
    if !errors.Is(err, boom) { t.Fatalf("err=%v want boom", err) }
}

func TestRun_MalformedRecordAborts(t *testing.T) {
    stub := &scripted{pages: [][]model.Record{{{"id": "x"}}}}
    p := paginate.New(stub, paginate.Options{PageSize: 1})
    _, err := p.Run(context.Background(), "c", model.Window{Earliest: 100, Watermark: 200})
    if !errors.Is(err, model.ErrNoCreatedUTC) { t.Fatalf("err=%v", err) }
}

func TestRun_InvalidInput(t *testing.T) {
    p := paginate.New(&scripted{}, paginate.Options{PageSize: 1})
    if _, err := p.Run(context.Background(), "", model.Window{Earliest: 1, Watermark: 2}); err == nil { t.Fatalf("expect error for empty channel") }
    if _, err := p.Run(context.Background(), "c", model.Window{Earliest: 2, Watermark: 2}); err == nil { t.Fatalf("expect error for empty window") }
    p0 := paginate.New(&scripted{}, paginate.Options{})
    if _, err := p0.Run(context.Background(), "c", model.Window{Earliest: 1, Watermark: 2}); err == nil { t.Fatalf("expect error for page size 0") }
}

type countingPacer struct{ n int }

func (c *countingPacer) Wait(ctx context.Context) error { c.n++; return ctx.Err() }

func TestRun_PacerBeforeEveryRequest(t *testing.T) {
    stub := &scripted{pages: [][]model.Record{{rec(180)}, {rec(150)}, {rec(90)}}}
    pc := &countingPacer{}
    p := paginate.New(stub, paginate.Options{PageSize: 1, Pacer: pc})
    if _, err := p.Run(context.Background(), "c", model.Window{Earliest: 100, Watermark: 200}); err != nil { t.Fatalf("run: %v", err) }
    if pc.n != len(stub.befores) || pc.n != 3 { t.Fatalf("waits=%d requests=%d", pc.n, len(stub.befores)) }
}

func TestRun_CanceledContext(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    stub := &scripted{}
    p := paginate.New(stub, paginate.Options{PageSize: 1, Pacer: &countingPacer{}})
    if _, err := p.Run(ctx, "c", model.Window{Earliest: 100, Watermark: 200}); !errors.Is(err, context.Canceled) { t.Fatalf("err=%v", err) }
    if len(stub.befores) != 0 { t.Fatalf("request issued after cancel") }
}
