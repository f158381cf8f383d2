package viewer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hsr-monitor/internal/apperr"
	"hsr-monitor/internal/ftc"
	"hsr-monitor/internal/notice"
	"hsr-monitor/internal/watermark"
)

type fakeFetcher struct {
	batch []notice.Notice
	err   error
	last  ftc.Query
}

func (f *fakeFetcher) Fetch(ctx context.Context, q ftc.Query) ([]notice.Notice, error) {
	f.last = q
	return f.batch, f.err
}

func sampleBatch() []notice.Notice {
	return []notice.Notice{
		{ID: "3", TransactionNumber: "20240003", Date: "2024-01-03", Title: "Gamma / Delta", Acquirer: "Gamma", Target: "Delta", Created: "2024-01-03T10:00:00Z", Link: notice.BuildLink("20240003")},
		{ID: "2", TransactionNumber: "20240002", Date: "2024-01-02", Title: "Beta / Zeta", Acquirer: "Beta", Created: "2024-01-02T10:00:00Z", Link: notice.BuildLink("20240002")},
		{ID: "1", Date: "", Title: "Alpha / Omega", Acquirer: "Alpha", Target: "Omega", Created: "2024-01-01T10:00:00Z"},
	}
}

func newStore(t *testing.T, value string) *watermark.FileStore {
	t.Helper()
	s := watermark.NewFileStore(filepath.Join(t.TempDir(), "last_visit.json"))
	if value != "" {
		if err := s.Write(context.Background(), value); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestViewer_FirstVisitFlagsNothing(t *testing.T) {
	store := newStore(t, "")
	v := New(&fakeFetcher{batch: sampleBatch()}, store)

	view, err := v.Load(context.Background(), Options{Limit: 50, SortBy: SortDate, Desc: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if view.Summary.Total != 3 || view.Summary.New != 0 {
		t.Errorf("Summary = %+v, want 3 total, 0 new", view.Summary)
	}
	for _, r := range view.Rows {
		if r.IsNew {
			t.Errorf("row %s flagged new on first visit", r.ID)
		}
	}
	got, ok, _ := store.Read(context.Background())
	if !ok || got != "2024-01-03T10:00:00Z" {
		t.Errorf("watermark after load = %q, want advanced to max created", got)
	}
}

func TestViewer_FlagsRowsSinceLastVisit(t *testing.T) {
	store := newStore(t, "2024-01-01T10:00:00Z")
	f := &fakeFetcher{batch: sampleBatch()}
	v := New(f, store)

	view, err := v.Load(context.Background(), Options{Keyword: "Beta", Limit: 25, SortBy: SortDate, Desc: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.last.Keyword != "Beta" || f.last.Limit != 25 {
		t.Errorf("query = %+v, want keyword and limit forwarded", f.last)
	}
	if view.Summary.New != 2 || view.Summary.LatestDate != "2024-01-03" {
		t.Errorf("Summary = %+v", view.Summary)
	}
	statuses := map[string]string{}
	for _, r := range view.Rows {
		statuses[r.ID] = r.Status()
	}
	want := map[string]string{"3": StatusNew, "2": StatusNew, "1": ""}
	for id, s := range want {
		if statuses[id] != s {
			t.Errorf("row %s status = %q, want %q", id, statuses[id], s)
		}
	}
}

func TestViewer_FilteredViewKeepsNewerWatermark(t *testing.T) {
	store := newStore(t, "2024-05-01T00:00:00Z")
	f := &fakeFetcher{batch: []notice.Notice{
		{ID: "1", Title: "Acme / Widget", Created: "2024-01-01T00:00:00Z"},
	}}
	v := New(f, store)

	view, err := v.Load(context.Background(), Options{Keyword: "Acme", Limit: 50})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if view.Summary.New != 0 {
		t.Errorf("New = %d, want 0", view.Summary.New)
	}
	got, _, _ := store.Read(context.Background())
	if got != "2024-05-01T00:00:00Z" {
		t.Errorf("watermark after filtered view = %q, want 2024-05-01T00:00:00Z", got)
	}
}

func TestViewer_FlagsRowsWithoutIDs(t *testing.T) {
	store := newStore(t, "2024-01-02T00:00:00Z")
	f := &fakeFetcher{batch: []notice.Notice{
		{Title: "Newer", Created: "2024-01-03T00:00:00Z"},
		{Title: "Older", Created: "2024-01-01T00:00:00Z"},
		{Title: "No timestamp"},
	}}
	v := New(f, store)

	view, err := v.Load(context.Background(), Options{Limit: 50, SortBy: SortTitle, Desc: false})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := map[string]bool{"Newer": true, "Older": false, "No timestamp": false}
	for _, r := range view.Rows {
		if r.IsNew != want[r.Title] {
			t.Errorf("row %q IsNew = %v, want %v", r.Title, r.IsNew, want[r.Title])
		}
	}
	if view.Summary.New != 1 {
		t.Errorf("New = %d, want 1", view.Summary.New)
	}
}

func TestViewer_EmptyLeavesWatermark(t *testing.T) {
	store := newStore(t, "2024-01-01T10:00:00Z")
	v := New(&fakeFetcher{}, store)

	view, err := v.Load(context.Background(), Options{Limit: 50})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !view.Empty() {
		t.Fatalf("Empty() = false, want true")
	}
	if got := Render(view); !strings.Contains(got, EmptyMessage) {
		t.Errorf("Render() = %q, want empty message", got)
	}
	got, _, _ := store.Read(context.Background())
	if got != "2024-01-01T10:00:00Z" {
		t.Errorf("watermark = %q, want unchanged", got)
	}
}

func TestViewer_UpstreamErrorReturned(t *testing.T) {
	upstream := &apperr.UpstreamError{StatusCode: 500, Err: errors.New("boom")}
	v := New(&fakeFetcher{err: upstream}, newStore(t, ""))

	_, err := v.Load(context.Background(), Options{Limit: 50})
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Load() error = %v, want UpstreamError", err)
	}
	if msg := ErrorMessage(err); !strings.Contains(msg, "Unable to load") {
		t.Errorf("ErrorMessage() = %q", msg)
	}
}

func TestViewer_CorruptStateTreatedAsFirstVisit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_visit.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	v := New(&fakeFetcher{batch: sampleBatch()}, watermark.NewFileStore(path))

	view, err := v.Load(context.Background(), Options{Limit: 50})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if view.Summary.New != 0 {
		t.Errorf("New = %d, want 0", view.Summary.New)
	}
}

func TestSort(t *testing.T) {
	rows := func() []Row {
		return []Row{
			{Notice: notice.Notice{ID: "a", Date: "2024-01-02", Target: "Zeta"}},
			{Notice: notice.Notice{ID: "b", Date: "", Target: "Alpha"}, IsNew: true},
			{Notice: notice.Notice{ID: "c", Date: "2024-01-03", Target: ""}},
			{Notice: notice.Notice{ID: "d", Date: "2024-01-02", Target: "Mu"}, IsNew: true},
		}
	}

	tests := []struct {
		name string
		key  SortKey
		desc bool
		want string
	}{
		{name: "date desc, missing last", key: SortDate, desc: true, want: "cadb"},
		{name: "date asc, missing last, stable ties", key: SortDate, desc: false, want: "adcb"},
		{name: "target asc", key: SortTarget, desc: false, want: "bdac"},
		{name: "target desc", key: SortTarget, desc: true, want: "adbc"},
		{name: "status desc keeps order among new", key: SortStatus, desc: true, want: "bdac"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rows()
			Sort(r, tt.key, tt.desc)
			var got strings.Builder
			for _, row := range r {
				got.WriteString(row.ID)
			}
			if got.String() != tt.want {
				t.Errorf("Sort() order = %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in      string
		want    SortKey
		wantErr bool
	}{
		{in: "", want: SortDate},
		{in: "Transaction_Number", want: SortTransactionNumber},
		{in: "status", want: SortStatus},
		{in: "created", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortKey(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSortKey(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseSortKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if desc, err := ParseOrder("asc"); err != nil || desc {
		t.Errorf("ParseOrder(asc) = %v, %v", desc, err)
	}
	if desc, err := ParseOrder(""); err != nil || !desc {
		t.Errorf("ParseOrder(\"\") = %v, %v", desc, err)
	}
	if _, err := ParseOrder("sideways"); err == nil {
		t.Error("ParseOrder(sideways) error = nil")
	}
}

func TestWriteCSV(t *testing.T) {
	rows := []Row{
		{Notice: notice.Notice{Date: "2024-01-03", Target: "Delta", Acquirer: "Gamma", Title: "Gamma, Inc. / Delta", Link: "https://x/1", TransactionNumber: "1"}, IsNew: true},
		{Notice: notice.Notice{Title: "No date"}},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header + 2", len(records))
	}
	if strings.Join(records[0], "|") != "Date|Target|Acquirer|Title|Link|Transaction number|Status" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][3] != "Gamma, Inc. / Delta" || records[1][6] != StatusNew {
		t.Errorf("row 1 = %v", records[1])
	}
	if records[2][0] != "" || records[2][6] != "" {
		t.Errorf("row 2 = %v, want empty missing values", records[2])
	}
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCSVFile)
	if err := ExportCSV(path, []Row{{Notice: notice.Notice{Title: "t"}}}); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Date,Target,") {
		t.Errorf("file = %q", data)
	}
}

func TestView_Detail(t *testing.T) {
	view := &View{Rows: []Row{
		{Notice: notice.Notice{TransactionNumber: "20240002", Title: "Beta / Zeta", Acquirer: "Beta"}},
	}}

	r, ok := view.Detail(" 20240002 ")
	if !ok {
		t.Fatal("Detail() not found")
	}
	got := RenderDetail(r)
	for _, want := range []string{"Title:", "Beta / Zeta", "Transaction number:", "20240002"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderDetail() = %q, missing %q", got, want)
		}
	}
	if n := strings.Count(got, "N/A"); n != 2 {
		t.Errorf("RenderDetail() has %d N/A values, want 2 (date, target)", n)
	}
	if _, ok := view.Detail("missing"); ok {
		t.Error("Detail(missing) found a row")
	}
}

func TestRender_TableAndSummary(t *testing.T) {
	view := &View{
		Rows: []Row{
			{Notice: notice.Notice{Date: "2024-01-03", Title: "Gamma / Delta", TransactionNumber: "20240003"}, IsNew: true},
		},
		Summary: Summary{Total: 1, New: 1},
	}

	got := Render(view)
	for _, want := range []string{"Transaction number", "Gamma / Delta", "20240003", StatusNew, "Latest transaction date:", "N/A", "New since last visit:"} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() missing %q in:\n%s", want, got)
		}
	}
}
