package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"Backtester/internal/model"
)

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCollect_SortsAndValidates(t *testing.T) {
	mock := &MockFetcher{Bars: []model.OHLCV{
		{Time: day("2024-01-03"), Close: 12},
		{Time: day("2024-01-02"), Close: 11},
		{Time: day("2024-01-04"), Close: 13},
	}}
	series, err := NewCollector(mock).Collect(context.Background(), "AAPL", day("2024-01-01"), day("2024-01-05"))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if series.Symbol != "AAPL" || series.Len() != 3 {
		t.Fatalf("unexpected series: %+v", series)
	}
	if series.Bars[0].Close != 11 || series.Bars[2].Close != 13 {
		t.Errorf("bars not sorted: %+v", series.Bars)
	}
}

func TestCollect_DataUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		fetcher Fetcher
	}{
		{"fetch error", &MockFetcher{Err: errors.New("connection refused")}},
		{"empty range", &MockFetcher{Bars: []model.OHLCV{}}},
		{"duplicate timestamps", &MockFetcher{Bars: []model.OHLCV{
			{Time: day("2024-01-02"), Close: 1},
			{Time: day("2024-01-02"), Close: 2},
		}}},
	}
	for _, tt := range tests {
		_, err := NewCollector(tt.fetcher).Collect(context.Background(), "XYZ", day("2024-01-01"), day("2024-01-31"))
		var due *model.DataUnavailableError
		if !errors.As(err, &due) {
			t.Errorf("%s: expected DataUnavailableError, got %v", tt.name, err)
			continue
		}
		if due.Symbol != "XYZ" {
			t.Errorf("%s: unexpected symbol %q", tt.name, due.Symbol)
		}
	}
}

func TestCollect_EndBeforeStart(t *testing.T) {
	_, err := NewCollector(&MockFetcher{Price: 100}).Collect(context.Background(), "X", day("2024-02-01"), day("2024-01-01"))
	var iie *model.InvalidInputError
	if !errors.As(err, &iie) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestMockFetcher_SkipsWeekends(t *testing.T) {
	bars, _ := (&MockFetcher{Price: 100}).FetchBars(context.Background(), "X", day("2024-01-01"), day("2024-01-14"))
	if len(bars) != 10 {
		t.Errorf("expected 10 weekday bars, got %d", len(bars))
	}
}

const yahooBody = `{"chart":{"result":[{"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{"open":[10,null,12],"high":[11,null,13],"low":[9,null,11],"close":[10.5,null,12.5],"volume":[100,null,300]}]}}],"error":null}}`

func TestYahooFetcher_FetchBars(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.URL.Path != "/%5EGSPC" && r.URL.Path != "/^GSPC" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, yahooBody)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", "")
	f.BaseURL = srv.URL + "/"
	bars, err := f.FetchBars(context.Background(), "SPX500", day("2024-01-02"), day("2024-01-04"))
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected null bar to be skipped, got %d bars", len(bars))
	}
	if bars[0].Close != 10.5 || bars[1].Volume != 300 {
		t.Errorf("unexpected bars: %+v", bars)
	}
	wantP2 := fmt.Sprint(day("2024-01-05").Unix())
	if want := "period2=" + wantP2; !strings.Contains(gotQuery, want) {
		t.Errorf("query %q should contain %q", gotQuery, want)
	}
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", "")
	f.BaseURL = srv.URL + "/"
	_, err := NewCollector(f).Collect(context.Background(), "NOPE", day("2024-01-01"), day("2024-01-31"))
	var due *model.DataUnavailableError
	if !errors.As(err, &due) {
		t.Fatalf("expected DataUnavailableError, got %v", err)
	}
}

func TestRESTFetcher_FetchBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("from") != "2024-01-01" || r.URL.Query().Get("to") != "2024-01-31" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[{"timestamp":1704153600,"open":1,"high":2,"low":0.5,"close":1.5,"volume":10}]`)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "", "")
	bars, err := f.FetchBars(context.Background(), "BTC", day("2024-01-01"), day("2024-01-31"))
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 1.5 {
		t.Errorf("unexpected bars: %+v", bars)
	}

	f.APIKey = "wrong"
	if _, err := f.FetchBars(context.Background(), "BTC", day("2024-01-01"), day("2024-01-31")); err == nil {
		t.Error("expected error on 401")
	}
}

func TestDiskCache_ServesSecondRequestFromDisk(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	client := &http.Client{Transport: &DiskCache{Base: http.DefaultTransport, Dir: t.TempDir()}}
	for i := 0; i < 2; i++ {
		resp, err := client.Get(srv.URL + "/bars")
		if err != nil {
			t.Fatal(err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != "payload" {
			t.Errorf("request %d: unexpected body %q", i, body)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected 1 upstream hit, got %d", got)
	}
}
