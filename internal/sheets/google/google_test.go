package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"

	"stephly/internal/core"
)

// fakeSheet serves the subset of the Sheets v4 API the exporter uses.
type fakeSheet struct {
	mu   sync.Mutex
	rows [][]string
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		values := make([][]string, 0, len(f.rows))
		for _, row := range f.rows {
			values = append(values, row[:1])
		}
		writeJSON(w, map[string]any{"values": values})

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		// Transactions!A<n>:G<n>
		rng := path[strings.LastIndex(path, "!A")+2:]
		n, _ := strconv.Atoi(rng[:strings.Index(rng, ":")])
		f.rows[n-1] = decodeValues(r)[0]
		writeJSON(w, map[string]any{})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		f.rows = append(f.rows, decodeValues(r)...)
		writeJSON(w, map[string]any{})

	case r.Method == http.MethodGet:
		writeJSON(w, map[string]any{"sheets": []any{
			map[string]any{"properties": map[string]any{"sheetId": 42, "title": "Other"}},
			map[string]any{"properties": map[string]any{"sheetId": 7, "title": "Transactions"}},
		}})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var body struct {
			Requests []struct {
				DeleteDimension struct {
					Range struct {
						SheetID    int64 `json:"sheetId"`
						StartIndex int   `json:"startIndex"`
						EndIndex   int   `json:"endIndex"`
					} `json:"range"`
				} `json:"deleteDimension"`
			} `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		rg := body.Requests[0].DeleteDimension.Range
		if rg.SheetID != 7 {
			http.Error(w, "wrong sheet", http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows[:rg.StartIndex], f.rows[rg.EndIndex:]...)
		writeJSON(w, map[string]any{})

	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func decodeValues(r *http.Request) [][]string {
	var vr struct {
		Values [][]any `json:"values"`
	}
	_ = json.NewDecoder(r.Body).Decode(&vr)
	out := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		for _, v := range row {
			out[i] = append(out[i], fmt.Sprint(v))
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sid", SheetName: "Transactions"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, fake
}

func tx(id int64, title string, cents int64) core.Transaction {
	return core.Transaction{ID: id, Type: core.Expense, Title: title, Amount: core.Money{Cents: cents}, Category: "Food", Date: core.NewDate(2025, 3, 9)}
}

func TestNew_RequiresSpreadsheetAndCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := New(context.Background(), Config{}, nil); err == nil || !strings.Contains(err.Error(), "spreadsheet") {
		t.Fatalf("expected missing spreadsheet error, got %v", err)
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "sid"}, nil); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "sid", CredentialsFile: "/does/not/exist.json"}, nil); err == nil {
		t.Fatal("expected error for unreadable credentials file")
	}
}

func TestClient_UpsertAppendsThenUpdates(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	if err := c.Upsert(ctx, tx(1, "Lunch", 2550)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if len(fake.rows) != 2 || fake.rows[0][0] != "ID" {
		t.Fatalf("expected header and one row, got %v", fake.rows)
	}
	if got := strings.Join(fake.rows[1], "|"); got != "1|2025-03-09|expense|Lunch|Food|25.5|" {
		t.Fatalf("unexpected row %q", got)
	}

	if err := c.Upsert(ctx, tx(2, "Taxi", 1000)); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if err := c.Upsert(ctx, tx(1, "Big lunch", 4000)); err != nil {
		t.Fatalf("update upsert: %v", err)
	}
	if len(fake.rows) != 3 {
		t.Fatalf("update should not add rows, got %d", len(fake.rows))
	}
	if fake.rows[1][3] != "Big lunch" || fake.rows[1][5] != "40" {
		t.Fatalf("row not updated: %v", fake.rows[1])
	}
}

func TestClient_Delete(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		if err := c.Upsert(ctx, tx(i, "t", 100)); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	if err := c.Delete(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fake.rows) != 3 || fake.rows[1][0] != "1" || fake.rows[2][0] != "3" {
		t.Fatalf("unexpected rows after delete: %v", fake.rows)
	}
	if err := c.Delete(ctx, 99); err != nil {
		t.Fatalf("deleting a missing row should succeed, got %v", err)
	}
	if err := c.Upsert(ctx, core.Transaction{}); err == nil {
		t.Fatal("expected error for transaction without id")
	}
}
