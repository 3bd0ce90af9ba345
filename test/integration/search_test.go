// Package integration provides end-to-end tests against a real SQLite index file.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hyperjump/askindex/internal/config"
	"github.com/hyperjump/askindex/internal/embedding"
	"github.com/hyperjump/askindex/internal/models"
	"github.com/hyperjump/askindex/internal/server"
	"github.com/hyperjump/askindex/internal/service"
	"github.com/hyperjump/askindex/internal/vector"
)

var financeQuestions = []string{
	"what is the loan interest rate",
	"how do I open a savings account",
	"when is my credit card statement due",
}

func buildIndex(t *testing.T, dims int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ask_data.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	stmts := []string{
		`CREATE TABLE finance (expand_id INTEGER, source_table TEXT, ask_method_code TEXT, vector BLOB)`,
		`CREATE TABLE retail (expand_id INTEGER, source_table TEXT, ask_method_code TEXT, vector BLOB)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	emb := embedding.NewHashEmbedder(dims)
	for i, q := range financeQuestions {
		vec, err := emb.Embed(context.Background(), q)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db.Exec(`INSERT INTO finance VALUES (?, 'faq_finance', ?, ?)`,
			101+i, "FIN-"+string(rune('A'+i)), vector.EncodeVector(vec)); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func startServer(t *testing.T) (*httptest.Server, *service.State) {
	t.Helper()
	cfg := config.Default()
	cfg.Embedding.Provider = config.ProviderHash
	cfg.Embedding.ModelPath = ""
	cfg.Embedding.Dimensions = 32
	cfg.Embedding.CacheSize = 16
	cfg.Index.Driver = config.DriverSQLite
	cfg.Index.DataSource = buildIndex(t, 32)

	state, err := service.Start(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(server.NewServer(state, cfg, zap.NewNop()).Router())
	t.Cleanup(func() {
		ts.Close()
		_ = state.Stop()
	})
	return ts, state
}

func postSearch(t *testing.T, url string, q models.SearchQuery) (*http.Response, []byte) {
	t.Helper()
	body, _ := json.Marshal(q)
	resp, err := http.Post(url+"/search", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Error(err)
		return nil, nil
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestIntegration_Search(t *testing.T) {
	ts, state := startServer(t)

	resp, body := postSearch(t, ts.URL, models.SearchQuery{
		Question: "how do I open a savings account", Industry: "finance", TopK: 2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var results []models.SearchResult
	if err := json.Unmarshal(body, &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %+v", results)
	}
	if results[0].ID != 102 || results[0].Source != "faq_finance" || results[0].AskMethodCode != "FIN-B" {
		t.Errorf("best match = %+v, want row 102", results[0])
	}
	if results[0].Similarity > results[1].Similarity {
		t.Errorf("rows must be ordered by ascending distance: %+v", results)
	}
	if state.Cache.Len() != 1 {
		t.Errorf("cache should hold finance only, has %v", state.Cache.Keys())
	}
}

func TestIntegration_EmptyTenantAndUnknownTenant(t *testing.T) {
	ts, _ := startServer(t)

	resp, body := postSearch(t, ts.URL, models.SearchQuery{Question: "return policy", Industry: "retail", TopK: 3})
	if resp.StatusCode != http.StatusOK || string(bytes.TrimSpace(body)) != "[]" {
		t.Errorf("empty tenant: status = %d, body = %s", resp.StatusCode, body)
	}

	resp, body = postSearch(t, ts.URL, models.SearchQuery{Question: "x", Industry: "aerospace", TopK: 3})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown tenant: status = %d, body = %s", resp.StatusCode, body)
	}
}

func TestIntegration_ConcurrentFirstRequests(t *testing.T) {
	ts, state := startServer(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, body := postSearch(t, ts.URL, models.SearchQuery{
				Question: financeQuestions[i%len(financeQuestions)], Industry: "finance", TopK: 1,
			})
			if resp != nil && resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, body = %s", resp.StatusCode, body)
			}
		}()
	}
	wg.Wait()
	if keys := state.Cache.Keys(); len(keys) != 1 || keys[0] != "finance" {
		t.Errorf("Keys() = %v", keys)
	}
}
