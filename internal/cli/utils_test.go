package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/askindex/internal/models"
)

var sampleQuery = &models.SearchQuery{Question: "What is AI?", Industry: "tech", TopK: 2}

var sampleResults = []models.SearchResult{
	{ID: 101, Source: "sourceA", Similarity: 0.95, AskMethodCode: "codeA"},
	{ID: 102, Source: "sourceB", Similarity: 0.89, AskMethodCode: "codeB"},
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleQuery, sampleResults, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded []models.SearchResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded) != 2 || decoded[1].ID != 102 || decoded[1].Similarity != 0.89 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSearchResults_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleQuery, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("got %q, want []", buf.String())
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleQuery, sampleResults, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{`2 results for "What is AI?" in tech`, "RANK", "sourceA", "0.9500", "codeB"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleQuery, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "RANK") {
		t.Error("no table header expected for zero results")
	}
}

func TestWriteSearchResults_unknownFormat(t *testing.T) {
	if err := WriteSearchResults(&bytes.Buffer{}, sampleQuery, sampleResults, "yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
