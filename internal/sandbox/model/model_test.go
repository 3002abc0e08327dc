package model_test

import (
	"testing"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
)

func TestJobClone_nestedPayloads(t *testing.T) {
	orig := &model.Job{
		Requirements: map[string]any{
			"spec":  map[string]any{"format": "csv"},
			"steps": []any{map[string]any{"name": "fetch"}, "rank"},
		},
		ResultData: map[string]any{"summary": map[string]any{"rows": float64(3)}},
	}

	cp := orig.Clone()
	cp.Requirements["spec"].(map[string]any)["format"] = "json"
	cp.Requirements["steps"].([]any)[0].(map[string]any)["name"] = "scrape"
	cp.Requirements["steps"].([]any)[1] = "sort"
	cp.ResultData["summary"].(map[string]any)["rows"] = float64(0)

	if got := orig.Requirements["spec"].(map[string]any)["format"]; got != "csv" {
		t.Errorf("nested map shared: format = %v", got)
	}
	steps := orig.Requirements["steps"].([]any)
	if got := steps[0].(map[string]any)["name"]; got != "fetch" {
		t.Errorf("map inside slice shared: name = %v", got)
	}
	if steps[1] != "rank" {
		t.Errorf("slice shared: %v", steps)
	}
	if got := orig.ResultData["summary"].(map[string]any)["rows"]; got != float64(3) {
		t.Errorf("result data shared: rows = %v", got)
	}
}

func TestJobClone_nilPayloads(t *testing.T) {
	cp := (&model.Job{}).Clone()
	if cp.Requirements != nil || cp.AgreedTerms != nil || cp.ResultData != nil {
		t.Errorf("nil payloads should stay nil: %+v", cp)
	}
}
