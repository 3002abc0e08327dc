package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteYAML_keepsFieldOrder(t *testing.T) {
	v := struct {
		ID     string         `json:"id"`
		Phase  string         `json:"phase"`
		Price  float64        `json:"price_usdc"`
		Terms  map[string]any `json:"agreed_terms"`
		Rating *int           `json:"rating"`
		Note   string         `json:"note"`
	}{ID: "j1", Phase: "funded", Price: 2.5, Terms: map[string]any{"deadline": "1h"}, Note: "true"}

	var buf bytes.Buffer
	if err := writeYAML(&buf, v); err != nil {
		t.Fatal(err)
	}
	want := `id: j1
phase: funded
price_usdc: 2.5
agreed_terms:
  deadline: 1h
rating: null
note: "true"
`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRender_formats(t *testing.T) {
	v := map[string]any{"id": "a1"}
	text := func(t *table) { t.row("ID", "a1") }

	defer func(prev string) { outputFormat = prev }(outputFormat)
	cases := map[string]string{
		"text": "ID  a1\n",
		"json": "{\n  \"id\": \"a1\"\n}\n",
		"yaml": "id: a1\n",
	}
	for format, want := range cases {
		outputFormat = format
		var buf bytes.Buffer
		if err := render(&buf, v, text); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if buf.String() != want {
			t.Errorf("%s: got %q, want %q", format, buf.String(), want)
		}
	}
}

func TestParseObject(t *testing.T) {
	m, err := parseObject("terms", `{"deadline":"1h"}`)
	if err != nil || m["deadline"] != "1h" {
		t.Errorf("got %v, %v", m, err)
	}
	if m, err := parseObject("terms", ""); err != nil || m != nil {
		t.Errorf("empty value: got %v, %v", m, err)
	}
	if _, err := parseObject("terms", `[1]`); err == nil || !strings.Contains(err.Error(), "--terms") {
		t.Errorf("expected a flag error, got %v", err)
	}
}
