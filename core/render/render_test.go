package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

func sample() *core.Analysis {
	return &core.Analysis{
		URL:        "https://example.gov/zoning.pdf",
		Summary:    "## Overview\n- Allows **duplexes** by right\n- Parking minimums remain",
		Scores:     core.ScoreReport{"parking": 40, "housing": 80, "total": 64},
		Pages:      12,
		Chunks:     2,
		AnalyzedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMarkdownRenderer(t *testing.T) {
	out, err := NewMarkdownRenderer().Render(sample())
	if err != nil {
		t.Fatal(err)
	}
	md := string(out)
	for _, want := range []string{"# Zoning Ordinance Analysis", "Source: https://example.gov/zoning.pdf", "## Executive Summary", "| housing | 80 |", "| **Total** | 64 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q in:\n%s", want, md)
		}
	}
	if strings.Index(md, "| housing") > strings.Index(md, "| parking") {
		t.Error("categories should be sorted")
	}
	if strings.Index(md, "**Total**") < strings.Index(md, "| parking") {
		t.Error("total should come last")
	}
}

func TestJSONRenderer(t *testing.T) {
	out, err := NewJSONRenderer().Render(sample())
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Summary string             `json:"summary"`
		Scores  map[string]float64 `json:"scores"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if got.Scores["total"] != 64 || !strings.HasPrefix(got.Summary, "## Overview") {
		t.Errorf("unexpected %+v", got)
	}
}

func TestPDFRenderer(t *testing.T) {
	out, err := NewPDFRenderer().Render(sample())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Errorf("not a PDF: %q", out[:8])
	}
}

func TestXLSXRenderer(t *testing.T) {
	out, err := NewXLSXRenderer().Render(sample())
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows("Scores")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[3][0] != "total" || rows[3][1] != "64" {
		t.Errorf("unexpected rows %v", rows)
	}
	summary, _ := f.GetCellValue("Summary", "B3")
	if !strings.Contains(summary, "duplexes") {
		t.Errorf("summary cell = %q", summary)
	}
}

func TestForFormat(t *testing.T) {
	for name, ext := range map[string]string{"markdown": ".md", "json": ".json", "pdf": ".pdf", "xlsx": ".xlsx"} {
		r, err := ForFormat(name)
		if err != nil {
			t.Fatal(err)
		}
		if r.Extension() != ext {
			t.Errorf("%s: extension %q", name, r.Extension())
		}
	}
	if _, err := ForFormat("docx"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRenderers_RejectNil(t *testing.T) {
	for _, r := range []core.Renderer{NewMarkdownRenderer(), NewJSONRenderer(), NewPDFRenderer(), NewXLSXRenderer()} {
		if _, err := r.Render(nil); err == nil {
			t.Errorf("%T accepted nil", r)
		}
	}
}
