package domain

import (
	"encoding/json"
	"testing"
)

func TestParseAmountIsLenient(t *testing.T) {
	cases := map[string]float64{
		"12.50":   12.5,
		" 7 ":     7,
		"3.2 EUR": 3.2,
		"abc":     0,
		"":        0,
		"-1.5":    -1.5,
		".75":     0.75,
	}
	for in, want := range cases {
		if got := ParseAmount(in); got != want {
			t.Fatalf("ParseAmount(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRecordKeepsExtraFieldsFlat(t *testing.T) {
	rec := RecordFromFields(map[string]string{
		FieldArticleCode: " A100 ",
		FieldColorCode:   "C1",
		"finish":         "matte",
	})
	if rec.ArticleCode != "A100" {
		t.Fatalf("expected trimmed article code, got %q", rec.ArticleCode)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(payload, &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if flat["finish"] != "matte" {
		t.Fatalf("expected extra field at top level, got %v", flat)
	}

	var back Record
	if err := json.Unmarshal(payload, &back); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if back.Field("finish") != "matte" || back.ColorCode != "C1" {
		t.Fatalf("unexpected decoded record %+v", back)
	}
}

func TestFilterSetEmptiness(t *testing.T) {
	var nilSet *FilterSet
	if !nilSet.IsEmpty() {
		t.Fatalf("nil filter set must be empty")
	}
	if !(&FilterSet{Seasons: []string{}}).IsEmpty() {
		t.Fatalf("filter set with empty slices must be empty")
	}
	min := 0.0
	if (&FilterSet{MinPrice: &min}).IsEmpty() {
		t.Fatalf("a zero min price is still a criterion")
	}
}
