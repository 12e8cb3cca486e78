package dbtypes

import "testing"

func TestJSONMapScanSources(t *testing.T) {
	var m JSONMap
	if err := m.Scan([]byte(`{"ram":"16GB","cores":8}`)); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if m["ram"] != "16GB" {
		t.Fatalf("unexpected ram %v", m["ram"])
	}
	if m["cores"].(float64) != 8 {
		t.Fatalf("unexpected cores %v", m["cores"])
	}

	if err := m.Scan(nil); err != nil || len(m) != 0 {
		t.Fatalf("nil should produce empty map, got %v (%v)", m, err)
	}
	if err := m.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}
	if err := m.Scan("not json"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestJSONMapValue(t *testing.T) {
	var empty JSONMap
	v, err := empty.Value()
	if err != nil || v != "{}" {
		t.Fatalf("nil map should encode to {}, got %v (%v)", v, err)
	}

	v, err = JSONMap{"cpu": "M3"}.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != `{"cpu":"M3"}` {
		t.Fatalf("unexpected encoding %v", v)
	}
}
