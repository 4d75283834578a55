package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rfidlab/smarttray/internal/model"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "catalog.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty catalog, got %d entries", s.Len())
	}
}

func TestOpenMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSetPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set("EPC001", model.Product{Name: "Men's Tee", Price: decimal.NewFromInt(1290)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("EPC002", model.Product{Name: "Jeans", Price: decimal.NewFromInt(1890)}); err != nil {
		t.Fatalf("set: %v", err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	p, ok := reloaded.Get("EPC001")
	if !ok {
		t.Fatalf("EPC001 not found after reload")
	}
	if p.Name != "Men's Tee" || !p.Price.Equal(decimal.NewFromInt(1290)) {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestDeletePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	s, _ := Open(path)
	_ = s.Set("EPC001", model.Product{Name: "Tee", Price: decimal.NewFromInt(100)})
	ok, err := s.Delete("EPC001")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = s.Delete("EPC001")
	if err != nil || ok {
		t.Fatalf("second delete: ok=%v err=%v", ok, err)
	}
	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reloaded.Len() != 0 {
		t.Fatalf("expected empty catalog after delete")
	}
}

func TestKeysSorted(t *testing.T) {
	s := New()
	_ = s.Set("EPC003", model.Product{Name: "Kurti", Price: decimal.NewFromInt(1150)})
	_ = s.Set("EPC001", model.Product{Name: "Tee", Price: decimal.NewFromInt(1290)})
	_ = s.Set("EPC002", model.Product{Name: "Jeans", Price: decimal.NewFromInt(1890)})
	keys := s.Keys()
	if len(keys) != 3 || keys[0] != "EPC001" || keys[2] != "EPC003" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestSetRejectsNegativePrice(t *testing.T) {
	s := New()
	if err := s.Set("EPC001", model.Product{Name: "Tee", Price: decimal.NewFromInt(-1)}); err == nil {
		t.Fatalf("expected error for negative price")
	}
}
