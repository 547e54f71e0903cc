package training

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecordKeyOrder(t *testing.T) {
	rec := NewRecord()
	rec.Set("epoch", 1)
	rec.Set("train_loss", 2.5)
	rec.Set("valid_loss", 2.1)
	rec.Set("learning_rate", 0.001)

	keys := rec.Keys()
	expected := []string{"epoch", "train_loss", "valid_loss", "learning_rate"}
	if len(keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %d", len(expected), len(keys))
	}
	for i, want := range expected {
		if keys[i] != want {
			t.Errorf("Key %d: expected %q, got %q", i, want, keys[i])
		}
	}

	// Re-setting a key keeps its original position.
	rec.Set("train_loss", 2.4)
	keys = rec.Keys()
	if keys[1] != "train_loss" {
		t.Errorf("Expected train_loss to stay at position 1, got %q", keys[1])
	}
	if v, _ := rec.Float("train_loss"); v != 2.4 {
		t.Errorf("Expected updated value 2.4, got %v", v)
	}
}

func TestRecordMarshalOrder(t *testing.T) {
	rec := NewRecord()
	rec.Set("epoch", 3)
	rec.Set("train_loss", 1.25)
	rec.Set("train_time", "0m 12s")

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	got := string(data)
	want := `{"epoch":3,"train_loss":1.25,"train_time":"0m 12s"}`
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rec := NewRecord()
	rec.Set("epoch", 7)
	rec.Set("valid_loss", 0.5)
	rec.Set("train_time", "1m 3s")

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	loaded := NewRecord()
	if err := json.Unmarshal(data, loaded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	keys := loaded.Keys()
	expected := []string{"epoch", "valid_loss", "train_time"}
	for i, want := range expected {
		if keys[i] != want {
			t.Errorf("Key %d: expected %q, got %q", i, want, keys[i])
		}
	}

	// JSON numbers decode as float64, including the integer epoch.
	if v, ok := loaded.Float("epoch"); !ok || v != 7 {
		t.Errorf("Expected epoch 7, got %v (ok=%t)", v, ok)
	}
	if v, ok := loaded.Float("valid_loss"); !ok || v != 0.5 {
		t.Errorf("Expected valid_loss 0.5, got %v (ok=%t)", v, ok)
	}
	if v, ok := loaded.Get("train_time"); !ok || v != "1m 3s" {
		t.Errorf("Expected train_time 1m 3s, got %v", v)
	}
	if _, ok := loaded.Float("train_time"); ok {
		t.Error("Expected Float to reject a string value")
	}
}

func TestHistorySaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")

	history := History{}
	for epoch := 1; epoch <= 3; epoch++ {
		rec := NewRecord()
		rec.Set("epoch", epoch)
		rec.Set("train_loss", float64(epoch)*0.5)
		history = append(history, rec)
	}

	if err := history.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(loaded))
	}
	for i, rec := range loaded {
		if v, _ := rec.Float("epoch"); v != float64(i+1) {
			t.Errorf("Record %d: expected epoch %d, got %v", i, i+1, v)
		}
		if keys := rec.Keys(); keys[0] != "epoch" {
			t.Errorf("Record %d: expected epoch as first key, got %q", i, keys[0])
		}
	}
}

func TestHistorySaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")

	var history History
	if err := history.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty history, got %d records", len(loaded))
	}
}

func TestLoadHistoryMissingFile(t *testing.T) {
	_, err := LoadHistory(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("Expected error for missing record file")
	}
	if !strings.Contains(err.Error(), "failed to read record file") {
		t.Errorf("Unexpected error: %v", err)
	}
}
