package training

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Record holds one epoch's metrics as named values in insertion order.
// Order is part of the on-disk format: the JSON object is written with the
// keys exactly as they were set, and read back the same way.
type Record struct {
	keys   []string
	values map[string]interface{}
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{
		values: make(map[string]interface{}),
	}
}

// Set stores a value under key. The first Set of a key fixes its position.
func (r *Record) Set(key string, value interface{}) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Keys returns the record's keys in insertion order
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Get returns the value stored under key
func (r *Record) Get(key string) (interface{}, bool) {
	value, ok := r.values[key]
	return value, ok
}

// Float returns the value under key as a float64. Integer values written
// before a save round trip come back as float64, so both are accepted.
func (r *Record) Float(key string) (float64, bool) {
	switch v := r.values[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// MarshalJSON writes the record as a JSON object in insertion order
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("failed to encode record value %q: %v", key, err)
		}
		buf.Write(vb)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving its document key order
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	r.keys = nil
	r.values = make(map[string]interface{})

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record key must be a string, got %v", keyTok)
		}

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return err
		}
		r.Set(key, value)
	}

	_, err = dec.Token() // closing brace
	return err
}

// History is the ordered list of epoch records for one run
type History []*Record

// Save writes the history as a JSON array. The write goes through a
// temporary file and a rename, so a crash never leaves a torn record file.
func (h History) Save(path string) error {
	if h == nil {
		h = History{}
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode training records: %v", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write record file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize record file: %v", err)
	}

	return nil
}

// LoadHistory reads a record file back
func LoadHistory(path string) (History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %v", err)
	}

	var history History
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to decode record file: %v", err)
	}

	return history, nil
}
