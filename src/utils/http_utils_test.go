package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("te_dhena.csv"), []byte("42"))
	if a != ContentHash([]byte("te_dhena.csv"), []byte("42")) {
		t.Fatal("ContentHash is not deterministic")
	}
	if len(a) != 16 {
		t.Errorf("len(ContentHash) = %d, want 16", len(a))
	}
	if ContentHash([]byte("ab"), []byte("c")) == ContentHash([]byte("a"), []byte("bc")) {
		t.Error("ContentHash should separate parts")
	}
}

func TestGenerateETag(t *testing.T) {
	e1, err := GenerateETag(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("GenerateETag: %v", err)
	}
	e2, _ := GenerateETag(map[string]int{"a": 2})
	if e1 == e2 {
		t.Error("different payloads produced the same ETag")
	}
	if _, err := GenerateETag(func() {}); err == nil {
		t.Error("expected error for unmarshalable value")
	}
}

func TestSendJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendJSONError(rec, "bad input", http.StatusBadRequest)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "bad input" {
		t.Errorf("error = %q, want bad input", body["error"])
	}
}
