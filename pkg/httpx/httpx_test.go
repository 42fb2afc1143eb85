package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, "nope")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error ErrorPayload `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "Bad Request" || body.Error.Message != "nope" {
		t.Fatalf("envelope = %+v", body.Error)
	}
}

func TestWriteTypedErrorSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteTypedError(rec, http.StatusServiceUnavailable, "busy", "try later", 30)
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After = %q", got)
	}
}
