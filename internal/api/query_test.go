package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cubegate/cubegate/internal/engine"
	"github.com/cubegate/cubegate/internal/history"
)

func TestQueryEndpointPreservesRowOrder(t *testing.T) {
	var east, west engine.Record
	east.Set("Region", "East")
	west.Set("Region", "West")
	gateway := &fakeGateway{records: []engine.Record{east, west}}
	handler := NewHandler(testConfig(t), Dependencies{Gateway: gateway})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"dataset":"Sales","query":"EVALUATE VALUES(Region)"}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `[{"Region":"East"},{"Region":"West"}]` {
		t.Fatalf("body = %s", body)
	}
	if len(gateway.executed) != 1 {
		t.Fatalf("gateway executed %d queries, want 1", len(gateway.executed))
	}
	if gateway.executed[0].dataset != "Sales" || gateway.executed[0].query != "EVALUATE VALUES(Region)" {
		t.Fatalf("gateway call = %+v", gateway.executed[0])
	}
}

func TestQueryEndpointPreservesColumnOrderWithinRecord(t *testing.T) {
	var record engine.Record
	record.Set("Zeta", int64(1))
	record.Set("Alpha", nil)
	record.Set("Mid", "x")
	gateway := &fakeGateway{records: []engine.Record{record}}
	handler := NewHandler(testConfig(t), Dependencies{Gateway: gateway})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"dataset":"Sales","query":"EVALUATE T"}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	// Field order must follow the engine's column order, null fields present.
	if body := strings.TrimSpace(rr.Body.String()); body != `[{"Zeta":1,"Alpha":null,"Mid":"x"}]` {
		t.Fatalf("body = %s", body)
	}
}

func TestQueryEndpointValidatesRequest(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{Gateway: &fakeGateway{}})

	cases := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"dataset":`},
		{name: "unknown field", body: `{"dataset":"Sales","query":"x","limit":5}`},
		{name: "missing dataset", body: `{"query":"EVALUATE T"}`},
		{name: "missing query", body: `{"dataset":"Sales"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Fatalf("content type = %q, want plain text", ct)
			}
		})
	}
}

func TestQueryEndpointAuthenticationFailure(t *testing.T) {
	gateway := &fakeGateway{execErr: &engine.AuthenticationError{Err: errors.New("invalid client secret")}}
	handler := NewHandler(testConfig(t), Dependencies{Gateway: gateway})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"dataset":"Sales","query":"EVALUATE T"}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "authentication failed") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestQueryEndpointSurfacesEngineDiagnosticVerbatim(t *testing.T) {
	diagnostic := "Query (1, 17) The syntax for 'Region' is incorrect."
	gateway := &fakeGateway{execErr: &engine.QueryExecutionError{Err: errors.New(diagnostic)}}
	handler := NewHandler(testConfig(t), Dependencies{Gateway: gateway})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"dataset":"Sales","query":"EVALUATE VALUES(Region"}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if strings.TrimSpace(rr.Body.String()) != diagnostic {
		t.Fatalf("body = %q, want the engine diagnostic verbatim", rr.Body.String())
	}
}

func TestQueryEndpointRecordsHistory(t *testing.T) {
	var record engine.Record
	record.Set("Region", "East")
	gateway := &fakeGateway{records: []engine.Record{record}}
	store := &fakeHistoryStore{}
	handler := NewHandler(testConfig(t), Dependencies{Gateway: gateway, History: store})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"dataset":"Sales","query":"EVALUATE T"}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if len(store.inserted) != 1 {
		t.Fatalf("history inserts = %d, want 1", len(store.inserted))
	}
	in := store.inserted[0]
	if in.Kind != history.KindQuery || in.Status != history.StatusSucceeded || in.RowCount != 1 {
		t.Fatalf("history input = %+v", in)
	}
	if in.TraceID == "" {
		t.Fatal("history input is missing the trace id")
	}
}

func TestQueryEndpointHistoryFailureDoesNotFailRequest(t *testing.T) {
	var record engine.Record
	record.Set("Region", "East")
	gateway := &fakeGateway{records: []engine.Record{record}}
	store := &fakeHistoryStore{insertErr: errors.New("history db down")}
	handler := NewHandler(testConfig(t), Dependencies{Gateway: gateway, History: store})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"dataset":"Sales","query":"EVALUATE T"}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestQueryEndpointArchivesSuccessfulResults(t *testing.T) {
	var record engine.Record
	record.Set("Region", "East")
	gateway := &fakeGateway{records: []engine.Record{record}}
	store := &fakeHistoryStore{}
	archiver := &fakeArchiver{}
	handler := NewHandler(testConfig(t), Dependencies{Gateway: gateway, History: store, Archiver: archiver})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"dataset":"Sales","query":"EVALUATE T"}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if archiver.calls != 1 {
		t.Fatalf("archiver calls = %d, want 1", archiver.calls)
	}
	if archiver.lastEntry.Dataset != "Sales" {
		t.Fatalf("archived entry = %+v", archiver.lastEntry)
	}
}

func TestQueryEndpointDoesNotArchiveFailures(t *testing.T) {
	gateway := &fakeGateway{execErr: &engine.QueryExecutionError{Err: errors.New("boom")}}
	store := &fakeHistoryStore{}
	archiver := &fakeArchiver{}
	handler := NewHandler(testConfig(t), Dependencies{Gateway: gateway, History: store, Archiver: archiver})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"dataset":"Sales","query":"EVALUATE T"}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if archiver.calls != 0 {
		t.Fatalf("archiver calls = %d, want 0", archiver.calls)
	}
	if len(store.inserted) != 1 || store.inserted[0].Status != history.StatusFailed {
		t.Fatalf("failed request was not recorded: %+v", store.inserted)
	}
}

type fakeArchiver struct {
	calls     int
	lastEntry history.Entry
	err       error
}

func (f *fakeArchiver) ArchiveResult(_ context.Context, entry history.Entry, records []engine.Record) (string, error) {
	f.calls++
	f.lastEntry = entry
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%s/result-%d.parquet", entry.Dataset, entry.ID), nil
}
