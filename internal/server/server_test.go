package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"todoweb/internal/result"
	"todoweb/internal/store"
	"todoweb/internal/store/storetest"
	"todoweb/internal/todo"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	st := storetest.New(t).WithClock(storetest.NewClock().Now)
	return New(todo.New(st, nil, zerolog.Nop()), result.NewExporter(st), zerolog.Nop()).Handler()
}

func post(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func listJSON(t *testing.T, h http.Handler) todo.ListResult {
	t.Helper()
	rec := get(t, h, "/api/todos")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/todos: %d", rec.Code)
	}
	var res todo.ListResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return res
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestMutationFlow(t *testing.T) {
	h := newTestServer(t)

	rec := post(t, h, url.Values{"_action": {"create"}, "title": {"Buy milk"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/todos" {
		t.Fatalf("create: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	res := listJSON(t, h)
	if !res.OK || len(res.Todos) != 1 || res.Todos[0].Completed {
		t.Fatalf("after create: %+v", res)
	}
	id := res.Todos[0].ID
	if res.Todos[0].Description != nil {
		t.Error("absent description should be null")
	}

	rec = post(t, h, url.Values{"_action": {"toggle"}, "id": {id}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("toggle: %d", rec.Code)
	}
	if !listJSON(t, h).Todos[0].Completed {
		t.Error("expected completed after toggle")
	}

	rec = post(t, h, url.Values{"_action": {"delete"}, "id": {id}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("delete: %d", rec.Code)
	}
	if n := len(listJSON(t, h).Todos); n != 0 {
		t.Errorf("expected empty list, got %d", n)
	}
}

func TestMutationErrors(t *testing.T) {
	tests := []struct {
		name   string
		form   url.Values
		status int
		msg    string
	}{
		{"missing title", url.Values{"_action": {"create"}}, http.StatusBadRequest, "Title is required"},
		{"empty title", url.Values{"_action": {"create"}, "title": {""}}, http.StatusBadRequest, "Title is required"},
		{"toggle without id", url.Values{"_action": {"toggle"}}, http.StatusBadRequest, "Invalid todo ID"},
		{"delete without id", url.Values{"_action": {"delete"}}, http.StatusBadRequest, "Invalid todo ID"},
		{"toggle unknown id", url.Values{"_action": {"toggle"}, "id": {"nope"}}, http.StatusNotFound, "Todo not found"},
		{"delete unknown id", url.Values{"_action": {"delete"}, "id": {"nope"}}, http.StatusNotFound, "Todo not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t)
			rec := post(t, h, tt.form)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type %q", ct)
			}
			if got := errorBody(t, rec); got != tt.msg {
				t.Errorf("error = %q, want %q", got, tt.msg)
			}
			if n := len(listJSON(t, h).Todos); n != 0 {
				t.Errorf("failed mutation changed data: %d todos", n)
			}
		})
	}
}

func TestUnknownActionRedirects(t *testing.T) {
	h := newTestServer(t)
	rec := post(t, h, url.Values{"_action": {"archive"}, "id": {"x"}})
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", rec.Code)
	}
}

func TestListView(t *testing.T) {
	h := newTestServer(t)

	rec := get(t, h, "/todos")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /todos: %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "No todos yet") || strings.Contains(body, "Failed to connect") {
		t.Errorf("empty view unexpected:\n%s", body)
	}

	post(t, h, url.Values{"_action": {"create"}, "title": {"<b>Buy milk</b>"}, "description": {"2 litres"}})
	body = get(t, h, "/todos").Body.String()
	for _, want := range []string{"&lt;b&gt;Buy milk&lt;/b&gt;", "2 litres", "Your Todos (1)", `value="toggle"`, "Complete"} {
		if !strings.Contains(body, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

type failingStore struct{}

func (failingStore) List(context.Context) ([]store.Todo, error) {
	return nil, errors.New("db down")
}
func (failingStore) Create(context.Context, string, *string) (store.Todo, error) {
	return store.Todo{}, errors.New("db down")
}
func (failingStore) Toggle(context.Context, string) error { return errors.New("db down") }
func (failingStore) Delete(context.Context, string) error { return errors.New("db down") }

func TestDegradedDatastore(t *testing.T) {
	h := New(todo.New(failingStore{}, nil, zerolog.Nop()), result.NewExporter(failingStore{}), zerolog.Nop()).Handler()

	rec := get(t, h, "/todos")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Failed to connect to database") {
		t.Errorf("degraded view: %d\n%s", rec.Code, rec.Body.String())
	}

	res := listJSON(t, h)
	if res.OK || res.Error != "Failed to load todos" || len(res.Todos) != 0 {
		t.Errorf("degraded json: %+v", res)
	}

	rec = post(t, h, url.Values{"_action": {"create"}, "title": {"x"}})
	if rec.Code != http.StatusInternalServerError || errorBody(t, rec) != "Database operation failed" {
		t.Errorf("create on broken db: %d %s", rec.Code, rec.Body.String())
	}

	rec = get(t, h, "/export?format=csv")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("export on broken db: %d", rec.Code)
	}
}

func TestRootAndHealth(t *testing.T) {
	h := newTestServer(t)

	rec := get(t, h, "/")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/todos" {
		t.Errorf("GET /: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = get(t, h, "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("GET /health: %d %q", rec.Code, rec.Body.String())
	}
	if id := rec.Header().Get("X-Request-Id"); id == "" {
		t.Error("expected request id header")
	}
}

func TestExportEndpoint(t *testing.T) {
	h := newTestServer(t)
	post(t, h, url.Values{"_action": {"create"}, "title": {"Buy milk"}})

	rec := get(t, h, "/export?format=csv")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("csv export: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Buy milk") {
		t.Errorf("csv missing todo:\n%s", rec.Body.String())
	}

	rec = get(t, h, "/export")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("default export: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = get(t, h, "/export?format=xml")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format: %d", rec.Code)
	}
}

func TestMultipartMutation(t *testing.T) {
	h := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("_action", "create")
	_ = mw.WriteField("title", "Buy milk")
	_ = mw.WriteField("description", "2 litres")
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/todos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 (%s)", rec.Code, rec.Body.String())
	}
	res := listJSON(t, h)
	if len(res.Todos) != 1 || res.Todos[0].Title != "Buy milk" {
		t.Fatalf("multipart create did not insert: %+v", res.Todos)
	}
	if d := res.Todos[0].Description; d == nil || *d != "2 litres" {
		t.Errorf("description = %v", d)
	}
}

func TestMultipartValidation(t *testing.T) {
	h := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("_action", "create")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/todos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest || errorBody(t, rec) != "Title is required" {
		t.Errorf("multipart without title: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMalformedMultipart(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
