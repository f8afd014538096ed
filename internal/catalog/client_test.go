package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "test-token", "expires_in": 3600})
	})
	mux.Handle("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tokens, err := NewTokenSource(srv.URL, "user", "pass")
	if err != nil {
		t.Fatalf("NewTokenSource: %v", err)
	}
	client, err := New(srv.URL, tokens)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, srv
}

func TestSearchSendsYearHintForBareYears(t *testing.T) {
	var gotQuery, gotYear, gotClosest, gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotYear = r.URL.Query().Get("year")
		gotClosest = r.URL.Query().Get("closest_to")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"results": []Identity{{ID: 1, Name: "Doom"}}})
	}))

	results, err := client.Search(context.Background(), "Doom", DateHint(1993))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("unexpected results %v", results)
	}
	if gotQuery != "Doom" || gotYear != "1993" || gotClosest != "" {
		t.Fatalf("unexpected params query=%q year=%q closest_to=%q", gotQuery, gotYear, gotClosest)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
}

func TestSearchSendsClosestToForTimestamps(t *testing.T) {
	var gotYear, gotClosest string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotYear = r.URL.Query().Get("year")
		gotClosest = r.URL.Query().Get("closest_to")
		json.NewEncoder(w).Encode(map[string]any{"results": []Identity{}})
	}))

	if _, err := client.Search(context.Background(), "Doom", DateHint(749001600)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotYear != "" || gotClosest != "749001600" {
		t.Fatalf("unexpected params year=%q closest_to=%q", gotYear, gotClosest)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	if _, err := client.Search(context.Background(), "  ", 0); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestCreateGameConflictReturnsSentinel(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	err := client.CreateGame(context.Background(), GameRecord{IgdbID: 1, Title: "Doom"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetDetailsNotFoundReturnsNil(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	details, err := client.GetDetails(context.Background(), 404)
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if details != nil {
		t.Fatalf("expected nil details, got %+v", details)
	}
}

func TestGetDetailsServerErrorIsStatusError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))

	_, err := client.GetDetails(context.Background(), 7)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", statusErr.StatusCode)
	}
}

func TestListGameIDs(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ids": []int64{1, 2, 3}})
	}))

	ids, err := client.ListGameIDs(context.Background())
	if err != nil {
		t.Fatalf("ListGameIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	if _, ok := ids[2]; !ok {
		t.Fatal("missing id 2")
	}
}

func TestUploadExecutableSendsMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "start.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh"), 0o755); err != nil {
		t.Fatal(err)
	}

	var gotLabel, gotFileName string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		gotLabel = r.FormValue("label")
		if files := r.MultipartForm.File["file"]; len(files) == 1 {
			gotFileName = files[0].Filename
		}
		w.WriteHeader(http.StatusCreated)
	}))

	if err := client.UploadExecutable(context.Background(), 7, path, "Play"); err != nil {
		t.Fatalf("UploadExecutable: %v", err)
	}
	if gotLabel != "Play" {
		t.Fatalf("unexpected label %q", gotLabel)
	}
	if gotFileName != "start.sh" {
		t.Fatalf("unexpected filename %q", gotFileName)
	}
}

func TestCreateCollectionReturnsID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["title"] != "Favorites" {
			t.Errorf("unexpected title %q", body["title"])
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 42})
	}))

	id, err := client.CreateCollection(context.Background(), "Favorites", "summary")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if id != 42 {
		t.Fatalf("unexpected id %d", id)
	}
}

func TestSetCollectionMembersPutsGameIDs(t *testing.T) {
	var gotIDs []int64
	var gotMethod string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		var body map[string][]int64
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotIDs = body["game_ids"]
	}))

	if err := client.SetCollectionMembers(context.Background(), 9, []int64{5, 7}); err != nil {
		t.Fatalf("SetCollectionMembers: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Fatalf("expected PUT, got %s", gotMethod)
	}
	if len(gotIDs) != 2 || gotIDs[0] != 5 || gotIDs[1] != 7 {
		t.Fatalf("unexpected ids %v", gotIDs)
	}
}
