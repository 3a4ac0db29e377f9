// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package geminitest provides an in-memory fake of the File Search REST API
// for tests. It implements stores, documents, multipart uploads, polled
// operations, and a scripted generateContent endpoint.
package geminitest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Upload is a document upload the fake received.
type Upload struct {
	Store       string
	DisplayName string
	Filename    string
	MimeType    string
	Data        []byte
}

// Call is a request the fake received.
type Call struct {
	Method string
	Path   string
	Query  string
}

type store struct {
	name        string
	displayName string
	docs        []string
}

type operation struct {
	name        string
	store       string
	displayName string
	polls       int
	done        bool
	errMsg      string
	never       bool
}

// Server is the fake. Configure the exported fields before issuing requests.
type Server struct {
	*httptest.Server

	// APIKey, when set, is required in the x-goog-api-key header.
	APIKey string

	// PollsUntilDone is how many GetOperation calls return done=false
	// before an upload operation completes.
	PollsUntilDone int

	// FailUpload maps a display name to an HTTP status returned on upload.
	FailUpload map[string]int

	// FailOperation maps a display name to an error message the finished
	// operation carries.
	FailOperation map[string]string

	// NeverFinish lists display names whose operations never complete.
	NeverFinish map[string]bool

	// FailDeleteDocument maps a document name to an HTTP status.
	FailDeleteDocument map[string]int

	// FailListDocuments makes document listing return 500.
	FailListDocuments bool

	// PageSize overrides list pagination (default 20).
	PageSize int

	// Generate answers generateContent calls with a status and JSON body.
	// The default returns 200 with a single text part "ok".
	Generate func(body []byte) (int, string)

	mu         sync.Mutex
	stores     map[string]*store
	storeOrder []string
	ops        map[string]*operation
	uploads    []Upload
	calls      []Call
	generated  [][]byte
	seq        int
}

// NewServer starts a fake and registers its shutdown with t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		stores: make(map[string]*store),
		ops:    make(map[string]*operation),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// AddStore creates a store with the given documents and returns its name.
func (s *Server) AddStore(displayName string, docDisplayNames ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.newStoreLocked(displayName)
	for _, dn := range docDisplayNames {
		st.docs = append(st.docs, s.newDocNameLocked(st, dn))
	}
	return st.name
}

// HasStore reports whether the store exists.
func (s *Server) HasStore(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stores[name]
	return ok
}

// Documents returns the document names in a store.
func (s *Server) Documents(storeName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[storeName]
	if !ok {
		return nil
	}
	return append([]string(nil), st.docs...)
}

// Uploads returns every upload received, in order.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Calls returns every request received, in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// GenerateBodies returns the raw generateContent request bodies.
func (s *Server) GenerateBodies() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.generated...)
}

func (s *Server) newStoreLocked(displayName string) *store {
	s.seq++
	slug := strings.ReplaceAll(strings.ToLower(displayName), "-", "")
	if slug == "" {
		slug = "store"
	}
	st := &store{
		name:        fmt.Sprintf("fileSearchStores/%s-%d", slug, s.seq),
		displayName: displayName,
	}
	s.stores[st.name] = st
	s.storeOrder = append(s.storeOrder, st.name)
	return st
}

func (s *Server) newDocNameLocked(st *store, displayName string) string {
	s.seq++
	return fmt.Sprintf("%s/documents/doc-%d", st.name, s.seq)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery})
	s.mu.Unlock()

	if s.APIKey != "" && r.Header.Get("x-goog-api-key") != s.APIKey {
		writeError(w, http.StatusForbidden, "PERMISSION_DENIED", "invalid API key")
		return
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/upload/v1beta/"):
		s.handleUpload(w, r, strings.TrimPrefix(path, "/upload/v1beta/"))
	case strings.HasPrefix(path, "/v1beta/"):
		s.route(w, r, strings.TrimPrefix(path, "/v1beta/"))
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown path "+path)
	}
}

func (s *Server) route(w http.ResponseWriter, r *http.Request, resource string) {
	switch {
	case strings.HasPrefix(resource, "models/") && strings.HasSuffix(resource, ":generateContent"):
		s.handleGenerate(w, r)
	case resource == "fileSearchStores":
		switch r.Method {
		case http.MethodPost:
			s.handleCreateStore(w, r)
		case http.MethodGet:
			s.handleListStores(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "INVALID_ARGUMENT", r.Method)
		}
	case strings.Contains(resource, "/upload/operations/"):
		s.handleGetOperation(w, resource)
	case strings.HasSuffix(resource, "/documents"):
		s.handleListDocuments(w, r, strings.TrimSuffix(resource, "/documents"))
	case strings.Contains(resource, "/documents/"):
		s.handleDeleteDocument(w, r, resource)
	case strings.HasPrefix(resource, "fileSearchStores/"):
		switch r.Method {
		case http.MethodGet:
			s.handleGetStore(w, resource)
		case http.MethodDelete:
			s.handleDeleteStore(w, r, resource)
		default:
			writeError(w, http.StatusMethodNotAllowed, "INVALID_ARGUMENT", r.Method)
		}
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown resource "+resource)
	}
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	s.mu.Lock()
	st := s.newStoreLocked(body.DisplayName)
	out := s.storeJSONLocked(st)
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) storeJSONLocked(st *store) map[string]any {
	return map[string]any{
		"name":                 st.name,
		"displayName":          st.displayName,
		"createTime":           "2026-01-02T03:04:05.000000Z",
		"activeDocumentsCount": strconv.Itoa(len(st.docs)),
	}
}

func (s *Server) pageSize() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return 20
}

// paginate slices names according to pageToken (a decimal offset).
func (s *Server) paginate(r *http.Request, names []string) ([]string, string) {
	start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	if start > len(names) {
		start = len(names)
	}
	end := start + s.pageSize()
	if end >= len(names) {
		return names[start:], ""
	}
	return names[start:end], strconv.Itoa(end)
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, next := s.paginate(r, s.storeOrder)
	out := map[string]any{}
	if len(page) > 0 {
		stores := make([]map[string]any, 0, len(page))
		for _, name := range page {
			stores = append(stores, s.storeJSONLocked(s.stores[name]))
		}
		out["fileSearchStores"] = stores
	}
	if next != "" {
		out["nextPageToken"] = next
	}
	writeJSON(w, out)
}

func (s *Server) handleGetStore(w http.ResponseWriter, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[name]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "store "+name+" not found")
		return
	}
	writeJSON(w, s.storeJSONLocked(st))
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[name]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "store "+name+" not found")
		return
	}
	if len(st.docs) > 0 && r.URL.Query().Get("force") != "true" {
		writeError(w, http.StatusBadRequest, "FAILED_PRECONDITION", "store is not empty")
		return
	}
	delete(s.stores, name)
	for i, n := range s.storeOrder {
		if n == name {
			s.storeOrder = append(s.storeOrder[:i], s.storeOrder[i+1:]...)
			break
		}
	}
	writeJSON(w, map[string]any{})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request, storeName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailListDocuments {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "listing failed")
		return
	}
	st, ok := s.stores[storeName]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "store "+storeName+" not found")
		return
	}
	page, next := s.paginate(r, st.docs)
	docs := make([]map[string]any, 0, len(page))
	for _, d := range page {
		docs = append(docs, map[string]any{"name": d, "state": "STATE_ACTIVE", "sizeBytes": "12"})
	}
	out := map[string]any{"documents": docs}
	if next != "" {
		out["nextPageToken"] = next
	}
	writeJSON(w, out)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "INVALID_ARGUMENT", r.Method)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.FailDeleteDocument[name]; ok {
		writeError(w, code, "INTERNAL", "cannot delete "+name)
		return
	}
	storeName := name[:strings.Index(name, "/documents/")]
	st, ok := s.stores[storeName]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "store "+storeName+" not found")
		return
	}
	for i, d := range st.docs {
		if d == name {
			st.docs = append(st.docs[:i], st.docs[i+1:]...)
			writeJSON(w, map[string]any{})
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "document "+name+" not found")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, resource string) {
	storeName, ok := strings.CutSuffix(resource, ":uploadToFileSearchStore")
	if !ok || r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown upload resource "+resource)
		return
	}

	up, err := parseUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	up.Store = storeName

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, up)

	if code, ok := s.FailUpload[up.DisplayName]; ok {
		writeError(w, code, "INTERNAL", "upload rejected")
		return
	}
	if _, ok := s.stores[storeName]; !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "store "+storeName+" not found")
		return
	}

	s.seq++
	op := &operation{
		name:        fmt.Sprintf("%s/upload/operations/op-%d", storeName, s.seq),
		store:       storeName,
		displayName: up.DisplayName,
		errMsg:      s.FailOperation[up.DisplayName],
		never:       s.NeverFinish[up.DisplayName],
	}
	s.ops[op.name] = op
	s.advanceLocked(op)
	writeJSON(w, s.opJSONLocked(op))
}

// advanceLocked completes an operation once it has been polled enough.
func (s *Server) advanceLocked(op *operation) {
	if op.done || op.never || op.polls < s.PollsUntilDone {
		return
	}
	op.done = true
	if op.errMsg != "" {
		return
	}
	if st, ok := s.stores[op.store]; ok {
		st.docs = append(st.docs, s.newDocNameLocked(st, op.displayName))
	}
}

func (s *Server) opJSONLocked(op *operation) map[string]any {
	out := map[string]any{"name": op.name}
	if op.done {
		out["done"] = true
		if op.errMsg != "" {
			out["error"] = map[string]any{"code": 13, "message": op.errMsg}
		} else {
			out["response"] = map[string]any{"@type": "type.googleapis.com/google.ai.generativelanguage.v1main.UploadToFileSearchStoreResponse"}
		}
	}
	return out
}

func (s *Server) handleGetOperation(w http.ResponseWriter, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[name]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "operation "+name+" not found")
		return
	}
	op.polls++
	s.advanceLocked(op)
	writeJSON(w, s.opJSONLocked(op))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.generated = append(s.generated, body)
	gen := s.Generate
	s.mu.Unlock()

	if gen == nil {
		writeJSON(w, map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": "ok"}}},
			}},
		})
		return
	}
	code, payload := gen(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	io.WriteString(w, payload)
}

func parseUpload(r *http.Request) (Upload, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return Upload{}, err
	}
	if mediaType != "multipart/related" {
		return Upload{}, fmt.Errorf("unexpected content type %q", mediaType)
	}
	mr := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := mr.NextPart()
	if err != nil {
		return Upload{}, fmt.Errorf("reading metadata part: %w", err)
	}
	var meta struct {
		DisplayName string `json:"displayName"`
		MimeType    string `json:"mimeType"`
	}
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		return Upload{}, fmt.Errorf("decoding metadata: %w", err)
	}

	mediaPart, err := mr.NextPart()
	if err != nil {
		return Upload{}, fmt.Errorf("reading media part: %w", err)
	}
	data, err := io.ReadAll(mediaPart)
	if err != nil {
		return Upload{}, err
	}
	return Upload{
		DisplayName: meta.DisplayName,
		Filename:    mediaPart.FileName(),
		MimeType:    meta.MimeType,
		Data:        data,
	}, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, status, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg, "status": status},
	})
}

// SortedStoreNames returns the names of every store, sorted.
func (s *Server) SortedStoreNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.stores))
	for n := range s.stores {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
