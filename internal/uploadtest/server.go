// Package uploadtest provides an in-memory receiving server for the upload endpoints.
package uploadtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Endpoint paths served by Server.
const (
	SinglePath = "/api/upload-single"
	ChunkPath  = "/api/upload-chunk"
	ListPath   = "/api/files"
)

const maxMemory = 32 << 20

// Request is a recorded upload request.
type Request struct {
	Path          string
	FileName      string
	ContentType   string
	Body          []byte
	ChunkIndex    string
	TotalChunks   string
	Authorization string
}

type failure struct {
	status int
	body   string
}

// Server records upload requests and assembles chunked files in memory.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	requests    []Request
	files       map[string][]byte
	partial     map[string]*bytes.Buffer
	nextChunk   map[string]int
	failSingle  *failure
	failChunks  map[int]failure
	failList    *failure
	inFlight    int32
	maxInFlight int32
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		files:      map[string][]byte{},
		partial:    map[string]*bytes.Buffer{},
		nextChunk:  map[string]int{},
		failChunks: map[int]failure{},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.trackInFlight)
	r.Post(SinglePath, s.handleSingle)
	r.Post(ChunkPath, s.handleChunk)
	r.Get(ListPath, s.handleList)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)

	return s
}

// FailSingle makes the whole-file endpoint answer with status and body.
func (s *Server) FailSingle(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSingle = &failure{status: status, body: body}
}

// FailChunk makes the chunk endpoint answer with status and body for the chunk at index.
func (s *Server) FailChunk(index, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failChunks[index] = failure{status: status, body: body}
}

// FailList makes the listing endpoint answer with status and body.
func (s *Server) FailList(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failList = &failure{status: status, body: body}
}

// Requests returns the recorded upload requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// File returns the stored content of a completed upload.
func (s *Server) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

// MaxInFlight returns the highest number of concurrently handled requests.
func (s *Server) MaxInFlight() int {
	return int(atomic.LoadInt32(&s.maxInFlight))
}

func (s *Server) trackInFlight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&s.inFlight, 1)
		defer atomic.AddInt32(&s.inFlight, -1)
		for {
			peak := atomic.LoadInt32(&s.maxInFlight)
			if current <= peak || atomic.CompareAndSwapInt32(&s.maxInFlight, peak, current) {
				break
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	req, ok := s.record(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSingle != nil {
		writeRaw(w, s.failSingle.status, s.failSingle.body)
		return
	}
	s.files[req.FileName] = req.Body
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	req, ok := s.record(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(req.ChunkIndex)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid currentChunkIndex"})
		return
	}
	total, err := strconv.Atoi(req.TotalChunks)
	if err != nil || total <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid totalChunks"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.failChunks[index]; ok {
		writeRaw(w, f.status, f.body)
		return
	}

	if index == 0 {
		s.partial[req.FileName] = &bytes.Buffer{}
		s.nextChunk[req.FileName] = 0
	}
	buf, ok := s.partial[req.FileName]
	if !ok || s.nextChunk[req.FileName] != index {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "unexpected chunk"})
		return
	}
	buf.Write(req.Body)
	s.nextChunk[req.FileName] = index + 1

	if index == total-1 {
		s.files[req.FileName] = buf.Bytes()
		delete(s.partial, req.FileName)
		delete(s.nextChunk, req.FileName)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failList != nil {
		writeRaw(w, s.failList.status, s.failList.body)
		return
	}

	type entry struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
	files := make([]entry, 0, len(s.files))
	for name, data := range s.files {
		files = append(files, entry{Name: name, Size: int64(len(data))})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) (Request, bool) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return Request{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file"})
		return Request{}, false
	}
	defer file.Close() //nolint:errcheck

	body, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return Request{}, false
	}

	req := Request{
		Path:          r.URL.Path,
		FileName:      header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
		Body:          body,
		ChunkIndex:    r.FormValue("currentChunkIndex"),
		TotalChunks:   r.FormValue("totalChunks"),
		Authorization: r.Header.Get("Authorization"),
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	if body != "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
