// Package archivetest runs a scripted fake of the archive API for tests.
package archivetest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"swh-client/internal/platform/httpclient"
)

// Reply is one scripted response.
type Reply struct {
	Status int
	Body   string
	Header map[string]string
}

// Hit is one request the server received.
type Hit struct {
	Method        string
	Path          string
	RequestURI    string
	Accept        string
	Authorization string
	UserAgent     string
}

// Server serves /api/1/*. Unscripted paths answer 200 with a small JSON document.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	scripts map[string][]Reply
	hits    []Hit
}

// New starts a server and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{scripts: make(map[string][]Reply)}
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(gin.Recovery())
	r.Any("/api/1/*path", s.handle)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Script queues replies for path. The last reply repeats once the queue drains.
func (s *Server) Script(path string, replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[path] = append(s.scripts[path], replies...)
}

// Hits returns the requests received so far.
func (s *Server) Hits() []Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Hit(nil), s.hits...)
}

// Pool returns a pool pointing at the server.
func (s *Server) Pool(name, token string) httpclient.Pool {
	return httpclient.Pool{Name: name, BaseURL: s.URL, Token: token}
}

func (s *Server) handle(c *gin.Context) {
	req := c.Request
	s.mu.Lock()
	s.hits = append(s.hits, Hit{
		Method:        req.Method,
		Path:          req.URL.Path,
		RequestURI:    req.RequestURI,
		Accept:        req.Header.Get("Accept"),
		Authorization: req.Header.Get("Authorization"),
		UserAgent:     req.Header.Get("User-Agent"),
	})
	reply, ok := s.next(req.URL.Path)
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusOK, gin.H{"path": strings.TrimPrefix(req.URL.Path, "/api/1/")})
		return
	}
	for k, v := range reply.Header {
		c.Header(k, v)
	}
	ct := "application/json"
	if v, ok := reply.Header["Content-Type"]; ok {
		ct = v
	}
	c.Data(reply.Status, ct, []byte(reply.Body))
}

// next pops the scripted reply for path. Caller holds mu.
func (s *Server) next(path string) (Reply, bool) {
	q := s.scripts[path]
	if len(q) == 0 {
		return Reply{}, false
	}
	r := q[0]
	if len(q) > 1 {
		s.scripts[path] = q[1:]
	}
	return r, true
}
