package iochttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	ioc "github.com/plumeink/cullinan-ioc"
)

type session struct {
	closed bool
}

func (s *session) OnShutdown(context.Context) error {
	s.closed = true
	return nil
}

type HTTPTestSuite struct {
	suite.Suite
	app      *ioc.ApplicationContext
	sessions chan *session
	router   chi.Router
}

func (s *HTTPTestSuite) SetupTest() {
	s.app = ioc.New()
	s.sessions = make(chan *session, 8)
	s.app.MustRegister(
		ioc.NewDefinition("session", func(ioc.Resolver) (any, error) {
			sess := &session{}
			s.sessions <- sess
			return sess, nil
		}, ioc.WithScope(ioc.ScopeRequest)),
		ioc.NewDefinition("clock", func(ioc.Resolver) (any, error) { return &struct{ n int }{}, nil }, ioc.Eager()),
	)
	s.Require().NoError(s.app.Refresh(context.Background()))

	s.router = NewRouter(s.app, nil, func(r chi.Router) {
		r.Get("/session", func(w http.ResponseWriter, r *http.Request) {
			first, err := FromRequest[*session](r, "session")
			if err != nil {
				WriteError(w, err)
				return
			}
			second, err := FromRequest[*session](r, "session")
			if err != nil {
				WriteError(w, err)
				return
			}
			rc, _ := ioc.CurrentRequestContext(r.Context())
			writeJSON(w, http.StatusOK, map[string]any{"same": first == second, "id": rc.ID()})
		})
		r.Get("/panic", func(_ http.ResponseWriter, r *http.Request) {
			if _, err := FromRequest[*session](r, "session"); err == nil {
				panic("handler exploded")
			}
		})
		r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
			_, err := FromRequest[*session](r, "missing")
			WriteError(w, err)
		})
	})
}

func (s *HTTPTestSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HTTPTestSuite) TestRequestScopePerRequest() {
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set(Header, "req-1")
	rec := s.serve(req)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("req-1", rec.Header().Get(Header))
	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(true, body["same"])
	s.Equal("req-1", body["id"])

	rec = s.serve(httptest.NewRequest(http.MethodGet, "/session", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get(Header))
	s.NotEqual("req-1", rec.Header().Get(Header))

	first, second := <-s.sessions, <-s.sessions
	s.NotSame(first, second)
	s.True(first.closed)
	s.True(second.closed)
	s.Zero(s.app.ActiveRequestContexts())
}

func (s *HTTPTestSuite) TestContextExitedOnPanic() {
	rec := s.serve(httptest.NewRequest(http.MethodGet, "/panic", nil))

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Zero(s.app.ActiveRequestContexts())
	s.True((<-s.sessions).closed)
}

func (s *HTTPTestSuite) TestErrorBody() {
	rec := s.serve(httptest.NewRequest(http.MethodGet, "/missing", nil))

	s.Equal(http.StatusInternalServerError, rec.Code)
	var body errorBody
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(ioc.KindDependencyNotFound, body.Kind)
	s.Equal([]string{"missing"}, body.Names)
}

func (s *HTTPTestSuite) TestNestedRequestScopeIsRejected() {
	handler := RequestScope(s.app, nil)(RequestScope(s.app, nil)(http.NotFoundHandler()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), string(ioc.KindNestedRequestContext))
	s.Zero(s.app.ActiveRequestContexts())
}

func (s *HTTPTestSuite) TestDiagnostics() {
	rec := s.serve(httptest.NewRequest(http.MethodGet, "/debug/ioc/definitions", nil))
	s.Equal(http.StatusOK, rec.Code)
	var defs []ioc.DefinitionInfo
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &defs))
	s.Require().Len(defs, 2)
	s.Equal("session", defs[0].Name)
	s.Equal(ioc.ScopeRequest, defs[0].Scope)

	rec = s.serve(httptest.NewRequest(http.MethodGet, "/debug/ioc/graph", nil))
	s.Equal(http.StatusOK, rec.Code)
	var graph graphBody
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &graph))
	s.Equal("running", graph.State)
	s.Equal([]string{"clock"}, graph.EagerOrder)
	s.Contains(graph.Edges, "session")
}

func (s *HTTPTestSuite) TestFromRequestOutsideScope() {
	_, err := FromRequest[*session](httptest.NewRequest(http.MethodGet, "/", nil), "session")
	s.Equal(ioc.KindScopeNotActive, ioc.KindOf(err))
}

func TestHTTPSuite(t *testing.T) {
	suite.Run(t, new(HTTPTestSuite))
}
