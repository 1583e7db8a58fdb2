package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/ordinancepipe/core"
	"github.com/gaurav-prasanna/ordinancepipe/finder"
)

type fakeAnalyzer struct {
	runFn func(ctx context.Context, url string, rubric core.Rubric) (*core.Analysis, error)
}

func (f *fakeAnalyzer) Run(ctx context.Context, url string, rubric core.Rubric) (*core.Analysis, error) {
	return f.runFn(ctx, url, rubric)
}

type fakeFinder struct {
	findFn func(ctx context.Context, city string) (*finder.Result, error)
}

func (f *fakeFinder) Find(ctx context.Context, city string) (*finder.Result, error) {
	return f.findFn(ctx, city)
}

type staticRubric struct {
	r   core.Rubric
	err error
}

func (s staticRubric) Rubric() (core.Rubric, error) { return s.r, s.err }

type resolverFunc func(ctx context.Context, url string) (string, error)

func (f resolverFunc) Resolve(ctx context.Context, url string) (string, error) { return f(ctx, url) }

func okAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{runFn: func(ctx context.Context, url string, rubric core.Rubric) (*core.Analysis, error) {
		return &core.Analysis{URL: url, Summary: "THE SUMMARY", Scores: core.ScoreReport{"foo": 1, "total": 1}}, nil
	}}
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHealth(t *testing.T) {
	s := New(okAnalyzer(), nil, staticRubric{})
	rec, out := do(t, s.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || out["status"] != "healthy" {
		t.Errorf("got %d %v", rec.Code, out)
	}
}

func TestIndexPage(t *testing.T) {
	h := New(okAnalyzer(), nil, staticRubric{}).Handler()

	rec, _ := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("index: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), `id="zoningForm"`) {
		t.Errorf("index body missing form")
	}

	rec, _ = do(t, h, http.MethodGet, "/static/app.js", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/api/zoning") {
		t.Errorf("app.js: %d", rec.Code)
	}

	rec, _ = do(t, h, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path: %d", rec.Code)
	}
}

func TestAnalyze_Lifecycle(t *testing.T) {
	release := make(chan struct{})
	var gotRubric core.Rubric
	a := &fakeAnalyzer{runFn: func(ctx context.Context, url string, rubric core.Rubric) (*core.Analysis, error) {
		gotRubric = rubric
		<-release
		return &core.Analysis{URL: url, Summary: "THE SUMMARY", Scores: core.ScoreReport{"total": 7}}, nil
	}}
	rubric := core.Rubric{"x": {Weight: 1}}
	s := New(a, nil, staticRubric{r: rubric})
	h := s.Handler()

	rec, out := do(t, h, http.MethodPost, "/api/analyze", `{"link": " https://city.gov/z.pdf "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status %d", rec.Code)
	}
	id, _ := out["job_id"].(string)
	if id == "" {
		t.Fatal("missing job_id")
	}

	_, out = do(t, h, http.MethodGet, "/api/status/"+id, "")
	if st := out["state"]; st != string(StatePending) && st != string(StateStarted) {
		t.Errorf("state before completion = %v", st)
	}

	close(release)
	s.Wait()

	_, out = do(t, h, http.MethodGet, "/api/status/"+id, "")
	if out["state"] != string(StateSuccess) {
		t.Fatalf("final state %v", out)
	}
	result := out["result"].(map[string]any)
	if result["summary"] != "THE SUMMARY" || result["scores"].(map[string]any)["total"] != 7.0 {
		t.Errorf("result = %v", result)
	}
	if result["url"] != "https://city.gov/z.pdf" {
		t.Errorf("link not trimmed: %v", result["url"])
	}
	if gotRubric["x"].Weight != 1 {
		t.Errorf("rubric not passed: %v", gotRubric)
	}
}

func TestAnalyze_Failure(t *testing.T) {
	a := &fakeAnalyzer{runFn: func(ctx context.Context, url string, rubric core.Rubric) (*core.Analysis, error) {
		return nil, core.FetchError("failed to download PDF", errors.New("404"))
	}}
	s := New(a, nil, staticRubric{r: core.Rubric{}})
	id := s.Submit("https://city.gov/missing.pdf")
	s.Wait()

	_, out := do(t, s.Handler(), http.MethodGet, "/api/status/"+id, "")
	if out["state"] != string(StateFailure) || out["error_kind"] != string(core.KindFetch) {
		t.Errorf("got %v", out)
	}
	if !strings.Contains(out["error"].(string), "failed to download PDF") {
		t.Errorf("error = %v", out["error"])
	}
}

func TestAnalyze_RubricFailure(t *testing.T) {
	called := false
	a := &fakeAnalyzer{runFn: func(ctx context.Context, url string, rubric core.Rubric) (*core.Analysis, error) {
		called = true
		return nil, nil
	}}
	s := New(a, nil, staticRubric{err: errors.New("no rubric file")})
	id := s.Submit("https://x/y.pdf")
	s.Wait()

	job, _ := s.Job(id)
	if job.State != StateFailure || called {
		t.Errorf("job = %+v, analyzer called = %v", job, called)
	}
}

func TestAnalyze_ResolvesLandingPage(t *testing.T) {
	var analyzed string
	a := &fakeAnalyzer{runFn: func(ctx context.Context, url string, rubric core.Rubric) (*core.Analysis, error) {
		analyzed = url
		return &core.Analysis{Scores: core.ScoreReport{"total": 1}}, nil
	}}
	s := New(a, nil, staticRubric{r: core.Rubric{}}, WithResolver(resolverFunc(func(ctx context.Context, url string) (string, error) {
		return url + "/code.pdf", nil
	})))
	s.Submit("https://city.gov/planning")
	s.Wait()
	if analyzed != "https://city.gov/planning/code.pdf" {
		t.Errorf("analyzed %q", analyzed)
	}
}

func TestAnalyze_MissingLink(t *testing.T) {
	s := New(okAnalyzer(), nil, staticRubric{})
	for _, body := range []string{`{}`, `{"link": "  "}`, `not json`} {
		rec, out := do(t, s.Handler(), http.MethodPost, "/api/analyze", body)
		if rec.Code != http.StatusBadRequest || out["error"] != "Missing 'link'" {
			t.Errorf("body %q: got %d %v", body, rec.Code, out)
		}
	}
}

func TestStatus_UnknownJob(t *testing.T) {
	s := New(okAnalyzer(), nil, staticRubric{})
	rec, _ := do(t, s.Handler(), http.MethodGet, "/api/status/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d", rec.Code)
	}
}

func TestConcurrencyBound(t *testing.T) {
	running := make(chan struct{}, 10)
	release := make(chan struct{})
	a := &fakeAnalyzer{runFn: func(ctx context.Context, url string, rubric core.Rubric) (*core.Analysis, error) {
		running <- struct{}{}
		<-release
		return &core.Analysis{Scores: core.ScoreReport{"total": 1}}, nil
	}}
	s := New(a, nil, staticRubric{r: core.Rubric{}}, WithMaxConcurrentJobs(2))
	for i := 0; i < 5; i++ {
		s.Submit("https://x/doc.pdf")
	}

	<-running
	<-running
	select {
	case <-running:
		t.Error("more than 2 jobs ran at once")
	case <-time.After(100 * time.Millisecond):
	}
	close(release)
	s.Wait()
}

func TestZoning(t *testing.T) {
	f := &fakeFinder{findFn: func(ctx context.Context, city string) (*finder.Result, error) {
		switch city {
		case "Arlington, MA":
			return &finder.Result{City: city, Link: "https://arlington.gov/z.pdf", FileType: "PDF"}, nil
		case "Nowhere":
			return &finder.Result{City: city}, finder.ErrIncomplete
		default:
			return nil, errors.New("api down")
		}
	}}
	h := New(okAnalyzer(), f, staticRubric{}).Handler()

	tests := []struct {
		body string
		code int
		key  string
		want string
	}{
		{`{"city": "Arlington, MA"}`, http.StatusOK, "link", "https://arlington.gov/z.pdf"},
		{`{}`, http.StatusBadRequest, "error", "City name is required"},
		{`{"city": "  "}`, http.StatusBadRequest, "error", "City name cannot be empty"},
		{`{"city": "Nowhere"}`, http.StatusNotFound, "error", "Could not find zoning ordinance information"},
		{`{"city": "Boom"}`, http.StatusInternalServerError, "error", "api down"},
	}
	for _, tt := range tests {
		rec, out := do(t, h, http.MethodPost, "/api/zoning", tt.body)
		if rec.Code != tt.code || out[tt.key] != tt.want {
			t.Errorf("%s: got %d %v", tt.body, rec.Code, out)
		}
	}
}
