package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/user/moviesearch/internal/config"
	"github.com/user/moviesearch/internal/embedding"
	"github.com/user/moviesearch/internal/handler"
	"github.com/user/moviesearch/internal/model"
	"github.com/user/moviesearch/internal/repository"
	"github.com/user/moviesearch/internal/service"
)

const (
	testIndex = "movies_embedding_hnsw_idx"
	testDim   = 64
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore(testIndex)
	provider := embedding.NewHashProvider(testDim)

	movies := service.NewMovieService(store, provider, testDim)
	search := service.NewSearchService(provider, store, testIndex, testDim, config.DefaultSearchConfig())

	for _, in := range []model.MovieInput{
		{Title: "Interstellar", Overview: "Explorers travel through a wormhole in space.", Genres: []string{"Adventure", "Drama"}},
		{Title: "Heat", Overview: "A detective hunts a crew of thieves."},
	} {
		if _, err := movies.Insert(context.Background(), &in); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	r := gin.New()
	r.Use(sessions.Sessions("moviesearch", cookie.NewStore([]byte("test-secret"))))
	r.HTMLRender = LoadTemplates("../../web/templates")
	RegisterRoutes(r, handler.NewHandler(movies, search))
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(newTestServer(t), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestSemanticSearchEndpoint(t *testing.T) {
	r := newTestServer(t)

	t.Run("ok", func(t *testing.T) {
		w := do(r, http.MethodGet, "/movies/semantic-search?prompt=space+adventure&limit=1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp model.SearchResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Movies) != 1 {
			t.Errorf("expected 1 movie, got %d", len(resp.Movies))
		}
	})

	for _, target := range []string{
		"/movies/semantic-search?limit=3",
		"/movies/semantic-search?prompt=space&limit=0",
		"/movies/semantic-search?prompt=space&limit=11",
		"/movies/semantic-search?prompt=space&limit=abc",
		"/movies/semantic-search?prompt=" + strings.Repeat("a", 65) + "&limit=3",
	} {
		t.Run(target, func(t *testing.T) {
			if w := do(r, http.MethodGet, target, ""); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestMovieCRUDEndpoints(t *testing.T) {
	r := newTestServer(t)

	w := do(r, http.MethodPost, "/movies", `{"title":"Alien","overview":"A deadly creature","genres":["Horror"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created model.Movie
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(w.Body.String(), "embedding") {
		t.Error("embedding must not be serialized")
	}
	idPath := "/movies/id/" + jsonID(created.ID)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"duplicate title", http.MethodPost, "/movies", `{"title":"Alien","overview":"again"}`, http.StatusConflict},
		{"missing overview", http.MethodPost, "/movies", `{"title":"Solo"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/movies", `{"title":`, http.StatusBadRequest},
		{"get by id", http.MethodGet, idPath, "", http.StatusOK},
		{"non-numeric id", http.MethodGet, "/movies/id/abc", "", http.StatusBadRequest},
		{"missing id", http.MethodGet, "/movies/id/999", "", http.StatusNotFound},
		{"get by title", http.MethodGet, "/movies/title?movie_title=Alien", "", http.StatusOK},
		{"missing title", http.MethodGet, "/movies/title?movie_title=Nope", "", http.StatusNotFound},
		{"blank title", http.MethodGet, "/movies/title", "", http.StatusBadRequest},
		{"update by id", http.MethodPut, idPath, `{"title":"Alien","overview":"In space no one can hear you scream"}`, http.StatusOK},
		{"update clash", http.MethodPut, idPath, `{"title":"Heat","overview":"x"}`, http.StatusConflict},
		{"update missing id", http.MethodPut, "/movies/id/999", `{"title":"Ghost","overview":"x"}`, http.StatusNotFound},
		{"update by title", http.MethodPut, "/movies/title?movie_title=Heat", `{"title":"Heat","overview":"Cops and robbers"}`, http.StatusOK},
		{"delete by title", http.MethodDelete, "/movies/title?movie_title=Heat", "", http.StatusOK},
		{"delete by title again", http.MethodDelete, "/movies/title?movie_title=Heat", "", http.StatusNotFound},
		{"delete by id", http.MethodDelete, idPath, "", http.StatusOK},
		{"delete by id again", http.MethodDelete, idPath, "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.target, tt.body)
			if w.Code != tt.status {
				t.Errorf("%s %s: expected %d, got %d: %s", tt.method, tt.target, tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestSearchPage(t *testing.T) {
	r := newTestServer(t)

	t.Run("empty form", func(t *testing.T) {
		doc := render(t, r, "/")
		if doc.Find("form#search-form").Length() != 1 {
			t.Error("search form missing")
		}
		if got, _ := doc.Find("input[name=q]").Attr("maxlength"); got != "64" {
			t.Errorf("expected maxlength 64, got %q", got)
		}
		if doc.Find("select#limit option").Length() != 4 {
			t.Error("expected 4 result-count options")
		}
		if doc.Find("#results").Length() != 0 {
			t.Error("no results before searching")
		}
	})

	t.Run("semantic", func(t *testing.T) {
		doc := render(t, r, "/?mode=semantic&limit=1&q="+url.QueryEscape("space travel"))
		if n := doc.Find("#results .movie").Length(); n != 1 {
			t.Errorf("expected 1 card, got %d", n)
		}
	})

	t.Run("classic", func(t *testing.T) {
		doc := render(t, r, "/?mode=classic&q=Interstellar")
		title := strings.TrimSpace(doc.Find("#results .movie-title").First().Text())
		if title != "Interstellar" {
			t.Errorf("expected Interstellar, got %q", title)
		}
		if genres := doc.Find(".genres").Text(); genres != "Adventure, Drama" {
			t.Errorf("unexpected genres %q", genres)
		}
	})

	t.Run("classic miss", func(t *testing.T) {
		doc := render(t, r, "/?mode=classic&q=Nope")
		if doc.Find(".empty").Length() != 1 {
			t.Error("expected a no-results message")
		}
	})
}

func render(t *testing.T, r http.Handler, target string) *goquery.Document {
	t.Helper()
	w := do(r, http.MethodGet, target, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", target, w.Code)
	}
	doc, err := goquery.NewDocumentFromReader(w.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
