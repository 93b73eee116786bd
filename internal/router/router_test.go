package router

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hnlite/internal/config"
	"hnlite/internal/db"
)

type envelope struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Error       string          `json:"error"`
	IsFormError bool            `json:"isFormError"`
	Data        json.RawMessage `json:"data"`
	Pagination  *struct {
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.OpenMemory("router_" + uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := config.Config{
		SessionSecret:    "test-session-secret-0123456789",
		AllowedOrigins:   []string{"http://localhost:5173"},
		RateLimitPerMin:  100000,
		CommentMaxLength: 200,
		PageDefaultLimit: 10,
		PageMaxLimit:     100,
	}
	return &testServer{t: t, engine: New(cfg, conn, zap.NewNop())}
}

// do sends a form-encoded request with an optional session cookie.
func (s *testServer) do(method, path string, form url.Values, cookie *http.Cookie) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (s *testServer) signup(username string) *http.Cookie {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/auth/signup", url.Values{"username": {username}, "password": {"password1"}}, nil)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	require.True(s.t, env.Success)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			return c
		}
	}
	s.t.Fatalf("signup for %s set no session cookie", username)
	return nil
}

type idOnly struct {
	ID uint `json:"id"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (s *testServer) createPost(cookie *http.Cookie) uint {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/posts", url.Values{"title": {"Ask HN: testing"}, "content": {"body"}}, cookie)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[idOnly](s.t, env.Data).ID
}

func (s *testServer) createTopComment(postID uint, cookie *http.Cookie) uint {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, fmt.Sprintf("/posts/%d/comment", postID), url.Values{"content": {"top"}}, cookie)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[idOnly](s.t, env.Data).ID
}

func TestReplyVoteAndList(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice")
	bob := s.signup("bob")

	postID := s.createPost(alice)
	topID := s.createTopComment(postID, alice)

	// reply
	rec, env := s.do(http.MethodPost, fmt.Sprintf("/comments/%d", topID), url.Values{"content": {"a *reply*"}}, bob)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Comment Created", env.Message)
	var reply map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.EqualValues(t, 1, reply["depth"])
	assert.EqualValues(t, postID, reply["postId"])
	assert.EqualValues(t, topID, reply["parentCommentId"])
	assert.Equal(t, []any{}, reply["childComments"])
	assert.Equal(t, []any{}, reply["commentUpvotes"])
	assert.Equal(t, map[string]any{"id": float64(2), "username": "bob"}, reply["author"])
	replyID := uint(reply["id"].(float64))

	// upvote toggles
	type voteData struct {
		Count          int `json:"count"`
		CommentUpvotes []struct {
			UserID uint `json:"userId"`
		} `json:"commentUpvotes"`
	}
	rec, env = s.do(http.MethodPost, fmt.Sprintf("/comments/%d/upvote", replyID), nil, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Comment updated", env.Message)
	vote := decode[voteData](t, env.Data)
	assert.Equal(t, 1, vote.Count)
	require.Len(t, vote.CommentUpvotes, 1)
	assert.EqualValues(t, 1, vote.CommentUpvotes[0].UserID)

	// listing as alice sees her vote, bob does not
	rec, env = s.do(http.MethodGet, fmt.Sprintf("/comments/%d/comments", topID), nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Comments fetched", env.Message)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Page)
	assert.Equal(t, 1, env.Pagination.TotalPages)
	items := decode[[]map[string]any](t, env.Data)
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0]["isUpvoted"])
	assert.EqualValues(t, 1, items[0]["points"])
	assert.Contains(t, items[0]["contentHtml"], "<em>reply</em>")

	_, env = s.do(http.MethodGet, fmt.Sprintf("/comments/%d/comments", topID), nil, bob)
	items = decode[[]map[string]any](t, env.Data)
	assert.Equal(t, false, items[0]["isUpvoted"])
	assert.Equal(t, []any{}, items[0]["commentUpvotes"])

	_, env = s.do(http.MethodGet, fmt.Sprintf("/comments/%d/comments", topID), nil, nil)
	items = decode[[]map[string]any](t, env.Data)
	assert.NotContains(t, items[0], "isUpvoted")
	assert.NotContains(t, items[0], "childComments")

	// second toggle retracts
	_, env = s.do(http.MethodPost, fmt.Sprintf("/comments/%d/upvote", replyID), nil, alice)
	vote = decode[voteData](t, env.Data)
	assert.Equal(t, 0, vote.Count)
	assert.Empty(t, vote.CommentUpvotes)

	// the top comment and the post both counted the reply
	_, env = s.do(http.MethodGet, fmt.Sprintf("/posts/%d/comments", postID), nil, nil)
	items = decode[[]map[string]any](t, env.Data)
	require.Len(t, items, 1)
	assert.EqualValues(t, 1, items[0]["commentCount"])

	_, env = s.do(http.MethodGet, fmt.Sprintf("/posts/%d", postID), nil, nil)
	post := decode[map[string]any](t, env.Data)
	assert.EqualValues(t, 2, post["commentCount"])
}

func TestPostUpvote(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice")
	postID := s.createPost(alice)

	type voteData struct {
		Count     int  `json:"count"`
		IsUpvoted bool `json:"isUpvoted"`
	}
	rec, env := s.do(http.MethodPost, fmt.Sprintf("/posts/%d/upvote", postID), nil, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, voteData{Count: 1, IsUpvoted: true}, decode[voteData](t, env.Data))

	_, env = s.do(http.MethodGet, "/posts", nil, alice)
	var posts []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, true, posts[0]["isUpvoted"])
}

func TestMutationsRequireSession(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/comments/1", "/comments/1/upvote", "/posts", "/posts/1/upvote", "/posts/1/comment"} {
		rec, env := s.do(http.MethodPost, path, url.Values{"content": {"x"}}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.False(t, env.Success)
		assert.Equal(t, "Unauthorized", env.Error)
	}

	rec, _ := s.do(http.MethodGet, "/auth/user", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMissingTargets(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice")

	rec, env := s.do(http.MethodPost, "/comments/999/upvote", nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Comment not found", env.Error)

	rec, env = s.do(http.MethodPost, "/comments/999", url.Values{"content": {"hello"}}, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Comment not found", env.Error)

	rec, env = s.do(http.MethodPost, "/posts/999/comment", url.Values{"content": {"hello"}}, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Post not found", env.Error)

	rec, _ = s.do(http.MethodPost, "/comments/abc/upvote", nil, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// listing under a parent that does not exist is just empty
	rec, env = s.do(http.MethodGet, "/comments/999/comments", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))
	assert.Equal(t, 0, env.Pagination.TotalPages)
}

func TestCreateCommentValidation(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice")
	postID := s.createPost(alice)
	topID := s.createTopComment(postID, alice)

	tests := []struct {
		name    string
		form    url.Values
		wantErr string
	}{
		{"missing", url.Values{}, "content is required"},
		{"blank", url.Values{"content": {"   "}}, "content cannot be empty"},
		{"too long", url.Values{"content": {strings.Repeat("x", 201)}}, "content must be at most 200 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(http.MethodPost, fmt.Sprintf("/comments/%d", topID), tt.form, alice)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.True(t, env.IsFormError)
			assert.Equal(t, tt.wantErr, env.Error)
		})
	}
}

func TestListQueryValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		query   string
		wantErr string
	}{
		{"sortBy=hot", "sortBy must be one of: points, recent"},
		{"order=sideways", "order must be one of: asc, desc"},
		{"page=0", "page must be at least 1"},
		{"limit=101", "limit must be at most 100"},
		{"page=abc", "Invalid request parameters"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec, env := s.do(http.MethodGet, "/comments/1/comments?"+tt.query, nil, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			assert.False(t, env.IsFormError)
			assert.Equal(t, tt.wantErr, env.Error)
		})
	}
}

func TestPagination(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice")
	postID := s.createPost(alice)
	topID := s.createTopComment(postID, alice)
	for i := 0; i < 5; i++ {
		rec, _ := s.do(http.MethodPost, fmt.Sprintf("/comments/%d", topID), url.Values{"content": {fmt.Sprintf("reply %d", i)}}, alice)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	_, env := s.do(http.MethodGet, fmt.Sprintf("/comments/%d/comments?limit=2&page=3&sortBy=recent&order=asc", topID), nil, nil)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)
	assert.Equal(t, "reply 4", items[0]["content"])
	assert.Equal(t, 3, env.Pagination.Page)
	assert.Equal(t, 3, env.Pagination.TotalPages)

	_, env = s.do(http.MethodGet, fmt.Sprintf("/comments/%d/comments?limit=2&page=9", topID), nil, nil)
	assert.JSONEq(t, "[]", string(env.Data))
	assert.Equal(t, 9, env.Pagination.Page)

	// (page-1)*limit would overflow int; still a page past the end
	tests := []struct {
		path       string
		totalPages int
	}{
		{fmt.Sprintf("/comments/%d/comments?limit=2&page=%d", topID, math.MaxInt), 3},
		{fmt.Sprintf("/posts?limit=2&page=%d", math.MaxInt), 1},
	}
	for _, tt := range tests {
		rec, env := s.do(http.MethodGet, tt.path, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, "[]", string(env.Data), tt.path)
		assert.Equal(t, math.MaxInt, env.Pagination.Page)
		assert.Equal(t, tt.totalPages, env.Pagination.TotalPages)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	s.signup("alice")

	rec, env := s.do(http.MethodPost, "/auth/signup", url.Values{"username": {"alice"}, "password": {"password1"}}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, env.IsFormError)

	rec, env = s.do(http.MethodPost, "/auth/login", url.Values{"username": {"alice"}, "password": {"nope"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect username or password", env.Error)

	rec, _ = s.do(http.MethodPost, "/auth/login", url.Values{"username": {"alice"}, "password": {"password1"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	rec, env = s.do(http.MethodGet, "/auth/user", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"username":"alice"}`, string(env.Data))
}

func TestOperability(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec, _ = s.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hnlite_http_request_duration_seconds")
}
