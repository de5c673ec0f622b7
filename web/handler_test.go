package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	fileadapter "github.com/casbin/casbin/v3/persist/file-adapter"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/threadline/authentication"
	"github.com/nasermirzaei89/threadline/authorization"
	"github.com/nasermirzaei89/threadline/authorization/casbin"
	"github.com/nasermirzaei89/threadline/contents"
	"github.com/nasermirzaei89/threadline/db/repository"
	"github.com/nasermirzaei89/threadline/db/sqlite3"
	"github.com/nasermirzaei89/threadline/directory"
	"github.com/nasermirzaei89/threadline/discuss"
	"github.com/nasermirzaei89/threadline/profiles"
	"github.com/nasermirzaei89/threadline/random"
	"github.com/nasermirzaei89/threadline/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPolicy = `g, system:anonymous, system:unauthenticated

p, system:authenticated, github.com/nasermirzaei89/threadline/contents, *, createPost
p, system:authenticated, github.com/nasermirzaei89/threadline/contents, *, getPost
p, system:unauthenticated, github.com/nasermirzaei89/threadline/contents, *, getPost
p, system:authenticated, github.com/nasermirzaei89/threadline/contents, *, listPosts
p, system:unauthenticated, github.com/nasermirzaei89/threadline/contents, *, listPosts
p, system:authenticated, github.com/nasermirzaei89/threadline/discuss, *, createReply
p, system:authenticated, github.com/nasermirzaei89/threadline/discuss, *, getReply
p, system:unauthenticated, github.com/nasermirzaei89/threadline/discuss, *, getReply
p, system:authenticated, github.com/nasermirzaei89/threadline/discuss, *, listReplies
p, system:unauthenticated, github.com/nasermirzaei89/threadline/discuss, *, listReplies
p, system:authenticated, github.com/nasermirzaei89/threadline/discuss, *, resolveBreadcrumb
p, system:unauthenticated, github.com/nasermirzaei89/threadline/discuss, *, resolveBreadcrumb
p, system:authenticated, github.com/nasermirzaei89/threadline/discuss, *, voteReply
p, system:authenticated, github.com/nasermirzaei89/threadline/profiles, *, getProfile
p, system:unauthenticated, github.com/nasermirzaei89/threadline/profiles, *, getProfile
p, system:authenticated, github.com/nasermirzaei89/threadline/profiles, *, editProfile
p, system:authenticated, github.com/nasermirzaei89/threadline/profiles, *, changePassword
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx := context.Background()
	dir := t.TempDir()

	db, err := sqlite3.NewDB(ctx, "file:"+filepath.Join(dir, "web.db")+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlite3.MigrateUp(ctx, db))

	policyFile := filepath.Join(dir, "policy.csv")
	require.NoError(t, os.WriteFile(policyFile, []byte(testPolicy), 0o600))

	provider, err := casbin.NewAuthorizationProvider(fileadapter.NewAdapter(policyFile))
	require.NoError(t, err)

	authzSvc, err := authorization.NewService(provider)
	require.NoError(t, err)

	authzClient := authorization.NewClient(authzSvc)

	authSvc := authentication.NewService(
		repository.NewUserRepository(db, sqlite3.Placeholder),
		repository.NewSessionRepository(db, sqlite3.Placeholder),
		authzClient,
	)

	tokens, err := authentication.NewTokenIssuer(random.Bytes(32), "")
	require.NoError(t, err)

	contentsBase := contents.NewService(repository.NewPostRepository(db, sqlite3.Placeholder))
	discussBase := discuss.NewService(
		repository.NewReplyRepository(db, sqlite3.Placeholder),
		directory.NewAuthors(authSvc),
		directory.NewPosts(contentsBase),
	)

	profilesBase := profiles.NewService(authSvc, contentsBase)

	cookieStore := sessions.NewCookieStore(random.Bytes(32))
	cookieStore.Options.Secure = false

	handler, err := web.NewHandler(
		authSvc,
		tokens,
		contents.NewAuthorizationMiddleware(authzClient, contentsBase),
		discuss.NewAuthorizationMiddleware(authzClient, discussBase),
		profiles.NewAuthorizationMiddleware(authzClient, profilesBase),
		cookieStore,
		prometheus.NewRegistry(),
		web.Config{CSRFAuthKey: random.Bytes(32), Plaintext: true},
	)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

type apiClient struct {
	t      *testing.T
	base   string
	http   *http.Client
	csrf   string
	bearer string
}

func newClient(t *testing.T, srv *httptest.Server) *apiClient {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &apiClient{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *apiClient) do(method, path string, body any) (int, []byte) {
	c.t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.base+path, reader)
	require.NoError(c.t, err)

	req.Header.Set("Content-Type", "application/json")

	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}

	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	res, err := c.http.Do(req)
	require.NoError(c.t, err)

	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	require.NoError(c.t, err)

	return res.StatusCode, data
}

func (c *apiClient) fetchCSRF() {
	c.t.Helper()

	status, data := c.do(http.MethodGet, "/api/auth/csrf", nil)
	require.Equal(c.t, http.StatusOK, status)

	var res struct {
		Token string `json:"csrf_token"`
	}

	require.NoError(c.t, json.Unmarshal(data, &res))
	require.NotEmpty(c.t, res.Token)

	c.csrf = res.Token
}

// signup registers a new user, leaving the client authenticated by both the
// session cookie and a bearer token.
func (c *apiClient) signup(username string) string {
	c.t.Helper()

	c.fetchCSRF()

	creds := map[string]string{"username": username, "password": "password123"}

	status, data := c.do(http.MethodPost, "/api/auth/signup", creds)
	require.Equal(c.t, http.StatusCreated, status, string(data))

	var res struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}

	require.NoError(c.t, json.Unmarshal(data, &res))
	require.NotEmpty(c.t, res.Token)

	c.bearer = res.Token

	return res.User.ID
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()

	var v T

	require.NoError(t, json.Unmarshal(data, &v), string(data))

	return v
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Field     string `json:"field"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

type replyBody struct {
	ID          string  `json:"id"`
	PostID      string  `json:"post_id"`
	ParentID    *string `json:"parent_id"`
	Content     string  `json:"content"`
	ContentHTML string  `json:"content_html"`
	UserVote    int     `json:"user_vote"`
	UpVotes     int     `json:"up_votes"`
	DownVotes   int     `json:"down_votes"`
	Author      *struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		DisplayPicture string `json:"display_picture"`
	} `json:"author"`
}

type voteBody struct {
	UserVote  int `json:"user_vote"`
	UpVotes   int `json:"up_votes"`
	DownVotes int `json:"down_votes"`
}

func createPost(t *testing.T, c *apiClient, title string) string {
	t.Helper()

	status, data := c.do(http.MethodPost, "/api/posts", map[string]any{
		"title":   title,
		"content": "first **post**",
		"flags":   []string{"beginner"},
	})
	require.Equal(t, http.StatusCreated, status, string(data))

	return decode[struct {
		ID string `json:"id"`
	}](t, data).ID
}

func createReply(t *testing.T, c *apiClient, postID, parentID, content string) replyBody {
	t.Helper()

	status, data := c.do(http.MethodPost, "/api/replies", map[string]any{
		"post_id":   postID,
		"parent_id": parentID,
		"content":   content,
	})
	require.Equal(t, http.StatusCreated, status, string(data))

	return decode[replyBody](t, data)
}

func TestVoteScenario(t *testing.T) {
	srv := newTestServer(t)

	alice := newClient(t, srv)
	aliceID := alice.signup("alice")

	bobby := newClient(t, srv)
	bobby.signup("bobby")

	postID := createPost(t, alice, "hello")
	reply := createReply(t, alice, postID, "", "nice post")

	assert.Equal(t, postID, reply.PostID)
	assert.Nil(t, reply.ParentID)
	require.NotNil(t, reply.Author)
	assert.Equal(t, aliceID, reply.Author.ID)
	assert.Equal(t, "alice", reply.Author.Name)

	steps := []struct {
		vote     int
		expected voteBody
	}{
		{vote: 1, expected: voteBody{UserVote: 1, UpVotes: 1, DownVotes: 0}},
		{vote: 1, expected: voteBody{UserVote: 1, UpVotes: 1, DownVotes: 0}},
		{vote: -1, expected: voteBody{UserVote: -1, UpVotes: 0, DownVotes: 1}},
		{vote: 0, expected: voteBody{UserVote: 0, UpVotes: 0, DownVotes: 0}},
	}

	for _, step := range steps {
		status, data := bobby.do(http.MethodPost, "/api/replies/"+reply.ID+"/vote", map[string]any{"userVote": step.vote})
		require.Equal(t, http.StatusOK, status, string(data))
		assert.Equal(t, step.expected, decode[voteBody](t, data))
	}

	status, data := bobby.do(http.MethodPost, "/api/replies/"+reply.ID+"/vote", map[string]any{"userVote": 1})
	require.Equal(t, http.StatusOK, status, string(data))

	status, data = bobby.do(http.MethodGet, "/api/replies/"+reply.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[replyBody](t, data).UserVote)

	status, data = alice.do(http.MethodGet, "/api/replies/"+reply.ID, nil)
	require.Equal(t, http.StatusOK, status)

	seenByAlice := decode[replyBody](t, data)
	assert.Equal(t, 0, seenByAlice.UserVote)
	assert.Equal(t, 1, seenByAlice.UpVotes)
}

func TestVote_Errors(t *testing.T) {
	srv := newTestServer(t)

	alice := newClient(t, srv)
	alice.signup("alice")

	postID := createPost(t, alice, "hello")
	reply := createReply(t, alice, postID, "", "nice post")

	t.Run("invalid vote", func(t *testing.T) {
		status, data := alice.do(http.MethodPost, "/api/replies/"+reply.ID+"/vote", map[string]any{"userVote": 2})
		require.Equal(t, http.StatusBadRequest, status)

		body := decode[errorBody](t, data)
		assert.Equal(t, web.CodeValidation, body.Error.Code)
		assert.Equal(t, "userVote", body.Error.Field)
		assert.NotEmpty(t, body.Error.RequestID)
	})

	t.Run("missing vote", func(t *testing.T) {
		status, _ := alice.do(http.MethodPost, "/api/replies/"+reply.ID+"/vote", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("malformed body", func(t *testing.T) {
		status, data := alice.do(http.MethodPost, "/api/replies/"+reply.ID+"/vote", "not an object")
		require.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, web.CodeInvalidJSON, decode[errorBody](t, data).Error.Code)
	})

	t.Run("unknown reply", func(t *testing.T) {
		status, data := alice.do(http.MethodPost, "/api/replies/missing/vote", map[string]any{"userVote": 1})
		require.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, web.CodeNotFound, decode[errorBody](t, data).Error.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		anonymous := newClient(t, srv)
		anonymous.bearer = "not-a-token"

		status, data := anonymous.do(http.MethodPost, "/api/replies/"+reply.ID+"/vote", map[string]any{"userVote": 1})
		require.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, web.CodeUnauthorized, decode[errorBody](t, data).Error.Code)
	})
}

func TestReplies_Thread(t *testing.T) {
	srv := newTestServer(t)

	alice := newClient(t, srv)
	alice.signup("alice")

	postID := createPost(t, alice, "hello")
	first := createReply(t, alice, postID, "", "first")
	second := createReply(t, alice, postID, "", "second")
	child := createReply(t, alice, postID, first.ID, "child <script>alert(1)</script> **bold**")

	require.NotNil(t, child.ParentID)
	assert.Equal(t, first.ID, *child.ParentID)
	assert.Contains(t, child.ContentHTML, "<strong>bold</strong>")
	assert.NotContains(t, child.ContentHTML, "<script>")

	anonymous := newClient(t, srv)

	t.Run("top level", func(t *testing.T) {
		status, data := anonymous.do(http.MethodGet, "/api/replies?post_id="+postID, nil)
		require.Equal(t, http.StatusOK, status)

		replies := decode[[]replyBody](t, data)
		require.Len(t, replies, 2)
		assert.Equal(t, first.ID, replies[0].ID)
		assert.Equal(t, second.ID, replies[1].ID)
	})

	t.Run("children", func(t *testing.T) {
		status, data := anonymous.do(http.MethodGet, "/api/replies?post_id="+postID+"&parent_id="+first.ID, nil)
		require.Equal(t, http.StatusOK, status)

		replies := decode[[]replyBody](t, data)
		require.Len(t, replies, 1)
		assert.Equal(t, child.ID, replies[0].ID)
	})

	t.Run("missing post id", func(t *testing.T) {
		status, data := anonymous.do(http.MethodGet, "/api/replies", nil)
		require.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "post_id", decode[errorBody](t, data).Error.Field)
	})

	t.Run("invalid token is anonymous", func(t *testing.T) {
		stale := newClient(t, srv)
		stale.bearer = "not-a-token"

		status, _ := stale.do(http.MethodGet, "/api/replies?post_id="+postID, nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("unknown reply", func(t *testing.T) {
		status, _ := anonymous.do(http.MethodGet, "/api/replies/missing", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("empty content", func(t *testing.T) {
		status, data := alice.do(http.MethodPost, "/api/replies", map[string]any{"post_id": postID, "content": "   "})
		require.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "content", decode[errorBody](t, data).Error.Field)
	})
}

func TestBreadcrumb(t *testing.T) {
	srv := newTestServer(t)

	alice := newClient(t, srv)
	alice.signup("alice")

	postID := createPost(t, alice, "hello")
	parent := createReply(t, alice, postID, "", "parent")

	anonymous := newClient(t, srv)

	type breadcrumbBody struct {
		IsReply bool       `json:"is_reply"`
		PostID  string     `json:"post_id"`
		Reply   *replyBody `json:"reply"`
		Post    *struct {
			Title string `json:"title"`
		} `json:"post"`
	}

	status, data := anonymous.do(http.MethodGet, "/api/breadcrumb?post_id="+postID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", string(bytes.TrimSpace(data)))

	status, data = anonymous.do(http.MethodGet, "/api/breadcrumb?post_id="+postID+"&parent_id="+parent.ID, nil)
	require.Equal(t, http.StatusOK, status)

	toReply := decode[breadcrumbBody](t, data)
	assert.True(t, toReply.IsReply)
	require.NotNil(t, toReply.Reply)
	assert.Equal(t, parent.ID, toReply.Reply.ID)

	status, data = anonymous.do(http.MethodGet, "/api/breadcrumb?post_id="+postID+"&parent_id=missing", nil)
	require.Equal(t, http.StatusOK, status)

	toPost := decode[breadcrumbBody](t, data)
	assert.False(t, toPost.IsReply)
	assert.Equal(t, postID, toPost.PostID)
	require.NotNil(t, toPost.Post)
	assert.Equal(t, "hello", toPost.Post.Title)
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t)

	alice := newClient(t, srv)
	alice.signup("alice")

	t.Run("duplicate signup", func(t *testing.T) {
		other := newClient(t, srv)
		other.fetchCSRF()

		status, data := other.do(http.MethodPost, "/api/auth/signup", map[string]string{"username": "alice", "password": "password123"})
		require.Equal(t, http.StatusConflict, status)
		assert.Equal(t, web.CodeConflict, decode[errorBody](t, data).Error.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		other := newClient(t, srv)
		other.fetchCSRF()

		status, _ := other.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "nope-nope"})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("signup without csrf token", func(t *testing.T) {
		other := newClient(t, srv)

		status, data := other.do(http.MethodPost, "/api/auth/signup", map[string]string{"username": "carol", "password": "password123"})
		require.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, web.CodeCSRF, decode[errorBody](t, data).Error.Code)
	})

	t.Run("username availability", func(t *testing.T) {
		status, data := alice.do(http.MethodGet, "/api/auth/username-available?name=ALICE", nil)
		require.Equal(t, http.StatusOK, status)
		assert.False(t, decode[struct {
			Available bool `json:"available"`
		}](t, data).Available)

		status, _ = alice.do(http.MethodGet, "/api/auth/username-available", nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("cookie session needs csrf token", func(t *testing.T) {
		cookieOnly := &apiClient{t: t, base: alice.base, http: alice.http}

		status, data := cookieOnly.do(http.MethodPost, "/api/posts", map[string]any{"title": "t", "content": "c"})
		require.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, web.CodeCSRF, decode[errorBody](t, data).Error.Code)

		cookieOnly.csrf = alice.csrf

		status, data = cookieOnly.do(http.MethodPost, "/api/posts", map[string]any{"title": "t", "content": "c"})
		assert.Equal(t, http.StatusCreated, status, string(data))
	})

	t.Run("logout", func(t *testing.T) {
		bobby := newClient(t, srv)
		bobby.signup("bobby")

		status, _ := bobby.do(http.MethodGet, "/api/auth/me", nil)
		require.Equal(t, http.StatusOK, status)

		status, _ = bobby.do(http.MethodPost, "/api/auth/logout", nil)
		require.Equal(t, http.StatusNoContent, status)

		status, _ = bobby.do(http.MethodGet, "/api/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestPosts(t *testing.T) {
	srv := newTestServer(t)

	alice := newClient(t, srv)
	alice.signup("alice")

	postID := createPost(t, alice, "hello")

	anonymous := newClient(t, srv)

	status, data := anonymous.do(http.MethodGet, "/api/posts/"+postID, nil)
	require.Equal(t, http.StatusOK, status)

	post := decode[struct {
		Title       string   `json:"title"`
		ContentHTML string   `json:"content_html"`
		Flags       []string `json:"flags"`
	}](t, data)
	assert.Equal(t, "hello", post.Title)
	assert.Contains(t, post.ContentHTML, "<strong>post</strong>")
	assert.Equal(t, []string{"beginner"}, post.Flags)

	status, data = anonymous.do(http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, data), 1)

	status, _ = anonymous.do(http.MethodGet, "/api/posts/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, data = alice.do(http.MethodPost, "/api/posts", map[string]any{"title": "t", "content": "c", "flags": []string{"nope"}})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "flags", decode[errorBody](t, data).Error.Field)
}

type profileBody struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Bio            string `json:"bio"`
	DisplayPicture string `json:"display_picture"`
	Email          string `json:"email"`
	IsOwner        bool   `json:"is_owner"`
	Posts          []struct {
		ID       string `json:"id"`
		AuthorID string `json:"author_id"`
	} `json:"posts"`
}

func TestProfiles(t *testing.T) {
	srv := newTestServer(t)

	alice := newClient(t, srv)
	aliceID := alice.signup("alice")

	bobby := newClient(t, srv)
	bobby.signup("bobby")

	postID := createPost(t, alice, "hello")
	createPost(t, bobby, "not alice")
	reply := createReply(t, alice, postID, "", "nice post")

	anonymous := newClient(t, srv)
	anonymous.fetchCSRF()

	t.Run("edit own profile", func(t *testing.T) {
		status, data := alice.do(http.MethodPost, "/api/profile", map[string]any{
			"bio":             "writes things",
			"email":           "alice@example.com",
			"display_picture": "https://example.com/alice.png",
		})
		require.Equal(t, http.StatusOK, status, string(data))

		profile := decode[profileBody](t, data)
		assert.Equal(t, aliceID, profile.ID)
		assert.Equal(t, "writes things", profile.Bio)
		assert.Equal(t, "alice@example.com", profile.Email)
		assert.True(t, profile.IsOwner)

		status, data = anonymous.do(http.MethodGet, "/api/replies/"+reply.ID, nil)
		require.Equal(t, http.StatusOK, status)

		author := decode[replyBody](t, data).Author
		require.NotNil(t, author)
		assert.Equal(t, "https://example.com/alice.png", author.DisplayPicture)
	})

	t.Run("owner view", func(t *testing.T) {
		status, data := alice.do(http.MethodGet, "/api/profiles/alice", nil)
		require.Equal(t, http.StatusOK, status, string(data))

		profile := decode[profileBody](t, data)
		assert.True(t, profile.IsOwner)
		assert.Equal(t, "alice@example.com", profile.Email)
		require.Len(t, profile.Posts, 1)
		assert.Equal(t, postID, profile.Posts[0].ID)
	})

	t.Run("public view hides email", func(t *testing.T) {
		status, data := anonymous.do(http.MethodGet, "/api/profiles/ALICE", nil)
		require.Equal(t, http.StatusOK, status, string(data))

		profile := decode[profileBody](t, data)
		assert.Equal(t, "alice", profile.Username)
		assert.Equal(t, "writes things", profile.Bio)
		assert.False(t, profile.IsOwner)
		assert.Empty(t, profile.Email)
		assert.Len(t, profile.Posts, 1)
	})

	t.Run("unknown profile", func(t *testing.T) {
		status, data := anonymous.do(http.MethodGet, "/api/profiles/nobody", nil)
		require.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, web.CodeNotFound, decode[errorBody](t, data).Error.Code)
	})

	t.Run("rename to a taken username", func(t *testing.T) {
		status, data := alice.do(http.MethodPost, "/api/profile", map[string]any{"username": "bobby"})
		require.Equal(t, http.StatusConflict, status)
		assert.Equal(t, web.CodeConflict, decode[errorBody](t, data).Error.Code)
	})

	t.Run("invalid email", func(t *testing.T) {
		status, data := alice.do(http.MethodPost, "/api/profile", map[string]any{"email": "not-an-email"})
		require.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "email", decode[errorBody](t, data).Error.Field)
	})

	t.Run("anonymous edit", func(t *testing.T) {
		status, data := anonymous.do(http.MethodPost, "/api/profile", map[string]any{"bio": "hijacked"})
		require.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, web.CodeUnauthorized, decode[errorBody](t, data).Error.Code)

		status, _ = anonymous.do(http.MethodPost, "/api/profile/password", map[string]any{
			"oldPassword": "password123",
			"newPassword": "password456",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("change password", func(t *testing.T) {
		status, data := bobby.do(http.MethodPost, "/api/profile/password", map[string]any{
			"oldPassword": "wrong-password",
			"newPassword": "password456",
		})
		require.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "oldPassword", decode[errorBody](t, data).Error.Field)

		status, _ = bobby.do(http.MethodPost, "/api/profile/password", map[string]any{
			"oldPassword": "password123",
			"newPassword": "short",
		})
		require.Equal(t, http.StatusBadRequest, status)

		status, data = bobby.do(http.MethodPost, "/api/profile/password", map[string]any{
			"oldPassword": "password123",
			"newPassword": "password456",
		})
		require.Equal(t, http.StatusNoContent, status, string(data))

		fresh := newClient(t, srv)
		fresh.fetchCSRF()

		status, _ = fresh.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "bobby", "password": "password123"})
		require.Equal(t, http.StatusUnauthorized, status)

		status, data = fresh.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "bobby", "password": "password456"})
		assert.Equal(t, http.StatusOK, status, string(data))
	})
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	status, data := c.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", string(data))

	status, _ = c.do(http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, status)

	status, data = c.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `threadline_http_requests_total{method="GET",route="/api/posts",status="200"}`)

	status, data = c.do(http.MethodGet, "/nowhere", nil)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, web.CodeNotFound, decode[errorBody](t, data).Error.Code)
}

func TestNewHandler_ShortCSRFKey(t *testing.T) {
	t.Parallel()

	_, err := web.NewHandler(nil, nil, nil, nil, nil, sessions.NewCookieStore(random.Bytes(32)), prometheus.NewRegistry(), web.Config{CSRFAuthKey: []byte("short")})
	require.Error(t, err)
}
