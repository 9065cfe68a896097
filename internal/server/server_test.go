package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"atelier/internal/config"
	"atelier/internal/models"
	"atelier/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret        = "test-secret-key-12345678901234567890123456789012"
	testWebhookSecret = "whsec_test"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                         "0",
		Env:                          "test",
		JWTSecret:                    testSecret,
		JWTIssuer:                    "atelier-api",
		JWTAudience:                  "atelier-client",
		AllowedOrigins:               "*",
		ArtworkFeeCents:              500,
		ArtworkCurrency:              "USD",
		PaymentWebhookSecret:         testWebhookSecret,
		PaymentConfirmTimeoutSeconds: 5,
		RisingWindowHours:            48,
	}
}

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	s, err := NewServerWithDeps(testConfig(), db, nil)
	require.NoError(t, err)
	return s, db
}

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": "atelier-api",
		"aud": "atelier-client",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type apiResponse struct {
	Status int
	Body   map[string]any
}

func (r apiResponse) code() string {
	c, _ := r.Body["code"].(string)
	return c
}

func send(t *testing.T, s *Server, req *http.Request) apiResponse {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := apiResponse{Status: resp.StatusCode}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

func call(t *testing.T, s *Server, method, path, bearer string, body any) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return send(t, s, req)
}

func pay(t *testing.T, s *Server, postID uint, body map[string]any, signature func([]byte) string) apiResponse {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/posts/%d/payment", postID), bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if signature != nil {
		req.Header.Set(SignatureHeader, signature(b))
	}
	return send(t, s, req)
}

func validSignature(b []byte) string { return Sign(testWebhookSecret, b) }

func idOf(t *testing.T, v any) uint {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected an object, got %T", v)
	id, ok := m["id"].(float64)
	require.True(t, ok)
	return uint(id)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	live := call(t, s, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, live.Status)
	assert.Equal(t, "up", live.Body["status"])

	ready := call(t, s, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, ready.Status)
	assert.Equal(t, "degraded", ready.Body["status"])
	checks := ready.Body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestCreatePost_HTTP(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	cat := testutil.CreateCategory(t, db, "digital")
	author := token(t, 7, "")

	res := call(t, s, http.MethodPost, "/api/posts", "", map[string]any{"categoryId": cat.ID, "title": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = call(t, s, http.MethodPost, "/api/posts", author, map[string]any{
		"categoryId": cat.ID, "type": "text", "title": "Hello", "content": "<b>world</b><script>x</script>", "tags": []string{"Intro"},
	})
	require.Equal(t, http.StatusCreated, res.Status)
	post := res.Body["post"].(map[string]any)
	assert.Equal(t, "approved", post["verificationStatus"])
	assert.Equal(t, "none", post["paymentStatus"])
	assert.Equal(t, float64(7), post["authorId"])
	assert.NotContains(t, post["content"], "script")
	assert.NotContains(t, res.Body, "paymentRequired")

	res = call(t, s, http.MethodPost, "/api/posts", author, map[string]any{
		"categoryId": cat.ID, "type": "artwork", "title": "Dawn", "mediaUrl": "https://cdn.example.com/dawn.png",
	})
	require.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, true, res.Body["paymentRequired"])
	assert.Equal(t, 5.0, res.Body["amount"])
	assert.Equal(t, "USD", res.Body["currency"])
	assert.NotEmpty(t, res.Body["paymentId"])
	assert.Equal(t, "pending", res.Body["post"].(map[string]any)["verificationStatus"])

	res = call(t, s, http.MethodPost, "/api/posts", author, map[string]any{"categoryId": cat.ID, "type": "poll", "title": "?"})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, models.CodeValidation, res.code())
}

func TestConfirmPayment_HTTP(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	cat := testutil.CreateCategory(t, db, "prints")
	author := token(t, 3, "")

	created := call(t, s, http.MethodPost, "/api/posts", author, map[string]any{
		"categoryId": cat.ID, "type": "artwork", "title": "Tide", "mediaUrl": "https://cdn.example.com/tide.png",
	})
	require.Equal(t, http.StatusCreated, created.Status)
	postID := idOf(t, created.Body["post"])
	body := map[string]any{"providerId": "pi_http", "amount": 5.00, "currency": "USD"}

	res := pay(t, s, postID, body, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	res = pay(t, s, postID, body, func([]byte) string { return Sign("wrong", []byte("{}")) })
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = pay(t, s, postID, body, validSignature)
	require.Equal(t, http.StatusOK, res.Status)
	payment := res.Body["payment"].(map[string]any)
	assert.Equal(t, "succeeded", payment["status"])
	assert.Equal(t, "pi_http", payment["providerId"])
	assert.Equal(t, false, res.Body["duplicate"])
	assert.Equal(t, 5.0, res.Body["amount"])

	again := pay(t, s, postID, body, validSignature)
	require.Equal(t, http.StatusOK, again.Status)
	assert.Equal(t, true, again.Body["duplicate"])
	assert.Equal(t, payment["id"], again.Body["payment"].(map[string]any)["id"])

	bare := pay(t, s, postID, map[string]any{"providerId": "pi_http"}, validSignature)
	require.Equal(t, http.StatusOK, bare.Status, "a replay without an amount still gets the stored payment")
	assert.Equal(t, true, bare.Body["duplicate"])

	res = pay(t, s, postID, map[string]any{"providerId": "pi_zero", "amount": 0}, validSignature)
	assert.Equal(t, http.StatusConflict, res.Status, "a new reference on a paid post is refused before amount checks")

	res = pay(t, s, postID, map[string]any{"providerId": "pi_other", "amount": 5.00}, validSignature)
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.Equal(t, models.CodeNotEligible, res.code())

	text := testutil.CreateListedPost(t, db, 3, cat.ID, "plain")
	res = pay(t, s, text.ID, map[string]any{"providerId": "pi_text", "amount": 5.00}, validSignature)
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = pay(t, s, postID, map[string]any{"providerId": "pi_odd", "amount": 5.00, "status": "pending"}, validSignature)
	assert.Equal(t, http.StatusBadRequest, res.Status)

	assert.Equal(t, models.PaymentStatusPaid, testutil.Reload(t, db, postID).PaymentStatus)
}

func TestModeration_HTTP(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	cat := testutil.CreateCategory(t, db, "sculpture")
	post := testutil.CreatePaidArtwork(t, db, 4, cat.ID, "bust")
	mod := token(t, 50, "moderator")
	user := token(t, 4, "")

	res := call(t, s, http.MethodGet, "/api/moderation/queue", user, nil)
	assert.Equal(t, http.StatusForbidden, res.Status)
	res = call(t, s, http.MethodGet, "/api/moderation/queue", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = call(t, s, http.MethodGet, "/api/moderation/queue?page=1&limit=10", mod, nil)
	require.Equal(t, http.StatusOK, res.Status)
	queue := res.Body["posts"].([]any)
	require.Len(t, queue, 1)
	assert.Equal(t, post.ID, idOf(t, queue[0]))
	assert.Equal(t, float64(1), res.Body["pagination"].(map[string]any)["total"])

	decision := fmt.Sprintf("/api/moderation/%d/decision", post.ID)
	res = call(t, s, http.MethodPost, decision, mod, map[string]any{"action": "reject"})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, models.CodeValidation, res.code())

	res = call(t, s, http.MethodPost, decision, mod, map[string]any{"action": "approve", "notes": "lovely"})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "approved", res.Body["post"].(map[string]any)["verificationStatus"])

	res = call(t, s, http.MethodPost, decision, mod, map[string]any{"action": "approve"})
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.Equal(t, models.CodeInvalidTransition, res.code())

	res = call(t, s, http.MethodGet, fmt.Sprintf("/api/moderation/%d/actions", post.ID), mod, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.Body["actions"], 3)

	listing := call(t, s, http.MethodGet, "/api/posts?sort=top", "", nil)
	require.Equal(t, http.StatusOK, listing.Status)
	posts := listing.Body["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, idOf(t, posts[0]))

	res = call(t, s, http.MethodPost, "/api/moderation/abc/decision", mod, map[string]any{"action": "flag"})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "Invalid post ID", res.Body["error"])
}

func TestVotes_HTTP(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	cat := testutil.CreateCategory(t, db, "photo")
	listed := testutil.CreateListedPost(t, db, 1, cat.ID, "sunset")
	queued := testutil.CreatePaidArtwork(t, db, 1, cat.ID, "queued")
	voter := token(t, 2, "")

	path := fmt.Sprintf("/api/posts/%d/vote", listed.ID)
	res := call(t, s, http.MethodPost, path, voter, map[string]any{"voteType": "up"})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, map[string]any{"upvotes": float64(1), "downvotes": float64(0)}, res.Body)

	res = call(t, s, http.MethodPost, path, voter, map[string]any{"voteType": "down"})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, map[string]any{"upvotes": float64(0), "downvotes": float64(1)}, res.Body)

	res = call(t, s, http.MethodDelete, path, voter, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, float64(0), res.Body["downvotes"])

	res = call(t, s, http.MethodPost, path, voter, map[string]any{"voteType": "meh"})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = call(t, s, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", queued.ID), voter, map[string]any{"voteType": "up"})
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.Equal(t, models.CodeNotEligible, res.code())

	res = call(t, s, http.MethodPost, "/api/posts/9999/vote", voter, map[string]any{"voteType": "up"})
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestComments_HTTP(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	cat := testutil.CreateCategory(t, db, "threads")
	post := testutil.CreateListedPost(t, db, 1, cat.ID, "topic")
	other := testutil.CreateListedPost(t, db, 1, cat.ID, "elsewhere")
	alice := token(t, 2, "")
	bob := token(t, 3, "")
	path := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	res := call(t, s, http.MethodPost, path, alice, map[string]any{"content": "first"})
	require.Equal(t, http.StatusCreated, res.Status)
	rootID := idOf(t, res.Body["comment"])

	res = call(t, s, http.MethodPost, path, bob, map[string]any{"content": "reply", "parentId": rootID})
	require.Equal(t, http.StatusCreated, res.Status)
	replyID := idOf(t, res.Body["comment"])

	res = call(t, s, http.MethodPost, fmt.Sprintf("/api/comments/%d/vote", replyID), alice, map[string]any{"voteType": "up"})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, float64(1), res.Body["upvotes"])

	res = call(t, s, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", other.ID), bob, map[string]any{"content": "cross", "parentId": rootID})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, models.CodeInvalidParent, res.code())

	res = call(t, s, http.MethodDelete, fmt.Sprintf("%s/%d", path, rootID), bob, nil)
	assert.Equal(t, http.StatusForbidden, res.Status)
	res = call(t, s, http.MethodDelete, fmt.Sprintf("%s/%d", path, rootID), alice, nil)
	assert.Equal(t, http.StatusNoContent, res.Status)

	res = call(t, s, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, float64(2), res.Body["total"])
	roots := res.Body["comments"].([]any)
	require.Len(t, roots, 1)
	root := roots[0].(map[string]any)
	assert.Equal(t, true, root["isDeleted"])
	assert.Equal(t, "", root["content"])
	replies := root["replies"].([]any)
	require.Len(t, replies, 1)
	assert.Equal(t, "reply", replies[0].(map[string]any)["content"])
	assert.Equal(t, float64(1), replies[0].(map[string]any)["upvotes"])

	assert.Equal(t, int64(2), testutil.Reload(t, db, post.ID).CommentCount)
}

func TestPostVisibility_HTTP(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	cat := testutil.CreateCategory(t, db, "private")
	queued := testutil.CreatePaidArtwork(t, db, 9, cat.ID, "hidden")
	path := fmt.Sprintf("/api/posts/%d", queued.ID)

	assert.Equal(t, http.StatusNotFound, call(t, s, http.MethodGet, path, "", nil).Status)
	assert.Equal(t, http.StatusNotFound, call(t, s, http.MethodGet, path, token(t, 1, ""), nil).Status)
	assert.Equal(t, http.StatusOK, call(t, s, http.MethodGet, path, token(t, 9, ""), nil).Status)
	assert.Equal(t, http.StatusOK, call(t, s, http.MethodGet, path, token(t, 1, "admin"), nil).Status)

	assert.Equal(t, http.StatusForbidden, call(t, s, http.MethodDelete, path, token(t, 1, ""), nil).Status)
	assert.Equal(t, http.StatusNoContent, call(t, s, http.MethodDelete, path, token(t, 9, ""), nil).Status)
	assert.Equal(t, http.StatusNotFound, call(t, s, http.MethodGet, path, token(t, 9, ""), nil).Status)
	assert.Equal(t, http.StatusBadRequest, call(t, s, http.MethodGet, "/api/posts/0", "", nil).Status)
}

func TestListPosts_HTTP(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	inks := testutil.CreateCategory(t, db, "inks")
	oils := testutil.CreateCategory(t, db, "oils")
	quiet := testutil.CreateListedPost(t, db, 1, inks.ID, "quiet")
	loud := testutil.CreateListedPost(t, db, 2, inks.ID, "loud")
	testutil.CreateListedPost(t, db, 3, oils.ID, "elsewhere")
	testutil.CreatePaidArtwork(t, db, 4, inks.ID, "queued")
	require.NoError(t, db.Model(loud).UpdateColumn("upvote_count", 5).Error)

	res := call(t, s, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "new", res.Body["sort"])
	pagination := res.Body["pagination"].(map[string]any)
	assert.Equal(t, float64(3), pagination["total"])

	res = call(t, s, http.MethodGet, fmt.Sprintf("/api/posts?sort=top&categoryId=%d", inks.ID), "", nil)
	require.Equal(t, http.StatusOK, res.Status)
	posts := res.Body["posts"].([]any)
	require.Len(t, posts, 2)
	assert.Equal(t, loud.ID, idOf(t, posts[0]))
	assert.Equal(t, quiet.ID, idOf(t, posts[1]))

	res = call(t, s, http.MethodGet, "/api/posts?sort=sideways", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, models.CodeValidation, res.code())
}

func TestCommentVotes_HTTP(t *testing.T) {
	t.Parallel()
	s, db := newTestServer(t)
	cat := testutil.CreateCategory(t, db, "murals")
	post := testutil.CreateListedPost(t, db, 1, cat.ID, "wall")
	voter := token(t, 2, "")

	created := call(t, s, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), token(t, 3, ""),
		map[string]any{"content": "great colors"})
	require.Equal(t, http.StatusCreated, created.Status)
	path := fmt.Sprintf("/api/comments/%d/vote", idOf(t, created.Body["comment"]))

	res := call(t, s, http.MethodPost, path, voter, map[string]any{"voteType": "up"})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, float64(1), res.Body["upvotes"])

	res = call(t, s, http.MethodDelete, path, voter, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, map[string]any{"upvotes": float64(0), "downvotes": float64(0)}, res.Body)

	assert.Equal(t, http.StatusUnauthorized, call(t, s, http.MethodDelete, path, "", nil).Status)
	assert.Equal(t, http.StatusNotFound, call(t, s, http.MethodDelete, "/api/comments/9999/vote", voter, nil).Status)
}
