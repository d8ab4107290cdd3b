package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/repository/memory"
	"github.com/DevOwais28/wepollin/internal/service"
	"github.com/DevOwais28/wepollin/internal/ws"
)

type apiFixture struct {
	router *gin.Engine
	auth   *service.AuthService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	polls := memory.NewPollStore()
	votes := memory.NewVoteStore()
	users := memory.NewUserStore()

	authSvc := service.NewAuthService(users, "test-secret", time.Hour)
	pollSvc := service.NewPollService(polls, votes)
	voteSvc := service.NewVoteService(polls, votes)

	hub := ws.NewHub(voteSvc, nil)
	voteSvc.SetBroadcaster(hub)
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := NewRouter(Services{
		Auth:     authSvc,
		Polls:    pollSvc,
		Votes:    voteSvc,
		Presence: service.NewPresenceService(nil),
		Hub:      hub,
	})
	return &apiFixture{router: router, auth: authSvc}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and returns their token.
func (f *apiFixture) signup(t *testing.T, email string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{
		Username: "user",
		Email:    email,
		Password: "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Email:    email,
		Password: "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (f *apiFixture) createPoll(t *testing.T, token string, req models.CreatePollRequest) models.PollResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/polls/poll", token, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp models.PollResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

type voteResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Tally   struct {
		Counts      []int     `json:"counts"`
		Total       int       `json:"total"`
		Percentages []float64 `json:"percentages"`
	} `json:"tally"`
}

func intPtr(n int) *int { return &n }

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/polls", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/polls", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDuplicateRegistration(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t, "dup@example.com")

	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{
		Username: "other",
		Email:    "dup@example.com",
		Password: "hunter22",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCastVoteRoundtrip(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signup(t, "voter@example.com")

	created := f.createPoll(t, token, models.CreatePollRequest{
		Description: "Tabs or spaces?",
		Options:     []string{"Tabs", "Spaces"},
	})
	pollID := created.Poll.ID.Hex()

	rec := f.do(t, http.MethodPost, "/api/v1/votes/vote/"+pollID, token, models.CastVoteRequest{OptionIndex: intPtr(1)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp voteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []int{0, 1}, resp.Tally.Counts)
	assert.Equal(t, 1, resp.Tally.Total)
	assert.Equal(t, float64(100), resp.Tally.Percentages[1])

	// The same user voting again gets a structured conflict.
	rec = f.do(t, http.MethodPost, "/api/v1/votes/vote/"+pollID, token, models.CastVoteRequest{OptionIndex: intPtr(0)})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(service.KindAlreadyVoted), resp.Code)
}

func TestCastVoteInvalidOption(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signup(t, "bounds@example.com")

	created := f.createPoll(t, token, models.CreatePollRequest{
		Description: "Pick one",
		Options:     []string{"A", "B"},
	})

	rec := f.do(t, http.MethodPost, "/api/v1/votes/vote/"+created.Poll.ID.Hex(), token,
		models.CastVoteRequest{OptionIndex: intPtr(5)})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp voteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(service.KindInvalidOption), resp.Code)
}

func TestCastVoteMalformedPollID(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signup(t, "hexless@example.com")

	rec := f.do(t, http.MethodPost, "/api/v1/votes/vote/not-a-hex-id", token,
		models.CastVoteRequest{OptionIndex: intPtr(0)})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp voteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(service.KindValidation), resp.Code)
}

func TestPrivatePollFlow(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.signup(t, "owner@example.com")
	guest := f.signup(t, "guest@example.com")

	created := f.createPoll(t, owner, models.CreatePollRequest{
		Description: "Secret ballot",
		Options:     []string{"Yes", "No"},
		IsPrivate:   true,
	})
	require.Len(t, created.PrivateKey, 16)
	pollID := created.Poll.ID.Hex()

	// The key is never listed and never re-exposed on fetch.
	rec := f.do(t, http.MethodGet, "/api/v1/polls", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())

	// Guest without the key is rejected.
	rec = f.do(t, http.MethodGet, "/api/v1/polls/"+pollID, guest, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// join-private resolves the poll from the key.
	rec = f.do(t, http.MethodPost, "/api/v1/polls/join-private", guest,
		models.JoinPrivateRequest{PrivateKey: created.PrivateKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Voting requires the key in the body.
	rec = f.do(t, http.MethodPost, "/api/v1/votes/vote/"+pollID, guest,
		models.CastVoteRequest{OptionIndex: intPtr(0)})
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp voteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(service.KindInvalidAccessKey), resp.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/votes/vote/"+pollID, guest,
		models.CastVoteRequest{OptionIndex: intPtr(0), AccessKey: created.PrivateKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The owner reads votes without the key.
	rec = f.do(t, http.MethodGet, "/api/v1/votes/vote/"+pollID, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var votesBody struct {
		Votes []models.Vote `json:"votes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &votesBody))
	assert.Len(t, votesBody.Votes, 1)
}

func TestUpdatePollFrozenAfterVote(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signup(t, "editor@example.com")

	created := f.createPoll(t, token, models.CreatePollRequest{
		Description: "Editable?",
		Options:     []string{"A", "B"},
	})
	pollID := created.Poll.ID.Hex()

	rec := f.do(t, http.MethodPut, "/api/v1/polls/poll/"+pollID, token,
		models.UpdatePollRequest{Options: []string{"A", "B", "C"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/votes/vote/"+pollID, token,
		models.CastVoteRequest{OptionIndex: intPtr(2)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/v1/polls/poll/"+pollID, token,
		models.UpdatePollRequest{Options: []string{"X", "Y"}})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), string(service.KindPollHasVotes))
}

func TestDeletePollOwnerOnly(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.signup(t, "owner2@example.com")
	other := f.signup(t, "other2@example.com")

	created := f.createPoll(t, owner, models.CreatePollRequest{
		Description: "Mine",
		Options:     []string{"A", "B"},
	})
	pollID := created.Poll.ID.Hex()

	rec := f.do(t, http.MethodDelete, "/api/v1/polls/poll/"+pollID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/polls/poll/"+pollID, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/polls/%s", pollID), owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVotesEndpointUnknownPoll(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signup(t, "lost@example.com")

	rec := f.do(t, http.MethodGet, "/api/v1/votes/vote/64f000000000000000000000", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), string(service.KindPollNotFound))
}
