package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/server/middleware"
	"github.com/DevOwais28/wepollin/internal/service"
)

type PollHandler struct {
	polls    *service.PollService
	presence *service.PresenceService
}

func NewPollHandler(polls *service.PollService, presence *service.PresenceService) *PollHandler {
	return &PollHandler{polls: polls, presence: presence}
}

// CreatePoll godoc
// @Summary      Create a poll
// @Description  Creates a poll with 2 to 4 options. Private polls get a
// @Description  generated access key which is returned once, here only.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.CreatePollRequest true "Poll payload"
// @Success      201 {object} models.PollResponse
// @Failure      400 {object} map[string]string
// @Router       /polls/poll [post]
func (h *PollHandler) CreatePoll(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	poll, err := h.polls.CreatePoll(c.Request.Context(), user.ID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.PollResponse{Poll: poll, PrivateKey: poll.AccessKey})
}

// GetPoll godoc
// @Summary      Fetch a poll
// @Description  Private polls require the access key via ?key= unless the
// @Description  caller owns the poll.
// @Tags         polls
// @Produce      json
// @Security     BearerAuth
// @Param        pollId path string true "Poll id"
// @Param        key query string false "Access key for private polls"
// @Success      200 {object} models.Poll
// @Failure      403 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /polls/{pollId} [get]
func (h *PollHandler) GetPoll(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	pollID, err := primitive.ObjectIDFromHex(c.Param("pollId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return
	}

	poll, err := h.polls.GetPoll(c.Request.Context(), pollID, user.ID, c.Query("key"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// ListPolls godoc
// @Summary      List public polls
// @Description  The discovery feed: public, non-expired polls, newest first.
// @Tags         polls
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} models.Poll
// @Router       /polls [get]
func (h *PollHandler) ListPolls(c *gin.Context) {
	polls, err := h.polls.ListPublic(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list polls"})
		return
	}
	c.JSON(http.StatusOK, polls)
}

// JoinPrivate godoc
// @Summary      Resolve a private poll from its access key
// @Tags         polls
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.JoinPrivateRequest true "Access key"
// @Success      200 {object} models.Poll
// @Failure      403 {object} map[string]string
// @Router       /polls/join-private [post]
func (h *PollHandler) JoinPrivate(c *gin.Context) {
	var req models.JoinPrivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	poll, err := h.polls.JoinPrivate(c.Request.Context(), req.PrivateKey)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// UpdatePoll godoc
// @Summary      Edit a poll
// @Description  Owner only. Options can change until the first vote lands;
// @Description  expiry never changes.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        pollId path string true "Poll id"
// @Param        request body models.UpdatePollRequest true "Fields to update"
// @Success      200 {object} models.Poll
// @Failure      403 {object} map[string]string
// @Failure      409 {object} map[string]string
// @Router       /polls/poll/{pollId} [put]
func (h *PollHandler) UpdatePoll(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	pollID, err := primitive.ObjectIDFromHex(c.Param("pollId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return
	}

	var req models.UpdatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	poll, err := h.polls.UpdatePoll(c.Request.Context(), pollID, user.ID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// DeletePoll godoc
// @Summary      Delete a poll and its votes
// @Tags         polls
// @Produce      json
// @Security     BearerAuth
// @Param        pollId path string true "Poll id"
// @Success      200 {object} map[string]string
// @Failure      403 {object} map[string]string
// @Router       /polls/poll/{pollId} [delete]
func (h *PollHandler) DeletePoll(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	pollID, err := primitive.ObjectIDFromHex(c.Param("pollId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return
	}

	if err := h.polls.DeletePoll(c.Request.Context(), pollID, user.ID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "poll deleted"})
}

// Viewers godoc
// @Summary      Count live viewers of a poll
// @Tags         polls
// @Produce      json
// @Security     BearerAuth
// @Param        pollId path string true "Poll id"
// @Success      200 {object} map[string]int
// @Router       /polls/{pollId}/viewers [get]
func (h *PollHandler) Viewers(c *gin.Context) {
	pollID := c.Param("pollId")
	if _, err := primitive.ObjectIDFromHex(pollID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poll id"})
		return
	}

	count, err := h.presence.ViewerCount(c.Request.Context(), pollID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count viewers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewers": count})
}
