package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DevOwais28/wepollin/internal/models"
	"github.com/DevOwais28/wepollin/internal/server/middleware"
	"github.com/DevOwais28/wepollin/internal/service"
	"github.com/DevOwais28/wepollin/internal/tally"
)

type VoteHandler struct {
	votes *service.VoteService
}

func NewVoteHandler(votes *service.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// VoteResponse is the REST confirmation for a cast vote. A failed attempt
// carries Success=false plus a machine-readable Code instead of a tally.
type VoteResponse struct {
	Success bool         `json:"success"`
	Tally   *tally.Tally `json:"tally,omitempty"`
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
}

// CastVote godoc
// @Summary      Cast a vote
// @Description  Records one vote per user per poll and returns the updated
// @Description  tally. Private polls require the access key in the body on
// @Description  every vote. A duplicate attempt fails with code ALREADY_VOTED.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        pollId path string true "Poll id"
// @Param        request body models.CastVoteRequest true "Vote payload"
// @Success      200 {object} VoteResponse
// @Failure      400 {object} VoteResponse
// @Failure      403 {object} VoteResponse
// @Failure      404 {object} VoteResponse
// @Failure      409 {object} VoteResponse
// @Failure      410 {object} VoteResponse
// @Router       /votes/vote/{pollId} [post]
func (h *VoteHandler) CastVote(c *gin.Context) {
	user, err := middleware.GetUserFromContext(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	pollID, err := primitive.ObjectIDFromHex(c.Param("pollId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, VoteResponse{Success: false, Code: string(service.KindValidation), Message: "invalid poll id"})
		return
	}

	var req models.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, VoteResponse{Success: false, Code: string(service.KindValidation), Message: err.Error()})
		return
	}

	result, err := h.votes.CastVote(c.Request.Context(), pollID, user.ID, *req.OptionIndex, req.AccessKey)
	if err != nil {
		kind := service.KindOf(err)
		if kind == "" {
			c.JSON(http.StatusInternalServerError, VoteResponse{Success: false, Code: "INTERNAL", Message: "internal server error"})
			return
		}
		c.JSON(statusForKind(kind), VoteResponse{Success: false, Code: string(kind), Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, VoteResponse{Success: true, Tally: &result})
}

// GetVotes godoc
// @Summary      List a poll's votes
// @Description  Returns the raw vote rows. Clients derive the tally and their
// @Description  own-vote state from them. Private polls require ?key= unless
// @Description  the caller owns the poll.
// @Tags         votes
// @Produce      json
// @Security     BearerAuth
// @Param        pollId path string true "Poll id"
// @Param        key query string false "Access key for private polls"
// @Success      200 {object} map[string][]models.Vote
// @Failure      403 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /votes/vote/{pollId} [get]
func (h *VoteHandler) GetVotes(c *gin.Context) {
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

	votes, err := h.votes.ListVotes(c.Request.Context(), pollID, user.ID, c.Query("key"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if votes == nil {
		votes = []models.Vote{}
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}
