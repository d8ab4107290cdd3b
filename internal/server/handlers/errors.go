package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DevOwais28/wepollin/internal/service"
)

// statusForKind maps service failure codes onto HTTP statuses. Anything
// without a kind is an internal error.
func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindPollNotFound:
		return http.StatusNotFound
	case service.KindPollExpired:
		return http.StatusGone
	case service.KindAlreadyVoted, service.KindPollHasVotes:
		return http.StatusConflict
	case service.KindInvalidAccessKey, service.KindNotOwner:
		return http.StatusForbidden
	case service.KindInvalidOption, service.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders a structured failure as {"code", "message"}.
// Clients branch on code; message is for humans.
func writeServiceError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	if kind == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "internal server error"})
		return
	}
	c.JSON(statusForKind(kind), gin.H{"code": string(kind), "message": err.Error()})
}
