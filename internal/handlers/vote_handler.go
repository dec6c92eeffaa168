package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/middleware/auth"
	"github.com/gravadigital/community-portal/internal/response"
	"github.com/gravadigital/community-portal/internal/services"
)

type VoteHandler struct {
	votes *services.VoteService
	log   *log.Logger
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{
		votes: votes,
		log:   logger.Handler("vote_handler"),
	}
}

// BallotResponse lists the options chosen by the caller
type BallotResponse struct {
	VoteID    uuid.UUID   `json:"vote_id"`
	OptionIDs []uuid.UUID `json:"option_ids"`
}

// CreateVote handles POST /api/votes
func (h *VoteHandler) CreateVote(c *gin.Context) {
	var req services.CreateVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	v, err := h.votes.Create(c.Request.Context(), auth.Actor(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Vote created", v)
}

// ListVotes handles GET /api/votes?status=
func (h *VoteHandler) ListVotes(c *gin.Context) {
	votes, err := h.votes.List(c.Request.Context(), auth.Actor(c), vote.Status(c.Query("status")))
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", votes)
}

// GetVote handles GET /api/votes/:id
func (h *VoteHandler) GetVote(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	v, err := h.votes.Get(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", v)
}

// UpdateVote handles PATCH /api/votes/:id
func (h *VoteHandler) UpdateVote(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.UpdateVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	v, err := h.votes.Update(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Vote updated", v)
}

// OpenVote handles POST /api/votes/:id/open
func (h *VoteHandler) OpenVote(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	v, err := h.votes.Open(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Vote opened", v)
}

// CloseVote handles POST /api/votes/:id/close
func (h *VoteHandler) CloseVote(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	v, err := h.votes.Close(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Vote closed", v)
}

// DeleteVote handles DELETE /api/votes/:id
func (h *VoteHandler) DeleteVote(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	if err := h.votes.Delete(c.Request.Context(), auth.Actor(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CastBallot handles POST /api/votes/:id/ballot
func (h *VoteHandler) CastBallot(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	var req services.CastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	responses, err := h.votes.Cast(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	ballot := BallotResponse{VoteID: id, OptionIDs: make([]uuid.UUID, 0, len(responses))}
	for _, r := range responses {
		ballot.OptionIDs = append(ballot.OptionIDs, r.OptionID)
	}
	response.SuccessResponse(c, http.StatusCreated, "Ballot cast", ballot)
}

// GetBallot handles GET /api/votes/:id/ballot
func (h *VoteHandler) GetBallot(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	options, err := h.votes.MyBallot(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	if options == nil {
		options = []uuid.UUID{}
	}

	response.SuccessResponse(c, http.StatusOK, "", BallotResponse{VoteID: id, OptionIDs: options})
}

// GetResults handles GET /api/votes/:id/results
func (h *VoteHandler) GetResults(c *gin.Context) {
	id, ok := idParam(c, h.log, "id")
	if !ok {
		return
	}

	results, err := h.votes.Results(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", results)
}
