package server

import (
	"github.com/gofiber/fiber/v2"
)

type voteRequest struct {
	VoteType string `json:"voteType"`
}

// VotePost handles POST /api/posts/:id/vote
func (s *Server) VotePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req voteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	res, err := s.voteService.CastVote(c.UserContext(), userID(c), postID, req.VoteType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// RemoveVote handles DELETE /api/posts/:id/vote
func (s *Server) RemoveVote(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.voteService.RemoveVote(c.UserContext(), userID(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// VoteComment handles POST /api/comments/:id/vote
func (s *Server) VoteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req voteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	res, err := s.voteService.CastCommentVote(c.UserContext(), userID(c), commentID, req.VoteType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// RemoveCommentVote handles DELETE /api/comments/:id/vote
func (s *Server) RemoveCommentVote(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.voteService.RemoveCommentVote(c.UserContext(), userID(c), commentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
