package server

import (
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetModerationQueue handles GET /api/moderation/queue?page&limit
func (s *Server) GetModerationQueue(c *fiber.Ctx) error {
	posts, pagination, err := s.moderationService.ListPending(c.UserContext(), parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"posts":      posts,
		"pagination": pagination,
	})
}

// DecidePost handles POST /api/moderation/:postId/decision
func (s *Server) DecidePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	var req struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
		Notes  string `json:"notes"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.moderationService.Decide(c.UserContext(), service.DecideInput{
		PostID:      postID,
		ModeratorID: userID(c),
		Action:      req.Action,
		Reason:      req.Reason,
		Notes:       req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// GetModerationHistory handles GET /api/moderation/:postId/actions
func (s *Server) GetModerationHistory(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	actions, err := s.moderationService.History(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"actions": actions})
}
