package server

import (
	"atelier/internal/models"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// commentNode is the JSON shape of one comment with its ordered replies.
type commentNode struct {
	models.Comment
	Replies []*commentNode `json:"replies"`
}

func toCommentNodes(nodes []*service.ThreadNode) []*commentNode {
	out := make([]*commentNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &commentNode{Comment: n.Comment, Replies: toCommentNodes(n.Children)})
	}
	return out
}

// GetComments handles GET /api/posts/:id/comments and returns the ordered comment forest.
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	thread, err := s.commentService.GetThread(c.UserContext(), viewer(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"comments": toCommentNodes(thread.Roots()),
		"total":    thread.Len(),
	})
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parentId"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.AddComment(c.UserContext(), service.AddCommentInput{
		PostID:   postID,
		AuthorID: userID(c),
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment})
}

// DeleteComment handles DELETE /api/posts/:id/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	if err := s.commentService.DeleteComment(c.UserContext(), viewer(c), postID, commentID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
