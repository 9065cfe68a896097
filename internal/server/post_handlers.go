package server

import (
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	CategoryID uint     `json:"categoryId"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	MediaURL   string   `json:"mediaUrl"`
	LinkURL    string   `json:"linkUrl"`
	Tags       []string `json:"tags"`
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID:   userID(c),
		CategoryID: req.CategoryID,
		Type:       req.Type,
		Title:      req.Title,
		Content:    req.Content,
		MediaURL:   req.MediaURL,
		LinkURL:    req.LinkURL,
		Tags:       req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}

	body := fiber.Map{"post": res.Post}
	if res.PaymentRequired {
		body["paymentRequired"] = true
		body["amount"] = res.Fee.Amount()
		body["currency"] = res.Fee.Currency
		if res.Payment != nil {
			body["paymentId"] = res.Payment.ID
		}
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

// GetPosts handles GET /api/posts?sort=new|top|hot|rising&categoryId&featured&page&limit
func (s *Server) GetPosts(c *fiber.Ctx) error {
	res, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Sort:       c.Query("sort"),
		CategoryID: uint(max(c.QueryInt("categoryId", 0), 0)),
		Featured:   c.QueryBool("featured", false),
		Page:       parsePage(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"posts":      res.Posts,
		"sort":       res.Sort,
		"pagination": res.Pagination,
	})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), viewer(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), viewer(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
