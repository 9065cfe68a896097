package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"

	"atelier/internal/models"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Payment-Signature"

type confirmPaymentRequest struct {
	ProviderID string  `json:"providerId"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	// Status is "succeeded" (default) or "failed".
	Status string `json:"status"`
}

// Sign returns the signature a provider sends for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Server) verifySignature(c *fiber.Ctx) bool {
	secret := s.config.PaymentWebhookSecret
	if secret == "" {
		return true
	}
	got, err := hex.DecodeString(strings.TrimSpace(c.Get(SignatureHeader)))
	if err != nil || len(got) == 0 {
		return false
	}
	want, _ := hex.DecodeString(Sign(secret, c.Body()))
	return hmac.Equal(got, want)
}

// ConfirmPayment handles POST /api/posts/:id/payment, the payment provider callback.
// Repeated callbacks with the same providerId answer 200 with the stored payment.
func (s *Server) ConfirmPayment(c *fiber.Ctx) error {
	if !s.verifySignature(c) {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid payment signature"))
	}
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req confirmPaymentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	var failed bool
	switch strings.ToLower(strings.TrimSpace(req.Status)) {
	case "", "succeeded":
	case "failed":
		failed = true
	default:
		return respondError(c, models.NewValidationError("status must be succeeded or failed"))
	}
	res, err := s.paymentService.ConfirmPayment(c.UserContext(), service.ConfirmPaymentInput{
		PostID:      postID,
		ProviderRef: req.ProviderID,
		AmountCents: int64(math.Round(req.Amount * 100)),
		Currency:    req.Currency,
		Failed:      failed,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"payment":   res.Payment,
		"amount":    res.Payment.Amount(),
		"duplicate": res.Duplicate,
	})
}
