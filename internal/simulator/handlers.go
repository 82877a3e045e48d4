package simulator

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

const previewLen = 120

// extractRequest is the submission body.
type extractRequest struct {
	Filename string `json:"filename"`
	Email    string `json:"email"`
}

// resume is one prior session in the check-email answer.
type resume struct {
	UUID         string `json:"uuid"`
	Filename     string `json:"filename"`
	CreatedAt    string `json:"created_at"`
	Summary      string `json:"summary"`
	Conversation []turn `json:"conversation,omitempty"`
}

func (s *Server) handleCheckEmail(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	records := s.store.ready(email, s.cfg.Now(), s.cfg.StageDelay)
	resumes := make([]resume, 0, len(records))
	for i := range records {
		resumes = append(resumes, resume{
			UUID:         records[i].ID,
			Filename:     records[i].Filename,
			CreatedAt:    records[i].CreatedAt.UTC().Format(time.RFC3339Nano),
			Summary:      records[i].summary(),
			Conversation: records[i].Turns,
		})
	}

	return c.JSON(fiber.Map{
		"hasPrevious": len(resumes) > 0,
		"resumes":     resumes,
	})
}

func (s *Server) handleExtract(c *fiber.Ctx) error {
	var req extractRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Filename) == "" || strings.TrimSpace(req.Email) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "filename and email are required")
	}

	r := s.store.create(req.Email, req.Filename, s.cfg.Now())
	logger.Debug("simulator: session %s created for %s", r.ID, req.Filename)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"uuid":       r.ID,
		"upload_url": "/upload/" + r.ID,
	})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	id := c.Params("id")
	r, ok := s.store.get(id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown session")
	}

	body := c.Body()
	result, err := s.extractors.Extract(body, c.Get(fiber.HeaderContentType), r.Filename)
	if err != nil {
		logger.Debug("simulator: session %s extraction failed: %v", id, err)
	}
	chunks := s.chunker.Split(result.Text)
	now := s.cfg.Now()

	s.store.update(id, func(r *record) {
		r.Size = len(body)
		r.Extracted = result
		r.ExtractErr = err
		r.Chunks = chunks
		r.UploadedAt = now
	})

	logger.Debug("simulator: session %s received %d bytes, %d words", id, len(body), result.Words())
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	r, ok := s.store.get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown session")
	}

	stage := r.stage(s.cfg.Now(), s.cfg.StageDelay)
	out := fiber.Map{"status": string(stage)}
	if stage == domain.StageReady {
		out["result_handle"] = r.resultHandle()
	}
	return c.JSON(out)
}

// previewOf returns the leading words of text on one line.
func previewOf(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > previewLen {
		text = string([]rune(text)[:previewLen]) + "..."
	}
	return text
}
