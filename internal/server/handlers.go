package server

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mwiater/docqa/internal/qa"
	"github.com/mwiater/docqa/internal/rag"
)

func (s *Server) ask(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(degraded(errors.New("invalid request body")))
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(degraded(errors.New("text is required and must be at most 4000 characters")))
	}

	state, err := s.agent.Ask(c.UserContext(), req.Text)
	switch {
	case errors.Is(err, qa.ErrNoEvidence):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(degraded(err))
	case err != nil:
		return c.Status(fiber.StatusBadGateway).JSON(degraded(err))
	}
	return c.JSON(newAskResponse(state))
}

func (s *Server) upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "multipart field \"file\" is required"})
	}

	tmp, err := os.CreateTemp("", "docqa-upload-*"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(fh, tmpPath); err != nil {
		return err
	}

	res, err := s.agent.Upload(c.UserContext(), tmpPath, filepath.Base(fh.Filename))
	switch {
	case errors.Is(err, rag.ErrUnsupportedFormat):
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(errorResponse{Error: err.Error()})
	case errors.Is(err, rag.ErrNoText):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{Error: err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
	}

	return c.JSON(uploadResponse{
		Message:    "File " + res.Source + " uploaded and indexed",
		DocumentID: res.DocumentID,
		Pages:      res.Pages,
		Chunks:     res.Chunks,
	})
}

func (s *Server) getConfig(c *fiber.Ctx) error {
	doc, err := s.agent.Config()
	if err != nil {
		return err
	}
	return c.JSON(doc)
}

func (s *Server) updateConfig(c *fiber.Ctx) error {
	patch := map[string]any{}
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	doc, err := s.agent.UpdateConfig(patch)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}
	return c.JSON(doc)
}
