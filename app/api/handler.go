package api

import (
	"errors"

	"pregnancyai/app/service/conversation"
	"pregnancyai/app/service/gestation"
	"pregnancyai/app/service/registry"
	"pregnancyai/app/service/session"

	"github.com/elliotchance/pie/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

type Handler struct {
	conversation *conversation.Service
	registry     *registry.Service
}

func NewHandler(di *do.Injector) (*Handler, error) {
	return New(
		do.MustInvoke[*conversation.Service](di),
		do.MustInvoke[*registry.Service](di),
	), nil
}

func New(conversationSvc *conversation.Service, registrySvc *registry.Service) *Handler {
	return &Handler{
		conversation: conversationSvc,
		registry:     registrySvc,
	}
}

func (h *Handler) RegisterRoutes(router fiber.Router) {
	api := router.Group("/api")

	api.Post("/sessions", h.createSession)
	api.Get("/sessions/:id", h.getSession)
	api.Delete("/sessions/:id", h.deleteSession)
	api.Put("/sessions/:id/due-date", h.setDueDate)
	api.Post("/sessions/:id/ask", h.ask)
	api.Post("/sessions/:id/ask/voice", h.askByVoice)
	api.Post("/sessions/:id/moods", h.logMood)

	api.Post("/advice", h.advise)
	api.Get("/questions", h.questions)
}

type turnResponse struct {
	Speaker session.Speaker    `json:"speaker"`
	Text    string             `json:"text"`
	Status  session.TurnStatus `json:"status"`
}

type moodResponse struct {
	Date  string       `json:"date"`
	Mood  session.Mood `json:"mood"`
	Label string       `json:"label"`
}

// sessionResponse lists the transcript and moods newest first.
type sessionResponse struct {
	ID         string         `json:"id"`
	State      string         `json:"state"`
	DueDate    string         `json:"due_date,omitempty"`
	Week       *int           `json:"week,omitempty"`
	Transcript []turnResponse `json:"transcript"`
	Moods      []moodResponse `json:"moods"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

func (h *Handler) sessionView(sess *session.Session) sessionResponse {
	view := h.conversation.Snapshot(sess)

	resp := sessionResponse{
		ID:    sess.ID,
		State: sess.State().String(),
		Week:  view.Week,
		Transcript: pie.Map(pie.Reverse(view.Transcript), func(turn session.ChatTurn) turnResponse {
			return turnResponse{Speaker: turn.Speaker, Text: turn.Text, Status: turn.Status}
		}),
		Moods: pie.Map(pie.Reverse(view.MoodLog), func(entry session.MoodEntry) moodResponse {
			return moodResponse{Date: gestation.FormatDate(entry.Date), Mood: entry.Mood, Label: entry.Mood.Label()}
		}),
	}

	if view.DueDate != nil {
		resp.DueDate = gestation.FormatDate(*view.DueDate)
	}

	return resp
}

func (h *Handler) lookup(c *fiber.Ctx) (*session.Session, error) {
	sess, err := h.registry.Get(c.Params("id"))
	if errors.Is(err, registry.ErrSessionNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	return sess, err
}

func (h *Handler) createSession(c *fiber.Ctx) error {
	sess := h.registry.Create()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": sess.ID})
}

func (h *Handler) getSession(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	return c.JSON(h.sessionView(sess))
}

func (h *Handler) deleteSession(c *fiber.Ctx) error {
	if err := h.registry.Delete(c.Params("id")); err != nil {
		if errors.Is(err, registry.ErrSessionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) setDueDate(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	var payload struct {
		Date string `json:"date"`
	}
	if err = c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err = h.conversation.UpdateDueDate(sess, payload.Date); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(h.sessionView(sess))
}

func (h *Handler) ask(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err = c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	reply, err := h.conversation.Ask(c.UserContext(), sess, payload.Text)
	if err != nil {
		return askError(err)
	}

	return c.JSON(replyResponse{Reply: reply})
}

func (h *Handler) askByVoice(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	reply, err := h.conversation.AskByVoice(c.UserContext(), sess)
	if err != nil {
		return askError(err)
	}

	return c.JSON(replyResponse{Reply: reply})
}

func askError(err error) error {
	switch {
	case errors.Is(err, conversation.ErrEmptyInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, conversation.ErrSessionBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}

func (h *Handler) logMood(c *fiber.Ctx) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}

	var payload struct {
		Mood string `json:"mood"`
	}
	if err = c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	mood, err := session.ParseMood(payload.Mood)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	entry := h.conversation.LogMood(sess, mood)

	return c.Status(fiber.StatusCreated).JSON(moodResponse{
		Date:  gestation.FormatDate(entry.Date),
		Mood:  entry.Mood,
		Label: entry.Mood.Label(),
	})
}

func (h *Handler) advise(c *fiber.Ctx) error {
	var profile conversation.Profile
	if err := c.BodyParser(&profile); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	advice, err := h.conversation.Advise(c.UserContext(), profile)
	if err != nil {
		if errors.Is(err, conversation.ErrInvalidProfile) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	return c.JSON(advice)
}

func (h *Handler) questions(c *fiber.Ctx) error {
	return c.JSON(h.conversation.Questions())
}
