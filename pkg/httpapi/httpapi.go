// Package httpapi exposes the engine over HTTP. The surface mirrors
// the engine operations one to one; platform adapters push inbound
// events here and admin tooling drives the moderation endpoints.
package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/groupwarden/warden/pkg/connector"
	"github.com/groupwarden/warden/pkg/detect"
	"github.com/groupwarden/warden/pkg/keyword"
	"github.com/groupwarden/warden/pkg/moderation"
	"github.com/groupwarden/warden/pkg/syncutil"
)

const Version = "0.1.0"

// Server wires the engine components into a fiber app.
type Server struct {
	detector *detect.Detector
	spam     *detect.SpamDetector
	engine   *moderation.Engine
	keywords *keyword.Store
	conn     connector.Connector
	locks    *syncutil.KeyedLock
}

func NewServer(detector *detect.Detector, spam *detect.SpamDetector, engine *moderation.Engine, keywords *keyword.Store, conn connector.Connector) *Server {
	return &Server{
		detector: detector,
		spam:     spam,
		engine:   engine,
		keywords: keywords,
		conn:     conn,
		locks:    syncutil.NewKeyedLock(),
	}
}

// App builds the fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Warden",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	app.Post("/messages", s.handleMessage)
	app.Post("/events/unsend", s.handleUnsend)
	app.Post("/events/invalid-command", s.handleInvalidCommand)

	app.Get("/conversations/:id/keywords", s.handleListKeywords)
	app.Post("/conversations/:id/keywords", s.handleAddKeywords)
	app.Delete("/conversations/:id/keywords", s.handleRemoveKeywords)

	app.Get("/conversations/:id/warnings/:participant", s.handleGetWarnings)
	app.Post("/conversations/:id/warnings", s.handleIssueWarning)
	app.Delete("/conversations/:id/warnings/:participant", s.handleDeductWarning)
	app.Post("/conversations/:id/warnings/reset", s.handleResetWarnings)

	app.Post("/conversations/:id/bans", s.handleBan)
	app.Delete("/conversations/:id/bans/:identifier", s.handleUnban)
	app.Post("/conversations/:id/bans/reset", s.handleResetBans)

	app.Post("/conversations/:id/attendance/checkin", s.handleCheckIn)
	app.Post("/conversations/:id/attendance/rollover", s.handleRollover)
	app.Get("/conversations/:id/attendance", s.handleAttendance)
	app.Post("/conversations/:id/attendance/exclude", s.handleExclude)
	app.Post("/conversations/:id/attendance/include", s.handleInclude)

	app.Post("/conversations/:id/suspend", s.handleSuspend)
	app.Post("/conversations/:id/protect", s.handleProtect)
	app.Delete("/conversations/:id/protect/:participant", s.handleUnprotect)

	return app
}

// handleMessage runs one inbound message through the full pipeline:
// message cache, spam counters, keyword detection, escalation.
func (s *Server) handleMessage(c fiber.Ctx) error {
	var msg connector.Message
	if err := c.Bind().Body(&msg); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if msg.ConversationID == "" || msg.SenderID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "conversationId and senderId are required"})
	}
	ctx := c.Context()

	// The escalation path reads and rewrites warning and ban documents
	// for the conversation, so concurrent events must not interleave.
	if err := s.locks.Acquire(ctx, msg.ConversationID); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	defer s.locks.Release(msg.ConversationID)

	if err := s.detector.RememberMessage(ctx, msg); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	// Protected participants feed neither the spam counters nor the
	// keyword pipeline.
	exempt, err := s.detector.Protected(ctx, msg.ConversationID, msg.SenderID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if exempt {
		return c.JSON(fiber.Map{"violation": nil})
	}

	spamRes, err := s.spam.RecordMessage(ctx, msg.ConversationID, msg.SenderID, msg.ID, msg.Body)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if spamRes.SoftWarn {
		if err := s.conn.SendMessage(ctx, msg.ConversationID, "Easy on the repeats."); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
	}
	violation := spamRes.Violation
	if violation == nil {
		violation, err = s.detector.Detect(ctx, msg)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if violation == nil {
		return c.JSON(fiber.Map{"violation": nil})
	}

	ban, err := s.engine.HandleViolation(ctx, violation, msg.SenderName)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"violation": violation, "ban": ban})
}

func (s *Server) handleUnsend(c fiber.Ctx) error {
	var req struct {
		ConversationID string `json:"conversationId"`
		ParticipantID  string `json:"participantId"`
		MessageID      string `json:"messageId"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	ctx := c.Context()

	if err := s.locks.Acquire(ctx, req.ConversationID); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	defer s.locks.Release(req.ConversationID)

	// The unsent body can still be inspected while it sits in the
	// message cache.
	cached, found, err := s.detector.RecallMessage(ctx, req.ConversationID, req.MessageID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	exempt, err := s.detector.Protected(ctx, req.ConversationID, req.ParticipantID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if exempt {
		out := fiber.Map{"violation": nil}
		if found {
			out["recovered"] = cached.Body
		}
		return c.JSON(out)
	}

	res, err := s.spam.RecordUnsend(ctx, req.ConversationID, req.ParticipantID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if res.SoftWarn {
		if err := s.conn.SendMessage(ctx, req.ConversationID, "Unsending does not unsay it."); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if res.Violation != nil {
		ban, err := s.engine.HandleViolation(ctx, res.Violation, "")
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"violation": res.Violation, "ban": ban})
	}

	out := fiber.Map{"violation": nil}
	if found {
		out["recovered"] = cached.Body
	}
	return c.JSON(out)
}

// handleInvalidCommand counts a malformed command attempt. Adapters
// report these; warden does no command parsing itself.
func (s *Server) handleInvalidCommand(c fiber.Ctx) error {
	var req struct {
		ConversationID string `json:"conversationId"`
		ParticipantID  string `json:"participantId"`
	}
	if err := c.Bind().Body(&req); err != nil || req.ConversationID == "" || req.ParticipantID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "conversationId and participantId are required"})
	}
	ctx := c.Context()

	if err := s.locks.Acquire(ctx, req.ConversationID); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	defer s.locks.Release(req.ConversationID)

	exempt, err := s.detector.Protected(ctx, req.ConversationID, req.ParticipantID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if exempt {
		return c.JSON(fiber.Map{"violation": nil})
	}

	res, err := s.spam.RecordInvalidCommand(ctx, req.ConversationID, req.ParticipantID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if res.SoftWarn {
		if err := s.conn.SendMessage(ctx, req.ConversationID, "That command does not exist. Slow down."); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if res.Violation != nil {
		ban, err := s.engine.HandleViolation(ctx, res.Violation, "")
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"violation": res.Violation, "ban": ban})
	}
	return c.JSON(fiber.Map{"violation": nil})
}

func (s *Server) handleListKeywords(c fiber.Ctx) error {
	global, scoped, err := s.keywords.List(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"global": global, "scoped": scoped})
}

func (s *Server) handleAddKeywords(c fiber.Ctx) error {
	var req struct {
		Words []string `json:"words"`
	}
	if err := c.Bind().Body(&req); err != nil || len(req.Words) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "words field is required"})
	}
	added, skipped, err := s.keywords.Add(c.Context(), c.Params("id"), req.Words)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"added": added, "skipped": skipped})
}

func (s *Server) handleRemoveKeywords(c fiber.Ctx) error {
	var req struct {
		Words []string `json:"words"`
	}
	if err := c.Bind().Body(&req); err != nil || len(req.Words) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "words field is required"})
	}
	removed, notFound, err := s.keywords.Remove(c.Context(), c.Params("id"), req.Words)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"removed": removed, "notFound": notFound})
}

func (s *Server) handleGetWarnings(c fiber.Ctx) error {
	rec, err := s.engine.Warnings(c.Context(), c.Params("id"), c.Params("participant"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if rec == nil {
		return c.Status(404).JSON(fiber.Map{"error": "no warnings"})
	}
	return c.JSON(fiber.Map{"count": rec.Count(), "record": rec})
}

func (s *Server) handleIssueWarning(c fiber.Ctx) error {
	var req struct {
		ParticipantID string `json:"participantId"`
		Nickname      string `json:"nickname"`
		Reason        string `json:"reason"`
		MessageID     string `json:"messageId"`
		Permanent     bool   `json:"permanent"`
	}
	if err := c.Bind().Body(&req); err != nil || req.ParticipantID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "participantId is required"})
	}
	count, ban, err := s.engine.IssueWarning(c.Context(), c.Params("id"),
		req.ParticipantID, req.Nickname, req.Reason, req.MessageID, req.Permanent)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"count": count, "ban": ban})
}

func (s *Server) handleDeductWarning(c fiber.Ctx) error {
	elevated := c.Query("elevated") == "true"
	count, err := s.engine.DeductWarning(c.Context(), c.Params("id"), c.Params("participant"), elevated)
	if errors.Is(err, moderation.ErrNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "no removable warning"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"count": count})
}

func (s *Server) handleResetWarnings(c fiber.Ctx) error {
	if err := s.engine.ResetWarnings(c.Context(), c.Params("id")); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleBan(c fiber.Ctx) error {
	var req struct {
		ParticipantID string `json:"participantId"`
		Nickname      string `json:"nickname"`
		Reason        string `json:"reason"`
		BannedBy      string `json:"bannedBy"`
	}
	if err := c.Bind().Body(&req); err != nil || req.ParticipantID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "participantId is required"})
	}
	ban, err := s.engine.Ban(c.Context(), c.Params("id"), req.ParticipantID, req.Nickname, req.Reason, req.BannedBy)
	if errors.Is(err, moderation.ErrAlreadyBanned) {
		return c.Status(409).JSON(fiber.Map{"error": "already banned"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(ban)
}

func (s *Server) handleUnban(c fiber.Ctx) error {
	actor := c.Query("actor")
	ban, err := s.engine.Unban(c.Context(), c.Params("id"), c.Params("identifier"), actor)
	switch {
	case errors.Is(err, moderation.ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "no active ban"})
	case errors.Is(err, moderation.ErrPermanentBan):
		return c.Status(403).JSON(fiber.Map{"error": "permanent ban requires the top-level actor"})
	case err != nil:
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(ban)
}

func (s *Server) handleResetBans(c fiber.Ctx) error {
	if err := s.engine.ResetBans(c.Context(), c.Params("id")); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleCheckIn(c fiber.Ctx) error {
	var req struct {
		ParticipantID string `json:"participantId"`
		Nickname      string `json:"nickname"`
	}
	if err := c.Bind().Body(&req); err != nil || req.ParticipantID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "participantId is required"})
	}
	already, err := s.engine.MarkPresent(c.Context(), c.Params("id"), req.ParticipantID, req.Nickname)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"alreadyPresent": already})
}

func (s *Server) handleRollover(c fiber.Ctx) error {
	if err := s.engine.RunDailyCycle(c.Context(), c.Params("id")); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleAttendance(c fiber.Ctx) error {
	entries, err := s.engine.Snapshot(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"entries": entries})
}

func (s *Server) handleExclude(c fiber.Ctx) error {
	var req struct {
		ParticipantID string `json:"participantId"`
	}
	if err := c.Bind().Body(&req); err != nil || req.ParticipantID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "participantId is required"})
	}
	if err := s.engine.Exclude(c.Context(), c.Params("id"), req.ParticipantID); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleInclude(c fiber.Ctx) error {
	var req struct {
		ParticipantID string `json:"participantId"`
	}
	if err := c.Bind().Body(&req); err != nil || req.ParticipantID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "participantId is required"})
	}
	if err := s.engine.Include(c.Context(), c.Params("id"), req.ParticipantID); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleSuspend(c fiber.Ctx) error {
	var req struct {
		Suspended bool `json:"suspended"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if err := s.detector.SetSuspended(c.Context(), c.Params("id"), req.Suspended); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleProtect(c fiber.Ctx) error {
	var req struct {
		ParticipantID string `json:"participantId"`
	}
	if err := c.Bind().Body(&req); err != nil || req.ParticipantID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "participantId is required"})
	}
	if err := s.detector.Protect(c.Context(), c.Params("id"), req.ParticipantID); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleUnprotect(c fiber.Ctx) error {
	if err := s.detector.Unprotect(c.Context(), c.Params("id"), c.Params("participant")); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
