package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/promptlab-dev/promptlab-api/internal/dto"
	"github.com/promptlab-dev/promptlab-api/internal/service"
)

// FeedHandler streams freshly stored evaluations to admin clients over SSE.
type FeedHandler struct {
	feed    service.FeedService
	logger  zerolog.Logger
	timeout time.Duration
}

// NewFeedHandler constructs the handler.
func NewFeedHandler(feed service.FeedService, logger zerolog.Logger, timeout time.Duration) *FeedHandler {
	return &FeedHandler{
		feed:    feed,
		logger:  logger.With().Str("component", "feed_handler").Logger(),
		timeout: timeout,
	}
}

// Register attaches the feed endpoint to the router group.
func (h *FeedHandler) Register(router fiber.Router) {
	router.Get("/feed", h.stream)
}

func (h *FeedHandler) stream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(withRequestContext(c))

	events, cleanup := h.feed.Subscribe()

	keepAliveInterval := h.timeout
	if keepAliveInterval <= 0 {
		keepAliveInterval = 30 * time.Second
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		ticker := time.NewTicker(keepAliveInterval / 2)
		defer ticker.Stop()

		for {
			select {
			case row, ok := <-events:
				if !ok {
					return
				}
				if err := writeEvaluationEvent(w, row); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write feed event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write feed keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func writeEvaluationEvent(w *bufio.Writer, row dto.AdminEvaluationResponse) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: evaluation\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
