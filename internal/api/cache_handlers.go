package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// maxPreloadURLs bounds a single preload request.
const maxPreloadURLs = 500

// handleGetImage handles GET /api/images?url=&force=
func (s *Server) handleGetImage(c *fiber.Ctx) error {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		return RespondValidationError(c, ErrMsgMissingURL, "")
	}

	result, err := s.cache.CacheImage(c.UserContext(), url, c.QueryBool("force", false))
	if err != nil {
		s.logger.WarnContext(c.UserContext(), "Image request failed", "url", url, "error", err)
		return respondCacheError(c, err)
	}

	return RespondSuccess(c, result)
}

// handleGetImageInstant handles GET /api/images/instant?url=
func (s *Server) handleGetImageInstant(c *fiber.Ctx) error {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		return RespondValidationError(c, ErrMsgMissingURL, "")
	}

	path, ok := s.cache.CachedImagePathInstant(url)
	return RespondSuccess(c, InstantImageResponse{URL: url, Cached: ok, Path: path})
}

// handleGetJSON handles GET /api/json?url=&force=
// The cached document is returned as the response body; cache provenance is
// reported in headers.
func (s *Server) handleGetJSON(c *fiber.Ctx) error {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		return RespondValidationError(c, ErrMsgMissingURL, "")
	}

	result, err := s.cache.CacheJSON(c.UserContext(), url, c.QueryBool("force", false))
	if err != nil {
		s.logger.WarnContext(c.UserContext(), "JSON request failed", "url", url, "error", err)
		return respondCacheError(c, err)
	}

	c.Set("X-Cache-Hit", boolHeader(result.FromCache))
	c.Set("X-Cache-Stale", boolHeader(result.Stale))
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(result.Data)
}

// handlePreload handles POST /api/preload
func (s *Server) handlePreload(c *fiber.Ctx) error {
	var req PreloadRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, ErrMsgBadRequest, err.Error())
	}

	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	if len(urls) == 0 {
		return RespondValidationError(c, "At least one URL is required", "")
	}
	if len(urls) > maxPreloadURLs {
		return RespondValidationError(c, "Too many URLs", "a single request accepts at most 500 URLs")
	}
	if req.BatchSize < 0 {
		return RespondValidationError(c, "batch_size must not be negative", "")
	}

	results := s.cache.PreloadImages(c.UserContext(), urls, req.BatchSize)
	return RespondSuccess(c, ToPreloadResponse(results))
}

// handleClearCache handles DELETE /api/cache?key=
func (s *Server) handleClearCache(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Query("key"))

	if err := s.cache.ClearCache(c.UserContext(), key); err != nil {
		s.logger.ErrorContext(c.UserContext(), "Failed to clear cache", "key", key, "error", err)
		return RespondInternalError(c, "Failed to clear cache", err.Error())
	}

	if key == "" {
		return RespondMessage(c, "Cache cleared")
	}
	return RespondMessage(c, "Cache entries cleared for key "+key)
}

// handleGetStats handles GET /api/stats
func (s *Server) handleGetStats(c *fiber.Ctx) error {
	return RespondSuccess(c, s.cache.Stats(c.UserContext()))
}

// handleCheckURL handles GET /api/check?url=
func (s *Server) handleCheckURL(c *fiber.Ctx) error {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		return RespondValidationError(c, ErrMsgMissingURL, "")
	}

	return RespondSuccess(c, s.cache.CheckURL(c.UserContext(), url))
}

// handleDebugInstant handles POST /api/debug/instant
func (s *Server) handleDebugInstant(c *fiber.Ctx) error {
	var req InstantRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondBadRequest(c, ErrMsgBadRequest, err.Error())
	}

	return RespondSuccess(c, s.cache.CheckInstant(req.URLs))
}

func boolHeader(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
