package httpapi

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/dshills/personarag/internal/expander"
	"github.com/dshills/personarag/internal/ingest"
	"github.com/dshills/personarag/internal/retriever"
	"github.com/dshills/personarag/pkg/types"
)

type searchRequest struct {
	Query     string        `json:"query"`
	Namespace string        `json:"namespace"`
	TopK      int           `json:"top_k"`
	Filters   types.Filters `json:"filters"`
	Render    *bool         `json:"render"`
}

type activityRequest struct {
	Namespace       string    `json:"namespace"`
	PracticeType    string    `json:"practice_type"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Score           *int      `json:"score"`
	Notes           string    `json:"notes"`
	Points          int       `json:"points"`
}

func (s *Server) health(c fiber.Ctx) error {
	status, err := s.app.Status(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
		"detail": status,
	})
}

func (s *Server) search(c fiber.Ctx) error {
	var body searchRequest
	if err := c.Bind().JSON(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if body.TopK < 0 || body.TopK > retriever.MaxTopK {
		return fiber.NewError(fiber.StatusBadRequest, "top_k must be between 1 and "+strconv.Itoa(retriever.MaxTopK))
	}

	resp, err := s.app.Retriever.Search(c.Context(), retriever.SearchRequest{
		Query:     body.Query,
		Namespace: types.Namespace(body.Namespace),
		Filters:   body.Filters,
		TopK:      body.TopK,
	})
	if err != nil {
		return err
	}

	out := fiber.Map{
		"namespace":         body.Namespace,
		"keyword_query":     resp.KeywordQuery,
		"vector_candidates": resp.VectorCandidates,
		"text_candidates":   resp.TextCandidates,
		"duration_ms":       resp.Duration.Milliseconds(),
		"results":           retriever.Views(resp.Results),
	}
	if body.Render == nil || *body.Render {
		out["rendered"] = retriever.Render(resp.Results)
	}
	return c.JSON(out)
}

func (s *Server) expand(c fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return types.ErrEmptyQuery
	}

	var (
		dict   expander.Dictionary
		source string
	)
	if name := c.Query("dictionary"); name != "" {
		d, ok := s.app.Dictionaries.Lookup(name)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown dictionary "+strconv.Quote(name))
		}
		dict, source = d, name
	} else {
		route, err := s.app.Retriever.Routes().Lookup(types.Namespace(c.Query("namespace")))
		if err != nil {
			return err
		}
		dict, source = route.Dictionary, string(route.Namespace)
	}

	return c.JSON(fiber.Map{
		"query":         query,
		"dictionary":    source,
		"terms":         expander.ExpandQuery(query, dict),
		"keyword_query": expander.ExpandQueryForFTS(query, dict),
	})
}

func (s *Server) loadContext(c fiber.Ctx) error {
	ns, err := types.ParseNamespace(c.Query("namespace"))
	if err != nil {
		return err
	}
	useCache := c.Query("fresh") != "true"

	uc, err := s.app.Loader.Load(c.Context(), c.Params("id"), ns, useCache)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"context":  uc,
		"rendered": uc.Render(),
	})
}

func (s *Server) invalidateContext(c fiber.Ctx) error {
	removed := s.app.Loader.Invalidate(c.Context(), c.Params("id"))
	return c.JSON(fiber.Map{
		"user_id": c.Params("id"),
		"removed": removed,
	})
}

func (s *Server) recordActivity(c fiber.Ctx) error {
	var body activityRequest
	if err := c.Bind().JSON(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	activity := &types.Activity{
		ID:              uuid.NewString(),
		UserID:          c.Params("id"),
		Namespace:       types.Namespace(body.Namespace),
		PracticeType:    body.PracticeType,
		CompletedAt:     body.CompletedAt,
		DurationMinutes: body.DurationMinutes,
		Score:           body.Score,
		Notes:           body.Notes,
	}
	progress, err := s.app.Recorder.RecordActivity(c.Context(), activity, body.Points)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"activity_id":         activity.ID,
		"current_streak":      progress.CurrentStreak,
		"longest_streak":      progress.LongestStreak,
		"total_points":        progress.TotalPoints,
		"practices_completed": progress.PracticesCompleted,
	})
}

func (s *Server) ingestRecords(c fiber.Ctx) error {
	ns, err := types.ParseNamespace(c.Params("namespace"))
	if err != nil {
		return err
	}
	var records []ingest.Record
	if err := c.Bind().JSON(&records); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "expected a JSON array of records")
	}

	if !s.app.IngestLock.TryAcquire() {
		return fiber.NewError(fiber.StatusConflict, "another ingest is already running")
	}
	defer s.app.IngestLock.Release()

	stats, err := s.app.Ingester.Ingest(c.Context(), ns, records, nil)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
