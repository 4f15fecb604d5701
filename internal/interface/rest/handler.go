package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/usecase"
)

const maxListLimit = 500

// Handler serves the read-only dashboard API.
type Handler struct {
	dashboard *usecase.Dashboard
}

// NewHandler creates a Handler over the dashboard use case.
func NewHandler(dashboard *usecase.Dashboard) *Handler {
	return &Handler{dashboard: dashboard}
}

// RegisterRoutes mounts the health check and every /api route on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.handleHealth)
	e.GET("/api/summary", h.handleSummary)
	e.GET("/api/events", h.handleEvents)
	e.GET("/api/clients/:id", h.handleClient)
	e.GET("/api/clients/:id/metrics", h.handleMetrics)
	e.GET("/api/clients/:id/publications", h.handlePublications)
	e.GET("/api/clients/:id/stats", h.handleStats)
}

type clientView struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Status        string `json:"status"`
	SourceKind    string `json:"source_kind"`
	SourceURL     string `json:"source_url"`
	SocialAccount string `json:"social_account"`
	ReportTo      string `json:"report_to"`
	RemixEnabled  bool   `json:"remix_enabled"`
	NicheKeywords string `json:"niche_keywords"`
}

type eventView struct {
	ID        int64     `json:"id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type metricView struct {
	ItemID     string    `json:"item_id"`
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	Score      float64   `json:"score"`
	ObservedAt time.Time `json:"observed_at"`
}

type publicationView struct {
	ItemID      string    `json:"item_id"`
	PublishedAt time.Time `json:"published_at"`
}

type statsView struct {
	Day        string `json:"day"`
	Followers  int64  `json:"followers"`
	Following  int64  `json:"following"`
	MediaCount int64  `json:"media_count"`
}

type activityView struct {
	ClientID  int64  `json:"client_id"`
	Username  string `json:"username"`
	PostCount int64  `json:"post_count"`
}

func (h *Handler) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *Handler) handleSummary(c echo.Context) error {
	summary, err := h.dashboard.Summary(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	activity := make([]activityView, 0, len(summary.Activity))
	for _, a := range summary.Activity {
		activity = append(activity, activityView{ClientID: a.ClientID, Username: a.Username, PostCount: a.PostCount})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"generated_at":  summary.GeneratedAt,
		"posts":         activity,
		"recent_errors": toEventViews(summary.RecentErrors),
	})
}

func (h *Handler) handleEvents(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	filter := domain.EventFilter{Contains: c.QueryParam("q"), Limit: limit}
	if raw := c.QueryParam("category"); raw != "" {
		filter.Categories = strings.Split(raw, ",")
	}
	if c.QueryParam("errors") == "true" {
		filter.Categories = usecase.ErrorCategories
	}

	events, err := h.dashboard.Events(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, toEventViews(events))
}

func (h *Handler) handleClient(c echo.Context) error {
	id, err := clientID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client id"})
	}
	client, err := h.dashboard.Client(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, clientView{
		ID:            client.ID,
		Username:      client.Username,
		Status:        string(client.Status),
		SourceKind:    client.Source.Kind,
		SourceURL:     client.Source.Endpoint,
		SocialAccount: client.Social.Account,
		ReportTo:      client.ReportTo,
		RemixEnabled:  client.RemixEnabled,
		NicheKeywords: client.NicheKeywords,
	})
}

func (h *Handler) handleMetrics(c echo.Context) error {
	id, err := clientID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client id"})
	}
	metrics, err := h.dashboard.Metrics(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	out := make([]metricView, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, metricView{ItemID: m.ItemID, Title: m.Title, Link: m.Link, Score: m.Score, ObservedAt: m.ObservedAt})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) handlePublications(c echo.Context) error {
	id, err := clientID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client id"})
	}
	limit, err := limitParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	pubs, err := h.dashboard.Publications(c.Request().Context(), id, limit)
	if err != nil {
		return errorResponse(c, err)
	}

	out := make([]publicationView, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, publicationView{ItemID: p.ItemID, PublishedAt: p.PublishedAt})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) handleStats(c echo.Context) error {
	id, err := clientID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client id"})
	}
	stats, err := h.dashboard.Stats(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	out := make([]statsView, 0, len(stats))
	for _, s := range stats {
		out = append(out, statsView{
			Day:        s.CollectedOn,
			Followers:  s.Stats.Followers,
			Following:  s.Stats.Following,
			MediaCount: s.Stats.MediaCount,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func toEventViews(events []domain.EventLogEntry) []eventView {
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{ID: e.ID, Category: e.Category, Message: e.Message, Timestamp: e.Timestamp})
	}
	return out
}

func clientID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func limitParam(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("invalid limit")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

func errorResponse(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "client not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
}
