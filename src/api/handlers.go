package api

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"video-linker/src/application"
	"video-linker/src/domain"
)

// StatsProvider отдает состояние векторного индекса для /health
type StatsProvider interface {
	Stats(ctx context.Context) (domain.StoreStats, error)
}

// Handler обработчики HTTP API
type Handler struct {
	service application.VideoService
	stats   StatsProvider
	logger  *slog.Logger
}

// NewHandler создает новый экземпляр обработчиков. stats может быть nil.
func NewHandler(service application.VideoService, stats StatsProvider, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, stats: stats, logger: logger}
}

type transcribeRequest struct {
	YouTubeVideoURL string `json:"youtube_video_url" binding:"required"`
	IndexSegments   *bool  `json:"index_segments"`
}

type transcriptionItem struct {
	Start       float64 `json:"start"`
	Text        string  `json:"text"`
	DisplayTime string  `json:"display_time"`
}

type transcribeResponse struct {
	Summary        string                         `json:"summary"`
	LinkedSegments []domain.MatchResult           `json:"linked_segments"`
	Transcriptions map[string][]transcriptionItem `json:"transcriptions"`
	Source         domain.Source                  `json:"source"`
}

type matchSegmentRequest struct {
	ParagraphText string `json:"paragraph_text" binding:"required"`
}

type matchSegmentResponse struct {
	Timestamp     float64 `json:"timestamp"`
	DisplayTime   string  `json:"display_time"`
	SourceSegment string  `json:"source_segment"`
}

type linkSummaryRequest struct {
	Summary string `json:"summary" binding:"required"`
}

type linkSummaryResponse struct {
	LinkedSegments []domain.MatchResult `json:"linked_segments"`
}

// Transcribe POST /transcribe
func (h *Handler) Transcribe(c *gin.Context) {
	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.NewValidationError("поле youtube_video_url обязательно", err))
		return
	}

	transcript, err := h.service.Transcribe(c.Request.Context(), application.TranscribeRequest{
		URL:           req.YouTubeVideoURL,
		IndexSegments: req.IndexSegments,
		RequestID:     c.GetString(requestIDKey),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, transcribeResponse{
		Summary:        transcript.Summary,
		LinkedSegments: []domain.MatchResult{},
		Transcriptions: groupTranscriptions(transcript.Segments),
		Source:         transcript.Source,
	})
}

// MatchSegment POST /match-segment
func (h *Handler) MatchSegment(c *gin.Context) {
	var req matchSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.NewValidationError("поле paragraph_text обязательно", err))
		return
	}

	match, err := h.service.MatchSegment(c.Request.Context(), req.ParagraphText)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, matchSegmentResponse{
		Timestamp:     match.Timestamp,
		DisplayTime:   match.DisplayTime,
		SourceSegment: match.SourceSegment,
	})
}

// LinkSummary POST /link-summary
func (h *Handler) LinkSummary(c *gin.Context) {
	var req linkSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.NewValidationError("поле summary обязательно", err))
		return
	}

	linked, err := h.service.LinkSummary(c.Request.Context(), req.Summary)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if linked == nil {
		linked = []domain.MatchResult{}
	}

	c.JSON(http.StatusOK, linkSummaryResponse{LinkedSegments: linked})
}

// Health GET /health
func (h *Handler) Health(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		h.logger.Warn("хранилище недоступно", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": stats})
}

// groupTranscriptions строит ответ "HH:MM:SS - HH:MM:SS" → фрагменты окна
func groupTranscriptions(segments []domain.Segment) map[string][]transcriptionItem {
	sorted := make([]domain.Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := make(map[string][]transcriptionItem, len(sorted))
	for _, seg := range sorted {
		key := seg.TimeRange()
		out[key] = append(out[key], transcriptionItem{
			Start:       seg.Start,
			Text:        seg.Text,
			DisplayTime: seg.DisplayTime,
		})
	}
	return out
}

func (h *Handler) writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("ошибка обработки запроса",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("kind", string(kind)),
			slog.Any("error", err))
	}
	c.AbortWithStatusJSON(status, gin.H{
		"detail": err.Error(),
		"kind":   kind,
	})
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
