package handler

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	mw "github.com/kapu/trendformats-go/internal/api/middleware"
	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/internal/service/trending"
	"github.com/kapu/trendformats-go/pkg/errors"
)

type Pipeline interface {
	Run(ctx context.Context, req trending.Request) (*domain.TrendingPayload, *domain.FetchDebug, error)
}

// QuotaLedger is implemented by usage.Repository.
type QuotaLedger interface {
	CanUseFormatSearch(ctx context.Context, sess domain.Session) (bool, domain.UsageSummary, error)
	RecordFormatSearchUsage(ctx context.Context, userID, niche string, platform domain.Platform) error
	Summary(ctx context.Context, sess domain.Session) (domain.UsageSummary, error)
}

// TrendingHandler serves the format search, as one JSON response or as a
// WebSocket progress stream.
type TrendingHandler struct {
	pipeline Pipeline
	quota    QuotaLedger
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewTrendingHandler(pipeline Pipeline, quota QuotaLedger, allowedOrigins []string, logger *zap.Logger) *TrendingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrendingHandler{
		pipeline: pipeline,
		quota:    quota,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

type searchRequest struct {
	sess     *domain.Session
	niche    string
	platform domain.Platform
}

// admit runs the checks shared by both endpoints and writes the rejection
// itself. ok is false when a response was already written.
func (h *TrendingHandler) admit(w http.ResponseWriter, r *http.Request) (searchRequest, bool) {
	sess, ok := mw.SessionFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return searchRequest{}, false
	}

	q := r.URL.Query()
	niche := strings.TrimSpace(q.Get("niche"))
	if niche == "" {
		writeError(w, http.StatusBadRequest, "niche is required")
		return searchRequest{}, false
	}
	platform, valid := domain.ParsePlatform(q.Get("platform"))
	if !valid {
		writeError(w, http.StatusBadRequest, "platform must be tiktok or instagram")
		return searchRequest{}, false
	}

	allowed, summary, err := h.quota.CanUseFormatSearch(r.Context(), *sess)
	if err != nil {
		h.logger.Error("Quota check failed", zap.String("user_id", sess.UserID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "usage service unavailable")
		return searchRequest{}, false
	}
	if !allowed {
		qe := errors.NewQuotaError(sess.UserID, summary.Used, summary.Limit)
		writeJSON(w, qe.StatusCode, Response{Error: qe.Message, Data: summary})
		return searchRequest{}, false
	}

	return searchRequest{sess: sess, niche: niche, platform: platform}, true
}

func (h *TrendingHandler) record(ctx context.Context, req searchRequest) {
	if err := h.quota.RecordFormatSearchUsage(ctx, req.sess.UserID, req.niche, req.platform); err != nil {
		h.logger.Error("Failed to record usage",
			zap.String("user_id", req.sess.UserID),
			zap.Error(err),
		)
	}
}

// Get handles GET /api/formats/trending.
func (h *TrendingHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admit(w, r)
	if !ok {
		return
	}

	payload, debug, err := h.pipeline.Run(r.Context(), trending.Request{Niche: req.niche, Platform: req.platform})
	if err != nil {
		h.writePipelineError(w, err, debug)
		return
	}

	h.record(r.Context(), req)
	writeData(w, http.StatusOK, payload)
}

func (h *TrendingHandler) writePipelineError(w http.ResponseWriter, err error, debug *domain.FetchDebug) {
	var verr *errors.ValidationError
	switch {
	case stderrors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case stderrors.Is(err, domain.ErrInsufficientData):
		writeJSON(w, http.StatusInternalServerError, Response{
			Error: "no trending videos found for this niche",
			Debug: debug,
		})
	default:
		h.logger.Error("Trending pipeline failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{Error: "failed to analyze trending formats", Debug: debug})
	}
}

// Stream handles GET /api/formats/trending/ws. Auth and quota are checked
// before the upgrade so rejections are plain HTTP responses.
func (h *TrendingHandler) Stream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admit(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends anything; reading only detects a hang-up.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	send := func(e trending.Event) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(e); err != nil {
			h.logger.Debug("WebSocket write failed", zap.Error(err))
			cancel()
		}
	}

	_, _, err = h.pipeline.Run(ctx, trending.Request{Niche: req.niche, Platform: req.platform, Progress: send})
	switch {
	case err == nil:
		h.record(r.Context(), req)
	case stderrors.Is(err, domain.ErrInsufficientData):
		// already reported as an error event
	default:
		h.logger.Error("Trending pipeline failed", zap.Error(err))
		send(trending.Event{Stage: trending.StageError, Message: "failed to analyze trending formats"})
	}

	writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	writeMu.Unlock()
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSpace(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
