package handler

import (
	"net/http"

	"go.uber.org/zap"

	mw "github.com/kapu/trendformats-go/internal/api/middleware"
)

type UsageHandler struct {
	quota  QuotaLedger
	logger *zap.Logger
}

func NewUsageHandler(quota QuotaLedger, logger *zap.Logger) *UsageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageHandler{quota: quota, logger: logger}
}

// Get handles GET /api/usage.
func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := mw.SessionFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	summary, err := h.quota.Summary(r.Context(), *sess)
	if err != nil {
		h.logger.Error("Usage summary failed", zap.String("user_id", sess.UserID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "usage service unavailable")
		return
	}
	writeData(w, http.StatusOK, summary)
}
