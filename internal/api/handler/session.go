package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/domain"
	"github.com/kapu/trendformats-go/pkg/errors"
)

type SessionIssuer interface {
	Create(ctx context.Context, sess domain.Session) (string, error)
	TTL() time.Duration
}

type UserRegistrar interface {
	UpsertUser(ctx context.Context, sess domain.Session) error
}

// SessionHandler issues sessions directly. It is a development helper and is
// only mounted when dev login is enabled.
type SessionHandler struct {
	sessions   SessionIssuer
	users      UserRegistrar
	cookieName string
	logger     *zap.Logger
}

func NewSessionHandler(sessions SessionIssuer, users UserRegistrar, cookieName string, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, users: users, cookieName: cookieName, logger: logger}
}

type createSessionRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Plan   string `json:"plan"`
}

// Create handles POST /api/session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	plan := domain.Plan(body.Plan)
	if body.Plan == "" {
		plan = domain.PlanFree
	}
	if !plan.IsValid() {
		writeError(w, http.StatusBadRequest, "plan must be free, creator or pro")
		return
	}
	sess := domain.Session{UserID: body.UserID, Email: body.Email, Plan: plan}

	token, err := h.sessions.Create(r.Context(), sess)
	if err != nil {
		var verr *errors.ValidationError
		if stderrors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		h.logger.Error("Session create failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "session store unavailable")
		return
	}

	if h.users != nil {
		if err := h.users.UpsertUser(r.Context(), sess); err != nil {
			h.logger.Warn("User upsert failed", zap.String("user_id", sess.UserID), zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessions.TTL().Seconds()),
	})
	writeData(w, http.StatusOK, sess)
}
