package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/DoyleJ11/bingo-backend/internal/engine"
	"github.com/DoyleJ11/bingo-backend/internal/game"
	"github.com/DoyleJ11/bingo-backend/internal/store"
	"github.com/DoyleJ11/bingo-backend/pkg/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBody = 4 << 10

type handlers struct {
	svc *game.Service
	log *zap.Logger
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, p, err := h.svc.CreateSession(r.Context(), req.Code, game.Identity{ID: playerID(r), Name: req.Name})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seat(sess, p))
}

func (h *handlers) joinSession(w http.ResponseWriter, r *http.Request) {
	var req types.JoinSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, p, err := h.svc.JoinSession(r.Context(), req.Code, game.Identity{ID: playerID(r), Name: req.Name})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seat(sess, p))
}

// getSnapshot answers 304 when ?since= names the current revision.
func (h *handlers) getSnapshot(w http.ResponseWriter, r *http.Request) {
	since := int64(-1)
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, fmt.Errorf("%w: bad since %q", engine.ErrMalformedRequest, raw))
			return
		}
		since = v
	}

	snap, err := h.svc.GetSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(snap.Revision(), 10)))
	if snap.Revision() == since {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) startSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.StartSession(r.Context(), chi.URLParam(r, "id"), playerID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (h *handlers) drawNumber(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.DrawNumber(r.Context(), chi.URLParam(r, "id"), playerID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.MoveResponse{Seq: m.Seq, Number: m.Number, Display: engine.FormatNumber(m.Number)})
}

func (h *handlers) submitClaim(w http.ResponseWriter, r *http.Request) {
	var req types.ClaimRequest
	if !h.decode(w, r, &req) {
		return
	}
	pattern := engine.Pattern{Kind: engine.PatternKind(req.Kind), Line: req.Line}
	c, err := h.svc.SubmitClaim(r.Context(), chi.URLParam(r, "id"), playerID(r), pattern)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ClaimResponse{
		ClaimID:  c.ID,
		PlayerID: c.PlayerID,
		Kind:     string(c.Pattern.Kind),
		Line:     c.Pattern.Line,
		Verified: c.Verified,
	})
}

func (h *handlers) resetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.ResetSession(r.Context(), chi.URLParam(r, "id"), playerID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

func (h *handlers) leaveSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.LeaveSession(r.Context(), chi.URLParam(r, "id"), playerID(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func playerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(types.PlayerHeader))
}

func (h *handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, fmt.Errorf("%w: bad request body: %v", engine.ErrMalformedRequest, err))
		return false
	}
	return true
}

func statusFor(kind engine.Kind) int {
	switch kind {
	case engine.KindValidation:
		return http.StatusBadRequest
	case engine.KindConflict:
		return http.StatusConflict
	case engine.KindAuthorization:
		return http.StatusForbidden
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	kind := engine.KindOf(err)
	msg := err.Error()
	switch kind {
	case engine.KindInternal:
		h.log.Error("internal error", zap.Error(err))
		msg = "internal error"
	case engine.KindUnavailable:
		h.log.Warn("store unavailable", zap.Error(err))
		msg = engine.ErrUnavailable.Error()
	}
	writeJSON(w, statusFor(kind), types.ErrorResponse{Error: types.ErrorBody{
		Kind:    string(kind),
		Code:    engine.CodeOf(err),
		Message: msg,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func seat(sess store.Session, p store.Player) types.SeatResponse {
	return types.SeatResponse{
		SessionID: sess.ID,
		Code:      sess.Code,
		PlayerID:  p.ID,
		IsHost:    p.IsHost,
		Board:     p.Board,
		Revision:  sess.Revision,
	}
}

func sessionResponse(sess store.Session) types.SessionResponse {
	return types.SessionResponse{SessionID: sess.ID, Phase: string(sess.Phase), Revision: sess.Revision}
}
