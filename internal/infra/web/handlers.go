// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"code-verification-service/internal/domain/model"
	"code-verification-service/internal/infra/logging"
	"code-verification-service/internal/infra/metrics"
)

type checkRequest struct {
	VerifyCode string `json:"verify_code"`
	UserID     string `json:"user_id"`
}

type checkResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type activeCodeResponse struct {
	Code        string `json:"code"`
	Owner       string `json:"owner"`
	ActivatedAt string `json:"activated_at"`
	Remaining   string `json:"remaining"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, checkResponse{Status: "error", Message: "invalid request body"})
		return
	}

	ctx := logging.WithIdentity(r.Context(), req.UserID)

	start := time.Now()
	verdict, err := s.verifyUC.Verify(ctx, req.VerifyCode, req.UserID)
	metrics.ObserveVerification(string(verdict.Outcome), float64(time.Since(start).Milliseconds()))

	if err != nil {
		// Store failure. Full detail is already logged server-side; the
		// caller gets nothing beyond a generic denial.
		writeJSON(w, http.StatusInternalServerError, checkResponse{Status: "error", Message: "invalid code"})
		return
	}

	if verdict.Outcome.Accepted() {
		writeJSON(w, http.StatusOK, checkResponse{Status: "ok", Message: "code valid"})
		return
	}
	writeJSON(w, http.StatusForbidden, checkResponse{Status: "error", Message: denialMessage(verdict.Outcome)})
}

func denialMessage(o model.Outcome) string {
	switch o {
	case model.OutcomeOwnedByOther:
		return "code already used by another user"
	case model.OutcomeExpired, model.OutcomePermanentlyExpired:
		return "code expired"
	default:
		return "invalid code"
	}
}

// handleLogs renders the most recent audit records as preformatted text,
// one line per attempt in the original log-file shape.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	records, err := s.adminUC.RecentLogs(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list audit records")
		http.Error(w, "failed to read log", http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "[%s] user: %s | code: %s | status: %s\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Identity, rec.Code, rec.Detail)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) handleActiveCodes(w http.ResponseWriter, r *http.Request) {
	active, err := s.adminUC.ActiveCodes(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list active codes")
		http.Error(w, "failed to list active codes", http.StatusInternalServerError)
		return
	}

	out := make([]activeCodeResponse, 0, len(active))
	for _, a := range active {
		out = append(out, activeCodeResponse{
			Code:        a.Code,
			Owner:       a.OwnerID,
			ActivatedAt: a.ActivatedAt.Format(time.RFC3339),
			Remaining:   formatRemaining(a.Remaining),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// formatRemaining renders a duration as "1d 3h 14m", omitting leading zero
// units. Sub-minute remainders round up so a live code never shows "0m".
func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	if d%time.Minute > 0 {
		minutes++
	}
	if minutes == 60 {
		minutes = 0
		hours++
	}
	if hours == 24 {
		hours = 0
		days++
	}

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
