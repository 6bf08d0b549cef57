package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
	"github.com/awch-D/claude-skill-auditor/internal/rules"
	"github.com/awch-D/claude-skill-auditor/internal/storage"
)

// Store is the minimal contract the API needs.
type Store interface {
	ListAudits(limit, offset int) ([]storage.AuditRow, error)
	LoadAudit(id string) (audit.Report, error)
	LoadLatestAudit() (audit.Report, error)
	ListFindings(auditID string, minSeverity audit.Severity) ([]audit.Finding, error)
	ListAuditsForHash(fileHash string, limit int) ([]storage.AuditRow, error)

	ListWaivers(activeOnly bool) ([]storage.Waiver, error)
	CreateWaiver(ruleID, skillName, evidenceSub, reason, createdBy string, expires time.Time) (int64, error)
	RevokeWaiver(id int64, by string) error
}

// UserStore is the auth/activity contract the API uses.
type UserStore interface {
	GetUserByUsername(string) (storage.User, string, error)
	CreateSession(int64, string, time.Time) error
	GetSession(string) (storage.User, error)
	DeleteSession(string) error
	LogActivity(username, action, resource string, meta map[string]any) error
}

type Server struct {
	DB              Store
	UserStore       UserStore
	Engine          *rules.Engine
	Logger          *slog.Logger
	AllowedOrigins  []string
	SessionDuration time.Duration
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	withCORS := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if origin := s.pickCORSOrigin(r); origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h(w, r)
		}
	}

	// Health
	mux.HandleFunc("GET /api/v1/health", withCORS(s.handleHealth))

	// Auth
	mux.HandleFunc("POST /api/v1/auth/login", withCORS(s.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/logout", withCORS(withAuth(s, s.handleLogout, "auth:logout")))
	mux.HandleFunc("GET /api/v1/me", withCORS(withAuth(s, s.handleMe, "me")))

	// Audits
	mux.HandleFunc("GET /api/v1/audits", withCORS(s.handleListAudits))
	mux.HandleFunc("GET /api/v1/audits/latest", withCORS(s.handleGetLatest))
	mux.HandleFunc("GET /api/v1/audits/{id}", withCORS(s.handleGetAudit))
	mux.HandleFunc("GET /api/v1/audits/{id}/findings", withCORS(s.handleListFindings))

	// History for a specific skill file
	mux.HandleFunc("GET /api/v1/skills/{hash}/audits", withCORS(s.handleSkillHistory))

	// Rules inventory
	mux.HandleFunc("GET /api/v1/rules", withCORS(s.handleRules))

	// Waivers
	mux.HandleFunc("GET /api/v1/waivers", withCORS(withAuth(s, s.handleListWaivers, "waivers:list")))
	mux.HandleFunc("POST /api/v1/waivers", withCORS(withAdmin(s, s.handleCreateWaiver, "waivers:create")))
	mux.HandleFunc("POST /api/v1/waivers/{id}/revoke", withCORS(withAdmin(s, s.handleRevokeWaiver, "waivers:revoke")))

	mux.HandleFunc("/", withCORS(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	return mux
}

func (s *Server) pickCORSOrigin(r *http.Request) string {
	if len(s.AllowedOrigins) == 0 {
		return ""
	}
	origin := r.Header.Get("Origin")
	for _, ao := range s.AllowedOrigins {
		if ao == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(origin, ao) {
			return origin
		}
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"version":   audit.AuditorVersion,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)
	offset := parseInt(q.Get("offset"), 0)

	rows, err := s.DB.ListAudits(limit, offset)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows, "limit": limit, "offset": offset,
	})
}

func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	rep, err := s.DB.LoadLatestAudit()
	if err != nil {
		s.err(w, http.StatusNotFound, "no audits")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rep, err := s.DB.LoadAudit(id)
	if err != nil {
		s.err(w, http.StatusNotFound, "audit not found")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListFindings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	min := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("min_severity")))
	if min == "" {
		min = string(audit.SevInfo)
	}
	sev, err := audit.ParseSeverity(min)
	if err != nil {
		s.err(w, http.StatusBadRequest, "invalid min_severity")
		return
	}
	items, err := s.DB.ListFindings(id, sev)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"audit_id": id, "min_severity": string(sev), "items": items,
	})
}

func (s *Server) handleSkillHistory(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	limit := clamp(parseInt(r.URL.Query().Get("limit"), 20), 1, 200)
	rows, err := s.DB.ListAuditsForHash(hash, limit)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_hash": hash, "items": rows,
	})
}

// GET /api/v1/rules (inventory; no auth needed for read-only)
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	items := []rules.RuleInfo{}
	if s.Engine != nil {
		items = s.Engine.Rules()
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
