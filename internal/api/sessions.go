package api

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sponge-spot/internal/filter"
	"github.com/sells-group/sponge-spot/internal/model"
	"github.com/sells-group/sponge-spot/internal/session"
)

// maxWait caps the ?wait= long poll on GET /api/sessions/{id}.
const maxWait = 30 * time.Second

type sessionResponse struct {
	ID           string           `json:"id"`
	Loading      bool             `json:"loading"`
	Criteria     model.Criteria   `json:"criteria"`
	Selected     model.Card       `json:"selected"`
	VisibleCount int              `json:"visible_count"`
	Visible      []model.Location `json:"visible"`
	CreatedAt    time.Time        `json:"created_at"`
}

// criteriaRequest is the body of PUT /api/sessions/{id}/criteria. Omitted
// thresholds fall back to the server defaults.
type criteriaRequest struct {
	Ownership     []string `json:"ownership"`
	Zoning        []string `json:"zoning"`
	MinPopulation *int     `json:"min_population"`
	MaxBudget     *int64   `json:"max_budget"`
}

type toggleRequest struct {
	Ownership string `json:"ownership"`
	Zoning    string `json:"zoning"`
}

type selectRequest struct {
	ID *int `json:"id"`
}

func (s *Server) view(sess *session.Session) sessionResponse {
	st := sess.Snapshot()
	visible := filter.Apply(s.data.All(), st.Criteria)
	return sessionResponse{
		ID:           st.ID,
		Loading:      st.Loading,
		Criteria:     st.Criteria,
		Selected:     model.NewCard(st.Selected),
		VisibleCount: len(visible),
		Visible:      visible,
		CreatedAt:    st.CreatedAt,
	}
}

// lookup resolves the {id} URL parameter, writing a 404 when it is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		zap.L().Error("api: get session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Create()
	w.Header().Set("Location", "/api/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, s.view(sess))
}

// handleGetSession returns the session state. With ?wait=<duration> it
// blocks until the simulated load completes, the wait elapses or the client
// goes away, whichever comes first.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("wait"); raw != "" {
		wait, err := time.ParseDuration(raw)
		if err != nil || wait < 0 {
			writeError(w, http.StatusBadRequest, "wait must be a non-negative duration such as 5s")
			return
		}
		timer := time.NewTimer(min(wait, maxWait))
		select {
		case <-sess.Ready():
		case <-timer.C:
		case <-r.Context().Done():
		}
		timer.Stop()
	}

	writeJSON(w, http.StatusOK, s.view(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(chi.URLParam(r, "id")); err != nil {
		if eris.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "session close failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceCriteria(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req criteriaRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := model.DefaultCriteria()
	c.MinPopulation = s.defaults.MinPopulation
	c.MaxBudget = s.defaults.MaxBudget
	for _, raw := range req.Ownership {
		o, err := model.ParseOwnership(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !slices.Contains(c.Ownership, o) {
			c.Ownership = append(c.Ownership, o)
		}
	}
	for _, raw := range req.Zoning {
		z, err := model.ParseZoning(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !slices.Contains(c.Zoning, z) {
			c.Zoning = append(c.Zoning, z)
		}
	}
	if req.MinPopulation != nil {
		c.SetMinPopulation(*req.MinPopulation)
	}
	if req.MaxBudget != nil {
		c.SetMaxBudget(*req.MaxBudget)
	}

	sess.SetCriteria(c)
	writeJSON(w, http.StatusOK, s.view(sess))
}

func (s *Server) handleToggleCriteria(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req toggleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if (req.Ownership == "") == (req.Zoning == "") {
		writeError(w, http.StatusBadRequest, "exactly one of ownership or zoning is required")
		return
	}

	if req.Ownership != "" {
		o, err := model.ParseOwnership(req.Ownership)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sess.UpdateCriteria(func(c *model.Criteria) { c.ToggleOwnership(o) })
	} else {
		z, err := model.ParseZoning(req.Zoning)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sess.UpdateCriteria(func(c *model.Criteria) { c.ToggleZoning(z) })
	}
	writeJSON(w, http.StatusOK, s.view(sess))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req selectRequest
	if err := decodeBody(w, r, &req); err != nil || req.ID == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"id\": <location id>}")
		return
	}
	if _, found := sess.Select(*req.ID); !found {
		writeError(w, http.StatusNotFound, "location "+strconv.Itoa(*req.ID)+" not found")
		return
	}
	writeJSON(w, http.StatusOK, s.view(sess))
}
