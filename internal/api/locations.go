package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/sponge-spot/internal/filter"
	"github.com/sells-group/sponge-spot/internal/geospatial"
	"github.com/sells-group/sponge-spot/internal/model"
	"github.com/sells-group/sponge-spot/internal/scorer"
)

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type mapResponse struct {
	MapView
	PopulationRange model.Range    `json:"population_range"`
	BudgetRange     model.Range    `json:"budget_range"`
	Ownerships      []option       `json:"ownerships"`
	Zonings         []option       `json:"zonings"`
	Defaults        model.Criteria `json:"defaults"`
}

type locationsResponse struct {
	Count     int              `json:"count"`
	Locations []model.Location `json:"locations"`
}

type locationResponse struct {
	Location    model.Location   `json:"location"`
	Card        model.Card       `json:"card"`
	Suitability scorer.SiteScore `json:"suitability"`
}

type recommendationsResponse struct {
	Count           int                `json:"count"`
	Recommendations []scorer.SiteScore `json:"recommendations"`
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	resp := mapResponse{
		MapView:         s.opts.Map,
		PopulationRange: model.PopulationRange,
		BudgetRange:     model.BudgetRange,
		Defaults:        s.defaults,
	}
	for _, o := range model.Ownerships {
		resp.Ownerships = append(resp.Ownerships, option{Value: string(o), Label: o.Label()})
	}
	for _, z := range model.Zonings {
		resp.Zonings = append(resp.Zonings, option{Value: string(z), Label: z.Label()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// query runs the filter engine for the request's criteria, then clips to the
// optional bbox viewport. Filter order is preserved.
func (s *Server) query(r *http.Request) ([]model.Location, error) {
	q := r.URL.Query()
	c, err := ParseCriteria(q, s.defaults)
	if err != nil {
		return nil, err
	}
	locs := filter.Apply(s.data.All(), c)

	if raw := q.Get("bbox"); raw != "" {
		bbox, err := ParseBBox(raw)
		if err != nil {
			return nil, err
		}
		ids, err := s.index.Within(bbox)
		if err != nil {
			return nil, err
		}
		locs = geospatial.Clip(locs, ids)
	}
	return locs, nil
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.query(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, locationsResponse{Count: len(locs), Locations: locs})
}

func (s *Server) handleLocationsGeoJSON(w http.ResponseWriter, r *http.Request) {
	locs, err := s.query(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := json.Marshal(geospatial.FeatureCollection(locs))
	if err != nil {
		zap.L().Error("api: encode geojson", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode geojson")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "location id must be an integer")
		return
	}
	loc, ok := s.data.ByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "location "+strconv.Itoa(id)+" not found")
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{
		Location:    loc,
		Card:        model.NewCard(loc),
		Suitability: s.scorer.ScoreOne(loc),
	})
}

// handleRecommendations ranks the filtered sites by suitability. It accepts
// the list filters plus limit and min_score.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseRankOptions(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	locs, err := s.query(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs := s.scorer.Rank(locs, &opts)
	writeJSON(w, http.StatusOK, recommendationsResponse{Count: len(recs), Recommendations: recs})
}
