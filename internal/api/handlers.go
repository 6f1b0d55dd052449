package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/1F47E/grid9/internal/config"
	"github.com/1F47E/grid9/pkg/grid9"
	"github.com/1F47E/grid9/pkg/index"
	"github.com/1F47E/grid9/pkg/models"
	"github.com/1F47E/grid9/pkg/spatial"
)

const maxNearest = 1000

// Fallback limits for the nearby scan when the config leaves them unset
const (
	defaultNearbyMaxRadiusM = 1000.0
	defaultNearbyMaxResults = 1000
)

type handler struct {
	nearbyCfg config.NearbyConfig
	index     *index.CodeIndex
}

type encodeResponse struct {
	Code string `json:"code"`
}

type distanceResponse struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	DistanceM float64 `json:"distance_m"`
}

type neighborsResponse struct {
	Code      string   `json:"code"`
	Neighbors []string `json:"neighbors"`
}

type codesResponse struct {
	Codes []string `json:"codes"`
}

type coordinatesRequest struct {
	Coordinates   []models.Coordinate `json:"coordinates"`
	HumanReadable bool                `json:"human"`
}

type codesRequest struct {
	Codes []string `json:"codes"`
}

type coordinatesResponse struct {
	Coordinates []models.Coordinate `json:"coordinates"`
}

type groupResponse struct {
	Groups map[string][]models.Coordinate `json:"groups"`
}

type entriesResponse struct {
	Entries []models.Entry `json:"entries"`
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) encode(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	human, err := queryBool(r, "human")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	code, err := grid9.Encode(lat, lon, human)
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, encodeResponse{Code: code})
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := grid9.Decode(chi.URLParam(r, "code"))
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, models.Coordinate{Lat: lat, Lon: lon})
}

func (h *handler) distance(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	d, err := grid9.CalculateDistance(from, to)
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, distanceResponse{From: from, To: to, DistanceM: d})
}

func (h *handler) precision(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := queryFloatDefault(r, "lon", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	info, err := grid9.GetActualPrecision(lat, lon)
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

func (h *handler) neighbors(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	neighbors, err := grid9.Neighbors(code)
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, neighborsResponse{Code: grid9.RemoveFormatting(code), Neighbors: neighbors})
}

func (h *handler) nearby(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	radius, err := queryFloatDefault(r, "radius", h.nearbyCfg.DefaultRadiusM)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryUintDefault(r, "max", h.nearbyCfg.DefaultMaxResults)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	maxRadius, maxResults := h.nearbyLimits()
	if radius > maxRadius {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("radius %v exceeds the maximum of %v meters", radius, maxRadius))
		return
	}
	if limit > maxResults {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("max %d exceeds the maximum of %d results", limit, maxResults))
		return
	}

	codes, err := spatial.FindNearbyContext(r.Context(), lat, lon, radius, limit)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	if codes == nil {
		codes = []string{}
	}
	writeJSON(w, r, http.StatusOK, codesResponse{Codes: codes})
}

func (h *handler) nearbyLimits() (float64, uint) {
	maxRadius := h.nearbyCfg.MaxRadiusM
	if maxRadius <= 0 {
		maxRadius = defaultNearbyMaxRadiusM
	}
	maxResults := h.nearbyCfg.MaxResults
	if maxResults == 0 {
		maxResults = defaultNearbyMaxResults
	}
	return maxRadius, maxResults
}

func (h *handler) batchEncode(w http.ResponseWriter, r *http.Request) {
	var req coordinatesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	codes, err := spatial.BatchEncode(req.Coordinates, req.HumanReadable)
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, codesResponse{Codes: codes})
}

func (h *handler) batchDecode(w http.ResponseWriter, r *http.Request) {
	var req codesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	coords, err := spatial.BatchDecode(req.Codes)
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, coordinatesResponse{Coordinates: coords})
}

func (h *handler) bbox(w http.ResponseWriter, r *http.Request) {
	var req coordinatesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	box, err := spatial.BoundingBox(req.Coordinates)
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, box)
}

func (h *handler) center(w http.ResponseWriter, r *http.Request) {
	var req coordinatesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c, err := spatial.CenterPoint(req.Coordinates)
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (h *handler) group(w http.ResponseWriter, r *http.Request) {
	var req coordinatesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	groups, err := spatial.GroupByCode(req.Coordinates, req.HumanReadable)
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, groupResponse{Groups: groups})
}

func (h *handler) indexRadius(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	radius, err := queryFloatDefault(r, "radius", h.nearbyCfg.DefaultRadiusM)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.index.QueryRadius(models.Coordinate{Lat: lat, Lon: lon}, radius)
	if err != nil {
		writeCodecError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	writeJSON(w, r, http.StatusOK, entriesResponse{Entries: entries})
}

func (h *handler) indexNearest(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	n, err := queryUintDefault(r, "n", 10)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := grid9.ValidateCoordinates(lat, lon); err != nil {
		writeCodecError(w, r, err)
		return
	}

	entries := h.index.Nearest(models.Coordinate{Lat: lat, Lon: lon}, int(min(n, maxNearest)))
	if entries == nil {
		entries = []models.Entry{}
	}
	writeJSON(w, r, http.StatusOK, entriesResponse{Entries: entries})
}

func (h *handler) indexCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]int64{"count": h.index.Count()})
}
