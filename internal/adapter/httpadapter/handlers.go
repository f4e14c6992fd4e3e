package httpadapter

import (
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/accident-risk-etl/internal/domain"
)

const maxPageSize = 1000

// datasetPage is one page of the enriched accident table.
type datasetPage struct {
	Total   int                     `json:"total"`
	Offset  int                     `json:"offset"`
	Limit   int                     `json:"limit"`
	Records []domain.EnrichedRecord `json:"records"`
}

func writeNoArtifacts(w http.ResponseWriter) {
	sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
		"error": "no artifacts yet",
	})
}

func (s *Server) latest(w http.ResponseWriter) (domain.Artifacts, bool) {
	a, ok := s.provider.Artifacts()
	if !ok {
		writeNoArtifacts(w)
	}
	return a, ok
}

// storedRun returns the last run kept in the store, if any.
func (s *Server) storedRun(r *http.Request) (domain.RunSummary, bool) {
	if s.store == nil {
		return domain.RunSummary{}, false
	}
	sum, err := s.store.LastRun(r.Context())
	if err != nil {
		s.logger.Debug("no stored run", "error", err)
		return domain.RunSummary{}, false
	}
	return sum, true
}

// dataset returns the enriched table from the latest artifacts, or from the
// store when the pipeline has not finished a run yet.
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) ([]domain.EnrichedRecord, bool) {
	if a, ok := s.provider.Artifacts(); ok {
		return a.Dataset, true
	}
	if _, ok := s.storedRun(r); !ok {
		writeNoArtifacts(w)
		return nil, false
	}
	records, err := s.store.Records(r.Context())
	if err != nil {
		s.logger.Error("read stored dataset failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "read stored dataset"})
		return nil, false
	}
	return records, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if a, ok := s.provider.Artifacts(); ok {
		sharedobs.WriteJSON(w, http.StatusOK, a.Summary)
		return
	}
	if sum, ok := s.storedRun(r); ok {
		sharedobs.WriteJSON(w, http.StatusOK, sum)
		return
	}
	writeNoArtifacts(w)
}

// artifact serves the part of the latest artifacts selected by pick.
func (s *Server) artifact(pick func(domain.Artifacts) any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		a, ok := s.latest(w)
		if !ok {
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, pick(a))
	}
}

// handleDataset serves the table view, paginated with offset and limit
// query parameters. Without limit the remainder of the table is returned, up
// to maxPageSize rows.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
		return
	}
	limit, err := queryInt(r, "limit", maxPageSize)
	if err != nil || limit < 0 || limit > maxPageSize {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit: must be 0-1000"})
		return
	}

	records, ok := s.dataset(w, r)
	if !ok {
		return
	}

	total := len(records)
	start := min(offset, total)
	end := min(start+limit, total)
	sharedobs.WriteJSON(w, http.StatusOK, datasetPage{
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		Records: records[start:end],
	})
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}
