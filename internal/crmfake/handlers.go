package crmfake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/johnwards/crmproxy/internal/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type paging struct {
	Next struct {
		After string `json:"after"`
		Link  string `json:"link"`
	} `json:"next"`
}

type listResponse struct {
	Results []domain.Object `json:"results"`
	Paging  *paging         `json:"paging,omitempty"`
}

// requestedProperties merges repeated and comma-separated properties params.
func requestedProperties(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultPageSize
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, CategoryValidationError, fmt.Sprintf("limit must be a positive integer, got %q", v))
			return
		}
		limit = min(n, maxPageSize)
	}

	page, err := s.store.ListObjects(r.Context(), r.PathValue("objectType"), limit, q.Get("after"), requestedProperties(q["properties"]))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	resp := listResponse{Results: page.Results}
	if page.After != "" {
		resp.Paging = &paging{}
		resp.Paging.Next.After = page.After
		next := *r.URL
		nq := next.Query()
		nq.Set("after", page.After)
		next.RawQuery = nq.Encode()
		resp.Paging.Next.Link = next.RequestURI()
	}
	writeJSON(w, http.StatusOK, resp)
}

type createObjectRequest struct {
	Properties   domain.Properties  `json:"properties"`
	Associations []AssociationInput `json:"associations"`
}

func (s *Server) createObject(w http.ResponseWriter, r *http.Request) {
	var req createObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, CategoryValidationError, "Invalid input JSON: "+err.Error())
		return
	}

	obj, err := s.store.CreateObject(r.Context(), r.PathValue("objectType"), req.Properties, req.Associations)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	obj, err := s.store.GetObject(r.Context(), r.PathValue("objectType"), r.PathValue("objectId"),
		requestedProperties(r.URL.Query()["properties"]))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

type batchReadRequest struct {
	Inputs []struct {
		ID string `json:"id"`
	} `json:"inputs"`
	Properties []string `json:"properties"`
}

type batchResponse struct {
	Status      string          `json:"status"`
	Results     []domain.Object `json:"results"`
	NumErrors   int             `json:"numErrors,omitempty"`
	Errors      []ErrorDetail   `json:"errors,omitempty"`
	StartedAt   string          `json:"startedAt"`
	CompletedAt string          `json:"completedAt"`
}

func (s *Server) batchRead(w http.ResponseWriter, r *http.Request) {
	startedAt := now()

	var req batchReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, CategoryValidationError, "Invalid input JSON: "+err.Error())
		return
	}
	ids := make([]string, len(req.Inputs))
	for i, in := range req.Inputs {
		ids[i] = in.ID
	}

	objectType := r.PathValue("objectType")
	found, missing, err := s.store.BatchRead(r.Context(), objectType, ids, req.Properties)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	resp := batchResponse{Status: "COMPLETE", Results: found, StartedAt: startedAt}
	status := http.StatusOK
	if len(missing) > 0 {
		status = http.StatusMultiStatus
		resp.NumErrors = len(missing)
		t, _ := resolveType(objectType)
		resp.Errors = []ErrorDetail{{
			Status:   "error",
			Category: CategoryObjectNotFound,
			Message:  fmt.Sprintf("Could not get some %s objects, they may be deleted or not exist. Check that ids are valid.", strings.ToUpper(t.singular)),
			Context:  map[string][]string{"ids": missing},
		}}
	}
	resp.CompletedAt = now()
	writeJSON(w, status, resp)
}

func (s *Server) listAssociations(w http.ResponseWriter, r *http.Request) {
	assocs, err := s.store.Associations(r.Context(), r.PathValue("objectType"), r.PathValue("objectId"), r.PathValue("toObjectType"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": assocs})
}

func (s *Server) listPipelines(w http.ResponseWriter, r *http.Request) {
	pipelines, err := s.store.ListPipelines(r.Context(), r.PathValue("objectType"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": pipelines})
}

func (s *Server) createPipeline(w http.ResponseWriter, r *http.Request) {
	var p domain.Pipeline
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, r, http.StatusBadRequest, CategoryValidationError, "Invalid input JSON: "+err.Error())
		return
	}
	created, err := s.store.CreatePipeline(r.Context(), r.PathValue("objectType"), p)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) deletePipeline(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePipeline(r.Context(), r.PathValue("objectType"), r.PathValue("pipelineId")); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if err := Reset(r.Context(), s.db); err != nil {
		writeError(w, r, http.StatusInternalServerError, CategoryInternalError, err.Error())
		return
	}
	s.faults.clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) addFault(w http.ResponseWriter, r *http.Request) {
	var f Fault
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil || f.Path == "" || f.Method == "" ||
		f.Status < 200 || f.Status > 599 {
		writeError(w, r, http.StatusBadRequest, CategoryValidationError, "fault needs method, path and a status between 200 and 599")
		return
	}
	s.faults.add(f)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearFaults(w http.ResponseWriter, _ *http.Request) {
	s.faults.clear()
	w.WriteHeader(http.StatusNoContent)
}
