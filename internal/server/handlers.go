package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/rshade/cloud-scanner-aws/internal/exporter"
	"github.com/rshade/cloud-scanner-aws/internal/model"
	"github.com/rshade/cloud-scanner-aws/internal/scanner"
)

// Query parameter names.
const (
	paramRegion              = "aws_region"
	paramFilterTags          = "filter_tags"
	paramUseDurationHours    = "use_duration_hours"
	paramVerboseOutput       = "verbose_output"
	paramIncludeBlockStorage = "include_block_storage"
)

const defaultUseDurationHours = 1.0

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "Cloud scanner %s\nBoavizta API: %s\n\n"+
		"GET  /inventory?aws_region=R\n"+
		"GET  /impacts?aws_region=R&use_duration_hours=H\n"+
		"GET  /metrics?aws_region=R&use_duration_hours=H\n"+
		"POST /impacts-from-arbitrary-inventory?use_duration_hours=H\n",
		s.version, s.boaviztaURL)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	region, err := requiredRegion(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	includeBlockStorage, err := boolParam(q, paramIncludeBlockStorage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	inv, err := s.pipeline.Inventory(r.Context(), region, q[paramFilterTags], includeBlockStorage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, inv)
}

func (s *Server) handleImpacts(w http.ResponseWriter, r *http.Request) {
	req, err := estimateRequest(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	est, err := s.pipeline.Estimate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, est)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	req, err := estimateRequest(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Verbose = false

	sum, err := s.pipeline.Summary(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.WriteMetrics(&buf, sum); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", exporter.MetricsContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		loggerFrom(r).Error().Err(err).Msg("failed to write response")
	}
}

func (s *Server) handleArbitraryInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hours, err := durationParam(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	verbose, err := boolParam(q, paramVerboseOutput)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var inv model.Inventory
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&inv); err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.KindValidation, "invalid inventory body", err))
		return
	}

	est, err := s.pipeline.EstimateInventory(r.Context(), inv, hours, verbose)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, est)
}

func estimateRequest(q url.Values) (scanner.EstimateRequest, error) {
	region, err := requiredRegion(q)
	if err != nil {
		return scanner.EstimateRequest{}, err
	}
	hours, err := durationParam(q)
	if err != nil {
		return scanner.EstimateRequest{}, err
	}
	verbose, err := boolParam(q, paramVerboseOutput)
	if err != nil {
		return scanner.EstimateRequest{}, err
	}
	includeBlockStorage, err := boolParam(q, paramIncludeBlockStorage)
	if err != nil {
		return scanner.EstimateRequest{}, err
	}
	return scanner.EstimateRequest{
		Region:              region,
		TagFilter:           q[paramFilterTags],
		IncludeBlockStorage: includeBlockStorage,
		UseDurationHours:    hours,
		Verbose:             verbose,
	}, nil
}

func requiredRegion(q url.Values) (string, error) {
	region := q.Get(paramRegion)
	if region == "" {
		return "", apperrors.New(apperrors.KindValidation, "missing required query parameter "+paramRegion)
	}
	return region, nil
}

// durationParam parses use_duration_hours, defaulting to one hour. Range
// checks are left to the pipeline.
func durationParam(q url.Values) (float64, error) {
	raw := q.Get(paramUseDurationHours)
	if raw == "" {
		return defaultUseDurationHours, nil
	}
	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.Newf(apperrors.KindValidation, "invalid %s %q", paramUseDurationHours, raw)
	}
	return hours, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.Newf(apperrors.KindValidation, "invalid %s %q: expected true or false", name, raw)
	}
	return v, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	if err := exporter.WriteJSON(&buf, v, false); err != nil {
		loggerFrom(r).Error().Err(err).Msg("failed to encode response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		loggerFrom(r).Error().Err(err).Msg("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	kind, ok := apperrors.KindOf(err)
	if !ok {
		kind = "INTERNAL"
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		status = http.StatusRequestEntityTooLarge
	}

	event := loggerFrom(r).Warn()
	if status >= http.StatusInternalServerError {
		event = loggerFrom(r).Error()
	}
	event.Err(err).Str("kind", string(kind)).Int("status", status).Msg("request failed")

	s.writeJSON(w, r, status, errorResponse{Error: err.Error(), Kind: string(kind)})
}
