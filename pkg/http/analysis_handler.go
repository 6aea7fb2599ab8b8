package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/analysis"
	"call-analyzer/pkg/correlation"
	"call-analyzer/pkg/errors"
	"call-analyzer/pkg/llm"
	"call-analyzer/pkg/transcript"
)

// Analyzer runs one transcript analysis
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) *analysis.Report
	ModelEnabled() bool
	DefaultEntity() string
}

// AnalysisHandler serves the transcript analysis API
type AnalysisHandler struct {
	logger       *logrus.Logger
	analyzer     Analyzer
	maxBodyBytes int64
}

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	Entity     string      `json:"entity"`
	SkipModel  bool        `json:"skip_model"`
	Transcript interface{} `json:"transcript"`
}

// EntitiesResponse is the body of GET /api/entities
type EntitiesResponse struct {
	Entities     []string `json:"entities"`
	Default      string   `json:"default"`
	ModelEnabled bool     `json:"model_enabled"`
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(logger *logrus.Logger, analyzer Analyzer, maxBodyBytes int64) *AnalysisHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = NewDefaultConfig().MaxBodyBytes
	}
	return &AnalysisHandler{
		logger:       logger,
		analyzer:     analyzer,
		maxBodyBytes: maxBodyBytes,
	}
}

// RegisterHandlers registers the analysis endpoints with the server
func (h *AnalysisHandler) RegisterHandlers(server *Server) {
	server.RegisterHandler("/api/analyze", h.handleAnalyze)
	server.RegisterHandler("/api/entities", h.handleEntities)
}

func (h *AnalysisHandler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	logger := correlation.LoggerFromContext(r.Context(), h.logger)

	req, err := h.decodeRequest(w, r)
	if err != nil {
		logger.WithError(err).Warn("Rejected analysis request")
		errors.WriteError(w, err)
		return
	}

	records, err := transcript.Records(req.Transcript)
	if err != nil {
		logger.WithError(err).Warn("Rejected analysis request")
		errors.WriteError(w, err)
		return
	}

	report := h.analyzer.Analyze(r.Context(), analysis.Request{
		Transcript: transcript.FromRecords(records),
		Entity:     req.Entity,
		SkipModel:  req.SkipModel,
	})

	logger.WithFields(logrus.Fields{
		"analysis_id":  report.ID,
		"model_status": report.ModelStatus(),
	}).Debug("Analysis request served")

	writeJSON(w, logger, http.StatusOK, report)
}

func (h *AnalysisHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*AnalyzeRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var body bytes.Buffer
	if _, err := body.ReadFrom(r.Body); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.NewInvalidInput(fmt.Sprintf("request body exceeds %d bytes", h.maxBodyBytes))
		}
		return nil, errors.Wrap(errors.ErrInvalidInput, "failed to read request body")
	}

	dec := json.NewDecoder(&body)
	dec.UseNumber()

	var req AnalyzeRequest
	if err := dec.Decode(&req); err != nil {
		return nil, errors.NewInvalidInput("malformed JSON body", map[string]interface{}{
			"cause": err.Error(),
		})
	}
	return &req, nil
}

func (h *AnalysisHandler) handleEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entities := llm.Entities()
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.String())
	}

	writeJSON(w, h.logger, http.StatusOK, EntitiesResponse{
		Entities:     names,
		Default:      h.analyzer.DefaultEntity(),
		ModelEnabled: h.analyzer.ModelEnabled(),
	})
}
