package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
)

type analyzeRequest struct {
	EmailContent    string   `json:"email_content"`
	RefineThreshold *float64 `json:"refine_threshold,omitempty"`
}

type batchRequest struct {
	Emails          []string `json:"emails"`
	RefineThreshold *float64 `json:"refine_threshold,omitempty"`
}

type refinementBody struct {
	Success          bool     `json:"success"`
	RefinedEmail     *string  `json:"refined_email"`
	RefinedSpamScore *float64 `json:"refined_spam_score"`
	Attempts         int      `json:"attempts"`
	FinalScore       *float64 `json:"final_score"`
	Error            string   `json:"error,omitempty"`
}

type analyzeResponse struct {
	OriginalEmail  string         `json:"original_email"`
	SpamScore      float64        `json:"spam_score"`
	IsSpam         bool           `json:"is_spam"`
	Recommendation string         `json:"recommendation"`
	Refinement     refinementBody `json:"refinement"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleHealth reports service liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"system_ready": true,
		"message":      "SpamGuard API is running",
	})
}

// handleAnalyzeEmail scores an email, refines it when needed and returns the
// combined analysis
func (s *Server) handleAnalyzeEmail(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if strings.TrimSpace(req.EmailContent) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Empty email content",
			Message: "Email content cannot be empty",
		})
		return
	}

	result, err := s.service.ProcessEmailWithOptions(r.Context(), req.EmailContent, core.ProcessOptions{
		AcceptThreshold: req.RefineThreshold,
	})
	if err != nil {
		s.writeProcessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAnalyzeResponse(result))
}

// handleRefineEmail forces a refinement run regardless of the configured
// threshold by treating every score as needing refinement
func (s *Server) handleRefineEmail(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if strings.TrimSpace(req.EmailContent) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Empty email content",
			Message: "Email content cannot be empty",
		})
		return
	}

	// A zero threshold makes any score eligible for refinement.
	force := 0.0
	result, err := s.service.ProcessEmailWithOptions(r.Context(), req.EmailContent, core.ProcessOptions{
		AcceptThreshold: &force,
	})
	if err != nil {
		s.writeProcessError(w, err)
		return
	}

	resp := map[string]interface{}{
		"original_email":      result.OriginalEmail,
		"original_spam_score": roundPercent(result.SpamScore),
		"refined_email":       nil,
		"refined_spam_score":  nil,
		"improvement":         nil,
		"attempts":            result.Refinement.Attempts,
	}
	if result.Refinement.RefinedEmail != "" {
		resp["refined_email"] = result.Refinement.RefinedEmail
	}
	if result.Refinement.RefinedScore != nil {
		refined := roundPercent(*result.Refinement.RefinedScore)
		resp["refined_spam_score"] = refined
		resp["improvement"] = roundPercent(result.SpamScore - *result.Refinement.RefinedScore)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleBatchAnalyze processes a list of emails, preserving input order
func (s *Server) handleBatchAnalyze(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if len(req.Emails) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Empty batch",
			Message: "Provide at least one email in the emails list",
		})
		return
	}

	results, err := s.service.BatchProcessEmailsWithOptions(r.Context(), req.Emails, core.ProcessOptions{
		AcceptThreshold: req.RefineThreshold,
	})
	if err != nil {
		s.writeProcessError(w, err)
		return
	}

	responses := make([]analyzeResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, toAnalyzeResponse(result))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": responses,
	})
}

// writeProcessError maps service errors to HTTP responses
func (s *Server) writeProcessError(w http.ResponseWriter, err error) {
	var scoringErr *core.ScoringError
	switch {
	case errors.Is(err, core.ErrEmptyEmail):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Empty email content",
			Message: "Email content cannot be empty",
		})
	case errors.As(err, &scoringErr):
		s.logger.Error("Classifier unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "Classifier unavailable",
			Message: err.Error(),
		})
	default:
		s.logger.Error("Analysis failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Analysis failed",
			Message: err.Error(),
		})
	}
}

// toAnalyzeResponse converts a process result to the wire shape, rendering
// probabilities as percentages
func toAnalyzeResponse(result *core.ProcessResult) analyzeResponse {
	body := refinementBody{
		Success:  result.Refinement.Success,
		Attempts: result.Refinement.Attempts,
		Error:    result.Refinement.Error,
	}
	if result.Refinement.RefinedEmail != "" {
		refined := result.Refinement.RefinedEmail
		body.RefinedEmail = &refined
	}
	if result.Refinement.RefinedScore != nil {
		score := roundPercent(*result.Refinement.RefinedScore)
		body.RefinedSpamScore = &score
	}
	if result.Refinement.FinalScore != nil {
		score := roundPercent(*result.Refinement.FinalScore)
		body.FinalScore = &score
	}

	return analyzeResponse{
		OriginalEmail:  result.OriginalEmail,
		SpamScore:      roundPercent(result.SpamScore),
		IsSpam:         result.IsSpam,
		Recommendation: string(result.Recommendation),
		Refinement:     body,
	}
}

// roundPercent converts a probability to a percentage rounded to two
// decimals
func roundPercent(p float64) float64 {
	return math.Round(p*10000) / 100
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
