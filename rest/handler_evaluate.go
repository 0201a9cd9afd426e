package rest

import (
	"encoding/json"
	"net/http"

	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/model"
	"go.uber.org/zap"
)

func (s *Server) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req model.EvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid evaluation payload")
		return
	}
	defer r.Body.Close()
	if req.FormId == "" {
		respondWithError(w, http.StatusBadRequest, "formId is required")
		return
	}
	result, err := s.ruleEngine.Evaluate(req)
	if err != nil {
		logger.Error("error evaluating rules", zap.String("form", req.FormId), zap.Error(err))
		respondWithError(w, statusFor(err), "error evaluating rules")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
