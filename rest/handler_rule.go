package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/model"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) HandleSaveRule(w http.ResponseWriter, r *http.Request) {
	var rule model.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid rule payload")
		return
	}
	defer r.Body.Close()
	if rule.FormId == "" {
		respondWithError(w, http.StatusBadRequest, "formId is required")
		return
	}
	if err := s.ruleEngine.SaveRule(&rule); err != nil {
		logger.Error("error saving rule", zap.String("form", rule.FormId), zap.Error(err))
		respondWithError(w, statusFor(err), "error saving rule")
		return
	}
	respondWithJSON(w, http.StatusOK, rule)
}

func (s *Server) HandleGetRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rule, err := s.storage.GetRule(id)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, rule)
}

func (s *Server) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.ruleEngine.DeleteRule(id); err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondOK(w, "deleted")
}

func (s *Server) HandleListFormRules(w http.ResponseWriter, r *http.Request) {
	formId := mux.Vars(r)["formId"]
	rules, err := s.storage.GetRulesByForm(formId)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, rules)
}

func (s *Server) HandleListExecutionLogs(w http.ResponseWriter, r *http.Request) {
	formId := mux.Vars(r)["formId"]
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	logs, err := s.storage.GetExecutionLogsByForm(formId, limit)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, logs)
}
