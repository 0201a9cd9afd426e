package rest

import (
	"encoding/json"
	"net/http"

	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/model"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type createCardRequest struct {
	SubmissionId string `json:"submissionId"`
}

type moveCardRequest struct {
	ToStageId string `json:"toStageId"`
	Actor     string `json:"actor"`
	Reason    string `json:"reason,omitempty"`
	Automatic bool   `json:"automatic,omitempty"`
}

func (s *Server) HandleSavePipeline(w http.ResponseWriter, r *http.Request) {
	var p model.Pipeline
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid pipeline payload")
		return
	}
	defer r.Body.Close()
	if len(p.Stages) == 0 {
		respondWithError(w, http.StatusBadRequest, "pipeline requires at least one stage")
		return
	}
	if err := s.pipelineService.SavePipeline(&p); err != nil {
		logger.Error("error saving pipeline", zap.Error(err))
		respondWithError(w, statusFor(err), "error saving pipeline")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (s *Server) HandleGetPipeline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.storage.GetPipeline(id)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (s *Server) HandleDeletePipeline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.storage.DeletePipeline(id); err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondOK(w, "deleted")
}

func (s *Server) HandleCreateCard(w http.ResponseWriter, r *http.Request) {
	pipelineId := mux.Vars(r)["id"]
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid card payload")
		return
	}
	defer r.Body.Close()
	if req.SubmissionId == "" {
		respondWithError(w, http.StatusBadRequest, "submissionId is required")
		return
	}
	card, err := s.pipelineService.Enter(pipelineId, req.SubmissionId)
	if err != nil {
		logger.Error("error creating card", zap.String("pipeline", pipelineId), zap.Error(err))
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, card)
}

func (s *Server) HandleMoveCard(w http.ResponseWriter, r *http.Request) {
	cardId := mux.Vars(r)["id"]
	var req moveCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid move payload")
		return
	}
	defer r.Body.Close()
	if req.ToStageId == "" {
		respondWithError(w, http.StatusBadRequest, "toStageId is required")
		return
	}
	result := s.pipelineService.Move(cardId, req.ToStageId, req.Actor, req.Reason, req.Automatic)
	if !result.Success {
		respondWithJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) HandleListStageCards(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cards, err := s.storage.GetCardsByStage(vars["id"], vars["stageId"])
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, cards)
}

func (s *Server) HandleListTransitions(w http.ResponseWriter, r *http.Request) {
	cardId := mux.Vars(r)["id"]
	transitions, err := s.storage.GetTransitionsByCard(cardId)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, transitions)
}
