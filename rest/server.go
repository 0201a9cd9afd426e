package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/formforge/ruleengine/engine"
	"github.com/formforge/ruleengine/logger"
	"github.com/formforge/ruleengine/persistence"
	"github.com/formforge/ruleengine/pipeline"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port            int
	ruleEngine      *engine.RuleEngine
	pipelineService *pipeline.Service
	storage         persistence.Storage
}

func NewServer(httpPort int, ruleEngine *engine.RuleEngine, pipelineService *pipeline.Service, storage persistence.Storage) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr: fmt.Sprintf(":%d", httpPort),
		},
		Port:            httpPort,
		ruleEngine:      ruleEngine,
		pipelineService: pipelineService,
		storage:         storage,
	}

	router := mux.NewRouter()
	router.HandleFunc("/rules", s.HandleSaveRule).Methods(http.MethodPost)
	router.HandleFunc("/rules/{id}", s.HandleGetRule).Methods(http.MethodGet)
	router.HandleFunc("/rules/{id}", s.HandleDeleteRule).Methods(http.MethodDelete)
	router.HandleFunc("/forms/{formId}/rules", s.HandleListFormRules).Methods(http.MethodGet)
	router.HandleFunc("/forms/{formId}/logs", s.HandleListExecutionLogs).Methods(http.MethodGet)
	router.HandleFunc("/evaluate", s.HandleEvaluate).Methods(http.MethodPost)
	router.HandleFunc("/pipelines", s.HandleSavePipeline).Methods(http.MethodPost)
	router.HandleFunc("/pipelines/{id}", s.HandleGetPipeline).Methods(http.MethodGet)
	router.HandleFunc("/pipelines/{id}", s.HandleDeletePipeline).Methods(http.MethodDelete)
	router.HandleFunc("/pipelines/{id}/cards", s.HandleCreateCard).Methods(http.MethodPost)
	router.HandleFunc("/pipelines/{id}/stages/{stageId}/cards", s.HandleListStageCards).Methods(http.MethodGet)
	router.HandleFunc("/cards/{id}/move", s.HandleMoveCard).Methods(http.MethodPost)
	router.HandleFunc("/cards/{id}/transitions", s.HandleListTransitions).Methods(http.MethodGet)
	router.Use(loggingMiddleware)
	s.Handler = handlers.RecoveryHandler()(router)
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server")
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message string) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": message})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// statusFor maps storage errors onto HTTP codes.
func statusFor(err error) int {
	if _, ok := err.(persistence.NotFoundError); ok {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
