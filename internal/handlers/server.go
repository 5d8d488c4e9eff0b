package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"releasewatch/internal/config"
	"releasewatch/internal/core"
	"releasewatch/internal/database/models"
	"releasewatch/internal/utils"
)

type Server struct {
	config     *config.Config
	logger     *utils.Logger
	httpServer *http.Server
	apiHandler *APIHandler
}

func NewServer(cfg *config.Config, monitor *core.Monitor, history *models.HistoryRepository, logger *utils.Logger) *Server {
	return &Server{
		config:     cfg,
		logger:     logger,
		apiHandler: NewAPIHandler(cfg, monitor, history, logger),
	}
}

func (s *Server) Start() error {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.apiHandler.GetStatus).Methods("GET")
	api.HandleFunc("/history", s.apiHandler.GetHistory).Methods("GET")
	api.HandleFunc("/check", s.apiHandler.TriggerCheck).Methods("POST")

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Daemon.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("Starting status server on port", s.config.Daemon.Port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
