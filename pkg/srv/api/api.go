/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// go-hrm API
//
// RESTful APIs to read the heart rate history of a go-hrm server
//
//     Schemes: http
//     Host: localhost:8037
//     Version: 1.0.0
//
//     Produces:
//     - application/json
//
// swagger:meta
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/history"
	"jinr.ru/greenlab/go-hrm/pkg/hrm"
	"jinr.ru/greenlab/go-hrm/pkg/log"
	"jinr.ru/greenlab/go-hrm/pkg/metrics"
	"jinr.ru/greenlab/go-hrm/pkg/session"
)

const (
	ShutdownTimeout = 5 * time.Second
)

type Persisted struct {
	Path    string `json:"path"`
	Samples int    `json:"samples"`
}

type ApiServer struct {
	*config.ApiConfig
	*mux.Router
	history     *history.History
	state       *session.State
	historyPath string
}

// NewApiServer ... state may be nil when the session journal is disabled
func NewApiServer(cfg *config.ApiConfig, h *history.History, state *session.State, historyPath string) *ApiServer {
	log.Info("Initializing API server with address: %s", cfg.Address)
	s := &ApiServer{
		ApiConfig:   cfg,
		history:     h,
		state:       state,
		historyPath: historyPath,
	}
	s.configureRouter()
	return s
}

// Run serves until ctx ends
func (s *ApiServer) Run(ctx context.Context) error {
	log.Info("Starting API server: address: %s", s.Address)
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Address,
	}
	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error while shutting down API server: %s", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Handler is the router wrapped with access logging and panic recovery
func (s *ApiServer) Handler() http.Handler {
	return handlers.RecoveryHandler()(handlers.LoggingHandler(log.DebugWriter(), s.Router))
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	// swagger:operation GET /history history getHistory
	// ---
	// summary: Return retained samples, optionally only those with time >= since (ns)
	subRouter.HandleFunc("/history", s.handleHistory()).Methods("GET")
	subRouter.HandleFunc("/recap", s.handleRecap()).Methods("GET")
	subRouter.HandleFunc("/persist", s.handlePersist()).Methods("POST")
	subRouter.HandleFunc("/sessions", s.handleSessions()).Methods("GET")
	s.Router.Handle("/metrics", metrics.Handler()).Methods("GET")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func (s *ApiServer) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling history request")
		samples := []hrm.Sample{}
		if since := r.URL.Query().Get("since"); since != "" {
			ns, err := strconv.ParseInt(since, 10, 64)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			samples = append(samples, s.history.Since(ns)...)
		} else {
			samples = append(samples, s.history.Snapshot()...)
		}
		writeJSON(w, samples)
	}
}

func (s *ApiServer) handleRecap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling recap request")
		writeJSON(w, s.history.Recap())
	}
}

func (s *ApiServer) handlePersist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling persist request")
		if s.historyPath == "" {
			http.Error(w, "History path is not configured", http.StatusConflict)
			return
		}
		if err := s.history.SaveFile(s.historyPath); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, &Persisted{Path: s.historyPath, Samples: s.history.Len()})
	}
}

func (s *ApiServer) handleSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling sessions request")
		if s.state == nil {
			http.Error(w, "Session journal is disabled", http.StatusNotFound)
			return
		}
		records, err := s.state.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []*session.Record{}
		}
		writeJSON(w, records)
	}
}
