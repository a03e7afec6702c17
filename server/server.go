//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the graph engine over HTTP: graph creation, graph
// runs, run state lookup, and a health check.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-flow-go/graph"
	"trpc.group/trpc-go/trpc-flow-go/log"
)

// Server wraps an engine with a REST surface.
type Server struct {
	engine *graph.Engine
	router *mux.Router

	defaultGraphs map[string]string // name -> graph ID
}

// Option configures the Server instance.
type Option func(*Server)

// WithNamedGraph publishes a prebuilt graph ID under
// GET /graph/default/{name}.
func WithNamedGraph(name, graphID string) Option {
	return func(s *Server) { s.defaultGraphs[name] = graphID }
}

// New creates a new HTTP server around the given engine. The behaviour can
// be tweaked via functional options.
func New(engine *graph.Engine, opts ...Option) *Server {
	s := &Server{
		engine:        engine,
		router:        mux.NewRouter(),
		defaultGraphs: make(map[string]string),
	}

	// Apply user-provided options.
	for _, opt := range opts {
		opt(s)
	}

	// Add CORS middleware so browser clients can call the API directly.
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// registerRoutes sets up all REST endpoints.
func (s *Server) registerRoutes() {
	s.router.HandleFunc("/graph/create", s.handleCreateGraph).Methods(http.MethodPost)
	s.router.HandleFunc("/graph/run", s.handleRunGraph).Methods(http.MethodPost)
	s.router.HandleFunc("/graph/state/{runId}", s.handleGetRunState).Methods(http.MethodGet)
	s.router.HandleFunc("/graph/default/{name}", s.handleDefaultGraph).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// OPTIONS handlers to allow CORS pre-flight
	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.router.HandleFunc("/graph/create", preflight).Methods(http.MethodOptions)
	s.router.HandleFunc("/graph/run", preflight).Methods(http.MethodOptions)
}

// ---- Handlers -----------------------------------------------------------

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleCreateGraph called: path=%s", r.URL.Path)
	var cfg graph.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	g, err := s.engine.CreateGraph(r.Context(), cfg)
	if err != nil {
		// Invalid definitions and unknown tools are both client errors.
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, graphCreatedResponse{GraphID: g.ID, Name: g.Name})
}

func (s *Server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleRunGraph called: path=%s", r.URL.Path)
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	run, err := s.engine.RunGraph(r.Context(), req.GraphID, req.InitialState)
	if err != nil {
		if errors.Is(err, graph.ErrGraphNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, newRunResponse(run))
}

func (s *Server) handleGetRunState(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleGetRunState called: path=%s", r.URL.Path)
	runID := mux.Vars(r)["runId"]
	run, err := s.engine.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, graph.ErrRunNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, newRunResponse(run))
}

func (s *Server) handleDefaultGraph(w http.ResponseWriter, r *http.Request) {
	log.Infof("handleDefaultGraph called: path=%s", r.URL.Path)
	name := mux.Vars(r)["name"]
	graphID, ok := s.defaultGraphs[name]
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("no default graph named %q", name))
		return
	}
	s.writeJSON(w, defaultGraphResponse{GraphID: graphID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, healthResponse{Status: "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}
