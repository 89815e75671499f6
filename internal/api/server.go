// Package api exposes task counters over HTTP and liveness over the standard
// gRPC health protocol.
package api

import (
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/engine"
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// StatsSource provides the counters served by the status endpoint.
type StatsSource interface {
	Snapshot() []engine.StatsSnapshot
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Serving bool                   `json:"serving"`
	Tasks   []engine.StatsSnapshot `json:"tasks"`
}

// Server is the status HTTP server together with its gRPC health server.
type Server struct {
	cfg     config.APIConfig
	source  StatsSource
	serving atomic.Bool

	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer creates a Server. Nothing listens until Start is called.
func NewServer(cfg config.APIConfig, source StatsSource) *Server {
	s := &Server{
		cfg:        cfg,
		source:     source,
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.httpServer = &http.Server{Addr: cfg.ListenAddr, Handler: s.Handler()}
	s.SetServing(false)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/stats", s.statsHandler).Methods("GET")
	r.HandleFunc("/healthz", s.healthzHandler).Methods("GET")
	return r
}

// SetServing flips both the HTTP and the gRPC health status.
func (s *Server) SetServing(serving bool) {
	s.serving.Store(serving)
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Start begins listening on the configured addresses. Empty addresses are
// skipped.
func (s *Server) Start() error {
	if s.cfg.GRPCListenAddr != "" {
		lis, err := net.Listen("tcp", s.cfg.GRPCListenAddr)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on %s", s.cfg.GRPCListenAddr)
		}
		go func() {
			log.Printf("gRPC health server starting on %s", s.cfg.GRPCListenAddr)
			if err := s.grpcServer.Serve(lis); err != nil {
				log.Printf("gRPC server stopped: %v", err)
			}
		}()
	}
	if s.cfg.ListenAddr != "" {
		go func() {
			log.Printf("Status server starting on %s", s.httpServer.Addr)
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("Could not listen on %s: %v", s.httpServer.Addr, err)
			}
		}()
	}
	return nil
}

// Shutdown stops both servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetServing(false)
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "status server forced to shutdown")
	}
	log.Println("Status servers exited.")
	return nil
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Serving: s.serving.Load(), Tasks: s.source.Snapshot()}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to encode stats response: %v", err)
	}
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	if !s.serving.Load() {
		http.Error(w, "not serving", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
