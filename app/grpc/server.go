package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-checked service name.
const ServiceName = "website.EmailDelivery"

// TransportCounter reports how many transport profiles are configured.
type TransportCounter interface {
	Len() int
}

// Server exposes the standard gRPC health service for email delivery.
type Server struct {
	health     *health.Server
	transports TransportCounter
}

// NewServer constructs the health server and sets the initial status.
func NewServer(transports TransportCounter) *Server {
	s := &Server{health: health.NewServer(), transports: transports}
	s.Refresh()
	return s
}

// Register attaches the health service to a gRPC server.
func (s *Server) Register(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, s.health)
}

// Refresh reports SERVING while at least one transport is configured.
func (s *Server) Refresh() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.transports != nil && s.transports.Len() > 0 {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Shutdown flips every service to NOT_SERVING ahead of a graceful stop.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}
