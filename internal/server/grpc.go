package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewHealthServer serves grpc.health.v1 for orchestrators. The returned
// health.Server flips the serving status on shutdown.
func NewHealthServer(serviceName string) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)

	return grpcServer, hs
}
