package grpc

import (
	"context"

	"github.com/rs/zerolog/log"
	health "google.golang.org/grpc/health/grpc_health_v1"
)

// Check reports NOT_SERVING when the mailbox storage cannot be read.
func (v *Server) Check(ctx context.Context, request *health.HealthCheckRequest) (*health.HealthCheckResponse, error) {
	if err := v.store.Ping(); err != nil {
		log.Warn().Err(err).Msg("Mailbox storage is not available...")
		return &health.HealthCheckResponse{
			Status: health.HealthCheckResponse_NOT_SERVING,
		}, nil
	}

	return &health.HealthCheckResponse{
		Status: health.HealthCheckResponse_SERVING,
	}, nil
}
