// Package server реализует gRPC-сервер проверки здоровья (grpc.health.v1).
//
// HealthServer периодически выполняет проверки зависимостей и выставляет
// статус SERVING или NOT_SERVING для всего сервера и для сервиса по имени.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
)

// ServiceName имя сервиса в протоколе проверки здоровья.
const ServiceName = "audit-coordinator"

// Check проверяет одну зависимость.
type Check func(ctx context.Context) error

// HealthServer держит статус сервиса в актуальном состоянии.
type HealthServer struct {
	health   *health.Server
	checks   map[string]Check
	interval time.Duration
	log      *slog.Logger
}

// NewHealthServer создает HealthServer. До первой проверки статус NOT_SERVING.
func NewHealthServer(checks map[string]Check, interval time.Duration, log *slog.Logger) *HealthServer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	h := &HealthServer{
		health:   health.NewServer(),
		checks:   checks,
		interval: interval,
		log:      log,
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register регистрирует сервис здоровья на grpc-сервере.
func (h *HealthServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.health)
}

// Refresh выполняет все проверки и обновляет статус.
func (h *HealthServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("dependency is not ready", slog.String("check", name), sl.Err(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.set(status)
	return status
}

func (h *HealthServer) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// Serve слушает addr и обслуживает запросы до отмены ctx.
func (h *HealthServer) Serve(ctx context.Context, addr string) error {
	const op = "grpc.server.Serve"

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s := grpc.NewServer()
	h.Register(s)

	go h.watch(ctx)
	go func() {
		<-ctx.Done()
		h.health.Shutdown()
		s.GracefulStop()
	}()

	h.log.Info("grpc health server started", slog.String("address", addr))
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (h *HealthServer) watch(ctx context.Context) {
	h.Refresh(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}
