package router

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/authkeeper/internal/api/grpc/handler"
	"github.com/dtroode/authkeeper/internal/api/grpc/middleware"
	"github.com/dtroode/authkeeper/internal/api/grpc/sessionpb"
	"github.com/dtroode/authkeeper/internal/logger"
)

// Router represents the internal gRPC router.
// It manages service registration and interceptor configuration.
type Router struct {
	sessionService handler.SessionService
	internalKey    string
	logger         *logger.Logger
}

// New creates new gRPC Router instance.
// It initializes the internal router serving the Sessions service.
//
// Parameters:
//   - sessionService: The session service backing token verification and revocation
//   - internalKey: The shared key callers present as a bearer token in the authorization metadata
//   - logger: The logger for request logging
//
// Returns a pointer to the newly created Router instance.
func New(
	sessionService handler.SessionService,
	internalKey string,
	logger *logger.Logger,
) *Router {
	return &Router{
		sessionService: sessionService,
		internalKey:    internalKey,
		logger:         logger,
	}
}

// requiresKey selects the calls guarded by the internal key. Health checks stay open.
func requiresKey(_ context.Context, c interceptors.CallMeta) bool {
	return strings.HasPrefix(c.FullMethod(), "/"+sessionpb.ServiceName+"/")
}

// Register builds the gRPC server with logging and internal key interceptors
// and registers the Sessions and health services.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	internalKey := middleware.NewInternalKey(r.internalKey, r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(internalKey.AuthFunc),
				selector.MatchFunc(requiresKey),
			),
		),
		grpc.ChainStreamInterceptor(
			selector.StreamServerInterceptor(
				auth.StreamServerInterceptor(internalKey.AuthFunc),
				selector.MatchFunc(requiresKey),
			),
		),
	)

	sessionpb.RegisterSessionsServer(s, handler.NewSessions(r.sessionService, r.logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(sessionpb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)

	return s
}
