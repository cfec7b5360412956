package grpc

import (
	"net"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Server struct {
	health.UnimplementedHealthServer

	store *mailbox.Store
	srv   *grpc.Server
}

func NewGrpc(store *mailbox.Store) *Server {
	server := &Server{
		store: store,
		srv:   grpc.NewServer(),
	}

	health.RegisterHealthServer(server.srv, server)

	reflection.Register(server.srv)

	return server
}

func (v *Server) Listen() error {
	listener, err := net.Listen("tcp", viper.GetString("grpc_bind"))
	if err != nil {
		return err
	}

	return v.srv.Serve(listener)
}

func (v *Server) Stop() {
	v.srv.GracefulStop()
}
