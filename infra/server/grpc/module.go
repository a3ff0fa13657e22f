package grpc

import (
	"github.com/streamcue/relay-service/internal/adapter/source"
	"go.uber.org/fx"
)

var Module = fx.Module("grpc_server",
	fx.Provide(
		New,
		func(s *Server) source.StateObserver { return s },
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{OnStart: s.Start, OnStop: s.Stop})
	}),
)
