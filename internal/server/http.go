package server

import (
	"bonanza/internal/conf"
	"bonanza/internal/service"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yola1107/kratos/v2/log"
	"github.com/yola1107/kratos/v2/middleware/recovery"
	"github.com/yola1107/kratos/v2/transport/http"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer, NewEventStream)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, spin *service.SpinService, stream *EventStream, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Http != nil {
		if c.Http.Network != "" {
			opts = append(opts, http.Network(c.Http.Network))
		}
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if d := c.Http.Timeout.AsDuration(); d > 0 {
			opts = append(opts, http.Timeout(d))
		}
	}
	srv := http.NewServer(opts...)
	spin.Register(srv)
	srv.Handle("/v1/events", stream)
	srv.Handle("/metrics", promhttp.Handler())
	return srv
}
