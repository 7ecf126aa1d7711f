package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/txrace/utils"
)

func StartMetricsServer(logger logrus.FieldLogger, gatherer prometheus.Gatherer, host string, port string) (*http.Server, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "9090"
	}

	srv := &http.Server{
		Addr:    net.JoinHostPort(host, port),
		Handler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}

	go func() {
		defer utils.HandleSubroutinePanic("metrics server")

		logger.Infof("metrics server listening on %v", srv.Addr)
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("error serving metrics")
		}
	}()

	return srv, nil
}
