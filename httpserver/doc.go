/*
Package httpserver runs the identity registry HTTP API.

Server mounts the routes of any number of handlers (see api/relayhandler and
api/registryhandler) behind request logging, and adds the operational
endpoints:

  - GET /livez - liveness probe, always 200
  - GET /readyz - readiness probe, 503 while draining
  - GET /drain - mark the server not ready
  - GET /undrain - mark the server ready again
  - /debug/pprof/* - when EnablePprof is set

Prometheus metrics are served on a separate listener when a metrics server
and MetricsAddr are configured.

	srv := httpserver.New(cfg, metricsSrv, relayHandler, registryHandler)
	srv.RunInBackground()
	defer srv.Shutdown()

Shutdown drains for DrainDuration before stopping both listeners gracefully.
*/
package httpserver
