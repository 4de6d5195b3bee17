/*
Command registry-server runs the identity registry on an in-memory ledger.

On start it deploys the meta-transaction forwarder, the fee token and the
registry, owned by --deployer, mints --genesis-balance allocations and serves:

  - POST /api/relay and forwarder/token reads for gas-less clients
  - read access to identity bindings, state records and configuration
  - /livez, /readyz, /drain, /undrain and optionally /debug/pprof
  - Prometheus metrics on --metrics-addr

Example:

	registry-server \
	    --deployer 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 \
	    --genesis-balance 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC=1000 \
	    --log-debug
*/
package main
