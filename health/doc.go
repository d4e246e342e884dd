// Package health provides health probes and a registry that evaluates them.
//
// A Checker reports the state of one dependency as a Result with a Status
// of Healthy, Degraded or Unhealthy. The package ships checkers for the
// common report-client cases: NewPingChecker for reachability of the
// remote server or repository, HeapChecker for process heap usage and
// TokenChecker for the session token's expiry.
//
// # Registry
//
// A Registry holds named probes. RunOnce runs them concurrently, each
// under its own timeout, and records the latest result per probe. A probe
// that panics or times out is recorded as unhealthy.
//
//	reg := health.NewRegistry(health.RegistryConfig{Interval: time.Minute})
//	_ = reg.Register("report-server", health.NewPingChecker("report-server", client.Ping),
//	    health.ProbeOptions{Critical: true})
//	_ = reg.Register("heap", health.NewHeapChecker(health.HeapCheckerConfig{}),
//	    health.ProbeOptions{})
//
//	reg.Start(ctx)
//	defer reg.Stop()
//
// Snapshot aggregates the latest results. Overall status is unhealthy if
// any critical probe is unhealthy, degraded if any other probe is
// unhealthy or degraded, and healthy otherwise.
//
// OnEvent listeners are told when a critical probe starts failing and when
// it recovers.
package health
