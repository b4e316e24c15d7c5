// Package health reports whether the service's dependencies are usable.
//
// A Checker reports one component: StoreChecker pings the relational store and
// CacheChecker summarises the query cache. An Aggregator runs checkers
// concurrently under a deadline, and Handler serves the combined report as
// JSON:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewStoreChecker(pinger, health.StoreCheckerConfig{}))
//	agg.Register(health.NewCacheChecker(memCache, health.CacheCheckerConfig{}))
//	health.RegisterHandlers(mux, agg)
//
// GET /healthz answers 200 while every check is healthy or degraded and 503
// once any check is unhealthy. GET /livez only reports that the process is
// serving.
package health
