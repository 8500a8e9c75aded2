// Package nesosolar implements a consumer that loads the NESO embedded solar
// forecast into a forecast database.
//
// # Architecture
//
// The consumer is structured into several key packages:
//   - api: NESO CKAN datastore client (plain and SQL search)
//   - tabular: Normalization of raw datastore records into rows
//   - forecast: Mapping of rows to forecast objects
//   - database: Postgres catalog and transactional forecast storage
//   - events: Optional Redis or Kafka notifications of saved forecasts
//   - pipeline: One fetch, map and save pass
//   - scheduler: Cron-driven runs for long-lived deployments
//   - models: Shared data structures
//
// Key Features
//
//   - Tolerant fetching:
//     Network, status and decoding failures yield an empty table and a
//     wrapped error rather than aborting the run. Repeated failures open a
//     circuit breaker.
//
//   - Unit handling:
//     The datastore publishes kilowatts; stored values are megawatts.
//
//   - Idempotent catalog:
//     Models and locations are created on first use and cached afterwards.
//
// Example Usage
//
//	client := api.NewClient(api.ClientConfig{}, logger)
//	table, err := client.FetchData(ctx, "db6c038f-98af-4570-ab60-24d71ebd0ae5", 5)
//	if err != nil {
//	    logger.WithError(err).Warn("fetch failed")
//	}
//	forecasts, err := forecast.NewMapper(catalog, forecast.Options{}, logger).
//	    Map(ctx, table, "neso-solar-forecast", "0.1.0")
//
// For more information about specific packages, see their respective
// documentation.
package nesosolar
