// Package holdex embeds the holdex holdings lookup service in a Go program.
//
// The client reads fund holdings from a local SQLite store and serves every
// lookup through the same protection layer as the HTTP API: an in-process
// cache backed by optional Redis or Valkey, per-service free-tier quotas,
// service-level degradation and static snapshot fallbacks.
//
//	client, err := holdex.New(ctx,
//	    holdex.WithSQLite("data/holdings.db"),
//	    holdex.WithValkey("localhost:6379", ""),
//	    holdex.WithFallbackDir("static/cache", false),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	res, err := client.Search(ctx, "AAPL", "")
//
// Lookups return the same payloads the HTTP API serves, together with the
// tier that answered (cache, live or static) and the service level.
package holdex
