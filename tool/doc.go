// Package tool contains the web search backends used by the advisor's web
// search tool.
//
// TavilySearch is the primary backend. It is cache-first: responses are stored
// in Redis under CacheKey(type, query) with a per-type TTL (research 7 days,
// competitor 1 day, news 1 hour), and live API calls are counted against a
// monthly quota. Once the quota is spent the client returns a placeholder
// Response whose QuotaExceeded flag is set instead of failing.
//
//	c := cache.NewRedisCache(cache.RedisOptions{Addr: "localhost:6379"})
//	tavily, err := tool.NewTavilySearch("", tool.WithTavilyCache(c))
//	resp, err := tavily.Search(ctx, "B2B SaaS pricing page trends", 5)
//	fmt.Println(tool.Format(resp))
//
// BraveSearch is an uncached alternative with the same Searcher contract.
// Both clients also implement langchaingo's tools.Tool.
package tool
