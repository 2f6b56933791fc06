// Package redis stores conversation history in Redis lists.
//
// Each session is a list at {prefix}session:{id}:messages holding JSON-encoded
// memory.Message values, trimmed to the most recent MaxLen entries. When TTL is
// set, the session expires TTL after its last message.
//
//	st := redis.NewRedisStore(redis.RedisOptions{Addr: "localhost:6379", TTL: 24 * time.Hour})
//	defer st.Close()
package redis
