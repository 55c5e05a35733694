// Package keepr provides a thread-safe, in-process key-value cache with
// expiration, single-flight load-through fetching, key-scoped
// transactions, size-bounded LRW/LRU eviction, and a subscriber hook bus.
//
// # Overview
//
// A keepr cache is five cooperating subsystems behind one Cache facade:
//
//   - the Entry Table: a sharded concurrent map holding {key, modified,
//     ttl, value} rows
//   - the Janitor: a rolling-schedule sweeper that removes expired rows
//     in the background
//   - the Courier: single-flight load-through fetching, so a cache
//     stampede against a missing key runs the loader once
//   - the Locksmith: key-scoped locks backing multi-key transactions
//   - the Limit engine: LRW (or LRU, with the touch-on-read extension)
//     eviction once a cache exceeds its configured MaxSize
//
// A process-wide Overseer registry tracks every named cache's
// configuration as an immutable descriptor, swapped atomically on
// reconfiguration; the Informant hook bus delivers pre- and post-action
// notifications to subscribers in registration order.
//
// # Quick Start
//
//	cfg := keepr.DefaultConfig("sessions")
//	cfg.MaxSize = 10_000
//	cfg.DefaultTTL = 30 * time.Minute
//	cfg.LRU = true
//
//	cache, err := keepr.NewCache(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
//	cache.Set("session:42", token)
//	if value, found := cache.Get("session:42"); found {
//	    fmt.Println(value)
//	}
//
// # Load-through fetching
//
//	result, err := cache.Fetch(ctx, "user:42", func(ctx context.Context, key string) (interface{}, error) {
//	    user, err := db.LoadUser(ctx, 42)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return keepr.Commit(user, keepr.WithTTL(time.Hour)), nil
//	})
//
// Concurrent Fetch calls for the same missing key share one loader
// execution; a loader that panics surfaces a KEEPR_KILLED error to every
// waiter instead of hanging them.
//
// # Type-safe generics
//
//	cache, err := keepr.NewGenericCache[string, User](cfg)
//	cache.Set("user:123", user)
//	value, found := cache.Get("user:123")
//
// # Hooks
//
//	cache.SubscribePost(keepr.HookSubscription{
//	    Name:    "audit",
//	    Actions: []keepr.ActionTag{keepr.ActionDelete},
//	    Handler: func(ctx context.Context, msg keepr.HookMessage) {
//	        log.Printf("deleted %v", msg.Args)
//	    },
//	})
//
// Synchronous hooks block the triggering call until they acknowledge or
// their timeout elapses; a hung or panicking hook never aborts the
// action it was notified about.
//
// # Non-goals
//
// keepr is single-node: it has no replication, consensus, or distributed
// routing. The routerState field on a cache descriptor exists only for
// descriptor-shape parity and is never read by the core.
package keepr
