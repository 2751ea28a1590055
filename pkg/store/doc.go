// Package store defines the Store Engine collaborator the cache commits
// normalized records into, plus a few ready-made engines.
//
// Responsibilities:
//   - Engine[T] only looks up and commits a single value per key. It knows
//     nothing about versions, merges or field sets; ordering is resolved by
//     the caller before Commit.
//   - MemoryEngine[T] keeps deep copies in process.
//   - BackendEngine[T] layers a Codec over a byte-level Backend so remote
//     stores can be plugged in.
//
// Backends are selected by DSN:
//
//	memory://                 in-process MemoryEngine
//	redis://host:6379/0       pkg/store/redisstore
//	leveldb:///var/lib/cache  pkg/store/leveldbstore
//
// Backend packages register themselves from init, so callers import them for
// side effects:
//
//	import _ "github.com/goliatone/go-graphcache/pkg/store/redisstore"
package store
