// Package runtime loads BEAM files from disk and keeps decoded modules in
// a caller-owned cache.
//
// # Quick Start
//
//	ld := runtime.New(runtime.Options{CacheSize: 64})
//
//	mod, err := ld.Load(ctx, "ebin/lists.beam")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(mod.Name())
//
// A second Load of the same path returns the cached model. Paths are
// normalized to absolute form, so "./a.beam" and "a.beam" share an entry.
//
// # Parallel Loading
//
//	mods, err := ld.LoadAll(ctx, paths)
//
// LoadAll decodes up to Options.Concurrency files at a time. Decoding
// holds no shared state, so the only coordination is the cache itself.
//
// # Cache
//
// The cache keeps at most one model per path and evicts the least recently
// used path when full. It does not track file changes; call Reload or
// Forget after a file is rewritten.
package runtime
