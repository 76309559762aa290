package allocation

import (
	crand "crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"math/rand"
	"sort"
)

// drawWinners selects min(winnersCount, len(entryIDs)) entry IDs uniformly at
// random without replacement. With a non-empty seed the draw is fully
// deterministic over the same entry set, which is what reproducible audits
// and tests rely on; with an empty seed the generator is seeded from the
// OS entropy source.
func drawWinners(entryIDs []string, winnersCount int, seed string) []string {
	if winnersCount <= 0 || len(entryIDs) == 0 {
		return nil
	}

	// Canonical order first, so the seeded shuffle is independent of the
	// order entries were fetched in.
	pool := make([]string, len(entryIDs))
	copy(pool, entryIDs)
	sort.Strings(pool)

	rng := rand.New(rand.NewSource(drawSeed(seed)))
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	if winnersCount > len(pool) {
		winnersCount = len(pool)
	}
	return pool[:winnersCount]
}

func drawSeed(seed string) int64 {
	if seed == "" {
		var b [8]byte
		if _, err := crand.Read(b[:]); err == nil {
			return int64(binary.LittleEndian.Uint64(b[:]))
		}
		// crypto source unavailable; fall through to a hash of the empty seed
	}
	h := fnv.New64a()
	h.Write([]byte(seed))
	return int64(h.Sum64())
}
