package store

import "sync"

const (
	habitPrefix       = "habit:"
	eventPrefix       = "event:"       // event:{habitID}:{YYYY-MM-DD}
	competitionPrefix = "competition:"
	participantPrefix = "participant:" // participant:{competitionID}:{userID}
)

// keyPool provides reusable byte slices for building database keys.
// Event and participant keys are built on every recompute.
var keyPool = sync.Pool{
	New: func() any {
		// Prefix, two NanoIDs and a date fit comfortably.
		return make([]byte, 0, 128)
	},
}

// buildKey joins prefix and parts with ':' using a pooled buffer.
// Callers MUST call releaseKey when done with the key.
//
// Usage:
//
//	key := buildKey(eventPrefix, habitID, date.String())
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(prefix string, parts ...string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, p...)
	}
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	// Avoids keeping oversized buffers in the pool
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
