package lib

import "math/rand"

// NewUID returns a random non-zero UID validity
func NewUID() uint32 {
	for {
		if uid := rand.Uint32(); uid > 0 {
			return uid
		}
	}
}
