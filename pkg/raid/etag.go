package raid

import (
	"github.com/google/uuid"
)

// etagAlphabet is the fixed alphanumeric alphabet spec.md §3/§6 requires
// ("8 ASCII characters from a fixed alphanumeric alphabet").
const etagAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
const etagLength = 8

// newEtag draws fresh entropy from google/uuid (the teacher's
// opaque-ID generator, used the same way across its control-plane
// handlers) and folds it down onto the fixed alphabet. It takes no lock
// itself; Client.nextEtag calls it after bumping the generation counter
// under the registry mutex and releasing that mutex.
func newEtag() string {
	id := uuid.New()
	raw := id[:]

	buf := make([]byte, etagLength)
	for i := 0; i < etagLength; i++ {
		buf[i] = etagAlphabet[raw[i]%byte(len(etagAlphabet))]
	}
	return string(buf)
}

// nextEtag bumps the client's etag-generation counter under the
// registry lock and returns a fresh etag. The counter itself is not
// part of the etag's bytes; it exists so every allocation site is
// serialized the way spec.md §9 ("Global mutable etag state: the etag
// generator advances a per-client counter under the registry mutex")
// describes, without any process-global state.
func (c *Client) nextEtag() string {
	c.registry.mu.Lock()
	c.etagGen++
	c.registry.mu.Unlock()
	return newEtag()
}
