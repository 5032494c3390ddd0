package raid

import "github.com/glhrmfrts/raid-go/internal/raidwire"

// dispatch implements spec.md §4.2: decode, locate header.etag, and
// either complete a pending request or fire msg_recv hooks for an
// unsolicited message. Runs on the receive thread; the matched
// callback is invoked outside the registry lock (spec.md §5).
func (c *Client) dispatch(payload []byte) {
	v, err := raidwire.Decode(payload)
	if err != nil {
		return
	}
	if v.Kind != raidwire.KindMap {
		return
	}

	header, ok := v.Get("header")
	if !ok {
		return
	}
	etagVal, ok := header.Get("etag")
	if !ok || etagVal.Kind != raidwire.KindString {
		return
	}

	reader := &Reader{root: v, header: header, etag: etagVal}
	body, _ := v.Get("body")
	reader.body = body
	reader.nested = body

	if p, found := c.registry.findAndRemoveByEtag(etagVal.S); found {
		fireCallback(p.callback, reader, CodeSuccess)
		return
	}

	c.hooks.fireMsgRecv(reader)
}
