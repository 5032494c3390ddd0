package raid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry_AppendFindRemove(t *testing.T) {
	r := newRegistry()

	var gotCode ErrorCode
	var called int
	r.append("ETAG0001", time.Minute, func(reader *Reader, code ErrorCode) {
		called++
		gotCode = code
	})

	p, ok := r.findAndRemoveByEtag("ETAG0001")
	require.True(t, ok)
	require.Equal(t, "ETAG0001", p.etag)

	// The second lookup must miss: the entry was removed (spec.md S3).
	_, ok = r.findAndRemoveByEtag("ETAG0001")
	require.False(t, ok)

	fireCallback(p.callback, nil, CodeSuccess)
	require.Equal(t, 1, called)
	require.Equal(t, CodeSuccess, gotCode)
}

func TestRegistry_FindByEtagIsFullEquality(t *testing.T) {
	// SPEC_FULL.md §D.1: etag lookups never prefix-match, unlike
	// well-known header keys.
	r := newRegistry()
	r.append("ETAGLONG1", time.Minute, nil)

	_, ok := r.findAndRemoveByEtag("ETAGLONG")
	require.False(t, ok, "a shorter lookup key must not match a longer stored etag")
}

func TestRegistry_SweepTimeouts(t *testing.T) {
	r := newRegistry()

	var firedCode ErrorCode
	var fired bool
	r.append("EXPIRED1", -time.Second, func(reader *Reader, code ErrorCode) {
		fired = true
		firedCode = code
	})
	r.append("FRESH001", time.Hour, func(reader *Reader, code ErrorCode) {
		t.Fatal("a non-expired entry must not fire")
	})

	r.sweepTimeouts(CodeRecvTimeout)
	require.True(t, fired)
	require.Equal(t, CodeRecvTimeout, firedCode)

	_, ok := r.findAndRemoveByEtag("FRESH001")
	require.True(t, ok, "the non-expired entry must still be pending")
}

func TestRegistry_ClearAll(t *testing.T) {
	r := newRegistry()

	var codes []ErrorCode
	for _, etag := range []string{"E1", "E2", "E3"} {
		r.append(etag, time.Hour, func(reader *Reader, code ErrorCode) {
			codes = append(codes, code)
		})
	}

	r.clearAll(CodeNotConnected)
	require.Len(t, codes, 3)
	for _, c := range codes {
		require.Equal(t, CodeNotConnected, c)
	}
	require.False(t, r.hasPending())
}
