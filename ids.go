package duex

import (
	"math/rand"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newSessionID builds "<base36 millis>.<4-char base36 random>", uppercased,
// per §4.4.
func newSessionID() string {
	millis := time.Now().UnixMilli()
	var b strings.Builder
	b.WriteString(strconv.FormatInt(millis, 36))
	b.WriteByte('.')
	for i := 0; i < 4; i++ {
		b.WriteByte(base36Alphabet[rand.Intn(len(base36Alphabet))])
	}
	return strings.ToUpper(b.String())
}

// http1RequestID builds "<sessionID>.<4-char base36 request index>".
func http1RequestID(sessionID string, index uint32) string {
	return sessionID + "." + strings.ToUpper(pad36(index, 4))
}

// http2RequestID builds "<sessionID>.<4-char base36 stream id>".
func http2RequestID(sessionID string, streamID uint32) string {
	return sessionID + "." + strings.ToUpper(pad36(streamID, 4))
}

func pad36(n uint32, width int) string {
	s := strconv.FormatUint(uint64(n), 36)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

var requestIndexSeq atomic.Uint32

// nextRequestIndex hands out per-process monotonically increasing request
// indices used for http1RequestID when a connection-local counter isn't
// threaded through (e.g. from tests).
func nextRequestIndex() uint32 { return requestIndexSeq.Add(1) }
