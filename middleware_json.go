package duex

import (
	"encoding/json"
	"net/http"
)

// JSONBodyDecoder implements §4.2's JSON body decoder middleware: if the
// (awaited) buffered body is non-empty, attempt to parse it as JSON and
// replace Request.Body with the decoded value. An empty body is a no-op,
// not an error (§8 boundary property).
var JSONBodyDecoder Dispatcher = DispatcherFunc(func(req *Request, sess *Session) error {
	pending, ok := req.Body.(*PendingBody)
	if !ok {
		return nil // already decoded by an earlier middleware
	}
	data, err := pending.Bytes()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return NewError(KindInvalidBody, http.StatusBadRequest, "invalid JSON body").WithCause(err)
	}
	req.Body = decoded
	return nil
})
