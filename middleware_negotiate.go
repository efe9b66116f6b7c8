package duex

import (
	"net/http"
	"sort"
	"strings"
)

// MethodDispatcher implements §4.2's method negotiation middleware: pick
// route["method.<lowercased-verb>"] if present, else route["method.*"],
// else fail NoRoute (405, Allow header listing every defined method in
// upper case, sorted).
func MethodDispatcher(entry RouteEntry) Dispatcher {
	return DispatcherFunc(func(req *Request, sess *Session) error {
		verb := strings.ToLower(req.Method)
		if dispatchers, ok := entry["method."+verb]; ok {
			sess.chain.SpliceAfterCursor(dispatchers...)
			return nil
		}
		if dispatchers, ok := entry["method.*"]; ok {
			sess.chain.SpliceAfterCursor(dispatchers...)
			return nil
		}
		return NewError(KindNoRoute, http.StatusMethodNotAllowed, "method not allowed").
			WithHeader("Allow", allowedMethods(entry))
	})
}

func allowedMethods(entry RouteEntry) string {
	var methods []string
	for key := range entry {
		if verb, ok := strings.CutPrefix(key, "method."); ok && verb != "*" {
			methods = append(methods, strings.ToUpper(verb))
		}
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

// AcceptDispatcher implements §4.2's accept negotiation middleware. It
// parses the Accept header (comma-split, lowercased, each media type
// stripped at ';' and '*'); for each client preference in order, finds
// the first route key accept.<media> whose media type is a prefix of the
// client preference or vice versa. On hit, splices that dispatcher(s).
// On no match, fails NoRoute (406, Accept header listing the supported
// set). A missing header fails HeaderMissing (406) when the route
// defines at least one accept.* key.
func AcceptDispatcher(entry RouteEntry) Dispatcher {
	return DispatcherFunc(func(req *Request, sess *Session) error {
		supported := mediaKeys(entry, "accept.")
		if len(supported) == 0 {
			return nil
		}
		header := req.Headers.Get("Accept")
		if header == "" {
			return NewError(KindHeaderMissing, http.StatusNotAcceptable, "Accept header is required").
				WithHeader("Accept", strings.Join(supported, ", "))
		}
		for _, pref := range splitMediaPreferences(header) {
			for _, media := range supported {
				if mediaMatches(media, pref) {
					sess.chain.SpliceAfterCursor(entry["accept."+media]...)
					return nil
				}
			}
		}
		return NewError(KindNoRoute, http.StatusNotAcceptable, "no acceptable media type").
			WithHeader("Accept", strings.Join(supported, ", "))
	})
}

// ContentTypeDispatcher implements §4.2's content-type negotiation
// middleware: single value, content-type.<media> keys. Fails
// HeaderMissing (415) when the header is required but absent, NoRoute
// (415) on no match.
func ContentTypeDispatcher(entry RouteEntry) Dispatcher {
	return DispatcherFunc(func(req *Request, sess *Session) error {
		supported := mediaKeys(entry, "content-type.")
		if len(supported) == 0 {
			return nil
		}
		header := req.Headers.Get("Content-Type")
		if header == "" {
			return NewError(KindHeaderMissing, http.StatusUnsupportedMediaType, "Content-Type header is required")
		}
		client := stripMediaParams(header)
		for _, media := range supported {
			if mediaMatches(media, client) {
				sess.chain.SpliceAfterCursor(entry["content-type."+media]...)
				return nil
			}
		}
		return NewError(KindNoRoute, http.StatusUnsupportedMediaType, "unsupported content type")
	})
}

// mediaKeys returns every route key's media type (after prefix), sorted.
// The sorted order decides which key wins when several match one client
// preference, and keeps the Accept-header hints stable.
func mediaKeys(entry RouteEntry, prefix string) []string {
	var keys []string
	for key := range entry {
		if media, ok := strings.CutPrefix(key, prefix); ok {
			keys = append(keys, media)
		}
	}
	sort.Strings(keys)
	return keys
}

func splitMediaPreferences(header string) []string {
	parts := strings.Split(header, ",")
	prefs := make([]string, 0, len(parts))
	for _, p := range parts {
		prefs = append(prefs, stripMediaParams(p))
	}
	return prefs
}

// stripMediaParams lowercases and trims a media-type token, then cuts it at
// its first ';' (parameters) and its first '*' (wildcard), per §4.2: a
// client preference like "*/*" or "text/*" collapses to its concrete
// prefix ("" or "text/") so mediaMatches's HasPrefix check sees it as a
// prefix of everything it should match, not a literal string it never is.
func stripMediaParams(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType, _, _ = strings.Cut(mediaType, "*")
	return strings.TrimSpace(mediaType)
}

// mediaMatches implements the wildcard-tolerant rule: supported prefixes
// client, or client prefixes supported (splitting supported at '*').
func mediaMatches(supported, client string) bool {
	if strings.HasPrefix(supported, client) {
		return true
	}
	head, _, _ := strings.Cut(supported, "*")
	return strings.HasPrefix(client, head)
}
