package duex

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Dispatcher is the contract of §4.2: a unit of request-handling logic.
// Go has no notion of "may be async" — a Dispatcher simply runs on its own
// goroutine-free call stack and may block on I/O; the chain engine awaits
// its return before advancing the cursor (§5's suspension points).
type Dispatcher interface {
	Dispatch(req *Request, sess *Session) error
}

// DispatcherFunc adapts a plain function to the Dispatcher interface.
type DispatcherFunc func(req *Request, sess *Session) error

func (f DispatcherFunc) Dispatch(req *Request, sess *Session) error { return f(req, sess) }

// Chain is the ordered, in-place-mutable list of dispatchers plus a
// cursor, per §3. Invariants: (I1) no duplicates, (I2) index only moves
// forward, (I3) insertion after the cursor is the only permitted
// structural mutation during traversal. A Chain is owned by exactly one
// request and never shared (§5), so no internal locking is needed.
type Chain struct {
	dispatchers []Dispatcher
	index       int
}

// NewChain builds a chain from an initial, already-deduplicated list.
func NewChain(dispatchers ...Dispatcher) *Chain {
	return &Chain{dispatchers: append([]Dispatcher(nil), dispatchers...)}
}

// Index is the cursor's current position.
func (c *Chain) Index() int { return c.index }

// Len is the current chain length (grows as dispatchers splice in).
func (c *Chain) Len() int { return len(c.dispatchers) }

func (c *Chain) contains(d Dispatcher) bool {
	for _, existing := range c.dispatchers {
		if dispatcherEqual(existing, d) {
			return true
		}
	}
	return false
}

// dispatcherEqual compares two dispatchers for the dedup rule (I1) without
// risking Go's "comparison of uncomparable type" panic: a DispatcherFunc is
// a func value, and func values are only comparable against nil, never
// against each other with ==. Func-kind dispatchers are compared by
// identity instead (the func value's closure record, so two closures built
// by the same function literal are distinct); anything else falls back to
// == only when the dynamic type is actually comparable.
func dispatcherEqual(a, b Dispatcher) bool {
	av := reflect.ValueOf(a)
	if av.Kind() == reflect.Func {
		bv := reflect.ValueOf(b)
		if bv.Kind() != reflect.Func || av.Type() != bv.Type() {
			return false
		}
		// The data word of an interface holding a func value points at
		// that value's closure record.
		return (*[2]unsafe.Pointer)(unsafe.Pointer(&a))[1] == (*[2]unsafe.Pointer)(unsafe.Pointer(&b))[1]
	}
	if !av.Comparable() {
		return false
	}
	return a == b
}

// SpliceAfterCursor inserts dispatchers immediately after the dispatcher
// at the cursor (i.e. they run next), deduplicating against every element
// already present and among the arguments themselves per §4.2's splice
// rule — I1 is enforced here, at splice time, not at execution time.
func (c *Chain) SpliceAfterCursor(dispatchers ...Dispatcher) {
	var unique []Dispatcher
	for _, d := range dispatchers {
		if c.contains(d) {
			continue
		}
		dup := false
		for _, u := range unique {
			if dispatcherEqual(u, d) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, d)
		}
	}
	if len(unique) == 0 {
		return
	}
	at := c.index + 1
	if at > len(c.dispatchers) {
		at = len(c.dispatchers)
	}
	rest := append([]Dispatcher(nil), c.dispatchers[at:]...)
	c.dispatchers = append(c.dispatchers[:at:at], append(unique, rest...)...)
}

// run executes the chain starting from the current cursor. It stops when
// the cursor passes the last element, the session's abortion token fires,
// or a dispatcher's call fails (§4.2 Execution).
func (c *Chain) run(req *Request, sess *Session) error {
	for c.index < len(c.dispatchers) {
		d := c.dispatchers[c.index]
		if err := c.invoke(d, req, sess); err != nil {
			return err
		}
		c.index++
		if sess.abortion.fired() {
			return sess.abortion.reasonErr()
		}
	}
	return nil
}

// invoke calls one dispatcher, converting a panic ("a throwing dispatcher",
// §8 scenario 5) into a *DispatchError the same way a returned error is
// treated, instead of crashing the connection.
func (c *Chain) invoke(d Dispatcher, req *Request, sess *Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case *DispatchError:
				err = v
			case error:
				err = wrapDispatchFailed(v)
			default:
				err = wrapDispatchFailed(fmt.Errorf("%v", v))
			}
		}
	}()
	return d.Dispatch(req, sess)
}
