package kestrel

import "fmt"

// Gas is a middleware: a value that wraps a downstream `Handler` with
// pre/post processing around it. The name and the wrapping/folding
// semantics follow the teacher's "gas" vocabulary (middlewares power the
// engine the handlers ride in), generalized from the old per-Context gas
// signature to the `Request`/`Response`/`RequestContext` triple the trie
// and router now operate on.
type Gas func(Handler) Handler

// chain right-folds gases around terminal so that the first gas in the
// slice is the outermost wrapper: `gases[0](gases[1](...(terminal)))`.
// Invocation order on the way in is therefore `gases[0]`, `gases[1]`, ...,
// `terminal`; on the way out it unwinds in reverse, so headers appended
// after calling `next` show up in the order `[gases[n-1], ..., gases[0]]`
// relative to the terminal, matching the return-path ordering in
// `spec.md` §4.2/P4.
func chain(gases []Gas, terminal Handler) Handler {
	h := terminal
	for i := len(gases) - 1; i >= 0; i-- {
		h = gases[i](h)
	}

	return h
}

// WithErrorRecovery wraps h so a panic inside the handler or any
// downstream gas is converted into a 500 `*HTTPError` instead of crashing
// the serving goroutine, matching the "unhandled exceptions become 500"
// failure semantics of `spec.md` §4.2.
func WithErrorRecovery() Gas {
	return func(next Handler) Handler {
		return func(req *Request, res *Response) (err error) {
			defer func() {
				if r := recover(); r != nil {
					if e, ok := r.(error); ok {
						err = NewHTTPError(500).Wrap(e)
					} else {
						err = NewHTTPError(500).Wrap(fmt.Errorf("%v", r))
					}
				}
			}()

			return next(req, res)
		}
	}
}
