package mid

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/campusledger/blockchain/foundation/web"
)

// panicPrefix starts the message of every error built from a panic.
const panicPrefix = "PANIC"

// Panics recovers from panics and converts the panic to an error so it is
// reported in Errors and handled appropriately.
func Panics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {

			// Defer a function to recover from a panic and set the err return
			// variable after the fact.
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					err = fmt.Errorf("%s [%v] TRACE[%s]", panicPrefix, rec, string(trace))
				}
			}()

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
