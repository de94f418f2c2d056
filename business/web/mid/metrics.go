package mid

import (
	"context"
	"expvar"
	"net/http"
	"runtime"
	"strings"

	"github.com/campusledger/blockchain/foundation/web"
)

// m holds the counters published under /debug/vars. They are registered
// once per process since expvar panics on a duplicate name.
var m = struct {
	gr     *expvar.Int
	req    *expvar.Int
	err    *expvar.Int
	panics *expvar.Int
}{
	gr:     expvar.NewInt("goroutines"),
	req:    expvar.NewInt("requests"),
	err:    expvar.NewInt("errors"),
	panics: expvar.NewInt("panics"),
}

// Metrics updates program counters.
func Metrics() web.Middleware {
	mw := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)

			m.req.Add(1)

			// Refresh the goroutine count every 100 requests.
			if m.req.Value()%100 == 0 {
				m.gr.Set(int64(runtime.NumGoroutine()))
			}

			if err != nil {
				m.err.Add(1)
				if strings.HasPrefix(err.Error(), panicPrefix) {
					m.panics.Add(1)
				}
			}

			return err
		}

		return h
	}

	return mw
}
