package mid_test

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/campusledger/blockchain/business/sys/validate"
	"github.com/campusledger/blockchain/business/web/errs"
	"github.com/campusledger/blockchain/business/web/mid"
	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/web"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type peerReq struct {
	URL string `json:"url" validate:"required,url"`
}

func Test_Middleware(t *testing.T) {
	log := zap.NewNop().Sugar()
	app := web.NewApp(make(chan os.Signal, 1), mid.Logger(log), mid.Errors(log), mid.Panics())

	app.Handle(http.MethodGet, "v1", "/conflict", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.FromLedger(fmt.Errorf("%w: a:0", database.ErrDoubleSpend))
	})
	app.Handle(http.MethodGet, "v1", "/invalid", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return validate.Check(peerReq{})
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})
	app.Handle(http.MethodGet, "v1", "/ok/:id", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, map[string]string{"id": web.Param(r, "id")}, http.StatusOK)
	}, mid.Cors("*"))

	type table struct {
		name   string
		path   string
		status int
		field  string
	}

	tt := []table{
		{"trusted", "/v1/conflict", http.StatusConflict, "error"},
		{"validation", "/v1/invalid", http.StatusBadRequest, "fields"},
		{"panic", "/v1/panic", http.StatusInternalServerError, "error"},
		{"ok", "/v1/ok/42", http.StatusOK, "id"},
	}

	t.Log("Given the need to translate handler results into responses.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				r := httptest.NewRequest(http.MethodGet, tst.path, nil)
				w := httptest.NewRecorder()
				app.ServeHTTP(w, r)

				if w.Code != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould receive status %d, got %d.", failed, testID, tst.status, w.Code)
				}
				t.Logf("\t%s\tTest %d:\tShould receive status %d.", success, testID, tst.status)

				var body map[string]any
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould receive a json body: %v", failed, testID, err)
				}
				if _, exists := body[tst.field]; !exists {
					t.Fatalf("\t%s\tTest %d:\tShould find %q in %v.", failed, testID, tst.field, body)
				}
				t.Logf("\t%s\tTest %d:\tShould find %q in the body.", success, testID, tst.field)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Metrics(t *testing.T) {
	log := zap.NewNop().Sugar()
	app := web.NewApp(make(chan os.Signal, 1), mid.Logger(log), mid.Errors(log), mid.Metrics(), mid.Panics())

	app.Handle(http.MethodGet, "v1", "/ok", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	})
	app.Handle(http.MethodGet, "v1", "/fail", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewTrusted(fmt.Errorf("bad input"), http.StatusBadRequest)
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	counter := func(name string) int64 {
		v, ok := expvar.Get(name).(*expvar.Int)
		if !ok {
			t.Fatalf("\t%s\tShould find the %q counter published.", failed, name)
		}
		return v.Value()
	}

	t.Log("Given the need to count requests for the debug endpoint.")
	{
		req, errCount, panics := counter("requests"), counter("errors"), counter("panics")

		for _, path := range []string{"/v1/ok", "/v1/fail", "/v1/panic"} {
			app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		}

		if got := counter("requests") - req; got != 3 {
			t.Fatalf("\t%s\tShould count 3 requests, got %d.", failed, got)
		}
		t.Logf("\t%s\tShould count 3 requests.", success)

		if got := counter("errors") - errCount; got != 2 {
			t.Fatalf("\t%s\tShould count 2 errors, got %d.", failed, got)
		}
		t.Logf("\t%s\tShould count 2 errors.", success)

		if got := counter("panics") - panics; got != 1 {
			t.Fatalf("\t%s\tShould count 1 panic, got %d.", failed, got)
		}
		t.Logf("\t%s\tShould count 1 panic.", success)
	}
}
