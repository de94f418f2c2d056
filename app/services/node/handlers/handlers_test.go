package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/campusledger/blockchain/app/services/node/handlers"
	"github.com/campusledger/blockchain/foundation/blockchain/balance"
	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/difficulty"
	"github.com/campusledger/blockchain/foundation/blockchain/genesis"
	"github.com/campusledger/blockchain/foundation/blockchain/identity"
	"github.com/campusledger/blockchain/foundation/blockchain/peer"
	"github.com/campusledger/blockchain/foundation/blockchain/records"
	"github.com/campusledger/blockchain/foundation/blockchain/state"
	"github.com/campusledger/blockchain/foundation/blockchain/storage/memory"
	"github.com/campusledger/blockchain/foundation/blockchain/worker"
	"github.com/campusledger/blockchain/foundation/events"
	"github.com/campusledger/blockchain/foundation/nameservice"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// swapHandler lets the private server start before the node it serves
// exists, since the node needs the server's url.
type swapHandler struct {
	mu sync.RWMutex
	h  http.Handler
}

func (s *swapHandler) set(h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = h
}

func (s *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.h
	s.mu.RUnlock()

	if h == nil {
		http.Error(w, "starting", http.StatusServiceUnavailable)
		return
	}
	h.ServeHTTP(w, r)
}

type node struct {
	url     string
	state   *state.State
	worker  *worker.Worker
	public  http.Handler
	records *records.Index
}

func startNode(t *testing.T, reward string) node {
	log := zap.NewNop().Sugar()

	g := genesis.Default()
	g.DifficultyStrategy = difficulty.StrategyFixed

	st, err := state.New(state.Config{
		Genesis: g,
		Store:   memory.New(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the ledger: %s", failed, err)
	}

	var swap swapHandler
	srv := httptest.NewServer(&swap)
	t.Cleanup(srv.Close)

	w, err := worker.Run(worker.Config{
		State:         st,
		Self:          peer.New(srv.URL),
		Transport:     peer.NewClient(time.Second),
		RewardAddress: reward,
		FeeAddress:    reward,
		SyncInterval:  time.Hour,
		PeerTimeout:   time.Second,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to run the worker: %s", failed, err)
	}
	t.Cleanup(w.Shutdown)

	ns, err := nameservice.New(t.TempDir())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the name service: %s", failed, err)
	}

	sheet := balance.NewSheet(st.Blocks())
	st.Register(sheet)

	idx := records.New(st.Blocks())
	st.Register(idx)

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      log,
		State:    st,
		Worker:   w,
		NS:       ns,
		Balances: sheet,
		Records:  idx,
		Evts:     events.New(),
	}

	swap.set(handlers.PrivateMux(cfg))

	return node{
		url:     srv.URL,
		state:   st,
		worker:  w,
		public:  handlers.PublicMux(cfg),
		records: idx,
	}
}

func call(t *testing.T, h http.Handler, method string, path string, body any, resp any) int {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("\t%s\tShould encode the request: %s", failed, err)
		}
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if resp != nil && w.Code < 300 {
		if err := json.NewDecoder(w.Body).Decode(resp); err != nil {
			t.Fatalf("\t%s\tShould decode the response of %s: %s", failed, path, err)
		}
	}

	return w.Code
}

func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("\t%s\tShould %s before the deadline.", failed, what)
}

func address(t *testing.T, password string) string {
	addr, err := identity.New(password).GenerateAddress()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate an address: %s", failed, err)
	}
	return addr
}

// =============================================================================

func Test_Node(t *testing.T) {
	teacher := address(t, "teacher")
	student := address(t, "student")

	n1 := startNode(t, address(t, "miner1"))
	n2 := startNode(t, address(t, "miner2"))

	t.Log("Given the need to run two nodes over HTTP.")
	{
		var block database.Block
		if code := call(t, n1.public, http.MethodPost, "/v1/mine", nil, &block); code != http.StatusCreated || block.Index != 1 {
			t.Fatalf("\t%s\tShould mine block 1 on node 1: %d %d", failed, code, block.Index)
		}
		t.Logf("\t%s\tShould mine block 1 on node 1.", success)

		var status peer.Status
		if code := call(t, n2.public, http.MethodPost, "/v1/peers", map[string]string{"url": n1.url}, &status); code != http.StatusOK {
			t.Fatalf("\t%s\tShould connect node 2 to node 1: %d", failed, code)
		}
		if status.LatestBlockHash != block.Hash {
			t.Fatalf("\t%s\tShould catch node 2 up to block 1: %+v", failed, status)
		}
		t.Logf("\t%s\tShould connect and catch node 2 up.", success)

		if code := call(t, n2.public, http.MethodPost, "/v1/peers", map[string]string{"url": "not a url"}, nil); code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject an invalid peer url: %d", failed, code)
		}
		t.Logf("\t%s\tShould reject an invalid peer url.", success)

		reg := map[string]any{
			"recipient":      teacher,
			"studentId":      "s-1",
			"studentAddress": student,
			"classId":        "cs-101",
		}

		var submitted struct {
			TxID string `json:"txId"`
		}
		if code := call(t, n2.public, http.MethodPost, "/v1/tx/registration", reg, &submitted); code != http.StatusOK {
			t.Fatalf("\t%s\tShould submit a registration on node 2: %d", failed, code)
		}
		t.Logf("\t%s\tShould submit a registration on node 2.", success)

		recordedAt := time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC).UnixMilli()
		att := map[string]any{
			"recipient":      teacher,
			"studentId":      "s-1",
			"studentAddress": student,
			"courseId":       "algebra",
			"classId":        "cs-101",
			"recordedAt":     recordedAt,
		}

		var attended struct {
			TxID string `json:"txId"`
		}
		if code := call(t, n2.public, http.MethodPost, "/v1/tx/attendance", att, &attended); code != http.StatusOK {
			t.Fatalf("\t%s\tShould submit an attendance on node 2: %d", failed, code)
		}

		delete(att, "classId")
		if code := call(t, n2.public, http.MethodPost, "/v1/tx/attendance", att, nil); code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould require the class of an attendance: %d", failed, code)
		}
		t.Logf("\t%s\tShould submit an attendance on node 2.", success)

		waitFor(t, "share the records with node 1", func() bool {
			_, err1 := n1.state.PendingTransaction(submitted.TxID)
			_, err2 := n1.state.PendingTransaction(attended.TxID)
			return err1 == nil && err2 == nil
		})
		t.Logf("\t%s\tShould share the records with node 1.", success)

		if code := call(t, n1.public, http.MethodPost, "/v1/mine", nil, &block); code != http.StatusCreated || block.Index != 2 {
			t.Fatalf("\t%s\tShould mine block 2 on node 1: %d %d", failed, code, block.Index)
		}

		waitFor(t, "announce block 2 to node 2", func() bool {
			return n2.state.LatestBlock().Hash == block.Hash
		})
		t.Logf("\t%s\tShould announce block 2 to node 2.", success)

		waitFor(t, "project block 2 on node 2", func() bool {
			return len(n2.records.Registrations(student)) == 1
		})

		var recs struct {
			Registrations []records.Record `json:"registrations"`
		}
		if code := call(t, n2.public, http.MethodGet, "/v1/records/student/"+student, nil, &recs); code != http.StatusOK || len(recs.Registrations) != 1 {
			t.Fatalf("\t%s\tShould index the registration on node 2: %d %v", failed, code, recs)
		}
		t.Logf("\t%s\tShould index the registration on node 2.", success)

		dates := []struct {
			query string
			want  int
		}{
			{"", 1},
			{"?startDate=2024-03-10&endDate=2024-03-10", 1},
			{"?startDate=2024-03-11", 0},
			{"?endDate=2024-03-09", 0},
			{"?courseId=algebra", 1},
			{"?studentId=s-2", 0},
		}
		for _, d := range dates {
			var got []records.Record
			if code := call(t, n2.public, http.MethodGet, "/v1/records/class/cs-101"+d.query, nil, &got); code != http.StatusOK || len(got) != d.want {
				t.Fatalf("\t%s\tShould filter the class attendance by %q: %d: got %d, exp %d", failed, d.query, code, len(got), d.want)
			}
		}
		if code := call(t, n2.public, http.MethodGet, "/v1/records/class/cs-101?startDate=10-03-2024", nil, nil); code != http.StatusBadRequest {
			t.Fatalf("\t%s\tShould reject a malformed date: %d", failed, code)
		}
		t.Logf("\t%s\tShould filter the class attendance.", success)

		var conf struct {
			Confirmations int `json:"confirmations"`
		}
		if code := call(t, n2.public, http.MethodGet, "/v1/tx/id/"+submitted.TxID+"/confirmations", nil, &conf); code != http.StatusOK || conf.Confirmations != 2 {
			t.Fatalf("\t%s\tShould be confirmed by both nodes: %d %d", failed, code, conf.Confirmations)
		}
		t.Logf("\t%s\tShould be confirmed by both nodes.", success)

		var prf struct {
			TransRoot string   `json:"transRoot"`
			Hashes    []string `json:"hashes"`
		}
		if code := call(t, n2.public, http.MethodGet, "/v1/tx/id/"+submitted.TxID+"/proof", nil, &prf); code != http.StatusOK || prf.TransRoot == "" {
			t.Fatalf("\t%s\tShould return a merkle proof: %d", failed, code)
		}
		t.Logf("\t%s\tShould return a merkle proof.", success)

		if code := call(t, n2.public, http.MethodGet, "/v1/tx/id/unknown", nil, nil); code != http.StatusNotFound {
			t.Fatalf("\t%s\tShould report an unknown transaction as not found: %d", failed, code)
		}
		if code := call(t, n2.public, http.MethodGet, "/v1/blocks/index/99", nil, nil); code != http.StatusNotFound {
			t.Fatalf("\t%s\tShould report an unknown block as not found: %d", failed, code)
		}
		t.Logf("\t%s\tShould report unknown records as not found.", success)

		var bal struct {
			Confirmed uint64 `json:"confirmed"`
			Spendable uint64 `json:"spendable"`
		}
		miner1 := address(t, "miner1")
		if code := call(t, n2.public, http.MethodGet, "/v1/accounts/"+miner1+"/balance", nil, &bal); code != http.StatusOK {
			t.Fatalf("\t%s\tShould return a balance: %d", failed, code)
		}

		exp := 2*n2.state.Genesis().MiningReward + 2*n2.state.Genesis().FeePerTransaction
		if bal.Confirmed != exp || bal.Spendable != exp {
			t.Fatalf("\t%s\tShould credit node 1's miner with two rewards and the fees: %+v exp %d", failed, bal, exp)
		}
		t.Logf("\t%s\tShould credit node 1's miner with two rewards and the fees.", success)
	}
}
