package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

// basePath is the root of the private routes every node exposes to peers.
const basePath = "%s/v1/node"

// Client implements the peer wire operations over HTTP and JSON. Every
// failure is reported as a database.ErrPeerCommunication.
type Client struct {
	http *http.Client
}

// NewClient constructs a client whose requests give up after the timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// LatestBlock asks the peer for the head of its chain.
func (c *Client) LatestBlock(ctx context.Context, p Peer) (database.Block, error) {
	var block database.Block
	if err := c.send(ctx, http.MethodGet, url(p, "/blocks/latest"), nil, &block); err != nil {
		return database.Block{}, wrap(p, err)
	}

	return block, nil
}

// SendLatestBlock announces blocks to the peer. A single block announces a
// new head, a full chain announces a replacement.
func (c *Client) SendLatestBlock(ctx context.Context, p Peer, blocks []database.Block) error {
	if err := c.send(ctx, http.MethodPut, url(p, "/blocks/latest"), blocks, nil); err != nil {
		return wrap(p, err)
	}

	return nil
}

// Blocks asks the peer for its full chain.
func (c *Client) Blocks(ctx context.Context, p Peer) ([]database.Block, error) {
	var blocks []database.Block
	if err := c.send(ctx, http.MethodGet, url(p, "/blocks"), nil, &blocks); err != nil {
		return nil, wrap(p, err)
	}

	return blocks, nil
}

// Transactions asks the peer for its pending pool.
func (c *Client) Transactions(ctx context.Context, p Peer) ([]database.Tx, error) {
	var txs []database.Tx
	if err := c.send(ctx, http.MethodGet, url(p, "/transactions"), nil, &txs); err != nil {
		return nil, wrap(p, err)
	}

	return txs, nil
}

// SendTransaction submits a transaction to the peer's pool.
func (c *Client) SendTransaction(ctx context.Context, p Peer, tx database.Tx) error {
	if err := c.send(ctx, http.MethodPost, url(p, "/transactions"), tx, nil); err != nil {
		return wrap(p, err)
	}

	return nil
}

// SendPeer registers a node with the peer.
func (c *Client) SendPeer(ctx context.Context, p Peer, node Peer) error {
	if err := c.send(ctx, http.MethodPost, url(p, "/peers"), node, nil); err != nil {
		return wrap(p, err)
	}

	return nil
}

// Confirmed asks the peer whether the transaction is part of its chain.
func (c *Client) Confirmed(ctx context.Context, p Peer, txID string) (bool, error) {
	err := c.send(ctx, http.MethodGet, url(p, "/blocks/transactions/"+txID), nil, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNotFound):
		return false, nil
	}

	return false, wrap(p, err)
}

// Status asks the peer for its head and the peers it knows.
func (c *Client) Status(ctx context.Context, p Peer) (Status, error) {
	var status Status
	if err := c.send(ctx, http.MethodGet, url(p, "/status"), nil, &status); err != nil {
		return Status{}, wrap(p, err)
	}

	return status, nil
}

// =============================================================================

// errNotFound marks a 404 response.
var errNotFound = errors.New("not found")

func url(p Peer, path string) string {
	return fmt.Sprintf(basePath, p.URL) + path
}

func wrap(p Peer, err error) error {
	return fmt.Errorf("%w: %s: %s", database.ErrPeerCommunication, p.URL, err)
}

// send is a helper function to send an HTTP request to a node.
func (c *Client) send(ctx context.Context, method string, url string, dataSend any, dataRecv any) error {
	var body io.Reader
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if dataSend != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return errNotFound
	default:
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
