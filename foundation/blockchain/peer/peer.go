// Package peer maintains the peer related information such as the set
// of known peers and their status.
package peer

import (
	"sort"
	"strings"
	"sync"
)

// Peer represents information about a Node in the network.
type Peer struct {
	URL string `json:"url" validate:"required,url"`
}

// New constructs a new peer value. A trailing slash is removed so the same
// node always produces the same value.
func New(url string) Peer {
	return Peer{
		URL: strings.TrimRight(url, "/"),
	}
}

// Match validates if the specified url matches this node.
func (p Peer) Match(url string) bool {
	return p.URL == strings.TrimRight(url, "/")
}

// String implements the Stringer interface for logging.
func (p Peer) String() string {
	return p.URL
}

// =============================================================================

// Status represents information about the status of any given peer.
type Status struct {
	LatestBlockHash  string `json:"latestBlockHash"`
	LatestBlockIndex uint64 `json:"latestBlockIndex"`
	Pending          int    `json:"pending"`
	KnownPeers       []Peer `json:"knownPeers"`
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]struct{}
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[Peer]struct{}),
	}
}

// Add adds a new node to the set. It reports false when the node was
// already known.
func (ps *PeerSet) Add(peer Peer) bool {
	peer = New(peer.URL)

	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer]
	if !exists {
		ps.set[peer] = struct{}{}
		return true
	}

	return false
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, New(peer.URL))
}

// Exists reports whether the node is in the set.
func (ps *PeerSet) Exists(peer Peer) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	_, exists := ps.set[New(peer.URL)]
	return exists
}

// Copy returns a list of the known peers, excluding the node with the
// specified url, ordered by url.
func (ps *PeerSet) Copy(self string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for peer := range ps.set {
		if !peer.Match(self) {
			peers = append(peers, peer)
		}
	}

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].URL < peers[j].URL
	})

	return peers
}
