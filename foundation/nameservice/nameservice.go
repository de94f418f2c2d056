// Package nameservice reads a folder of key files and creates a name lookup
// for the ledger addresses they hold. A file named kate.ecdsa gives the name
// kate to the address of the key inside it.
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/campusledger/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const keyExt = ".ecdsa"

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	names     map[string]string
	addresses map[string]string
}

// New constructs a name service with the keys found under root.
func New(root string) (*NameService, error) {
	ns := NameService{
		names:     make(map[string]string),
		addresses: make(map[string]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != keyExt {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		name := strings.TrimSuffix(path.Base(fileName), keyExt)
		address := signature.PublicKey(privateKey)

		ns.names[address] = name
		ns.addresses[name] = address

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address. Unknown addresses are
// returned as is.
func (ns *NameService) Lookup(address string) string {
	name, exists := ns.names[address]
	if !exists {
		return address
	}
	return name
}

// Address returns the address held under the specified name.
func (ns *NameService) Address(name string) (string, bool) {
	address, exists := ns.addresses[name]
	return address, exists
}

// Copy returns a copy of the map of addresses and names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.names))
	for address, name := range ns.names {
		cpy[address] = name
	}
	return cpy
}
