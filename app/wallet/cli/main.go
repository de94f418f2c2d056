// This program is the wallet for the ledger. It derives addresses from a
// password and talks to a node's public api.
package main

import "github.com/campusledger/blockchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
