// This program performs administrative tasks against a node's store. It is
// meant to be run while the node is stopped.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/campusledger/blockchain/app/tooling/admin/commands"
	"github.com/campusledger/blockchain/foundation/blockchain/storage/disk"
	"github.com/campusledger/blockchain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

const usage = `usage: admin <command> [arg]

  blocks              list the blocks of the chain
  trans [address]     list confirmed transactions, optionally touching an address
  pending             list the pending pool
  bals [address]      list confirmed balances
  records <address>   list the records of a student

The store is read from ADMIN_DB_PATH (default zblock/miner1/).`

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		return nil
	}

	dbPath := os.Getenv("ADMIN_DB_PATH")
	if dbPath == "" {
		dbPath = "zblock/miner1/"
	}

	log.Infow("startup", "version", build, "dbPath", dbPath, "command", os.Args[1])

	store, err := disk.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	snapshot, err := store.Read()
	if err != nil {
		return fmt.Errorf("reading store: %w", err)
	}

	return processCommands(os.Args, commands.Ledger{Snapshot: snapshot})
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, ldg commands.Ledger) error {
	var arg string
	if len(args) > 2 {
		arg = args[2]
	}

	switch args[1] {
	case "blocks":
		if err := commands.Blocks(os.Stdout, ldg); err != nil {
			return fmt.Errorf("listing blocks: %w", err)
		}
	case "trans":
		if err := commands.Transactions(os.Stdout, ldg, arg); err != nil {
			return fmt.Errorf("listing transactions: %w", err)
		}
	case "pending":
		if err := commands.Pending(os.Stdout, ldg); err != nil {
			return fmt.Errorf("listing pending: %w", err)
		}
	case "bals":
		if err := commands.Balances(os.Stdout, ldg, arg); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "records":
		if arg == "" {
			return errors.New("records requires a student address")
		}
		if err := commands.Records(os.Stdout, ldg, arg); err != nil {
			return fmt.Errorf("getting records: %w", err)
		}
	default:
		fmt.Println(usage)
	}

	return nil
}
