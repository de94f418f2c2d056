package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send value to an address",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address to pay.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) {
	w, from, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	var utxos []database.UTXO
	if err := send(http.MethodGet, "/v1/accounts/"+from+"/utxos", nil, &utxos); err != nil {
		log.Fatal(err)
	}

	tx, err := w.BuildTransaction(utxos, to, amount, from)
	if err != nil {
		log.Fatal(err)
	}

	var resp struct {
		Status string `json:"status"`
		TxID   string `json:"txId"`
	}
	if err := send(http.MethodPost, "/v1/tx/submit", tx, &resp); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s: %s\n", resp.Status, resp.TxID)
}
