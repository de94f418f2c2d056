package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

type balance struct {
	Address   string `json:"address"`
	Name      string `json:"name"`
	Confirmed uint64 `json:"confirmed"`
	Spendable uint64 `json:"spendable"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	_, address, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	var bal balance
	if err := send(http.MethodGet, "/v1/accounts/"+address+"/balance", nil, &bal); err != nil {
		log.Fatal(err)
	}

	fmt.Println("For Address:", bal.Address)
	fmt.Println("Confirmed:  ", bal.Confirmed)
	fmt.Println("Spendable:  ", bal.Spendable)
}
