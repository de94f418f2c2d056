package cmd

import (
	"fmt"
	"log"

	"github.com/campusledger/blockchain/foundation/blockchain/identity"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var count int

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Derive the first addresses of the wallet",
	Long:  "The same password always derives the same addresses, in the same order.",
	Run:   generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().IntVarP(&count, "count", "n", 1, "Number of addresses to derive.")
}

func generateRun(cmd *cobra.Command, args []string) {
	password := viper.GetString("password")
	if password == "" {
		log.Fatal("a password is required: use --password or WALLET_PASSWORD")
	}

	w := identity.New(password)
	addrs, err := w.GenerateAddresses(count)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Wallet:", w.ID())
	for i, addr := range addrs {
		fmt.Printf("%d: %s\n", i+1, addr)
	}
}
