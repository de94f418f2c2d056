// Package cmd contains wallet app
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/campusledger/blockchain/foundation/blockchain/identity"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Your simple ledger wallet",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is ./wallet.yaml).")
	rootCmd.PersistentFlags().StringP("url", "u", "http://localhost:8080", "Url of the node.")
	rootCmd.PersistentFlags().StringP("password", "p", "", "Password the addresses are derived from.")
	rootCmd.PersistentFlags().IntP("index", "i", 1, "Address to use, counting from 1.")

	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password"))
	viper.BindPFlag("index", rootCmd.PersistentFlags().Lookup("index"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig reads in the config file and environment variables. Values
// given on the command line win over both.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("wallet")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WALLET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "reading config:", err)
		}
	}
}

// =============================================================================

// openWallet derives the wallet from the configured password and returns it
// with the address selected by index.
func openWallet() (*identity.Wallet, string, error) {
	password := viper.GetString("password")
	if password == "" {
		return nil, "", errors.New("a password is required: use --password or WALLET_PASSWORD")
	}

	index := viper.GetInt("index")
	if index < 1 {
		return nil, "", fmt.Errorf("invalid index %d", index)
	}

	w := identity.New(password)
	addrs, err := w.GenerateAddresses(index)
	if err != nil {
		return nil, "", err
	}

	return w, addrs[index-1], nil
}

func nodeURL() string {
	return strings.TrimRight(viper.GetString("url"), "/")
}
