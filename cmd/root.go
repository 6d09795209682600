package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/itemstate/internal/utils"
	"github.com/sw33tLie/itemstate/pkg/items"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "itemstate",
	Short: "Tells which catalog items are expired, removed or new.",
	Long: `itemstate reads item records from a JSON file, an HTTP endpoint or a SQLite
database and reports, for each one, whether it has expired, whether its source
dropped it, and whether it was first seen recently.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelString, _ := cmd.Flags().GetString("loglevel")
		return utils.SetLogLevel(levelString)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.itemstate.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")

	setDefaults(viper.GetViper())
	viper.BindPFlag("http.proxy", rootCmd.PersistentFlags().Lookup("proxy"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("recent_window", items.RecentWindow.String())
	v.SetDefault("http.retries", 3)
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.headers", map[string]string{})
	v.SetDefault("http.proxy", "")
	v.SetDefault("sqlite.table", "items")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Init log library. A bad level is reported by PersistentPreRunE.
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".itemstate")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("itemstate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine; everything has a default.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			utils.Log.Warnf("could not read config %s: %v", viper.ConfigFileUsed(), err)
		}
	} else {
		utils.Log.Debugf("using config file %s", viper.ConfigFileUsed())
	}
}

// recentWindow reads recent_window from v, falling back to items.RecentWindow
// when it is unset or not a positive duration.
func recentWindow(v *viper.Viper) time.Duration {
	raw := v.GetString("recent_window")
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		utils.Log.Warnf("ignoring recent_window %q, using %s", raw, items.RecentWindow)
		return items.RecentWindow
	}
	return d
}
