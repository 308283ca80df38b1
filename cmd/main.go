package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"todoweb/internal/config"
)

var v = config.New()

var rootCmd = &cobra.Command{
	Use:   "todoweb",
	Short: "Web todo list backed by a relational database",
	Long: `todoweb serves a server-rendered todo list: create, list, toggle and
delete items stored in MySQL, PostgreSQL or SQLite.

Examples:
  go run ./cmd serve --driver sqlite --dsn file:todos.db
  go run ./cmd migrate --driver mysql --dsn 'root:123456@tcp(127.0.0.1:3306)/todos?parseTime=true'
  go run ./cmd export --format csv --out ./todos.csv`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		}
		return nil
	},
}

var cfgFile string

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./todoweb.{yaml,json,toml})")
	pf.String("mode", "", "production|development")
	pf.String("driver", "", "mysql|postgres|sqlite")
	pf.String("dsn", "", "database DSN")
	pf.String("log-level", "", "debug|info|warn|error")
	pf.String("log-format", "", "console|json")

	bind(v, "mode", "mode")
	bind(v, "db.driver", "driver")
	bind(v, "db.dsn", "dsn")
	bind(v, "log.level", "log-level")
	bind(v, "log.format", "log-format")

	rootCmd.AddCommand(serveCmd, migrateCmd, exportCmd)
}

func bind(v *viper.Viper, key, flag string) {
	_ = v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
