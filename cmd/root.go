package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/drillsergeant/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "drillsergeant",
	Short: "GRE reading comprehension drills in the terminal",
	Long: "Drill Sergeant generates short GRE reading drills, diagnoses the traps you fell for " +
		"and makes you earn every point back.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides DRILL_DB env var)")
	addClientFlags(rootCmd)

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// addClientFlags registers the flags shared by the commands that run the
// terminal client.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("api", "", "Backend base URL (overrides DRILL_API_URL env var)")
	cmd.Flags().Bool("embedded", false, "Run the backend in-process on a loopback port")
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then DRILL_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openStore resolves the database path and opens it.
func openStore(cmd *cobra.Command) (*store.Store, string, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, "", err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, "", err
	}
	return st, dbPath, nil
}
