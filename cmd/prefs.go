package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/streak"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect or clear locally saved preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved preferences, streak and account",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		snap, err := prefs.New(s.KV(), nil).Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		if len(snap) == 0 {
			fmt.Println("Nothing saved yet.")
			return nil
		}
		for _, k := range prefs.AllKeys {
			v, ok := snap[k]
			if !ok {
				continue
			}
			if k == prefs.KeyAuthToken {
				v = maskToken(v)
			}
			fmt.Printf("%-18s  %s\n", k, v)
		}
		return nil
	},
}

var prefsResetStreakCmd = &cobra.Command{
	Use:   "reset-streak",
	Short: "Set the daily streak back to zero",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if err := prefs.New(s.KV(), nil).SaveStreak(cmd.Context(), streak.State{}); err != nil {
			return err
		}
		fmt.Println("Streak reset.")
		return nil
	},
}

var prefsForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove every saved preference and sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("this removes your streak and sign-in; rerun with --yes to confirm")
		}

		s, _, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if err := prefs.New(s.KV(), nil).Forget(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Local preferences removed.")
		return nil
	},
}

func maskToken(t string) string {
	if len(t) <= 8 {
		return strings.Repeat("*", len(t))
	}
	return t[:4] + "…" + t[len(t)-4:]
}

func init() {
	prefsForgetCmd.Flags().BoolP("yes", "y", false, "Confirm removal")

	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsResetStreakCmd)
	prefsCmd.AddCommand(prefsForgetCmd)
}
