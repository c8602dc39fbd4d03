package main

import (
	"fmt"
	"log/slog"
	"os"

	"gridlock/internal/content"
	"gridlock/internal/game"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// gridlock-sim auto-plays a full game with default bids. Useful for checking
// that a curriculum or content override produces sane prices and profits
// before putting it in front of a class.
func main() {
	var (
		mode      string
		teams     int
		seed      int64
		variation bool
	)

	root := &cobra.Command{
		Use:          "gridlock-sim",
		Short:        "Auto-play a gridlock game and print the results",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(mode, teams, seed, variation)
		},
	}
	root.Flags().StringVar(&mode, "mode", content.ModeIntro, "game mode")
	root.Flags().IntVar(&teams, "teams", 3, "number of teams")
	root.Flags().Int64Var(&seed, "seed", 1, "random seed (0 for fresh)")
	root.Flags().BoolVar(&variation, "variation", false, "enable per-team fleet variation")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(mode string, teams int, seed int64, variation bool) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	hub := game.NewHub(content.Default(), game.GameDefaults{
		PriceCap:    300,
		PriceFloor:  -50,
		Variability: 0.08,
	}, logger)

	sess, err := hub.Create(game.CreateOptions{
		Mode:      mode,
		MaxTeams:  teams,
		Variation: variation,
		Seed:      seed,
	})
	if err != nil {
		return err
	}
	for i := 0; i < teams; i++ {
		if _, err := sess.AddTeam(fmt.Sprintf("Team %c", 'A'+i)); err != nil {
			return err
		}
	}

	bold := color.New(color.Bold)
	for {
		rc, err := sess.StartRound()
		if err != nil {
			break
		}
		if err := sess.StartBidding(); err != nil {
			return err
		}
		result, err := sess.RunDispatch()
		if err != nil {
			return err
		}

		bold.Printf("\nRound %d  (%s, %d periods x %.0fh)\n", rc.Round, rc.Season, rc.Periods, rc.PeriodHours)
		for _, p := range result.Periods {
			tag := ""
			if p.Scarcity {
				tag = "  SCARCITY"
			}
			fmt.Printf("  period %d: demand %7.1f MW  dispatched %7.1f MW  price $%6.2f/MWh  reserve %5.1f%%%s\n",
				p.Period, p.DemandMW, p.TotalDispatchedMW, p.ClearingPrice, p.ReserveMarginPct, tag)
		}
	}

	snap := sess.Snapshot("")
	bold.Println("\nFinal standings")
	for _, row := range snap.Leaderboard {
		profit := color.GreenString("%14.2f", row.CumulativeProfit)
		if row.CumulativeProfit < 0 {
			profit = color.RedString("%14.2f", row.CumulativeProfit)
		}
		fmt.Printf("  #%d  %-10s %s\n", row.Rank, row.Name, profit)
	}
	return nil
}
