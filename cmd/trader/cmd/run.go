package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/papertrader/scheduler"
	"github.com/rustyeddy/papertrader/store"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading agent",
	Long: `Run the paper-trading agent until it is told to stop.

The agent trades the configured symbols on the trading schedule, prints the
portfolio status periodically and sends a daily report. Lines typed on stdin
are handled between jobs: "status", "help", "exit", or a free-text question
for the oracle. End of input or SIGINT stops the agent.

Example:
  trader run --config trader.yaml`,
	RunE: runRun,
}

var runReset bool

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runReset, "reset", false, "reset the wallet to the initial cash and drop all positions")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(cfg, runReset || cfg.Account.ResetOnStart)
	if err != nil {
		return err
	}
	defer sess.Close()

	a := sess.agent
	if m, ok := sess.store.(store.MetaStore); ok {
		lc, err := store.RecordStart(m, time.Now())
		if err != nil {
			log.Printf("[STORE] record start: %v", err)
		}
		a.Lifecycle = lc
	}

	if err := buildOracle(ctx, cfg, a); err != nil {
		return err
	}
	a.Notifier = buildNotifier(cfg)

	if sess.feed != nil {
		go func() {
			if err := sess.feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[PRICE] feed stopped: %v", err)
			}
		}()
	}

	jobs, err := buildJobs(cfg, a, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	q := scheduler.NewQueue()
	sched := scheduler.New(q, a.HandleCommand)
	sched.Tick = cfg.Schedule.Tick.Or(time.Second)
	for _, j := range jobs {
		sched.Add(j)
	}

	go func() {
		if err := scheduler.ReadLines(os.Stdin, q); err != nil {
			log.Printf("[CMD] stdin: %v", err)
		}
	}()

	a.Banner()
	if err := a.PrintStatus(ctx); err != nil {
		log.Printf("[STORE] status: %v", err)
	}

	err = sched.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	fmt.Println("✓ Agent stopped")
	return err
}
