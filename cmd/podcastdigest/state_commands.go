package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last delivered episode of every podcast",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			res := newResources(cfg, logger)
			defer res.Close()

			store, err := res.openStore(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now()
			rows := make([][]string, 0, len(cfg.Podcasts))
			for _, p := range cfg.Podcasts {
				rec, ok := store.Get(p.ID)
				if !ok {
					rows = append(rows, []string{p.ID, p.DisplayName(), "never delivered", "", ""})
					continue
				}
				checked := ""
				if !rec.LastChecked.IsZero() {
					checked = humanize.RelTime(rec.LastChecked, now, "ago", "from now")
				}
				rows = append(rows, []string{p.ID, p.DisplayName(), rec.LastTitle, rec.LastIdentity.String(), checked})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Podcast", "Name", "Last Episode", "Identity", "Delivered"}, rows))
			return nil
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset [podcast-id...]",
		Short: "Forget the last delivered episode so the next run delivers it again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("name at least one podcast or pass --all")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			unlock, err := ctx.lock()
			if err != nil {
				return err
			}
			defer unlock()

			res := newResources(cfg, logger)
			defer res.Close()

			store, err := res.openStore(cmd.Context())
			if err != nil {
				return err
			}

			if all {
				store.Clear("")
				fmt.Fprintln(cmd.OutOrStdout(), "Cleared state for all podcasts")
			}
			for _, id := range args {
				if store.Clear(id) {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared state for %s\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "No state recorded for %s\n", id)
				}
			}
			return store.Flush(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Clear every podcast")
	return cmd
}
