package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podcast-digest/pkg/digest"
	"podcast-digest/pkg/domain"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check every podcast and deliver summaries of new episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			podcasts, err := ctx.selectPodcasts(only)
			if err != nil {
				return err
			}
			return ctx.runDigest(cmd, podcasts, digest.Options{})
		},
	}
	cmd.Flags().StringSliceVar(&only, "podcast", nil, "Limit the run to these podcast ids")
	return cmd
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [podcast-id...]",
		Short: "Report which podcasts have a new episode without delivering anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			podcasts, err := ctx.selectPodcasts(args)
			if err != nil {
				return err
			}
			return ctx.runDigest(cmd, podcasts, digest.Options{CheckOnly: true})
		},
	}
}

func newForceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "force <podcast-id>...",
		Short: "Deliver the latest episode again, even if it was already delivered",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			podcasts, err := ctx.selectPodcasts(args)
			if err != nil {
				return err
			}
			return ctx.runDigest(cmd, podcasts, digest.Options{Force: true})
		},
	}
}

// selectPodcasts returns the configured podcasts named by ids, or all of them.
func (c *commandContext) selectPodcasts(ids []string) ([]domain.PodcastConfig, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return cfg.Podcasts, nil
	}

	out := make([]domain.PodcastConfig, 0, len(ids))
	for _, id := range ids {
		p, ok := cfg.Podcast(strings.TrimSpace(id))
		if !ok {
			return nil, fmt.Errorf("%w: unknown podcast %q", domain.ErrInvalidConfig, id)
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *commandContext) runDigest(cmd *cobra.Command, podcasts []domain.PodcastConfig, opts digest.Options) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	unlock, err := c.lock()
	if err != nil {
		return err
	}
	defer unlock()

	res := newResources(cfg, logger)
	defer res.Close()

	runner, err := res.runner(cmd.Context(), opts.CheckOnly)
	if err != nil {
		return err
	}

	opts.Workers = cfg.Run.Workers
	opts.Timeout = cfg.RunTimeout()
	report, err := runner.Run(cmd.Context(), podcasts, opts)
	printReport(cmd.OutOrStdout(), report)
	return err
}

func printReport(w io.Writer, report digest.Report) {
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		detail := res.Episode.Title
		if res.Failure != nil {
			detail = fmt.Sprintf("%s: %v", res.Failure.Stage, res.Failure.Err)
		}
		transcript := ""
		if res.Outcome == digest.OutcomeDelivered {
			transcript = yesNo(res.TranscriptFound)
		}
		rows = append(rows, []string{res.PodcastID, string(res.Outcome), transcript, detail})
	}
	fmt.Fprintln(w, renderTable([]string{"Podcast", "Outcome", "Transcript", "Episode"}, rows))
	fmt.Fprintf(w, "%d delivered, %d failed in %s\n", report.Delivered(), len(report.Failures), report.Duration.Round(time.Millisecond))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
