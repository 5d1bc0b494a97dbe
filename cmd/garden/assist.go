package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"garden/internal/assist"
)

var (
	serverURL     string
	assistTimeout time.Duration
)

var assistCmd = &cobra.Command{
	Use:   "assist <draft|tags|summary|polish|titles> [text]",
	Short: "Ask a running garden server for writing help",
	Long: `assist sends text to the server's /api/ai endpoint. Text is read from
stdin when not given as an argument. Failures print the placeholder answer.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := ""
		if len(args) == 2 {
			text = args[1]
		} else {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			text = string(b)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), assistTimeout)
		defer cancel()

		c := assist.NewFallback(assist.NewClient(serverURL, nil), logger.Named("assist"))
		return runAssist(ctx, c, args[0], strings.TrimSpace(text), cmd.OutOrStdout())
	},
}

func init() {
	assistCmd.Flags().DurationVar(&assistTimeout, "timeout", time.Minute, "Request timeout")
}

func runAssist(ctx context.Context, c assist.Capability, action, text string, w io.Writer) error {
	switch action {
	case "draft":
		out, err := c.GenerateDraft(ctx, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	case "summary":
		out, err := c.Summarize(ctx, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	case "polish":
		out, err := c.PolishContent(ctx, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	case "tags":
		out, err := c.GenerateTags(ctx, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, strings.Join(out, ", "))
	case "titles":
		out, err := c.SuggestTitles(ctx, text)
		if err != nil {
			return err
		}
		for _, t := range out {
			fmt.Fprintln(w, t)
		}
	default:
		return fmt.Errorf("unknown assist action %q", action)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
