package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/request"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/result"
)

func newSearchCmd(c *cli) *cobra.Command {
	var (
		k         int
		minRating float64
		maxPrice  float64
	)
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Run one product search against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var minR, maxP *float64
			if cmd.Flags().Changed("min-rating") {
				minR = &minRating
			}
			if cmd.Flags().Changed("max-price") {
				maxP = &maxPrice
			}
			req, err := request.New(strings.Join(args, " "), k, c.cfg.Search.DefaultK, c.cfg.Search.MaxK, minR, maxP)
			if err != nil {
				return fmt.Errorf("invalid search: %w", err)
			}

			return withIndexedApp(cmd.Context(), c, func(ctx context.Context, a *app) error {
				resp, err := a.search.Search(ctx, &req, nil)
				if err != nil {
					return fmt.Errorf("search: %w", err)
				}
				return printRanked(cmd.OutOrStdout(), resp.Results)
			})
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of results (default from config)")
	cmd.Flags().Float64Var(&minRating, "min-rating", 0, "minimum rating (0-5)")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "maximum price")
	return cmd
}

func newAskCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Answer a shopping question from the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndexedApp(cmd.Context(), c, func(ctx context.Context, a *app) error {
				res, err := a.answer.Answer(ctx, strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, res.Text)
				if len(res.Products) > 0 {
					fmt.Fprintln(out)
					return printProducts(out, res.Products)
				}
				return nil
			})
		},
	}
}

// withIndexedApp builds the app and the first snapshot, runs fn, then closes.
func withIndexedApp(ctx context.Context, c *cli, fn func(context.Context, *app) error) error {
	a, err := newApp(ctx, &c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.catalog.Rebuild(ctx); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	return fn(ctx, a)
}

func printRanked(w io.Writer, rs []result.Ranked) error {
	if len(rs) == 0 {
		_, err := fmt.Fprintln(w, "no products found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tTITLE\tPRICE\tRATING\tSCORE")
	for _, r := range rs {
		p := r.Product()
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.1f\t%.4f\n",
			r.Rank(), p.ID(), truncate(p.Title(), 60), p.Price(), p.Rating(), r.BoostedScore())
	}
	return tw.Flush()
}

func printProducts(w io.Writer, ps []product.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tRATING\tURL")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.1f\t%s\n", p.ID(), truncate(p.Title(), 60), p.Price(), p.Rating(), p.URL())
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
