package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/recommend"
	catalogrepo "github.com/kailas-cloud/prodsearch/internal/repository/catalog"
)

const loadChunkSize = 500

func newLoadCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load catalog data into Redis",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "products FILE",
			Short: "Load products from a JSON array into the Redis catalog",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				records, err := readFile(args[0], readRecords)
				if err != nil {
					return err
				}
				return withApp(cmd.Context(), c, func(ctx context.Context, a *app) error {
					for start := 0; start < len(records); start += loadChunkSize {
						end := min(start+loadChunkSize, len(records))
						if err := a.products.Put(ctx, records[start:end]); err != nil {
							return fmt.Errorf("load products [%d:%d]: %w", start, end, err)
						}
					}
					c.logger.Info("Products loaded", zap.Int("count", len(records)))
					fmt.Fprintf(cmd.OutOrStdout(), "loaded %d products\n", len(records))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "profiles FILE",
			Short: `Load {"users": {id: [..]}, "items": {id: [..]}} recommendation factors`,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := readFile(args[0], readFactors)
				if err != nil {
					return err
				}
				return withApp(cmd.Context(), c, func(ctx context.Context, a *app) error {
					for i := range data.profiles {
						if err := a.profiles.SaveProfile(ctx, &data.profiles[i]); err != nil {
							return fmt.Errorf("load profiles: %w", err)
						}
					}
					if len(data.items) > 0 {
						if err := a.profiles.SaveItemFactors(ctx, data.items); err != nil {
							return fmt.Errorf("load item factors: %w", err)
						}
					}
					fmt.Fprintf(cmd.OutOrStdout(), "loaded %d profiles, %d item factors\n",
						len(data.profiles), len(data.items))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove ID...",
			Short: "Remove products from the Redis catalog",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), c, func(ctx context.Context, a *app) error {
					if err := a.products.Delete(ctx, args...); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %d products\n", len(args))
					return nil
				})
			},
		},
	)
	return cmd
}

func withApp(ctx context.Context, c *cli, fn func(context.Context, *app) error) error {
	a, err := newApp(ctx, &c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// readRecords decodes a JSON array of product objects. Values keep their
// text form; lists and nested objects are re-encoded as JSON so the catalog
// decoder sees exactly what a scraped export would contain.
func readRecords(r io.Reader) ([]product.Record, error) {
	var raw []map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	out := make([]product.Record, 0, len(raw))
	for i, obj := range raw {
		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			s, err := fieldText(v)
			if err != nil {
				return nil, fmt.Errorf("product %d field %q: %w", i, k, err)
			}
			fields[k] = s
		}
		if _, ok := fields["id"]; !ok {
			fields["id"] = fields["product_id"]
		}
		out = append(out, catalogrepo.RecordFromFields(fields))
	}
	return out, nil
}

func fieldText(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

type factorFile struct {
	profiles []recommend.Profile
	items    map[string][]float32
}

func readFactors(r io.Reader) (factorFile, error) {
	var raw struct {
		Users map[string][]float32 `json:"users"`
		Items map[string][]float32 `json:"items"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return factorFile{}, fmt.Errorf("decode factors: %w", err)
	}

	out := factorFile{items: raw.Items}
	for id, factors := range raw.Users {
		p, err := recommend.NewProfile(id, factors)
		if err != nil {
			return factorFile{}, fmt.Errorf("profile %s: %w", id, err)
		}
		out.profiles = append(out.profiles, p)
	}
	return out, nil
}
