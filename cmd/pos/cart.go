package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	cartapp "github.com/dwikikusuma/pos-payments/internal/cart/app"
	cartdomain "github.com/dwikikusuma/pos-payments/internal/cart/domain"
	cartsqlite "github.com/dwikikusuma/pos-payments/internal/cart/infra/sqlite"
)

func newCartCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect or clear the persisted cart",
	}

	withCart := func(fn func(cmd *cobra.Command, svc *cartapp.Service) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := cartsqlite.Open(cfg.CartDBPath)
			if err != nil {
				return fmt.Errorf("open cart store: %w", err)
			}
			defer store.Close()

			svc := cartapp.NewService(store, newLogger(cfg, "pos-cli"))
			svc.Hydrate(cmd.Context())
			return fn(cmd, svc)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the cart with its totals as JSON",
			RunE: withCart(func(cmd *cobra.Command, svc *cartapp.Service) error {
				return printCart(cmd, svc.Get())
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart and drop its discount",
			RunE: withCart(func(cmd *cobra.Command, svc *cartapp.Service) error {
				svc.Reset(cmd.Context())
				return printCart(cmd, svc.Get())
			}),
		},
	)
	return cmd
}

func printCart(cmd *cobra.Command, c cartdomain.Cart) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"items":          c.Items,
		"discount":       c.Discount,
		"subtotal":       c.Subtotal(),
		"discountAmount": c.DiscountAmount(),
		"total":          c.Total(),
	})
}
