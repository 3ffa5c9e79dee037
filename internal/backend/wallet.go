package backend

import (
	"context"

	"github.com/dwikikusuma/pos-payments/internal/wallet"
)

func (c *Client) NodeInfo(ctx context.Context) (wallet.NodeInfo, error) {
	var out wallet.NodeInfo
	err := c.do(ctx, "GET", "/wallet/info", nil, &out)
	return out, err
}

func (c *Client) IncomingTransactions(ctx context.Context) ([]wallet.Transaction, error) {
	return c.transactions(ctx, "/wallet/transactions/incoming", wallet.DirectionIncoming)
}

func (c *Client) OutgoingTransactions(ctx context.Context) ([]wallet.Transaction, error) {
	return c.transactions(ctx, "/wallet/transactions/outgoing", wallet.DirectionOutgoing)
}

func (c *Client) transactions(ctx context.Context, path, dir string) ([]wallet.Transaction, error) {
	var out []wallet.Transaction
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Direction = dir
	}
	return out, nil
}
