package digitalocean

import (
	"context"
	"fmt"

	"github.com/digitalocean/godo"
)

type Balance struct {
	MonthToDateBalance string `json:"monthToDateBalance"`
	AccountBalance     string `json:"accountBalance"`
	MonthToDateUsage   string `json:"monthToDateUsage"`
	GeneratedAt        string `json:"generatedAt"`
}

type client struct {
	api *godo.Client
}

func NewClient(token string) *client {
	return &client{
		api: godo.NewFromToken(token),
	}
}

// GetBalance fetches the hosting account balance for the usage endpoint.
func (c *client) GetBalance(ctx context.Context) (*Balance, error) {
	b, _, err := c.api.Balance.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching balance: %w", err)
	}

	return &Balance{
		MonthToDateBalance: b.MonthToDateBalance,
		AccountBalance:     b.AccountBalance,
		MonthToDateUsage:   b.MonthToDateUsage,
		GeneratedAt:        b.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}
