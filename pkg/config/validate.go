// Package config loads and validates service configuration.
package config

import (
	"fmt"
	"strings"

	"ticketsale/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var decimal100 = decimal.NewFromInt(100)

// ValidateCore ensures critical configuration is present.
func (c *Config) ValidateCore() error {
	var missing []string

	if strings.TrimSpace(c.Redis.URL) == "" {
		missing = append(missing, "REDIS_URL")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" || c.JWT.Secret == "change-this-secret" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return c.Sale.Validate()
}

// Validate checks the sale parameters the ticket registry is built from.
func (s SaleConfig) Validate() error {
	var invalid []string

	if s.NumTickets <= 0 {
		invalid = append(invalid, "TICKET_COUNT")
	}
	if !s.UnitPrice.IsPositive() {
		invalid = append(invalid, "TICKET_UNIT_PRICE")
	}
	if s.ResaleFeePercent < 0 || s.ResaleFeePercent > 100 {
		invalid = append(invalid, "RESALE_FEE_PERCENT")
	}
	switch s.Refund.Mode {
	case RefundFlat:
		if s.Refund.Value.IsNegative() {
			invalid = append(invalid, "REFUND_FEE")
		}
	case RefundPercent:
		if s.Refund.Value.IsNegative() || s.Refund.Value.GreaterThan(decimal100) {
			invalid = append(invalid, "REFUND_FEE")
		}
	default:
		invalid = append(invalid, "REFUND_MODE")
	}
	if s.ManagerID != "" {
		if _, err := uuid.Parse(s.ManagerID); err != nil {
			invalid = append(invalid, "MANAGER_ID")
		}
	}

	if len(invalid) > 0 {
		return errors.Wrapf(errors.ErrInvalidConfiguration, "%s", strings.Join(invalid, ", "))
	}
	return nil
}
