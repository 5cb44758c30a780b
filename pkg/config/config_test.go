package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Sale.NumTickets)
	assert.True(t, cfg.Sale.UnitPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 10, cfg.Sale.ResaleFeePercent)
	assert.Equal(t, RefundFlat, cfg.Sale.Refund.Mode)
	assert.True(t, cfg.Sale.Refund.Value.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("TICKET_COUNT", "50")
	t.Setenv("TICKET_UNIT_PRICE", "30")
	t.Setenv("REFUND_MODE", "PERCENT")
	t.Setenv("REFUND_FEE", "2.5")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")

	cfg := Load()

	assert.Equal(t, 50, cfg.Sale.NumTickets)
	assert.True(t, cfg.Sale.UnitPrice.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, RefundPercent, cfg.Sale.Refund.Mode)
	assert.True(t, cfg.Sale.Refund.Value.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, "cache:6379", cfg.Redis.URL)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
}

func TestValidateCore_RequiresSecret(t *testing.T) {
	cfg := Load()
	err := cfg.ValidateCore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.JWT.Secret = "s3cret"
	assert.NoError(t, cfg.ValidateCore())
}

func TestSaleConfig_Validate(t *testing.T) {
	valid := SaleConfig{
		NumTickets:       10,
		UnitPrice:        decimal.NewFromInt(100),
		ResaleFeePercent: 10,
		Refund:           RefundPolicy{Mode: RefundFlat, Value: decimal.NewFromInt(5)},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*SaleConfig)
		key    string
	}{
		{"zero tickets", func(s *SaleConfig) { s.NumTickets = 0 }, "TICKET_COUNT"},
		{"zero price", func(s *SaleConfig) { s.UnitPrice = decimal.Zero }, "TICKET_UNIT_PRICE"},
		{"fee over 100", func(s *SaleConfig) { s.ResaleFeePercent = 101 }, "RESALE_FEE_PERCENT"},
		{"unknown refund mode", func(s *SaleConfig) { s.Refund.Mode = "bogus" }, "REFUND_MODE"},
		{"percent over 100", func(s *SaleConfig) {
			s.Refund = RefundPolicy{Mode: RefundPercent, Value: decimal.NewFromInt(120)}
		}, "REFUND_FEE"},
		{"bad manager", func(s *SaleConfig) { s.ManagerID = "not-a-uuid" }, "MANAGER_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
