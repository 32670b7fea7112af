package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const sampleConfig = `
service:
  id: ledger-test
  environment: staging
dependencies:
  postgres_url: postgres://file/ledger
  kafka_brokers: [" broker-1:9092 ", ""]
ledger:
  platform_fee_bps: 250
  default_currency: kes
  sweep_interval_minutes: 30
  default_gateway: transferhub
  gateways:
    - name: TransferHub
      base_url: https://api.example.test
      transfer_fee: 20
`

func TestLoadConfigFileThenEnvironment(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("PLATFORM_FEE_BPS", "300")
	t.Setenv("TRANSFERHUB_SECRET_KEY", "sk_test")
	t.Setenv("OPERATOR_KEYS", "ops:hash-a, audit:hash-b")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "ledger-test", cfg.ServiceID)
	require.Equal(t, "staging", cfg.Environment)
	require.Equal(t, "postgres://file/ledger", cfg.DatabaseURL)
	require.Equal(t, []string{"broker-1:9092"}, cfg.KafkaBrokers)
	require.EqualValues(t, 300, cfg.PlatformFeeBps)
	require.Equal(t, "KES", cfg.DefaultCurrency)
	require.Equal(t, 30*time.Minute, cfg.SweepInterval)
	require.Len(t, cfg.Gateways, 1)
	require.Equal(t, "transferhub", cfg.Gateways[0].Name)
	require.Equal(t, "sk_test", cfg.Gateways[0].SecretKey)
	require.Equal(t, map[string]int64{"transferhub": 20}, cfg.TransferFees())
	require.Equal(t, []string{"ops:hash-a", "audit:hash-b"}, cfg.OperatorKeys)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("DB_URL", "postgres://env/ledger")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.EqualValues(t, 300, cfg.PlatformFeeBps)
	require.Equal(t, time.Hour, cfg.SweepInterval)
	require.Equal(t, "ledger.alerts", cfg.KafkaTopicAlerts)
	require.Equal(t, "ledger.payout_completed", cfg.TopicByEvent()["payout.completed"])
}

func TestValidateRejects(t *testing.T) {
	base := Config{
		DatabaseURL:    "postgres://x",
		PlatformFeeBps: 300,
		Environment:    "development",
		Gateways:       []GatewayConfig{{Name: "transferhub", TransferFee: 20}},
	}
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"missing database": func(c *Config) { c.DatabaseURL = "" },
		"fee above 100%":   func(c *Config) { c.PlatformFeeBps = 10_001 },
		"negative fee":     func(c *Config) { c.PlatformFeeBps = -1 },
		"negative transfer fee": func(c *Config) {
			c.Gateways = []GatewayConfig{{Name: "transferhub", TransferFee: -5}}
		},
		"unknown default gateway": func(c *Config) { c.DefaultGateway = "mpesa" },
		"sandbox in production": func(c *Config) {
			c.SandboxFallback = true
			c.Environment = "production"
		},
		"unsigned push in production": func(c *Config) {
			c.Environment = "production"
			c.CardWebhookSecret = "card"
			c.PayoutWebhookSecret = "payout"
		},
		"unsigned card in production": func(c *Config) {
			c.Environment = "production"
			c.PushWebhookSecret = "push"
			c.PayoutWebhookSecret = "payout"
		},
	}
	production := base
	production.Environment = "production"
	production.CardWebhookSecret = "card"
	production.PushWebhookSecret = "push"
	production.PayoutWebhookSecret = "payout"
	require.NoError(t, production.Validate())

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			cfg.Gateways = append([]GatewayConfig(nil), base.Gateways...)
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
