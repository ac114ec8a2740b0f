package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	GovernanceOwner    string
	GovernanceMultisig string

	VoteDelay        time.Duration
	VoteDuration     time.Duration
	TimelockDuration time.Duration
	MaxDelegators    int

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	EnableStakingWeightConsumer bool
	StakingConsumerGroup        string
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "governance-engine"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		GovernanceOwner:    strings.TrimSpace(os.Getenv("GOVERNANCE_OWNER")),
		GovernanceMultisig: strings.TrimSpace(os.Getenv("GOVERNANCE_MULTISIG")),

		VoteDelay:        envDuration("GOVERNANCE_VOTE_DELAY", time.Hour),
		VoteDuration:     envDuration("GOVERNANCE_VOTE_DURATION", 72*time.Hour),
		TimelockDuration: envDuration("GOVERNANCE_TIMELOCK_DURATION", 24*time.Hour),
		MaxDelegators:    envInt("GOVERNANCE_MAX_DELEGATORS", 100),

		OutboxPollInterval: envDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),

		EnableStakingWeightConsumer: envBool("ENABLE_STAKING_WEIGHT_CONSUMER", true),
		StakingConsumerGroup:        strings.TrimSpace(os.Getenv("STAKING_CONSUMER_GROUP")),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
