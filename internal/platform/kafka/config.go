package kafka

import (
	"time"

	"etatcivil/internal/platform/config"
	"etatcivil/internal/platform/kafka/producer"
)

// ProducerConfig maps service configuration onto producer settings, filling
// defaults for unset fields.
func ProducerConfig(cfg config.KafkaConfig) producer.Config {
	out := producer.Config{
		Brokers:         cfg.Brokers,
		Acks:            cfg.Acks,
		Retries:         cfg.Retries,
		DeliveryTimeout: cfg.DeliveryTimeout,
	}
	if out.Acks == "" {
		out.Acks = "all"
	}
	if out.Retries <= 0 {
		out.Retries = 3
	}
	if out.DeliveryTimeout <= 0 {
		out.DeliveryTimeout = 30 * time.Second
	}
	return out
}
