package broker

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/codeready-toolchain/thoughtflow/pkg/config"
)

// EnsureTopics creates the work and DLQ topics if they do not already exist,
// using the configured partition count and replication factor for the work
// topic and a single partition for the DLQ [orig §6.2].
func EnsureTopics(ctx context.Context, cfg *config.BrokerConfig) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(cfg.BootstrapServers...))
	if err != nil {
		return fmt.Errorf("admin client: %w", err)
	}
	defer client.Close()

	adm := kadm.NewClient(client)
	defer adm.Close()

	resp, err := adm.CreateTopics(ctx, int32(cfg.Partitions), int16(cfg.ReplicationFactor), nil, cfg.WorkTopic)
	if err != nil {
		return fmt.Errorf("create work topic: %w", err)
	}
	if err := firstNonExistsErr(resp); err != nil {
		return err
	}

	resp, err = adm.CreateTopics(ctx, 1, int16(cfg.ReplicationFactor), nil, cfg.DLQTopic)
	if err != nil {
		return fmt.Errorf("create DLQ topic: %w", err)
	}
	return firstNonExistsErr(resp)
}

func firstNonExistsErr(resp kadm.CreateTopicResponses) error {
	for _, r := range resp {
		if r.Err != nil && r.Err.Error() != kerr.TopicAlreadyExists.Error() {
			return fmt.Errorf("topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
