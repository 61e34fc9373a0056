package management

import (
	"context"
	"time"

	"sessionmgr/internal/broker"
	"sessionmgr/pkg/models"
)

// ConfigEventProducer tells resolver instances that the rule set changed.
type ConfigEventProducer struct {
	producer broker.Producer
	topic    string
}

func NewConfigEventProducer(producer broker.Producer, topic string) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *ConfigEventProducer) PublishSessionRuleEvent(ctx context.Context, action, ruleID, changedBy string) error {
	if p.producer == nil || p.topic == "" {
		return nil
	}

	event := models.ConfigUpdateEvent{
		EventType:   models.EventTypeSessionRuleUpdated,
		ServiceType: models.ServiceTypeSession,
		RuleID:      ruleID,
		Action:      action,
		Timestamp:   time.Now(),
		ChangedBy:   changedBy,
	}

	return p.producer.Publish(ctx, p.topic, event)
}
