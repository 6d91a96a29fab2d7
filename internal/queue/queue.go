// Package queue publishes jobs to RabbitMQ for out-of-band workers: email
// delivery and transaction enrichment. Publishing is fire-and-forget;
// retry and redelivery are the broker's problem.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/koru-app/koru/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ConfirmEmailPayload is the templated body of a confirmation email job.
// The field names are the contract with the email worker.
type ConfirmEmailPayload struct {
	Name             string `json:"name"`
	Type             string `json:"type"`
	ConfirmationLink string `json:"confirmationLink"`
	ExpirationHours  int    `json:"expirationHours"`
}

// EmailJob is a queued email: recipient, subject and templated payload
type EmailJob struct {
	To      string              `json:"to"`
	Subject string              `json:"subject"`
	Payload ConfirmEmailPayload `json:"payload"`
}

// EnrichmentTask asks the enrichment worker to process an account's
// transactions.
type EnrichmentTask struct {
	AccountID string `json:"account_id"`
}

// Publisher publishes messages to the broker exchanges
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex

	emailExchange   string
	emailRoutingKey string
	taskExchange    string
	taskRoutingKey  string
}

// Dial connects to RabbitMQ and declares the exchanges
func Dial(cfg *config.Config) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.BrokerURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, exchange := range []string{cfg.Broker.EmailExchange, cfg.Broker.TaskExchange} {
		if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	log.Printf("[QUEUE] Connected to broker at %s:%d", cfg.Broker.Host, cfg.Broker.Port)
	return &Publisher{
		conn:            conn,
		ch:              ch,
		emailExchange:   cfg.Broker.EmailExchange,
		emailRoutingKey: cfg.Broker.EmailRoutingKey,
		taskExchange:    cfg.Broker.TaskExchange,
		taskRoutingKey:  cfg.Broker.TaskRoutingKey,
	}, nil
}

// PublishEmail hands an email job to the email exchange
func (p *Publisher) PublishEmail(ctx context.Context, job EmailJob) error {
	return p.publish(ctx, p.emailExchange, p.emailRoutingKey, job)
}

// PublishEnrichment enqueues an enrichment task for an account
func (p *Publisher) PublishEnrichment(ctx context.Context, accountID string) error {
	return p.publish(ctx, p.taskExchange, p.taskRoutingKey, EnrichmentTask{AccountID: accountID})
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s/%s: %w", exchange, routingKey, err)
	}
	return nil
}

// Close shuts down the channel and connection
func (p *Publisher) Close() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
