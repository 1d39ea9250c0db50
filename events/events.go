package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits ticket lifecycle events to an AMQP topic exchange so
// external tooling (dashboards, escalation bots) can follow the workflow.
// Publishing is best-effort: a broker outage never blocks a ticket.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

type TicketEvent struct {
	Type        string    `json:"type"`
	GuildID     string    `json:"guild_id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	OwnerID     string    `json:"owner_id,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	Category    string    `json:"category,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func Connect(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp exchange: %w", err)
	}
	log.Printf("[Events] Connected, exchange %q", exchange)
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	_ = p.ch.Close()
	_ = p.conn.Close()
}

func (p *Publisher) TicketOpened(guildID, channelID, channelName, ownerID, category string) {
	p.publish("ticket.opened", TicketEvent{
		Type:        "opened",
		GuildID:     guildID,
		ChannelID:   channelID,
		ChannelName: channelName,
		OwnerID:     ownerID,
		Category:    category,
		Timestamp:   time.Now().UTC(),
	})
}

func (p *Publisher) TicketClosed(guildID, channelID, channelName, ownerID, actorID, category string) {
	p.publish("ticket.closed", TicketEvent{
		Type:        "closed",
		GuildID:     guildID,
		ChannelID:   channelID,
		ChannelName: channelName,
		OwnerID:     ownerID,
		ActorID:     actorID,
		Category:    category,
		Timestamp:   time.Now().UTC(),
	})
}

func (p *Publisher) publish(key string, e TicketEvent) {
	if p == nil {
		return
	}
	body, err := Marshal(e)
	if err != nil {
		log.Printf("[Events] marshal %s: %v", key, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   e.Timestamp,
		Body:        body,
	})
	if err != nil {
		log.Printf("[Events] publish %s: %v", key, err)
	}
}

// Marshal is split out so the wire body is testable without a broker.
func Marshal(e TicketEvent) ([]byte, error) {
	return json.Marshal(e)
}
