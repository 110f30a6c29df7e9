package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const sellerSaleQueue = "seller.sale.notifications"

// sellerSaleMessage is the payload delivered to the notification workers.
type sellerSaleMessage struct {
	SellerID    uuid.UUID `json:"seller_id"`
	OrderID     uuid.UUID `json:"order_id"`
	BuyerName   string    `json:"buyer_name"`
	ProductName string    `json:"product_name"`
	Amount      float64   `json:"amount"`
	SentAt      time.Time `json:"sent_at"`
}

// rabbitNotifier publishes seller sale notifications onto a durable queue.
// Delivery is fire and forget: the caller logs and swallows any error.
type rabbitNotifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitNotifier(url string) (SellerNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		sellerSaleQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare notification queue: %w", err)
	}

	return &rabbitNotifier{conn: conn, channel: ch}, nil
}

func (n *rabbitNotifier) NotifySellerOfSale(ctx context.Context, sellerID uuid.UUID, buyerName, productName string, amount float64, orderID uuid.UUID) error {
	body, err := json.Marshal(sellerSaleMessage{
		SellerID:    sellerID,
		OrderID:     orderID,
		BuyerName:   buyerName,
		ProductName: productName,
		Amount:      amount,
		SentAt:      time.Now(),
	})
	if err != nil {
		return err
	}

	return n.channel.PublishWithContext(ctx,
		"",              // default exchange
		sellerSaleQueue, // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
}

// Close releases the channel and connection.
func (n *rabbitNotifier) Close() error {
	if err := n.channel.Close(); err != nil {
		n.conn.Close()
		return err
	}
	return n.conn.Close()
}
