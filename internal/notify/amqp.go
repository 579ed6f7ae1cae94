package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"quizmaster/internal/domain"
)

// AMQPTransport consumes envelopes from a RabbitMQ topic exchange. Each
// subscription binds its own exclusive queue with the channel as routing key.
type AMQPTransport struct {
	url      string
	exchange string
}

func NewAMQPTransport(url, exchange string) *AMQPTransport {
	return &AMQPTransport{url: url, exchange: exchange}
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
}

func (t *AMQPTransport) Subscribe(_ context.Context, channel string, sub Subscriber) (func() error, error) {
	conn, err := amqp.Dial(t.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	closeAll := func() error {
		_ = ch.Close()
		return conn.Close()
	}

	if err := declareExchange(ch, t.exchange); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	queue, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, channel, t.exchange, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}
	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to consume: %w", err)
	}
	sub.status(true, nil)

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for d := range deliveries {
			sub.OnMessage(d.Body)
		}
		select {
		case amqpErr := <-closed:
			if amqpErr != nil {
				sub.status(false, amqpErr)
				return
			}
		default:
		}
		sub.status(false, nil)
	}()

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() {
			err = closeAll()
			wg.Wait()
		})
		return err
	}, nil
}

// AMQPPublisher publishes submission events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	event      string
	mu         sync.Mutex
}

func NewAMQPPublisher(url, exchange, routingKey, event string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPPublisher{
		conn:       conn,
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		event:      event,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event domain.SubmissionEvent) error {
	raw, err := Encode(p.routingKey, p.event, event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange,   // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        raw,
			Headers: amqp.Table{
				"event_type": p.event,
				"quiz_id":    event.QuizID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
