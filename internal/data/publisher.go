package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bonanza/encoding"
	"bonanza/internal/biz"
	"bonanza/internal/conf"

	"github.com/streadway/amqp"
	"github.com/yola1107/kratos/v2/log"
)

const (
	_defaultExchange = "bonanza.events"
	_publishBuffer   = 256
)

// Publisher forwards bus events to a rabbitmq exchange, routed by event kind.
// It runs as an app server so it starts and stops with the process.
type Publisher struct {
	conn     *amqp.Connection
	exchange string
	bus      *biz.Bus
	log      *log.Helper

	mu     sync.Mutex
	cancel func()
	done   chan struct{}
}

func NewPublisher(c *conf.Data, d *Data, bus *biz.Bus, logger log.Logger) *Publisher {
	exchange := _defaultExchange
	if c.Rabbitmq != nil && c.Rabbitmq.Exchange != "" {
		exchange = c.Rabbitmq.Exchange
	}
	return &Publisher{
		conn:     d.mq,
		exchange: exchange,
		bus:      bus,
		log:      log.NewHelper(log.With(logger, "module", "data/publisher")),
	}
}

func (p *Publisher) Start(ctx context.Context) error {
	if p.conn == nil {
		return nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange, // 交换机名称
		"topic",    // 类型
		true,       // 持久化
		false,      // 自动删除
		false,      // 内部
		false,      // 无等待
		nil,        // 参数
	); err != nil {
		ch.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	events, cancel := p.bus.Subscribe(_publishBuffer)
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer ch.Close()
		for e := range events {
			if err := p.publish(ch, e); err != nil {
				p.log.Errorf("publish %s: %v", e.Kind, err)
			}
		}
	}()
	p.log.Infof("publishing events to exchange %s", p.exchange)
	return nil
}

func (p *Publisher) publish(ch *amqp.Channel, e biz.Event) error {
	body, err := encoding.Marshal(e)
	if err != nil {
		return err
	}
	return ch.Publish(
		p.exchange,     // 交换机
		string(e.Kind), // 路由键
		false,          // 强制
		false,          // 立即
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (p *Publisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
