package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/segmentio/kafka-go"
)

// messageWriter часть kafka.Writer, которой пользуется Producer
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer асинхронно пишет события в Kafka: Publish кладёт сообщение во внутреннюю очередь,
// фоновая горутина отправляет их до вызова Close
type Producer struct {
	log      *slog.Logger
	w        messageWriter
	inbox    chan kafka.Message
	stop     chan struct{}
	closeCh  chan struct{}
	stopOnce sync.Once
}

func NewProducer(log *slog.Logger, brokers []string, topic string, buf int) *Producer {
	return newProducer(log, &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, topic, buf)
}

func newProducer(log *slog.Logger, w messageWriter, topic string, buf int) *Producer {
	return &Producer{
		log:     log.With(slog.String("component", "events/producer"), slog.String("topic", topic)),
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		stop:    make(chan struct{}),
		closeCh: make(chan struct{}),
	}
}

// Start запускает фоновую отправку. Время жизни не привязано к контексту запроса
// или сигнала: отправка идёт, пока не вызван Close
func (p *Producer) Start() {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-p.stop:
				// досылаем то, что уже в очереди
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						if err := p.w.Close(); err != nil {
							p.log.Error("failed to close writer", logger.Err(err))
						}
						return
					}
				}
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("failed to write event", slog.String("key", string(m.Key)), logger.Err(err))
	}
}

// Publish не блокирует обработку запроса: при переполненной очереди событие отбрасывается с ошибкой в логе
func (p *Producer) Publish(_ context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	m := kafka.Message{
		Key:   []byte(env.Key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}
	select {
	case p.inbox <- m:
	default:
		p.log.Error("event queue is full, dropping event", slog.String("event_type", env.EventType))
	}
	return nil
}

// Close досылает очередь, закрывает writer и ждёт фоновую горутину.
// Вызывается после остановки HTTP-сервера, чтобы события последних запросов не терялись
func (p *Producer) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.closeCh
}
