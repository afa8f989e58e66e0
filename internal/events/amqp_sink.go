package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSink は予約イベントをRabbitMQキューへ発行するシンク
type AMQPSink struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewAMQPSink は接続を確立し、キューを宣言してシンクを作成する
// キューを先に宣言しておくことで、インフラ不在でpublishが失敗しないようにする
func NewAMQPSink(url, queue string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("AMQP接続に失敗: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("AMQPチャンネル作成に失敗: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("キュー宣言に失敗 (%s): %w", queue, err)
	}
	return &AMQPSink{conn: conn, ch: ch, queue: queue}, nil
}

// Emit はイベントをJSONで発行する
func (s *AMQPSink) Emit(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	return s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Close はチャンネルと接続を閉じる
func (s *AMQPSink) Close() error {
	if err := s.ch.Close(); err != nil {
		return err
	}
	return s.conn.Close()
}

var _ Sink = (*AMQPSink)(nil)
