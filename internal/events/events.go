package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// 领域事件类型
const (
	EventAppointmentStatusChanged = "AppointmentStatusChanged"
	EventWorkOrderCreated         = "WorkOrderCreated"
	EventWorkOrderStatusChanged   = "WorkOrderStatusChanged"
	EventStockChanged             = "StockChanged"
	EventNotificationCreated      = "NotificationCreated"
)

const (
	envelopeVersion = 1
	producerName    = "garage-backend"
)

// Envelope 事件信封，Payload 为具体事件的 JSON
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // 聚合 ID，同时作为分区 key
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope 封装事件
func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("序列化事件 %s 失败: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// ── 事件负载 ──

type AppointmentStatusPayload struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
	MechanicID    string `json:"mechanic_id"`
	Date          string `json:"date"`
	Hour          string `json:"hour"`
	Status        string `json:"status"` // pending | accepted | rejected | cancelled
}

type WorkOrderPayload struct {
	WorkOrderID string `json:"work_order_id"`
	ClientID    string `json:"client_id"`
	MechanicID  string `json:"mechanic_id"`
	VehicleID   string `json:"vehicle_id"`
	Status      string `json:"status"`
}

type StockChangedPayload struct {
	InventoryItemID string `json:"inventory_item_id"`
	SKU             string `json:"sku"`
	Delta           int    `json:"delta"`
	Quantity        int    `json:"quantity"`
	MinStock        int    `json:"min_stock"`
	LowStock        bool   `json:"low_stock"`
}

type NotificationCreatedPayload struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
}

// ── 发布 ──

// Publisher 领域事件发布接口；实现必须不阻塞调用方
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// NopPublisher 未启用 Kafka 时使用
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(context.Context, Envelope) error { return nil }

// messageProducer pkg/kafka.Producer 的最小接口
type messageProducer interface {
	Publish(key, value []byte, headers ...kafka.Header) error
}

// KafkaPublisher 通过 Kafka 异步投递事件，key 为 CorrelationID
type KafkaPublisher struct {
	producer messageProducer
}

// NewKafkaPublisher 创建 KafkaPublisher
func NewKafkaPublisher(producer messageProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish 序列化信封并放入生产者缓冲区
func (p *KafkaPublisher) Publish(_ context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("序列化事件信封失败: %w", err)
	}
	return p.producer.Publish(
		[]byte(env.CorrelationID),
		value,
		kafka.Header{Key: "event_type", Value: []byte(env.EventType)},
	)
}
