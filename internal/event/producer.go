package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/homevista/brokerage/internal/domain"
	pkgkafka "github.com/homevista/brokerage/pkg/kafka"
)

// Kafka topics for brokerage domain events.
const (
	TopicUserRegistered  = "brokerage.user.registered"
	TopicPropertyCreated = "brokerage.property.created"
	TopicPropertyUpdated = "brokerage.property.updated"
	TopicPropertyDeleted = "brokerage.property.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeUser     = "user"
	AggregateTypeProperty = "property"
)

// Source identifier for events originating from this service.
const SourceBrokerage = "brokerage-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// PropertyEventData is the payload for property lifecycle events.
type PropertyEventData struct {
	ID          string  `json:"id"`
	AgentID     string  `json:"agent_id"`
	Title       string  `json:"title"`
	ListingType string  `json:"listing_type"`
	Status      string  `json:"status"`
	Price       float64 `json:"price"`
	City        string  `json:"city"`
	ImageCount  int     `json:"image_count"`
	VideoCount  int     `json:"video_count"`
}

// PropertyDeletedData is the payload for a property.deleted event.
type PropertyDeletedData struct {
	ID string `json:"id"`
}

// Producer publishes brokerage domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new domain event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceBrokerage, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishPropertyCreated publishes a property.created event.
func (p *Producer) PublishPropertyCreated(ctx context.Context, property *domain.Property) error {
	return p.publishProperty(ctx, TopicPropertyCreated, property)
}

// PublishPropertyUpdated publishes a property.updated event.
func (p *Producer) PublishPropertyUpdated(ctx context.Context, property *domain.Property) error {
	return p.publishProperty(ctx, TopicPropertyUpdated, property)
}

func (p *Producer) publishProperty(ctx context.Context, topic string, property *domain.Property) error {
	data := PropertyEventData{
		ID:          property.ID,
		AgentID:     property.AgentID,
		Title:       property.Title,
		ListingType: property.ListingType,
		Status:      property.Status,
		Price:       property.Price,
		City:        property.City,
		ImageCount:  len(property.Images),
		VideoCount:  len(property.Videos),
	}

	event, err := pkgkafka.NewEvent(topic, property.ID, AggregateTypeProperty, SourceBrokerage, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published property event",
		slog.String("topic", topic),
		slog.String("property_id", property.ID),
	)

	return nil
}

// PublishPropertyDeleted publishes a property.deleted event.
func (p *Producer) PublishPropertyDeleted(ctx context.Context, id string) error {
	data := PropertyDeletedData{ID: id}

	event, err := pkgkafka.NewEvent(TopicPropertyDeleted, id, AggregateTypeProperty, SourceBrokerage, data)
	if err != nil {
		return fmt.Errorf("create property.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPropertyDeleted, event); err != nil {
		return fmt.Errorf("publish property.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published property.deleted event",
		slog.String("property_id", id),
	)

	return nil
}
