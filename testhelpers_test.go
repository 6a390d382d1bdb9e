//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/homelet/service-classifieds/internal/adapter"
	"github.com/homelet/service-classifieds/internal/application"
	classifiedsEvents "github.com/homelet/service-classifieds/internal/events"
	"github.com/homelet/service-classifieds/internal/repository"
	"github.com/homelet/service-classifieds/internal/saga"
	"github.com/homelet/service-classifieds/internal/ws"
	"github.com/homelet/service-classifieds/pkg/events"
	"github.com/homelet/service-classifieds/pkg/kafka"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// classifiedsStack holds the wired-up service components.
type classifiedsStack struct {
	Payments        *application.PaymentService
	Verifier        *application.VerificationService
	Promos          *application.PromoService
	Quota           *application.QuotaService
	Notifications   *application.NotificationService
	Gateway         *adapter.MockPaymentGateway
	Hub             *ws.Hub
	Consumer        *classifiedsEvents.NotificationConsumer
	CleanupConsumer func()
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_classifieds",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_classifieds sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.UserModel{},
		&repository.DeviceTokenModel{},
		&repository.PromoModel{},
		&repository.PlanModel{},
		&repository.UserSubscriptionModel{},
		&repository.ListingPaymentModel{},
		&repository.SubscriptionPaymentModel{},
		&repository.PropertyModel{},
		&repository.FavoriteModel{},
		&repository.MessageModel{},
		&repository.NotificationModel{},
	))

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, events.TopicClassifiedsEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupClassifiedsStack wires up the full service stack against real
// containers, with the gateway mocked.
func setupClassifiedsStack(t *testing.T, db *gorm.DB, brokers []string) *classifiedsStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	userRepo := repository.NewGormUserRepository(db)
	promoRepo := repository.NewGormPromoRepository(db)
	planRepo := repository.NewGormPlanRepository(db)
	subRepo := repository.NewGormSubscriptionRepository(db)
	listingPayRepo := repository.NewGormListingPaymentRepository(db)
	subPayRepo := repository.NewGormSubscriptionPaymentRepository(db)
	propertyRepo := repository.NewGormPropertyRepository(db)
	notifRepo := repository.NewGormNotificationRepository(db)

	gateway := adapter.NewMockPaymentGateway(logger)
	producer := kafka.NewProducer(brokers, logger)

	promoSvc := application.NewPromoService(promoRepo, listingPayRepo, subPayRepo, logger)
	quotaSvc := application.NewQuotaService(subRepo, planRepo, propertyRepo, logger)
	checkoutSaga := saga.NewCheckoutSagaService(db, subRepo, subPayRepo, promoRepo, gateway, logger)
	paymentSvc := application.NewPaymentService(db, promoSvc, checkoutSaga, listingPayRepo, subPayRepo, propertyRepo, planRepo, userRepo, logger)
	verifier := application.NewVerificationService(db, gateway, listingPayRepo, subPayRepo, propertyRepo, subRepo, planRepo, producer, logger)
	notifSvc := application.NewNotificationService(notifRepo, logger)

	hub := ws.NewHub(logger)
	groupID := fmt.Sprintf("test-classifieds-%s", uuid.New().String()[:8])
	kafkaConsumer := kafka.NewConsumer(brokers, groupID, events.TopicClassifiedsEvents, logger)
	consumer := classifiedsEvents.NewNotificationConsumer(kafkaConsumer, notifSvc, userRepo, hub, adapter.NoopPushSender{}, logger)

	return &classifiedsStack{
		Payments:        paymentSvc,
		Verifier:        verifier,
		Promos:          promoSvc,
		Quota:           quotaSvc,
		Notifications:   notifSvc,
		Gateway:         gateway,
		Hub:             hub,
		Consumer:        consumer,
		CleanupConsumer: func() { _ = kafkaConsumer.Close() },
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedUser inserts a user row and returns its id.
func seedUser(t *testing.T, db *gorm.DB, username string) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	model := repository.UserModel{
		ID:          userID,
		Username:    username,
		Email:       username + "@example.com",
		AccountType: "regular",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed user")
	return userID
}

// waitForNotification polls the notifications table until the user has one.
func waitForNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, timeout time.Duration) repository.NotificationModel {
	t.Helper()
	var result repository.NotificationModel
	require.Eventually(t, func() bool {
		var model repository.NotificationModel
		err := db.Where("user_id = ?", userID).First(&model).Error
		if err != nil {
			return false
		}
		result = model
		return true
	}, timeout, 200*time.Millisecond, "notification for user %s never arrived", userID)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
