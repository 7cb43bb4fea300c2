//go:build integration

package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"etatcivil/internal/platform/kafka/producer"
	"etatcivil/pkg/platform/outbox"
	outboxpostgres "etatcivil/pkg/platform/outbox/store/postgres"
	"etatcivil/pkg/platform/outbox/worker"
	"etatcivil/pkg/testutil/containers"
)

type WorkerIntegrationSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	kafka    *containers.KafkaContainer
	store    *outboxpostgres.Store
	producer *producer.Producer
}

func TestWorkerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(WorkerIntegrationSuite))
}

func (s *WorkerIntegrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.kafka = mgr.GetKafka(s.T())
	s.store = outboxpostgres.New(s.postgres.DB)

	prod, err := producer.New(producer.Config{
		Brokers:         s.kafka.Brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *WorkerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

func (s *WorkerIntegrationSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox"))
}

// Entries written to the outbox reach Kafka and are marked processed.
func (s *WorkerIntegrationSuite) TestOutboxToKafkaFlow() {
	ctx := context.Background()
	topic := "test-declaration-events"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	declarationID := uuid.NewString()
	entry, err := outbox.NewJSONEntry("declaration", declarationID, "declaration.sent_to_hospital",
		map[string]string{"to": "pending_hospital_verification"}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Append(ctx, entry))

	w := worker.New(s.store, s.producer,
		worker.WithTopic(topic),
		worker.WithPollInterval(50*time.Millisecond),
	)
	w.Start()

	s.Eventually(func() bool {
		count, _ := s.store.CountPending(ctx)
		return count == 0
	}, 10*time.Second, 50*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s.Require().NoError(w.Stop(stopCtx))

	consumer, err := s.kafka.NewConsumer(ctx, "test-declaration-consumer", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForMessage(ctx, consumer, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == declarationID
	})
	s.Require().NotNil(record)

	headers := make(map[string]string)
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal("declaration", headers["aggregate_type"])
	s.Equal("declaration.sent_to_hospital", headers["event_type"])
	s.Equal(entry.ID.String(), headers["event_id"])
}

// A transaction that rolls back leaves no outbox entry behind.
func (s *WorkerIntegrationSuite) TestAppendJoinsTransaction() {
	ctx := context.Background()

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	entry := outbox.NewEntry("declaration", uuid.NewString(), "declaration.rejected", []byte(`{}`), time.Now())
	s.Require().NoError(s.store.WithTx(tx).Append(ctx, entry))
	s.Require().NoError(tx.Rollback())

	count, err := s.store.CountPending(ctx)
	s.Require().NoError(err)
	s.Zero(count)
}
