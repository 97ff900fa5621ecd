// Package test contains the container-backed integration suite. It runs
// the full service wiring: a Postgres-backed state store and Kafka
// notification delivery, against real containers.
package test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/apiforge-io/apiforge/core/backend"
	"github.com/apiforge-io/apiforge/core/client"
	"github.com/apiforge-io/apiforge/core/csql"
	"github.com/apiforge-io/apiforge/core/notify"
	"github.com/apiforge-io/apiforge/core/store"
)

// IntegrationTestSuite boots Postgres, Zookeeper and Kafka in containers
// and wires a backend the same way services/builder does. Tests talk to
// the backend through the in-process client.
type IntegrationTestSuite struct {
	suite.Suite
	Backend *backend.Backend
	Client  client.Client

	network           testcontainers.Network
	postgresContainer testcontainers.Container
	kafkaContainer    testcontainers.Container
	kafkaConn         *kafka.Conn
	kafkaAddr         string
	dbConn            *csql.DB
	router            *mux.Router
	notifier          *notify.KafkaNotifier
}

// SkipWithoutDocker skips the suite unless APIFORGE_TEST_DOCKER is set,
// so the regular test run does not require a docker daemon.
func (s *IntegrationTestSuite) SkipWithoutDocker() {
	if os.Getenv("APIFORGE_TEST_DOCKER") == "" {
		s.T().Skip("set APIFORGE_TEST_DOCKER to run container-backed tests")
	}
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.SkipWithoutDocker()
	ctx := context.Background()

	networkName := fmt.Sprintf("apiforge-test-network_%d", time.Now().Unix())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{
			Name:           networkName,
			CheckDuplicate: true,
		},
	})
	s.Require().NoError(err)
	s.network = network

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"postgres"}},
		WaitingFor:     wait.ForListeningPort("5432/tcp"),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	s.Require().NoError(err)
	s.postgresContainer = pgC

	pgHost, err := pgC.Host(ctx)
	s.Require().NoError(err)
	pgPort, err := pgC.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	zooReq := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-zookeeper:7.5.0",
		ExposedPorts: []string{"2181/tcp"},
		Env: map[string]string{
			"ZOOKEEPER_CLIENT_PORT": "2181",
			"ZOOKEEPER_TICK_TIME":   "2000",
		},
		WaitingFor:     wait.ForListeningPort("2181/tcp"),
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"zookeeper"}},
	}
	_, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: zooReq,
		Started:          true,
	})
	s.Require().NoError(err)

	kafkaReq := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-kafka:7.5.0",
		ExposedPorts: []string{"9092:9092/tcp", "29092:29092/tcp"},
		Env: map[string]string{
			"KAFKA_BROKER_ID":                        "1",
			"KAFKA_ZOOKEEPER_CONNECT":                "zookeeper:2181",
			"KAFKA_LISTENERS":                        "PLAINTEXT://0.0.0.0:9092,PLAINTEXT_HOST://0.0.0.0:29092",
			"KAFKA_ADVERTISED_LISTENERS":             "PLAINTEXT://localhost:9092,PLAINTEXT_HOST://localhost:29092",
			"KAFKA_LISTENER_SECURITY_PROTOCOL_MAP":   "PLAINTEXT:PLAINTEXT,PLAINTEXT_HOST:PLAINTEXT",
			"KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR": "1",
			"ALLOW_PLAINTEXT_LISTENER":               "yes",
		},
		WaitingFor:     wait.ForLog("started (kafka.server.KafkaServer)"),
		Networks:       []string{networkName},
		NetworkAliases: map[string][]string{networkName: {"kafka"}},
	}
	kafkaC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: kafkaReq,
		Started:          true,
	})
	s.Require().NoError(err)
	s.kafkaContainer = kafkaC

	kafkaHost, err := kafkaC.Host(ctx)
	s.Require().NoError(err)
	kafkaPort, err := kafkaC.MappedPort(ctx, "9092")
	s.Require().NoError(err)
	s.kafkaAddr = fmt.Sprintf("%s:%s", kafkaHost, kafkaPort.Port())

	s.kafkaConn, err = kafka.Dial("tcp", s.kafkaAddr)
	s.Require().NoError(err)
	err = s.kafkaConn.CreateTopics(kafka.TopicConfig{
		Topic:             notify.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	s.Require().NoError(err)

	dsn := fmt.Sprintf("host=%s port=%s user=testuser password=testpass dbname=testdb sslmode=disable",
		pgHost, pgPort.Port())
	s.dbConn, err = csql.OpenWithSchema(dsn, "apiforge_integration")
	s.Require().NoError(err)

	pg, err := store.NewPGStore(s.dbConn)
	s.Require().NoError(err)

	s.notifier = notify.NewKafkaNotifier([]string{s.kafkaAddr})
	s.router = mux.NewRouter()
	s.Backend = backend.MustNew(&backend.Builder{
		Store:    pg,
		Router:   s.router,
		Notifier: s.notifier,
	})
	s.Client = client.NewWithRouter(s.router)
}

// RestartBackend builds a second backend on the same database, the way
// a service restart would.
func (s *IntegrationTestSuite) RestartBackend() *backend.Backend {
	pg, err := store.NewPGStore(s.dbConn)
	s.Require().NoError(err)
	return backend.MustNew(&backend.Builder{
		Store:  pg,
		Router: mux.NewRouter(),
	})
}

// NewNotificationReader returns a reader positioned at the beginning of
// the notification topic.
func (s *IntegrationTestSuite) NewNotificationReader() *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:   []string{s.kafkaAddr},
		Topic:     notify.Topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
}

func (s *IntegrationTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.notifier != nil {
		s.notifier.Close()
	}
	if s.dbConn != nil {
		s.dbConn.ClearSchema()
		s.dbConn.Close()
	}
	if s.kafkaConn != nil {
		s.kafkaConn.Close()
	}
	if s.kafkaContainer != nil {
		s.Require().NoError(s.kafkaContainer.Terminate(ctx))
	}
	if s.postgresContainer != nil {
		s.Require().NoError(s.postgresContainer.Terminate(ctx))
	}
	if s.network != nil {
		s.Require().NoError(s.network.Remove(ctx))
	}
}
