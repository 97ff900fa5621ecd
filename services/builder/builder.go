package main

import (
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/apiforge-io/apiforge/core/backend"
	"github.com/apiforge-io/apiforge/core/csql"
	"github.com/apiforge-io/apiforge/core/logger"
	"github.com/apiforge-io/apiforge/core/notify"
	"github.com/apiforge-io/apiforge/core/store"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres password=docker dbname=postgres sslmode=disable"
// for a Postgres-backed state, or leave it empty to use plain files
// under DATA_DIR.
type Service struct {
	Postgres     string   `env:"POSTGRES,optional" description:"the connection string for the Postgres DB"`
	DataDir      string   `env:"DATA_DIR,default=data" description:"directory for the file-backed state"`
	Port         string   `env:"PORT,default=3000" description:"the port to listen on"`
	KafkaBrokers []string `env:"KAFKA_BROKERS,optional" description:"the connection strings for the Kafka brokers"`
	LogLevel     string   `env:"LOG_LEVEL,default=info" description:"the log level"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}

	logLevel, err := logrus.ParseLevel(service.LogLevel)
	if err != nil {
		panic(err)
	}
	logger.InitLogger(logLevel)
	rlog := logger.Default()

	var st store.Store
	if service.Postgres != "" {
		db, err := csql.OpenWithSchema(service.Postgres, "builder")
		if err != nil {
			panic(err)
		}
		defer db.Close()
		st, err = store.NewPGStore(db)
		if err != nil {
			panic(err)
		}
		rlog.Infoln("state store: postgres")
	} else {
		st, err = store.NewFileStore(service.DataDir)
		if err != nil {
			panic(err)
		}
		rlog.WithField("data_dir", service.DataDir).Infoln("state store: files")
	}

	var notifier backend.Notifier
	if len(service.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(service.KafkaBrokers)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		rlog.WithField("brokers", service.KafkaBrokers).Infoln("notifications: kafka")
	}

	router := mux.NewRouter()
	backend.MustNew(&backend.Builder{
		Store:    st,
		Router:   router,
		Notifier: notifier,
	})

	handler := handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type", "X-API-Key"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedOrigins([]string{"*"}),
	)(router)

	log.Println("listen on port :" + service.Port)
	if err := http.ListenAndServe(":"+service.Port, handler); err != nil {
		panic(err)
	}
}
