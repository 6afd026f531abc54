package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
)

const (
	connectTimeout = 10 * time.Second
	checkInterval  = 60 * time.Second
)

// Store is the mongodb backed submission history
type Store struct {
	client *mongo.Client
	dbName string

	database        *mongo.Database
	collSubmissions *mongo.Collection

	quit chan struct{}
}

// MongoServerInit connect to mongodb and prepare collections
func MongoServerInit(addrs []string, dbname, user, pass string) (*Store, error) {
	opts := clientOptions(addrs, dbname, user, pass)
	log.Info("[mongodb] connect database start.", "addrs", addrs, "dbName", dbname)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("[mongodb] connect failed: %w", err)
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("[mongodb] ping failed: %w", err)
	}

	s := &Store{
		client: client,
		dbName: dbname,
		quit:   make(chan struct{}),
	}
	s.initCollections()
	log.Info("[mongodb] connect database finished.", "dbName", dbname)
	go s.checkMongoSession()
	return s, nil
}

func clientOptions(addrs []string, dbname, user, pass string) *options.ClientOptions {
	opts := options.Client().
		SetHosts(addrs).
		SetConnectTimeout(connectTimeout).
		SetAppName("calcserver")
	if user != "" {
		opts.SetAuth(options.Credential{
			AuthSource: dbname,
			Username:   user,
			Password:   pass,
		})
	}
	return opts
}

// checkMongoSession the driver reconnects by itself; this only reports
// a server that stays unreachable
func (s *Store) checkMongoSession() {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err := s.client.Ping(ctx, readpref.Primary())
		cancel()
		if err != nil {
			log.Error("[mongodb] session ping error", "dbName", s.dbName, "err", err)
		}
	}
}

// Close disconnects from the server
func (s *Store) Close() error {
	close(s.quit)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		log.Error("[mongodb] disconnect failed", "err", err)
		return err
	}
	log.Info("[mongodb] disconnected", "dbName", s.dbName)
	return nil
}
