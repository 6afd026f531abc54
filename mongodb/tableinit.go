package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
)

const (
	tbSubmissions string = "Submissions"
)

func (s *Store) initCollections() {
	s.database = s.client.Database(s.dbName)
	s.initCollection(tbSubmissions, &s.collSubmissions, "address", "timestamp")
	s.initCollection(tbSubmissions, &s.collSubmissions, "status")
}

func (s *Store) initCollection(table string, collection **mongo.Collection, indexKey ...string) {
	*collection = s.database.Collection(table)
	if len(indexKey) != 0 {
		createOneIndex(*collection, indexKey...)
	}
}

func createOneIndex(coll *mongo.Collection, indexes ...string) {
	keys := make(bson.D, len(indexes))
	for i, index := range indexes {
		keys[i] = bson.E{Key: index, Value: 1}
	}
	model := mongo.IndexModel{Keys: keys}
	_, err := coll.Indexes().CreateOne(context.Background(), model)
	if err != nil {
		log.Error("[mongodb] create indexes failed", "collection", coll.Name(), "indexes", indexes, "err", err)
	}
}
