package database

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PancyStudios/PancyMod/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMaxCached is the cache size used when NewDataManager gets 0
const DefaultMaxCached = 1000

// lru is a bounded least-recently-used cache of documents by key
type lru[T any] struct {
	mu    sync.Mutex
	limit int
	items map[string]*list.Element
	order *list.List
}

type lruEntry[T any] struct {
	key string
	doc *T
}

func newLRU[T any](limit int) *lru[T] {
	return &lru[T]{limit: limit, items: make(map[string]*list.Element), order: list.New()}
}

func (c *lru[T]) get(key string) (*T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry[T]).doc, true
}

func (c *lru[T]) put(key string, doc *T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		elem.Value.(*lruEntry[T]).doc = doc
		c.order.MoveToFront(elem)
		return
	}
	c.items[key] = c.order.PushFront(&lruEntry[T]{key: key, doc: doc})
	for c.limit > 0 && c.order.Len() > c.limit {
		oldest := c.order.Back()
		delete(c.items, oldest.Value.(*lruEntry[T]).key)
		c.order.Remove(oldest)
	}
}

func (c *lru[T]) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

func (c *lru[T]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *lru[T]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// DataManager caches the documents of one collection that are identified by a
// single field, such as guild settings by guild_id. Writes made while offline
// are queued on the Database and the cached copy is dropped.
type DataManager[T any] struct {
	db         *Database
	collection string
	keyField   string
	cache      *lru[T]
}

// NewDataManager creates a DataManager whose cache is emptied every time db
// reconnects
func NewDataManager[T any](db *Database, collection, keyField string, maxCached int) *DataManager[T] {
	if maxCached <= 0 {
		maxCached = DefaultMaxCached
	}
	dm := &DataManager[T]{
		db:         db,
		collection: collection,
		keyField:   keyField,
		cache:      newLRU[T](maxCached),
	}
	db.OnReconnect(dm.ClearCache)
	return dm
}

func (dm *DataManager[T]) filter(key string) bson.M {
	return bson.M{dm.keyField: key}
}

// Get returns the document for key, nil when it does not exist
func (dm *DataManager[T]) Get(ctx context.Context, key string) (*T, error) {
	if doc, ok := dm.cache.get(key); ok {
		return doc, nil
	}

	col, err := dm.db.collection(dm.collection)
	if err != nil {
		return nil, err
	}

	var doc T
	err = col.FindOne(ctx, dm.filter(key)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", dm.collection, key, err)
	}
	dm.cache.put(key, &doc)
	return &doc, nil
}

// Set upserts fields on the document for key and returns the stored result.
// Offline it queues the write and returns nil, nil.
func (dm *DataManager[T]) Set(ctx context.Context, key string, fields bson.M) (*T, error) {
	col, err := dm.db.collection(dm.collection)
	if errors.Is(err, ErrStoreUnavailable) {
		dm.cache.remove(key)
		dm.db.enqueue(pendingWrite{collection: dm.collection, filter: dm.filter(key), kind: writeSet, fields: fields})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc T
	if err := col.FindOneAndUpdate(ctx, dm.filter(key), bson.M{"$set": fields}, opts).Decode(&doc); err != nil {
		dm.cache.remove(key)
		logger.Error(fmt.Sprintf("Error guardando %s %s: %v", dm.collection, key, err), "DataManager")
		return nil, fmt.Errorf("write %s %s: %w", dm.collection, key, err)
	}
	dm.cache.put(key, &doc)
	return &doc, nil
}

// Delete removes the document for key. Offline it queues the removal.
func (dm *DataManager[T]) Delete(ctx context.Context, key string) error {
	dm.cache.remove(key)

	col, err := dm.db.collection(dm.collection)
	if errors.Is(err, ErrStoreUnavailable) {
		dm.db.enqueue(pendingWrite{collection: dm.collection, filter: dm.filter(key), kind: writeDelete})
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := col.DeleteOne(ctx, dm.filter(key)); err != nil {
		return fmt.Errorf("delete %s %s: %w", dm.collection, key, err)
	}
	return nil
}

// ClearCache drops every cached document
func (dm *DataManager[T]) ClearCache() {
	dm.cache.clear()
	logger.Debug(fmt.Sprintf("Caché de '%s' vaciada", dm.collection), "DataManager")
}

// CacheSize returns how many documents are cached
func (dm *DataManager[T]) CacheSize() int {
	return dm.cache.size()
}
