// Package database provides the MongoDB connection, the cached DataManager and
// the stores used by the moderation core (punishment cases and guild settings).
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrStoreUnavailable is returned while the bot runs without a database
var ErrStoreUnavailable = errors.New("database: not connected")

const (
	connectTimeout   = 5 * time.Second
	reconnectEvery   = 15 * time.Second
	syncWriteTimeout = 5 * time.Second
)

type writeKind int

const (
	writeSet writeKind = iota
	writeDelete
)

func (k writeKind) String() string {
	if k == writeDelete {
		return "delete"
	}
	return "set"
}

// pendingWrite is a settings change made while offline. It is replayed once
// the connection comes back.
type pendingWrite struct {
	collection string
	filter     bson.M
	kind       writeKind
	fields     bson.M
}

// Database owns the Mongo client. While offline it keeps retrying in the
// background, queues settings writes and reports ErrStoreUnavailable to
// case queries.
type Database struct {
	mu          sync.RWMutex
	client      *mongo.Client
	db          *mongo.Database
	connected   bool
	everOnline  bool
	collections map[string]*mongo.Collection
	retry       *time.Ticker
	stop        chan struct{}

	hooksMu sync.Mutex
	hooks   []func()

	queueMu sync.Mutex
	pending []pendingWrite
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init connects the global instance. The returned Database is usable even
// when err is not nil; it keeps reconnecting on its own.
func Init(mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase()
		err = database.Connect(mongoURL, dbName)
	})
	return database, err
}

// Get returns the global database instance
func Get() *Database {
	return database
}

func NewDatabase() *Database {
	return &Database{
		stop:        make(chan struct{}),
		collections: make(map[string]*mongo.Collection),
	}
}

// OnReconnect registers fn to run after the connection is restored and the
// queued writes were replayed
func (d *Database) OnReconnect(fn func()) {
	d.hooksMu.Lock()
	defer d.hooksMu.Unlock()
	d.hooks = append(d.hooks, fn)
}

// Connect dials Mongo. On failure it switches to offline mode and schedules
// reconnection attempts.
func (d *Database) Connect(mongoURL, dbName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}

	logger.System("Intentando conectar a la base de datos...", "DB")

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(mongoURL).
		SetServerSelectionTimeout(connectTimeout))
	if err == nil {
		err = client.Ping(ctx, readpref.Primary())
		if err != nil {
			_ = client.Disconnect(ctx)
		}
	}
	if err != nil {
		logger.Critical(fmt.Sprintf("No se pudo conectar con la base de datos: %v", err), "DB")
		d.goOffline(mongoURL, dbName)
		return err
	}

	d.client = client
	d.db = client.Database(dbName)
	d.collections = make(map[string]*mongo.Collection)
	d.connected = true
	reconnected := d.everOnline
	d.everOnline = true
	if d.retry != nil {
		d.retry.Stop()
		d.retry = nil
	}

	logger.Success("Conectado exitosamente a la base de datos.", "DB")

	go d.restore(reconnected)
	return nil
}

// restore replays offline writes and, after a reconnection, runs the hooks
func (d *Database) restore(reconnected bool) {
	d.replay()
	if !reconnected {
		return
	}
	d.hooksMu.Lock()
	hooks := append([]func(){}, d.hooks...)
	d.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// goOffline must be called with d.mu held
func (d *Database) goOffline(mongoURL, dbName string) {
	if d.connected {
		logger.Warn("Se perdió la conexión con la base de datos. Activando modo offline.", "DB")
	}
	d.connected = false

	if d.retry != nil {
		return
	}
	d.retry = time.NewTicker(reconnectEvery)
	ticks := d.retry.C
	go func() {
		for {
			select {
			case <-ticks:
				logger.Info("Intentando reconectar a la base de datos...", "DB")
				if err := d.Connect(mongoURL, dbName); err == nil {
					return
				}
			case <-d.stop:
				return
			}
		}
	}()
}

// Disconnect stops the reconnection loop and closes the client
func (d *Database) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.retry != nil {
		d.retry.Stop()
		d.retry = nil
	}
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}

	if d.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := d.client.Disconnect(ctx); err != nil {
		return err
	}
	d.connected = false
	logger.Warn("La base de datos ha sido desconectada", "DB")
	return nil
}

// Connected reports whether the last connection attempt succeeded
func (d *Database) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// GetStatus pings the server and returns a label for /utils status
func (d *Database) GetStatus() (string, bool) {
	d.mu.RLock()
	client := d.client
	d.mu.RUnlock()

	if client == nil {
		return "🔴 | Desconectado", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return "🔴 | Desconectado", false
	}
	if n := d.Pending(); n > 0 {
		return fmt.Sprintf("🟡 | En linea (%d escrituras pendientes)", n), true
	}
	return "🟢 | En linea", true
}

// collection returns name, or ErrStoreUnavailable while offline
func (d *Database) collection(name string) (*mongo.Collection, error) {
	d.mu.RLock()
	col, ok := d.collections[name]
	online := d.connected && d.db != nil
	d.mu.RUnlock()
	if !online {
		return nil, ErrStoreUnavailable
	}
	if ok {
		return col, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil, ErrStoreUnavailable
	}
	col = d.db.Collection(name)
	d.collections[name] = col
	return col, nil
}

func (d *Database) enqueue(w pendingWrite) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	d.pending = append(d.pending, w)
	logger.Warn(fmt.Sprintf("DB offline. Escritura '%s' en '%s' encolada (%d pendientes)", w.kind, w.collection, len(d.pending)), "DB")
}

// Pending returns how many offline writes wait for the connection
func (d *Database) Pending() int {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	return len(d.pending)
}

// replay writes the offline queue in order. Failed writes are queued again.
func (d *Database) replay() {
	d.queueMu.Lock()
	writes := d.pending
	d.pending = nil
	d.queueMu.Unlock()

	if len(writes) == 0 {
		return
	}
	logger.System(fmt.Sprintf("Sincronizando %d operaciones pendientes con la DB...", len(writes)), "DB-Sync")

	var failed []pendingWrite
	for _, w := range writes {
		if err := d.apply(w); err != nil {
			logger.Error(fmt.Sprintf("Error al sincronizar '%s' en '%s': %v", w.kind, w.collection, err), "DB-Sync")
			failed = append(failed, w)
		}
	}

	if len(failed) == 0 {
		logger.Success("Sincronización completada exitosamente.", "DB-Sync")
		return
	}
	d.queueMu.Lock()
	d.pending = append(failed, d.pending...)
	d.queueMu.Unlock()
	logger.Warn(fmt.Sprintf("%d operaciones no pudieron sincronizarse y se reintentarán.", len(failed)), "DB-Sync")
}

func (d *Database) apply(w pendingWrite) error {
	col, err := d.collection(w.collection)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), syncWriteTimeout)
	defer cancel()

	switch w.kind {
	case writeDelete:
		_, err = col.DeleteOne(ctx, w.filter)
	default:
		_, err = col.UpdateOne(ctx, w.filter, bson.M{"$set": w.fields}, options.Update().SetUpsert(true))
	}
	return err
}
