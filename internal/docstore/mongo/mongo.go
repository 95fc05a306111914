package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vbonduro/pharmaflow/internal/docstore"
)

const (
	documentsCollection = "documents"
	connectTimeout      = 10 * time.Second
	defaultPollInterval = 2 * time.Second
)

// document is the stored shape: one Mongo document per path, value kept as
// JSON text so it stays readable in the shell.
type document struct {
	Path      string    `bson:"_id"`
	Value     string    `bson:"value"`
	Revision  int64     `bson:"revision"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type changeEvent struct {
	OperationType string    `bson:"operationType"`
	FullDocument  *document `bson:"fullDocument"`
}

type Store struct {
	client       *mongo.Client
	coll         *mongo.Collection
	pollInterval time.Duration
	logger       *slog.Logger
}

// Connect dials uri and pings the server before returning.
func Connect(ctx context.Context, uri, database string, pollInterval time.Duration, logger *slog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	logger.Info("connected to mongo", "database", database)
	return &Store{
		client:       client,
		coll:         client.Database(database).Collection(documentsCollection),
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

func (s *Store) get(ctx context.Context, path string) (docstore.Snapshot, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return docstore.Snapshot{Path: path}, nil
	}
	if err != nil {
		return docstore.Snapshot{}, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	return toSnapshot(doc), nil
}

func toSnapshot(doc document) docstore.Snapshot {
	return docstore.Snapshot{Path: doc.Path, Value: []byte(doc.Value), Revision: doc.Revision}
}

func (s *Store) Put(ctx context.Context, path string, value []byte, expectedRevision int64) (int64, error) {
	now := time.Now().UTC()

	switch {
	case expectedRevision == 0:
		_, err := s.coll.InsertOne(ctx, document{Path: path, Value: string(value), Revision: 1, UpdatedAt: now})
		if mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("%w: %s already exists, expected revision 0", docstore.ErrConflict, path)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to insert document %s: %w", path, err)
		}
		return 1, nil

	case expectedRevision == docstore.AnyRevision:
		var doc document
		err := s.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": path},
			bson.M{
				"$set": bson.M{"value": string(value), "updatedAt": now},
				"$inc": bson.M{"revision": int64(1)},
			},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&doc)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert document %s: %w", path, err)
		}
		return doc.Revision, nil

	default:
		var doc document
		err := s.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": path, "revision": expectedRevision},
			bson.M{
				"$set": bson.M{"value": string(value), "updatedAt": now},
				"$inc": bson.M{"revision": int64(1)},
			},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, fmt.Errorf("%w: %s moved past revision %d", docstore.ErrConflict, path, expectedRevision)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to update document %s: %w", path, err)
		}
		return doc.Revision, nil
	}
}

// Subscribe prefers a change stream. Standalone servers do not support change
// streams, so it falls back to polling the revision.
func (s *Store) Subscribe(ctx context.Context, path string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: path}}}},
	}
	stream, err := s.coll.Watch(subCtx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		s.logger.Info("change streams unavailable, polling instead", "path", path, "error", err)
		stream = nil
	}

	first, err := s.get(subCtx, path)
	if err != nil {
		if stream != nil {
			_ = stream.Close(context.Background())
		}
		cancel()
		return nil, err
	}
	onSnapshot(first)

	if stream != nil {
		go s.watch(subCtx, stream, path, first.Revision, onSnapshot, onError)
	} else {
		go s.poll(subCtx, path, first.Revision, onSnapshot, onError)
	}
	return cancel, nil
}

func (s *Store) watch(ctx context.Context, stream *mongo.ChangeStream, path string, last int64, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) {
	defer func() { _ = stream.Close(context.Background()) }()

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			onError(fmt.Errorf("failed to decode change event: %w", err))
			return
		}
		snap := docstore.Snapshot{Path: path}
		if ev.FullDocument != nil {
			snap = toSnapshot(*ev.FullDocument)
		}
		if snap.Revision == last && ev.OperationType != "delete" {
			continue
		}
		last = snap.Revision
		onSnapshot(snap)
	}

	if ctx.Err() != nil {
		return
	}
	err := stream.Err()
	if err == nil {
		err = fmt.Errorf("change stream for %s closed", path)
	}
	onError(err)
}

func (s *Store) poll(ctx context.Context, path string, last int64, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap, err := s.get(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			onError(err)
			return
		}
		if snap.Revision == last {
			continue
		}
		last = snap.Revision
		onSnapshot(snap)
	}
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}
	return nil
}
