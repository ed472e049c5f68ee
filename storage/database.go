package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"nuvix-tickets/config"
	"nuvix-tickets/review"
)

// Database archives accepted reviews. Reviews are append-only; there is no
// update or delete path.
type Database interface {
	Close() error

	SaveReview(ctx context.Context, r review.Review) error
	RecentReviews(ctx context.Context, limit int) ([]review.Review, error)
}

// OpenDatabase picks the backend by the configured driver.
func OpenDatabase(cfg *config.DatabaseConfig, log *zap.Logger) (Database, error) {
	switch cfg.Driver {
	case "sqlite":
		return openSQLite(cfg.SQLite.Path, log)
	case "mongodb":
		return openMongo(cfg.MongoDB.URI, cfg.MongoDB.Database, log)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (use \"sqlite\" or \"mongodb\")", cfg.Driver)
	}
}

type sqliteDB struct {
	db *sql.DB
}

func openSQLite(path string, log *zap.Logger) (*sqliteDB, error) {
	_ = os.MkdirAll(filepath.Dir(path), 0755)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id           TEXT PRIMARY KEY,
		rater_id     TEXT NOT NULL,
		ticket_ref   TEXT NOT NULL,
		closer_id    TEXT NOT NULL,
		stars        INTEGER NOT NULL,
		comment      TEXT NOT NULL DEFAULT '',
		submitted_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reviews_submitted ON reviews(submitted_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	log.Info("review archive ready", zap.String("driver", "sqlite"), zap.String("path", path))
	return &sqliteDB{db: db}, nil
}

func (s *sqliteDB) Close() error { return s.db.Close() }

func (s *sqliteDB) SaveReview(ctx context.Context, r review.Review) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO reviews (id, rater_id, ticket_ref, closer_id, stars, comment, submitted_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.RaterID, r.TicketRef, r.CloserID, r.Stars, r.Comment, r.SubmittedAt.Format(time.RFC3339),
	)
	return err
}

func (s *sqliteDB) RecentReviews(ctx context.Context, limit int) ([]review.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, rater_id, ticket_ref, closer_id, stars, comment, submitted_at FROM reviews ORDER BY submitted_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []review.Review
	for rows.Next() {
		var r review.Review
		var ts string
		if err := rows.Scan(&r.ID, &r.RaterID, &r.TicketRef, &r.CloserID, &r.Stars, &r.Comment, &ts); err != nil {
			return nil, err
		}
		r.SubmittedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

type mongoDB struct {
	client  *mongo.Client
	reviews *mongo.Collection
}

func openMongo(uri, dbName string, log *zap.Logger) (*mongoDB, error) {
	if uri == "" || dbName == "" {
		return nil, fmt.Errorf("database.mongodb.uri and database.mongodb.database must be set to use driver=mongodb")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	coll := client.Database(dbName).Collection("reviews")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "submitted_at", Value: -1}},
	})

	log.Info("review archive ready", zap.String("driver", "mongodb"), zap.String("database", dbName))
	return &mongoDB{client: client, reviews: coll}, nil
}

func (m *mongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *mongoDB) SaveReview(ctx context.Context, r review.Review) error {
	_, err := m.reviews.InsertOne(ctx, r)
	return err
}

func (m *mongoDB) RecentReviews(ctx context.Context, limit int) ([]review.Review, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "submitted_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := m.reviews.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []review.Review
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
