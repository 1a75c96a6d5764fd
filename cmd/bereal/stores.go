package main

import (
	"context"
	"fmt"
	"io"

	"bereal/internal/adapter/gcs"
	"bereal/internal/adapter/memory"
	"bereal/internal/adapter/postgres"
	redisstore "bereal/internal/adapter/redis"
	"bereal/internal/config"
	"bereal/internal/domain"
)

// stores bundles the repositories selected by config.
type stores struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	posts    domain.PostRepository
	comments domain.CommentRepository
	blobs    domain.BlobStore
	closers  []io.Closer
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	st := &stores{}

	switch cfg.Store {
	case config.StorePostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		st.closers = append(st.closers, db)
		st.users, st.posts, st.comments, st.blobs = db, db, db, db
		st.sessions = postgres.NewSessionRepo(db)
	default:
		db := memory.New()
		st.users, st.posts, st.comments, st.blobs = db, db, db, db
		st.sessions = db.NewSessionRepo()
	}

	if cfg.SessionStore == config.SessionStoreRedis {
		client := redisstore.Connect(cfg.RedisAddr, cfg.RedisPassword)
		st.closers = append(st.closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			st.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		st.sessions = redisstore.NewSessionRepo(client)
	}

	if cfg.BlobStore == config.BlobStoreGCS {
		blobs, client, err := gcs.Open(ctx, cfg.GCSBucket)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, client)
		st.blobs = blobs
	}
	return st, nil
}
