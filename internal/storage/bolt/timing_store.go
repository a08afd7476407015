package bolt

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/codec"
	"github.com/goodtune/focustime/internal/storage"
	"go.etcd.io/bbolt"
)

// timingStore keeps one nested bucket per application under the timings
// bucket. Each record is stored under a digest of its title, encoded with
// the codec; the title itself lives in the encoded record.
type timingStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// Load implements storage.TimingStore.
func (s *timingStore) Load(ctx context.Context) (activity.Timeline, error) {
	timeline := make(activity.Timeline)
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(bucketTimings))
		if root == nil {
			return storage.ErrNotFound
		}
		return root.ForEachBucket(func(app []byte) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			titles := make(activity.Titles)
			err := root.Bucket(app).ForEach(func(k, v []byte) error {
				rec, err := codec.DecodeRecord(v)
				if err != nil {
					return fmt.Errorf("record %s/%x: %w", app, k, err)
				}
				titles[rec.Title] = rec
				return nil
			})
			if err != nil {
				return err
			}
			timeline[string(app)] = titles
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if len(timeline) == 0 {
		return nil, storage.ErrNotFound
	}
	return timeline, nil
}

// Save implements storage.TimingStore.
func (s *timingStore) Save(ctx context.Context, timeline activity.Timeline) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		root, err := resetBucket(tx, bucketTimings)
		if err != nil {
			return err
		}
		for app, titles := range timeline {
			if app == "" || len(titles) == 0 {
				continue
			}
			b, err := root.CreateBucket([]byte(app))
			if err != nil {
				return fmt.Errorf("create application bucket %s: %w", app, err)
			}
			for title, rec := range titles {
				if rec == nil {
					continue
				}
				if rec.Title != title {
					cp := *rec
					cp.Title = title
					rec = &cp
				}
				data, err := codec.EncodeRecord(rec)
				if err != nil {
					return err
				}
				key := titleKey(title)
				if err := b.Put(key, data); err != nil {
					return fmt.Errorf("put record %s/%x: %w", app, key, err)
				}
			}
		}
		return putBucketValue(tx, bucketMeta, metaKey, storage.NewMeta(timeline, s.now()))
	})
}

// Clear implements storage.TimingStore.
func (s *timingStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := resetBucket(tx, bucketTimings); err != nil {
			return err
		}
		return putBucketValue(tx, bucketMeta, metaKey, storage.NewMeta(nil, s.now()))
	})
}

// Meta implements storage.MetaReader.
func (s *timingStore) Meta(ctx context.Context) (*storage.Meta, error) {
	return getBucketValue[storage.Meta](ctx, s.db, bucketMeta, metaKey)
}

// titleKey digests the title. Window titles are unbounded and bbolt caps
// keys at 32KB.
func titleKey(title string) []byte {
	sum := sha256.Sum256([]byte(title))
	return sum[:]
}
