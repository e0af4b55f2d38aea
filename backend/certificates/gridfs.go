package certificates

import (
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const gridFSBucket = "certificates"

// GridFSStore хранит сертификаты в GridFS
type GridFSStore struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

func NewGridFSStore(ctx context.Context, uri, database string) (*GridFSStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	bucket, err := gridfs.NewBucket(client.Database(database), options.GridFSBucket().SetName(gridFSBucket))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "opening gridfs bucket")
	}
	return &GridFSStore{client: client, bucket: bucket}, nil
}

func (s *GridFSStore) Save(_ context.Context, filename string, content []byte) (string, error) {
	if _, err := s.bucket.UploadFromStream(filename, bytes.NewReader(content)); err != nil {
		return "", errors.Wrap(err, "uploading certificate to gridfs")
	}
	return FileURL(filename), nil
}

func (s *GridFSStore) Open(_ context.Context, filename string) (io.ReadCloser, error) {
	if !ValidFilename(filename) {
		return nil, ErrFileNotFound
	}
	stream, err := s.bucket.OpenDownloadStreamByName(filename)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, errors.Wrap(err, "opening gridfs stream")
	}
	return stream, nil
}

func (s *GridFSStore) Delete(ctx context.Context, filename string) error {
	cursor, err := s.bucket.Find(bson.M{"filename": filename})
	if err != nil {
		return errors.Wrap(err, "finding gridfs file")
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var file struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return errors.Wrap(err, "decoding gridfs file")
		}
		if err := s.bucket.Delete(file.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return errors.Wrap(err, "deleting gridfs file")
		}
	}
	return cursor.Err()
}

func (s *GridFSStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
