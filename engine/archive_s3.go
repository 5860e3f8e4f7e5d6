/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config names the bucket and optional S3-compatible endpoint archived
// generations are uploaded to. Adapted from memcp's storage.S3Factory,
// trimmed to the one job this engine asks of S3: PutObject.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // non-empty selects an S3-compatible service (e.g. MinIO)
	Bucket          string
	ForcePathStyle  bool
}

// S3ColdStore lazily builds an aws-sdk-go-v2 client on first use, the
// same deferred-init pattern storage.S3Storage.ensureOpen uses.
type S3ColdStore struct {
	cfg S3Config

	mu     sync.Mutex
	client *s3.Client
}

func NewS3ColdStore(cfg S3Config) *S3ColdStore {
	return &S3ColdStore{cfg: cfg}
}

func (s *S3ColdStore) ensureOpen(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, externalErr("s3 load config", err)
	}

	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(s.cfg.Endpoint) })
	}
	if s.cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	s.client = s3.NewFromConfig(awsCfg, s3Opts...)
	return s.client, nil
}

// Put uploads r under key. S3 has no append semantics, so archived
// generations -- already immutable once compaction retires them -- are
// simply written once, in full, the same "buffer and replace" strategy
// storage.S3Storage uses for its own log segments.
func (s *S3ColdStore) Put(key string, r io.Reader) error {
	ctx := context.Background()
	client, err := s.ensureOpen(ctx)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return ioErr("read archive body", err)
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return externalErr(fmt.Sprintf("s3 put %s", key), err)
	}
	return nil
}
