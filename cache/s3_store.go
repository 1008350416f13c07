package cache

import (
	"bytes"
	"context"
	"io/ioutil"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

const (
	DevS3CacheBucket = "honeybee-dev-cache"
	s3ContentType    = "application/json"
)

// S3Store keeps each cache record as one JSON object under prefix/key.
type S3Store struct {
	bucket string
	prefix string
	svc    s3iface.S3API
}

func NewS3Store(bucket, prefix, region string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}
	return NewS3StoreWithClient(s3.New(sess), bucket, prefix), nil
}

func NewS3StoreWithClient(svc s3iface.S3API, bucket, prefix string) *S3Store {
	return &S3Store{bucket: bucket, prefix: prefix, svc: svc}
}

func (s *S3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key + ".json"
	}
	return s.prefix + "/" + key + ".json"
}

func isNoSuchKey(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	defer out.Body.Close()

	body, err := ioutil.ReadAll(out.Body)
	if err != nil {
		return nil, false, errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return body, true, nil
}

func (s *S3Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String(s3ContentType),
	})
	if err != nil {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isNoSuchKey(err) {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return nil
}
