package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// StoreConfig はS3互換オブジェクトストレージの接続設定。
type StoreConfig struct {
	// Bucket はアップロード先のバケット名。必須。
	Bucket string
	// Region はリージョン。R2の場合は"auto"を指定する。
	Region string
	// Endpoint はS3互換サービスのエンドポイント（R2など）。空の場合はAWS S3。
	Endpoint string
	// AccessKeyID / SecretAccessKey は静的クレデンシャル。
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL はアップロード済みオブジェクトの公開URLのベース。
	PublicBaseURL string
	// Prefix はオブジェクトキーの共通プレフィックス（任意）。
	Prefix string
}

// Store はS3互換オブジェクトストレージへのアップロード層。
type Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	baseURL string
}

// NewStore は新しいアップロードストアを生成する。
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("バケット名が必要です")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Put はオブジェクトをアップロードして公開URLを返す。
func (s *Store) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	objectKey := s.objectKey(key)
	input := &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &objectKey,
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("オブジェクトのアップロードに失敗: %w", err)
	}
	return s.publicURL(objectKey), nil
}

// Get はオブジェクトの内容とContent-Typeを返す。
// 呼び出し側がReadCloserをクローズする責任を持つ。
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	objectKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &objectKey,
	})
	if err != nil {
		return nil, "", fmt.Errorf("オブジェクトの取得に失敗: %w", err)
	}
	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return out.Body, contentType, nil
}

// Exists はオブジェクトが存在するかどうかを返す。
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	objectKey := s.objectKey(key)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &objectKey,
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	return false, fmt.Errorf("オブジェクトの確認に失敗: %w", err)
}

// Delete はオブジェクトを削除する。
func (s *Store) Delete(ctx context.Context, key string) error {
	objectKey := s.objectKey(key)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &objectKey,
	}); err != nil {
		return fmt.Errorf("オブジェクトの削除に失敗: %w", err)
	}
	return nil
}

// objectKey はプレフィックスを適用したオブジェクトキーを返す。
func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// publicURL はオブジェクトの公開URLを返す。
func (s *Store) publicURL(objectKey string) string {
	if s.baseURL == "" {
		return fmt.Sprintf("s3://%s/%s", s.bucket, objectKey)
	}
	return fmt.Sprintf("%s/%s", s.baseURL, objectKey)
}
