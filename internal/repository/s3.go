package repository

import (
	"bytes"
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/debemdeboas/the-press/internal/model"
	"github.com/pkg/errors"
)

// Mirror receives a copy of every post that gets published.
type Mirror interface {
	MirrorPost(ctx context.Context, post *model.Post) error
}

type NopMirror struct{}

func (NopMirror) MirrorPost(context.Context, *model.Post) error {
	return nil
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3MirrorOptions struct {
	AccessKeyID     string
	SecretAccessKey string

	Endpoint string
	Region   string
	Bucket   string
	Prefix   string
}

type S3Mirror struct { // implements Mirror
	client objectPutter
	bucket string
	prefix string
}

func NewS3Mirror(ctx context.Context, opts S3MirrorOptions) (*S3Mirror, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing S3 client")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Mirror(client, opts.Bucket, opts.Prefix), nil
}

func newS3Mirror(client objectPutter, bucket, prefix string) *S3Mirror {
	return &S3Mirror{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (m *S3Mirror) Key(id model.PostID) string {
	return m.prefix + string(id) + ".md"
}

func (m *S3Mirror) MirrorPost(ctx context.Context, post *model.Post) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(m.Key(post.ID)),
		Body:        bytes.NewReader(post.Markdown),
		ContentType: aws.String("text/markdown; charset=utf-8"),
		Metadata: map[string]string{
			"title":     post.Title,
			"author-id": string(post.Owner),
			"published": strconv.FormatBool(post.Published),
		},
	})
	if err != nil {
		return errors.Wrapf(err, "error mirroring post %s to s3://%s", post.ID, m.bucket)
	}

	repoLogger.Debug().Str("post_id", string(post.ID)).Str("key", m.Key(post.ID)).Msg("Post mirrored")
	return nil
}
