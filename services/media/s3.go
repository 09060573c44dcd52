package mediasvc

import (
	"context"
	"io"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

type S3Storage struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	baseURL  string
}

var _ core.FileStorage = (*S3Storage)(nil)

func NewS3Storage(conf core.MediaConfig) (*S3Storage, error) {
	awsConf := &aws.Config{Region: aws.String(conf.S3Region)}
	if conf.S3AccessKey != "" {
		awsConf.Credentials = credentials.NewStaticCredentials(conf.S3AccessKey, conf.S3SecretKey, "")
	}
	if conf.S3Endpoint != "" {
		awsConf.Endpoint = aws.String(conf.S3Endpoint)
		awsConf.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsConf)
	if err != nil {
		return nil, errors.Wrap(err, "creating S3 session")
	}
	return &S3Storage{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   conf.S3Bucket,
		baseURL:  conf.URL,
	}, nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

func (s *S3Storage) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	for {
		taken, err := s.Exists(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			break
		}
		name = alternativeName(name)
	}

	in := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   content,
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		in.ContentType = aws.String(ct)
	}
	if _, err := s.uploader.UploadWithContext(ctx, in); err != nil {
		return "", errors.Wrapf(err, "uploading %s", name)
	}
	return name, nil
}

func (s *S3Storage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, core.NewNotFoundError("file")
		}
		return nil, errors.Wrapf(err, "downloading %s", name)
	}
	return out.Body, nil
}

func (s *S3Storage) Delete(ctx context.Context, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	return errors.Wrapf(err, "deleting %s", name)
}

func (s *S3Storage) Exists(ctx context.Context, name string) (bool, error) {
	name, err := cleanName(name)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "checking %s", name)
	}
	return true, nil
}

func (s *S3Storage) URL(name string) string {
	return joinURL(s.baseURL, name)
}
