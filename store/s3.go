package store

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	raven "github.com/getsentry/raven-go"
)

// S3 keeps the store contents in an S3 bucket. An optional prefix is
// prepended to every key so one bucket can hold several stores. Do not
// change Bucket or Prefix while calls are in flight.
type S3 struct {
	svc    *s3.S3
	Bucket string
	Prefix string
}

var _ Store = &S3{}

// NewS3 creates an S3 store on the given bucket. The credentials and region
// in the session are used for all accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	return &S3{
		Bucket: bucket,
		Prefix: prefix,
		svc:    s3.New(awsSession),
	}
}

// ListPrefix returns the keys in this store beginning with prefix. The
// store's own Prefix is applied underneath and stripped from the result.
func (s *S3) ListPrefix(prefix string) ([]string, error) {
	var result []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix + prefix),
	}
	err := s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, item := range page.Contents {
				result = append(result, strings.TrimPrefix(*item.Key, s.Prefix))
			}
			return !lastpage
		})
	if err != nil {
		log.Println("S3 ListPrefix:", s.Prefix, prefix, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Pattern": prefix})
	}
	return result, err
}

// Open returns a reader for the value at key. Data is ranged in from S3 as
// it is read.
func (s *S3) Open(key string) (ReadAtCloser, int64, error) {
	size, err := s.stat(key)
	if err != nil {
		return nil, 0, err
	}
	return &s3ReadAtCloser{
		svc:    s.svc,
		bucket: s.Bucket,
		key:    s.Prefix + key,
		size:   size,
	}, size, nil
}

// Create returns a writer which uploads to the given key when closed. The
// value is buffered in memory until then; package archives are expected to
// be small enough for that.
func (s *S3) Create(key string) (io.WriteCloser, error) {
	_, err := s.stat(key)
	if err == nil {
		return nil, ErrKeyExists
	}
	return &s3WriteCloser{
		svc:    s.svc,
		bucket: s.Bucket,
		key:    s.Prefix + key,
	}, nil
}

// Delete removes the given key. It is not an error to delete something that
// doesn't exist.
func (s *S3) Delete(key string) error {
	_, err := s.svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		log.Println("S3 Delete:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Key": key})
	}
	return err
}

// stat issues a HEAD for the key and returns the object size.
func (s *S3) stat(key string) (int64, error) {
	info, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		return 0, err
	}
	return *info.ContentLength, nil
}

// s3ReadAtCloser serves ReadAt calls with ranged GETs, holding on to the
// most recently fetched range. Sequential reads through an archive hit the
// cached range most of the time. Not safe for use from multiple goroutines.
type s3ReadAtCloser struct {
	svc    *s3.S3
	bucket string
	key    string
	size   int64
	cache  []byte
	off    int64 // offset of cache[0] within the object
}

const s3RangeSize = 10 * 1024 * 1024 // 10 MiB

// ReadAt implements io.ReaderAt.
func (rac *s3ReadAtCloser) ReadAt(p []byte, offset int64) (int, error) {
	var err error
	start := offset
	for len(p) > 0 && offset < rac.size {
		if offset < rac.off || offset >= rac.off+int64(len(rac.cache)) {
			err = rac.load(offset)
			if err != nil {
				break
			}
		}
		n := copy(p, rac.cache[offset-rac.off:])
		p = p[n:]
		offset += int64(n)
	}
	if err == io.EOF && offset != start {
		err = nil
	} else if err == nil && offset == start {
		err = io.EOF
	}
	return int(offset - start), err
}

// load fetches the range-aligned window containing offset.
func (rac *s3ReadAtCloser) load(offset int64) error {
	startpos := (offset / s3RangeSize) * s3RangeSize
	input := &s3.GetObjectInput{
		Bucket: aws.String(rac.bucket),
		Key:    aws.String(rac.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", startpos, startpos+s3RangeSize-1)),
	}
	output, err := rac.svc.GetObject(input)
	if err != nil {
		log.Println("S3 load:", rac.key, offset, err)
		// an invalid range response means we ran off the end
		if e, ok := err.(awserr.RequestFailure); ok &&
			e.StatusCode() == http.StatusRequestedRangeNotSatisfiable {
			err = io.EOF
		}
		return err
	}
	var buf bytes.Buffer
	_, err = io.Copy(&buf, output.Body)
	output.Body.Close()
	if err != nil {
		return err
	}
	if buf.Len() == 0 {
		return io.EOF
	}
	rac.cache = buf.Bytes()
	rac.off = startpos
	return nil
}

// Close is a no-op; ranged GETs hold no connection between reads.
func (rac *s3ReadAtCloser) Close() error { return nil }

// s3WriteCloser buffers writes and does a single PutObject on Close.
type s3WriteCloser struct {
	svc    *s3.S3
	bucket string
	key    string
	buf    bytes.Buffer
}

func (wc *s3WriteCloser) Write(p []byte) (int, error) {
	return wc.buf.Write(p)
}

func (wc *s3WriteCloser) Close() error {
	_, err := wc.svc.PutObject(&s3.PutObjectInput{
		Body:          bytes.NewReader(wc.buf.Bytes()),
		Bucket:        aws.String(wc.bucket),
		Key:           aws.String(wc.key),
		ContentLength: aws.Int64(int64(wc.buf.Len())),
	})
	if err != nil {
		log.Println("S3 put:", wc.key, err)
		raven.CaptureError(err, map[string]string{"Bucket": wc.bucket, "Key": wc.key})
	}
	return err
}
