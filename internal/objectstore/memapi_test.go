package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// memAPI is an in-memory bucket honouring If-None-Match and If-Match.
type memAPI struct {
	mu      sync.Mutex
	objects map[string]memObject
	seq     int
	failPut error
}

type memObject struct {
	data []byte
	etag string
}

func newMemAPI() *memAPI {
	return &memAPI{objects: map[string]memObject{}}
}

func preconditionFailed() error {
	return &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
}

func (m *memAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut != nil {
		return nil, m.failPut
	}

	key := aws.ToString(in.Key)
	cur, exists := m.objects[key]
	if aws.ToString(in.IfNoneMatch) == "*" && exists {
		return nil, preconditionFailed()
	}
	if in.IfMatch != nil && (!exists || *in.IfMatch != `"`+cur.etag+`"`) {
		return nil, preconditionFailed()
	}

	m.seq++
	etag := fmt.Sprintf("etag-%d", m.seq)
	m.objects[key] = memObject{data: data, etag: etag}
	return &s3.PutObjectOutput{ETag: aws.String(`"` + etag + `"`)}, nil
}

func (m *memAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(obj.data)),
		ETag: aws.String(`"` + obj.etag + `"`),
	}, nil
}

func (m *memAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ETag: aws.String(`"` + obj.etag + `"`)}, nil
}

func (m *memAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memAPI) content(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return string(obj.data), ok
}
