package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

type fakeJobStore struct {
	mu      sync.Mutex
	jobs    map[string]*domain.Job
	results map[string]*domain.JobResult

	createErr       error
	updateStatusErr error
	saveResultErr   error

	statusUpdates []string
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{
		jobs:    make(map[string]*domain.Job),
		results: make(map[string]*domain.JobResult),
	}
}

func (s *fakeJobStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *fakeJobStore) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *fakeJobStore) UpdateStatus(_ context.Context, jobID string, status domain.JobStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateStatusErr != nil {
		return s.updateStatusErr
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Status = status
	job.Message = message
	s.statusUpdates = append(s.statusUpdates, string(status))
	return nil
}

func (s *fakeJobStore) SaveResult(_ context.Context, result *domain.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveResultErr != nil {
		return s.saveResultErr
	}
	copied := *result
	s.results[result.JobID] = &copied
	return nil
}

func (s *fakeJobStore) GetResult(_ context.Context, jobID string) (*domain.JobResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[jobID]
	if !ok {
		return nil, domain.ErrNotReady
	}
	copied := *result
	return &copied, nil
}

type fakeBlobStore struct {
	storeErr error
	stored   map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{stored: make(map[string][]byte)}
}

func (s *fakeBlobStore) Fetch(_ context.Context, uri string) ([]byte, error) {
	data, ok := s.stored[uri]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return data, nil
}

func (s *fakeBlobStore) Store(_ context.Context, key string, data io.Reader) (string, error) {
	if s.storeErr != nil {
		return "", s.storeErr
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	uri := "file:///blobs/" + key
	s.stored[uri] = body
	return uri, nil
}

type fakeQueue struct {
	publishErr error
	published  []string
}

func (q *fakeQueue) PublishJobSubmitted(_ context.Context, jobID string) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, jobID)
	return nil
}

func (q *fakeQueue) SubscribeJobSubmitted(ctx context.Context, _ func(context.Context, string) error) error {
	<-ctx.Done()
	return nil
}

type fakeExtractor struct {
	extraction domain.Extraction
	err        error
	calls      int
}

func (e *fakeExtractor) Extract(_ context.Context, _, _ string) (domain.Extraction, error) {
	e.calls++
	if e.err != nil {
		return domain.Extraction{}, e.err
	}
	return e.extraction, nil
}

type fakeRecognizer struct {
	entities []domain.ExtractedEntity
	err      error
	gotText  string
}

func (r *fakeRecognizer) Recognize(_ context.Context, text string, _ bool) ([]domain.ExtractedEntity, error) {
	r.gotText = text
	if r.err != nil {
		return nil, r.err
	}
	return r.entities, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	urls     []string
	payloads []map[string]any
}

func (n *fakeNotifier) Notify(_ context.Context, url string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	n.payloads = append(n.payloads, payload)
}

func (n *fakeNotifier) lastPayload() (map[string]any, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.payloads) == 0 {
		return nil, fmt.Errorf("no callbacks delivered")
	}
	return n.payloads[len(n.payloads)-1], nil
}
