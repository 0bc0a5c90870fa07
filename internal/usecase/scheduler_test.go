package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	digests []string
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.digests = append(n.digests, digest)
	return nil
}

type manualDriver struct {
	job func(time.Time)
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error { return nil }

func TestSchedulerPublishesDigest(t *testing.T) {
	t.Parallel()

	driver := &manualDriver{}
	notifier := &recordingNotifier{}
	req := Request{Uploads: []Upload{{FileName: "inbox.txt", Content: "password reset email never arrives"}}}
	s := NewScheduler(driver, newTestPipeline(PipelineDeps{}), notifier, req, nil)

	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)
	driver.job(testNow)

	require.Len(t, notifier.digests, 1)
	assert.Contains(t, notifier.digests[0], "1 items")
	assert.Contains(t, notifier.digests[0], "[high/bug] password reset email never arrives")
	require.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerWithoutDriverIsNoop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, nil, Request{}, nil)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
