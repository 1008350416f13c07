package browser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	closed int32
}

func (p *fakePage) Navigate(ctx context.Context, url string) error     { return nil }
func (p *fakePage) WaitFor(ctx context.Context, selector string) error { return nil }
func (p *fakePage) Scroll(ctx context.Context, times int) error        { return nil }
func (p *fakePage) HTML(ctx context.Context) (string, error)           { return "<html></html>", nil }
func (p *fakePage) Close() error {
	atomic.AddInt32(&p.closed, 1)
	return nil
}

type fakeInstance struct {
	closed int32
}

func (i *fakeInstance) NewPage(ctx context.Context) (Page, error) { return &fakePage{}, nil }
func (i *fakeInstance) Close() error {
	atomic.AddInt32(&i.closed, 1)
	return nil
}

type fakeLauncher struct {
	m         sync.Mutex
	instances []*fakeInstance
	err       error
}

func (l *fakeLauncher) Launch(ctx context.Context) (Instance, error) {
	l.m.Lock()
	defer l.m.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	inst := &fakeInstance{}
	l.instances = append(l.instances, inst)
	return inst, nil
}

func (l *fakeLauncher) launched() int {
	l.m.Lock()
	defer l.m.Unlock()
	return len(l.instances)
}

func (l *fakeLauncher) closedCount() int {
	l.m.Lock()
	defer l.m.Unlock()
	n := 0
	for _, inst := range l.instances {
		if atomic.LoadInt32(&inst.closed) > 0 {
			n++
		}
	}
	return n
}

func testConfig(max int) PoolConfig {
	return PoolConfig{MaxInstances: max, IdleRetention: time.Minute, MemoryPerInstanceMB: 100}
}

func TestAcquireLaunchesUpToBound(t *testing.T) {
	l := &fakeLauncher{}
	p := NewPool(l, testConfig(2))
	defer p.Shutdown()

	h1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	h2, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	assert.Equal(t, Status{Active: 2, Idle: 0, Live: 2, Max: 2, MemoryEstimateMB: 200}, p.Status())
	assert.Equal(t, 2, l.launched())

	require.NoError(t, p.Release(h1))
	require.NoError(t, p.Release(h2))
	assert.Equal(t, Status{Active: 0, Idle: 2, Live: 2, Max: 2, MemoryEstimateMB: 200}, p.Status())
}

func TestBlockedAcquireGetsReleasedInstance(t *testing.T) {
	l := &fakeLauncher{}
	p := NewPool(l, testConfig(1))
	defer p.Shutdown()

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)

	got := make(chan *Handle)
	go func() {
		h2, err := p.Acquire(context.Background())
		assert.NoError(t, err)
		got <- h2
	}()

	select {
	case <-got:
		t.Fatal("acquire over the bound must block")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, p.Release(h))
	select {
	case h2 := <-got:
		assert.Same(t, h.inst, h2.inst)
		require.NoError(t, p.Release(h2))
	case <-time.After(time.Second):
		t.Fatal("blocked acquire was not woken by release")
	}
	assert.Equal(t, 1, l.launched())
}

func TestAcquireTimeoutReturnsExhausted(t *testing.T) {
	cfg := testConfig(1)
	cfg.AcquireTimeout = 30 * time.Millisecond
	p := NewPool(&fakeLauncher{}, cfg)
	defer p.Shutdown()

	_, err := p.Acquire(context.Background())
	require.NoError(t, err)
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestReleaseClosesPagesAndRejectsDoubleRelease(t *testing.T) {
	p := NewPool(&fakeLauncher{}, testConfig(1))
	defer p.Shutdown()

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	page, err := h.NewPage(context.Background())
	require.NoError(t, err)

	require.NoError(t, p.Release(h))
	assert.Equal(t, int32(1), atomic.LoadInt32(&page.(*fakePage).closed))
	assert.ErrorIs(t, p.Release(h), ErrHandleInvalid)

	_, err = h.NewPage(context.Background())
	assert.ErrorIs(t, err, ErrHandleInvalid)
	assert.ErrorIs(t, p.Release(nil), ErrHandleInvalid)
}

func TestDiscardedInstanceIsClosed(t *testing.T) {
	l := &fakeLauncher{}
	p := NewPool(l, testConfig(1))
	defer p.Shutdown()

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	h.Discard()
	require.NoError(t, p.Release(h))

	assert.Equal(t, 1, l.closedCount())
	assert.Equal(t, 0, p.Status().Live)

	h, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, l.launched())
	require.NoError(t, p.Release(h))
}

func TestLaunchFailureFreesSlot(t *testing.T) {
	l := &fakeLauncher{err: errors.New("no chromium")}
	p := NewPool(l, testConfig(1))
	defer p.Shutdown()

	_, err := p.Acquire(context.Background())
	assert.EqualError(t, err, "no chromium")
	assert.Equal(t, 0, p.Status().Live)

	l.m.Lock()
	l.err = nil
	l.m.Unlock()
	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Release(h))
}

func TestShutdownInvalidatesHandlesAndWakesWaiters(t *testing.T) {
	l := &fakeLauncher{}
	p := NewPool(l, testConfig(1))

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)

	waiterErr := make(chan error)
	go func() {
		_, err := p.Acquire(context.Background())
		waiterErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	p.Shutdown()
	p.Shutdown()

	select {
	case err := <-waiterErr:
		assert.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(time.Second):
		t.Fatal("shutdown did not wake the waiter")
	}

	assert.False(t, h.Valid())
	_, err = h.NewPage(context.Background())
	assert.ErrorIs(t, err, ErrHandleInvalid)
	assert.NoError(t, p.Release(h))

	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.Equal(t, 1, l.closedCount())
	assert.True(t, p.Status().Closed)
}

func TestRecycleIdle(t *testing.T) {
	l := &fakeLauncher{}
	p := NewPool(l, testConfig(2))
	defer p.Shutdown()
	clock := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	h1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	h2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Release(h1))

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 1, p.RecycleIdle())
	assert.Equal(t, Status{Active: 1, Live: 1, Max: 2, MemoryEstimateMB: 100}, p.Status())

	require.NoError(t, p.Release(h2))
	assert.Equal(t, 0, p.RecycleIdle())
}

func TestExpiredInstanceRetiredOnRelease(t *testing.T) {
	l := &fakeLauncher{}
	cfg := testConfig(1)
	cfg.MaxLifetime = time.Hour
	p := NewPool(l, cfg)
	defer p.Shutdown()
	clock := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	// lifetime is drawn from [0, 2h]
	clock = clock.Add(3 * time.Hour)
	require.NoError(t, p.Release(h))

	assert.Equal(t, 0, p.Status().Live)
	assert.Equal(t, 1, l.closedCount())
}

func TestLifetimeWithRandomness(t *testing.T) {
	for i := 0; i < 50; i++ {
		span := lifetimeWithRandomness(time.Hour)
		assert.GreaterOrEqual(t, span, 15*time.Minute)
		assert.LessOrEqual(t, span, 2*time.Hour)
	}
	assert.Equal(t, time.Duration(0), lifetimeWithRandomness(0))
}

func TestConcurrentAcquireNeverExceedsBound(t *testing.T) {
	l := &fakeLauncher{}
	p := NewPool(l, testConfig(3))
	defer p.Shutdown()

	var active, peak int32
	wg := sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := p.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			assert.NoError(t, p.Release(h))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.LessOrEqual(t, l.launched(), 3)
}
