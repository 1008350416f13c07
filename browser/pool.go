package browser

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/utils"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

var (
	ErrPoolClosed    = errors.New("browser pool is shut down")
	ErrHandleInvalid = errors.New("browser handle is no longer valid")
	ErrPoolExhausted = errors.New("no browser instance became available")
)

// Configuration of the browser pool.
type PoolConfig struct {
	// Upper bound of live browser processes.
	MaxInstances int

	// Idle instances older than this are closed by RecycleIdle.
	IdleRetention time.Duration

	// Mean lifetime of an instance. Each instance gets its own lifetime drawn
	// around this value so they do not all retire at once.
	MaxLifetime time.Duration

	// Acquire gives up with ErrPoolExhausted after waiting this long. Zero
	// waits as long as ctx allows.
	AcquireTimeout time.Duration

	// Maintain runs RecycleIdle every other interval.
	MaintainEvery time.Duration

	// Rough resident memory of one instance, reported by Status.
	MemoryPerInstanceMB int
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxInstances:        3,
		IdleRetention:       5 * time.Minute,
		MaxLifetime:         30 * time.Minute,
		AcquireTimeout:      2 * time.Minute,
		MaintainEvery:       time.Minute,
		MemoryPerInstanceMB: 150,
	}
}

// Status is a point in time view of the pool.
type Status struct {
	Active           int  `json:"active"`
	Idle             int  `json:"idle"`
	Live             int  `json:"live"`
	Max              int  `json:"max"`
	MemoryEstimateMB int  `json:"memoryEstimateMb"`
	Closed           bool `json:"closed"`
}

type instance struct {
	id       int
	browser  Instance
	created  time.Time
	lastUsed time.Time
	// Retire once older than lifetime.
	lifetime time.Duration
	inUse    bool
}

func (i *instance) expired(now time.Time) bool {
	return i.lifetime > 0 && now.Sub(i.created) >= i.lifetime
}

// Pool hands out browser instances to crawlers. Every Acquire must be paired
// with a Release. All fields below m are guarded by m.
type Pool struct {
	config   PoolConfig
	launcher Launcher
	now      func() time.Time

	m         sync.Mutex
	instances []*instance
	launching int
	closed    bool
	nextID    int
	// Closed and replaced whenever an instance frees up or the pool closes.
	changed chan struct{}
}

func NewPool(launcher Launcher, config PoolConfig) *Pool {
	if config.MaxInstances <= 0 {
		config.MaxInstances = DefaultPoolConfig().MaxInstances
	}
	return &Pool{
		config:    config,
		launcher:  launcher,
		now:       time.Now,
		instances: []*instance{},
		changed:   make(chan struct{}),
	}
}

// We poison each instance's lifetime with a standard deviation so that a pool
// filled at once does not restart all of its browsers at once either.
func lifetimeWithRandomness(mean time.Duration) time.Duration {
	if mean <= 0 {
		return 0
	}
	sec := utils.GetRandomNumberInRangeStandardDeviation(mean.Seconds(), mean.Seconds()/4)
	span := time.Duration(sec * float64(time.Second))
	if span < mean/4 {
		return mean / 4
	}
	return span
}

// must hold m
func (p *Pool) notifyLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// must hold m
func (p *Pool) removeLocked(target *instance) {
	for i, inst := range p.instances {
		if inst == target {
			p.instances = append(p.instances[:i], p.instances[i+1:]...)
			return
		}
	}
}

func closeInstances(instances []*instance) {
	for _, inst := range instances {
		if err := inst.browser.Close(); err != nil {
			Logger.Log.Warnf("fail to close browser instance %d: %s", inst.id, err)
		}
	}
}

// Acquire returns a handle on an idle instance, launching a new one when the
// pool is below its bound. Over the bound it blocks until a handle is
// released, ctx is done, the pool shuts down or AcquireTimeout elapses.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	var timeout <-chan time.Time
	if p.config.AcquireTimeout > 0 {
		timer := time.NewTimer(p.config.AcquireTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		p.m.Lock()
		if p.closed {
			p.m.Unlock()
			return nil, ErrPoolClosed
		}

		now := p.now()
		retired := []*instance{}
		var found *instance
		for _, inst := range p.instances {
			if inst.inUse {
				continue
			}
			if inst.expired(now) {
				retired = append(retired, inst)
				continue
			}
			found = inst
			break
		}
		for _, inst := range retired {
			p.removeLocked(inst)
		}
		if found != nil {
			found.inUse = true
			found.lastUsed = now
			p.m.Unlock()
			closeInstances(retired)
			return &Handle{pool: p, inst: found}, nil
		}

		if len(p.instances)+p.launching < p.config.MaxInstances {
			p.launching++
			p.m.Unlock()
			closeInstances(retired)
			return p.launch(ctx)
		}

		wait := p.changed
		p.m.Unlock()
		closeInstances(retired)

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "waiting for browser instance")
		case <-timeout:
			return nil, ErrPoolExhausted
		case <-wait:
		}
	}
}

// launch starts a new instance for a slot already reserved in p.launching.
func (p *Pool) launch(ctx context.Context) (*Handle, error) {
	b, err := p.launcher.Launch(ctx)

	p.m.Lock()
	p.launching--
	if err != nil {
		p.notifyLocked()
		p.m.Unlock()
		return nil, err
	}
	if p.closed {
		p.m.Unlock()
		closeInstances([]*instance{{browser: b}})
		return nil, ErrPoolClosed
	}
	now := p.now()
	p.nextID++
	inst := &instance{
		id:       p.nextID,
		browser:  b,
		created:  now,
		lastUsed: now,
		lifetime: lifetimeWithRandomness(p.config.MaxLifetime),
		inUse:    true,
	}
	p.instances = append(p.instances, inst)
	p.m.Unlock()

	Logger.Log.Infof("browser pool launched instance %d", inst.id)
	return &Handle{pool: p, inst: inst}, nil
}

// Release returns the handle's instance to the idle set after closing every
// page opened through it. Discarded or expired instances are closed instead.
// Releasing twice returns ErrHandleInvalid, releasing after Shutdown is a
// no-op.
func (p *Pool) Release(h *Handle) error {
	if h == nil || h.pool != p {
		return ErrHandleInvalid
	}
	pages, discard, ok := h.invalidate()
	if !ok {
		return ErrHandleInvalid
	}
	for _, page := range pages {
		if err := page.Close(); err != nil {
			Logger.Log.Debugf("fail to close page: %s", err)
		}
	}

	p.m.Lock()
	if p.closed {
		p.m.Unlock()
		return nil
	}
	inst := h.inst
	inst.inUse = false
	inst.lastUsed = p.now()
	retire := discard || inst.expired(inst.lastUsed)
	if retire {
		p.removeLocked(inst)
	}
	p.notifyLocked()
	p.m.Unlock()

	if retire {
		closeInstances([]*instance{inst})
	}
	return nil
}

// RecycleIdle closes idle instances unused for IdleRetention or past their
// lifetime, and returns how many were closed.
func (p *Pool) RecycleIdle() int {
	p.m.Lock()
	now := p.now()
	recycled := []*instance{}
	for _, inst := range p.instances {
		if inst.inUse {
			continue
		}
		idleTooLong := p.config.IdleRetention > 0 && now.Sub(inst.lastUsed) >= p.config.IdleRetention
		if idleTooLong || inst.expired(now) {
			recycled = append(recycled, inst)
		}
	}
	for _, inst := range recycled {
		p.removeLocked(inst)
	}
	if len(recycled) > 0 {
		p.notifyLocked()
	}
	p.m.Unlock()

	closeInstances(recycled)
	return len(recycled)
}

// Maintain recycles idle instances every MaintainEvery until ctx is done.
func (p *Pool) Maintain(ctx context.Context) {
	every := p.config.MaintainEvery
	if every <= 0 {
		every = DefaultPoolConfig().MaintainEvery
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.RecycleIdle(); n > 0 {
				Logger.Log.Infof("browser pool recycled %d idle instances", n)
			}
		}
	}
}

// Shutdown closes every instance, idle or checked out, and wakes blocked
// callers. It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.m.Lock()
	if p.closed {
		p.m.Unlock()
		return
	}
	p.closed = true
	all := p.instances
	p.instances = []*instance{}
	p.notifyLocked()
	p.m.Unlock()

	closeInstances(all)
	Logger.Log.Infof("browser pool shut down, closed %d instances", len(all))
}

func (p *Pool) Status() Status {
	p.m.Lock()
	defer p.m.Unlock()

	s := Status{Max: p.config.MaxInstances, Closed: p.closed, Live: len(p.instances)}
	for _, inst := range p.instances {
		if inst.inUse {
			s.Active++
		} else {
			s.Idle++
		}
	}
	s.MemoryEstimateMB = s.Live * p.config.MemoryPerInstanceMB
	return s
}

func (p *Pool) isClosed() bool {
	p.m.Lock()
	defer p.m.Unlock()
	return p.closed
}

// Handle is a checked out instance. It is only valid until Release or pool
// Shutdown.
type Handle struct {
	pool *Pool
	inst *instance

	m        sync.Mutex
	released bool
	discard  bool
	pages    []Page
}

func (h *Handle) Valid() bool {
	h.m.Lock()
	released := h.released
	h.m.Unlock()
	return !released && !h.pool.isClosed()
}

// NewPage opens a tab that is closed on Release.
func (h *Handle) NewPage(ctx context.Context) (Page, error) {
	if !h.Valid() {
		return nil, ErrHandleInvalid
	}
	page, err := h.inst.browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}

	h.m.Lock()
	defer h.m.Unlock()
	if h.released {
		page.Close()
		return nil, ErrHandleInvalid
	}
	h.pages = append(h.pages, page)
	return page, nil
}

// Discard marks the instance broken, Release will close it.
func (h *Handle) Discard() {
	h.m.Lock()
	defer h.m.Unlock()
	h.discard = true
}

func (h *Handle) invalidate() (pages []Page, discard bool, ok bool) {
	h.m.Lock()
	defer h.m.Unlock()
	if h.released {
		return nil, false, false
	}
	h.released = true
	pages, h.pages = h.pages, nil
	return pages, h.discard, true
}
