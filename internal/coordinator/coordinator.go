package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smart_envi/internal/logger"
	"smart_envi/internal/models"
)

// Poll interval bounds protect the vendor API from overload.
const (
	DefaultInterval = 30 * time.Second
	MinInterval     = 10 * time.Second
	MaxInterval     = 5 * time.Minute
)

// DeviceAPI is the slice of the Envi client the coordinator drives.
type DeviceAPI interface {
	FetchAllDeviceIDs(ctx context.Context) ([]string, error)
	GetDeviceState(ctx context.Context, deviceID string) (models.Device, error)
}

// SnapshotStore persists last-known device snapshots so a restart begins with
// a warm cache. Optional; a nil store disables persistence.
type SnapshotStore interface {
	Save(ctx context.Context, device models.Device) error
	LoadAll(ctx context.Context) ([]models.Device, error)
}

// EventSink records operational events (soft failures, device errors).
// Optional; a nil sink disables recording.
type EventSink interface {
	Append(ctx context.Context, e models.BridgeEvent) error
}

// Coordinator maintains a continuously refreshed per-device state cache with
// independent per-device failure isolation. A fetch failure for one device
// never removes or corrupts that device's existing cache entry, and entries
// for devices no longer listed are never evicted.
type Coordinator struct {
	api      DeviceAPI
	store    SnapshotStore
	events   EventSink
	log      *logger.Logger
	interval time.Duration

	mu             sync.RWMutex
	data           map[string]models.Device
	deviceIDs      []string
	listeners      map[int]func()
	nextListenerID int
}

// New builds a coordinator polling at the given interval, clamped to the
// bounds above. store and events may be nil.
func New(api DeviceAPI, store SnapshotStore, events EventSink, interval time.Duration, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Get(logger.InfoLevel)
	}
	if interval == 0 {
		interval = DefaultInterval
	}
	if interval < MinInterval {
		interval = MinInterval
	}
	if interval > MaxInterval {
		interval = MaxInterval
	}
	return &Coordinator{
		api:       api,
		store:     store,
		events:    events,
		log:       log,
		interval:  interval,
		data:      make(map[string]models.Device),
		listeners: make(map[int]func()),
	}
}

// Seed loads persisted snapshots into the cache. Best-effort: a broken store
// only costs the warm start.
func (c *Coordinator) Seed(ctx context.Context) {
	if c.store == nil {
		return
	}
	devices, err := c.store.LoadAll(ctx)
	if err != nil {
		c.log.Warnw("snapshot_seed_failed", "err", err)
		return
	}
	c.mu.Lock()
	for _, dev := range devices {
		if dev.ID == "" {
			continue
		}
		c.data[string(dev.ID)] = dev
	}
	seeded := len(c.data)
	c.mu.Unlock()
	if seeded > 0 {
		c.log.Infow("snapshot_cache_seeded", "devices", seeded)
	}
}

// Run polls until ctx is canceled, starting with an immediate refresh.
// Cycles never overlap: the next tick is not acted on until the previous
// Refresh has returned.
func (c *Coordinator) Run(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.log.Errorw("initial_poll_failed", "err", err)
	}
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.Refresh(ctx); err != nil {
				c.log.Errorw("poll_cycle_failed", "err", err)
			}
		}
	}
}

// Refresh runs one full poll cycle: list the account's devices, fetch them
// all in parallel, merge successes into the cache, keep prior entries for
// failures, then publish to listeners. The returned error is non-nil only
// for a hard failure: nothing cached and nothing fetched this cycle. Any
// failure with usable cached data is logged and recorded as soft.
func (c *Coordinator) Refresh(ctx context.Context) error {
	ids, err := c.api.FetchAllDeviceIDs(ctx)
	if err != nil {
		return c.cycleFailure(ctx, fmt.Errorf("fetch device list: %w", err))
	}
	if len(ids) == 0 {
		return c.cycleFailure(ctx, errors.New("device list is empty"))
	}

	c.mu.Lock()
	c.deviceIDs = append([]string(nil), ids...)
	c.mu.Unlock()

	type result struct {
		id     string
		device models.Device
		err    error
	}
	results := make([]result, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			dev, err := c.api.GetDeviceState(ctx, id)
			results[i] = result{id: id, device: dev, err: err}
		}(i, id)
	}
	wg.Wait()

	var failed []result
	c.mu.Lock()
	for _, r := range results {
		if r.err != nil {
			// Graceful degradation: the prior entry, if any, stays as-is.
			failed = append(failed, r)
			continue
		}
		c.data[r.id] = r.device
	}
	cached := len(c.data)
	c.mu.Unlock()

	for _, r := range failed {
		c.log.Warnw("device_fetch_failed", "device_id", r.id, "err", r.err)
		c.recordEvent(ctx, models.EventDeviceError, "device fetch failed",
			map[string]any{"device_id": r.id, "err": r.err.Error()})
	}

	if cached == 0 {
		// The only loud failure: there is nothing at all to show.
		return fmt.Errorf("no device data available: all %d fetches failed", len(ids))
	}

	if c.store != nil {
		for _, r := range results {
			if r.err != nil {
				continue
			}
			if err := c.store.Save(ctx, r.device); err != nil {
				c.log.Warnw("snapshot_save_failed", "device_id", r.id, "err", err)
			}
		}
	}

	if len(failed) > 0 {
		c.recordEvent(ctx, models.EventCycleSoftFail, "poll cycle completed with stale entries",
			map[string]any{"devices": len(ids), "failed": len(failed)})
	}

	c.notifyListeners()
	return nil
}

// cycleFailure applies the soft-failure policy for whole-cycle errors: keep
// serving the existing cache through a transient outage, fail loudly only
// when there is nothing to serve at all.
func (c *Coordinator) cycleFailure(ctx context.Context, cause error) error {
	c.mu.RLock()
	cached := len(c.data)
	c.mu.RUnlock()
	if cached == 0 {
		return cause
	}
	c.log.Warnw("poll_cycle_soft_failure", "err", cause, "cached_devices", cached)
	c.recordEvent(ctx, models.EventCycleSoftFail, "poll cycle failed; serving cached data",
		map[string]any{"err": cause.Error(), "cached_devices": cached})
	return nil
}

// RefreshDevice fetches one device outside the periodic cycle, for fast
// read-after-write confirmation. A failure logs, leaves the cache untouched
// and reports no result instead of raising.
func (c *Coordinator) RefreshDevice(ctx context.Context, deviceID string) (models.Device, bool) {
	dev, err := c.api.GetDeviceState(ctx, deviceID)
	if err != nil {
		c.log.Warnw("device_refresh_failed", "device_id", deviceID, "err", err)
		return models.Device{}, false
	}

	c.mu.Lock()
	c.data[deviceID] = dev
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(ctx, dev); err != nil {
			c.log.Warnw("snapshot_save_failed", "device_id", deviceID, "err", err)
		}
	}
	c.notifyListeners()
	return dev, true
}

// DeviceData returns the cached snapshot for one device, or false if the
// device has never been fetched successfully.
func (c *Coordinator) DeviceData(deviceID string) (models.Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dev, ok := c.data[deviceID]
	return dev, ok
}

// Data returns a copy of the whole cache.
func (c *Coordinator) Data() map[string]models.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]models.Device, len(c.data))
	for id, dev := range c.data {
		out[id] = dev
	}
	return out
}

// DeviceIDs returns the identifier list from the most recent successful
// listing.
func (c *Coordinator) DeviceIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.deviceIDs...)
}

// AddListener registers fn to run after every publish (full cycle or
// single-device refresh). The returned func removes the listener.
func (c *Coordinator) AddListener(fn func()) func() {
	c.mu.Lock()
	id := c.nextListenerID
	c.nextListenerID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) notifyListeners() {
	c.mu.RLock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// recordEvent appends to the bridge log, best-effort.
func (c *Coordinator) recordEvent(ctx context.Context, typ, description string, metadata map[string]any) {
	if c.events == nil {
		return
	}
	err := c.events.Append(ctx, models.BridgeEvent{
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		c.log.Warnw("event_append_failed", "type", typ, "err", err)
	}
}
