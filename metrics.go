package kernel

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks runtime statistics for a System. All metrics are optional
// instrumentation: the scheduler works identically whether or not anyone
// reads them, and every method here is safe to call from any goroutine,
// including from inside a registered Hooks.OnTick.
//
// Example:
//
//	sys, _ := kernel.NewSystem(kernel.WithTickRate(1000))
//	stats := sys.Metrics()
//	fmt.Printf("switches/s: %.2f, tick-ISR P99: %v\n",
//	    stats.ContextSwitches.TPS(), stats.TickLatency.P99)
type Metrics struct {
	// TickLatency measures wall-clock time spent inside the tick-ISR
	// simulation per tick (tick.go), the host-build proxy for the time a
	// real target spends with interrupts masked during the handler.
	TickLatency LatencyMetrics

	// Ready tracks ready-list depth; Delay tracks delay-queue depth.
	Ready QueueMetrics
	Delay QueueMetrics

	// ContextSwitches counts scheduler dispatches (one per task that
	// starts running), and InheritBoosts counts priority-inheritance
	// boosts applied to mutex owners (mutex.go).
	ContextSwitches *TPSCounter
	InheritBoosts   atomic.Uint64
}

// newMetrics constructs a Metrics ready for use, with its rolling counters
// wired to reasonable monitoring windows.
func newMetrics() *Metrics {
	return &Metrics{
		ContextSwitches: NewTPSCounter(10*time.Second, 100*time.Millisecond),
	}
}

// LatencyMetrics tracks a latency distribution with percentiles, using the
// P-Square algorithm for O(1) streaming percentile estimation.
type LatencyMetrics struct {
	psquare *pSquareMultiQuantile

	mu sync.RWMutex

	// Legacy sample buffer, retained so percentiles are exact (not
	// P-Square estimates) while the sample count is still small.
	sampleIdx   int
	sampleCount int
	samples     [sampleSize]time.Duration

	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
	Max time.Duration

	Mean time.Duration
	Sum  time.Duration
}

// sampleSize is the number of most recent latency samples retained in the
// ring buffer that feeds Sum and Mean. Percentiles are exact only while
// fewer than 5 samples exist; from the fifth sample on they come from the
// P-Square estimator.
const sampleSize = 1000

// Record records one latency sample.
func (l *LatencyMetrics) Record(duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.psquare == nil {
		l.psquare = newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99)
	}
	l.psquare.Update(float64(duration))

	if l.sampleCount >= sampleSize {
		old := l.samples[l.sampleIdx]
		l.Sum -= old
	}

	l.samples[l.sampleIdx] = duration
	l.Sum += duration
	l.sampleIdx++
	if l.sampleIdx >= sampleSize {
		l.sampleIdx = 0
	}
	if l.sampleCount < sampleSize {
		l.sampleCount++
	}
}

// Sample recomputes the cached percentile fields and returns the number of
// samples used.
func (l *LatencyMetrics) Sample() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.sampleCount
	if count == 0 {
		return 0
	}

	if count < 5 || l.psquare == nil {
		sorted := make([]time.Duration, count)
		copy(sorted, l.samples[:count])
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		l.P50 = sorted[percentileIndex(count, 50)]
		l.P90 = sorted[percentileIndex(count, 90)]
		l.P95 = sorted[percentileIndex(count, 95)]
		l.P99 = sorted[percentileIndex(count, 99)]
		l.Max = sorted[count-1]
		l.Mean = l.Sum / time.Duration(count)
		return count
	}

	l.P50 = time.Duration(l.psquare.Quantile(0))
	l.P90 = time.Duration(l.psquare.Quantile(1))
	l.P95 = time.Duration(l.psquare.Quantile(2))
	l.P99 = time.Duration(l.psquare.Quantile(3))
	l.Max = time.Duration(l.psquare.Max())
	l.Mean = l.Sum / time.Duration(count)
	return count
}

func percentileIndex(n, p int) int {
	index := (p * n) / 100
	if index >= n {
		return n - 1
	}
	return index
}

// QueueMetrics tracks a scheduler queue's depth over time.
type QueueMetrics struct {
	mu sync.RWMutex

	Current int
	Max     int
	Avg     float64

	emaInitialized bool
}

// Update records an observed depth.
func (q *QueueMetrics) Update(depth int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.Current = depth
	if depth > q.Max {
		q.Max = depth
	}
	if !q.emaInitialized {
		q.Avg = float64(depth)
		q.emaInitialized = true
	} else {
		q.Avg = 0.9*q.Avg + 0.1*float64(depth)
	}
}

// TPSCounter tracks events per second with a rolling window, used here for
// the scheduler's context-switch rate.
type TPSCounter struct {
	lastRotation atomic.Value // time.Time
	buckets      []int64
	bucketSize   time.Duration
	windowSize   time.Duration
	mu           sync.Mutex
}

// NewTPSCounter creates a counter with the given rolling window and bucket
// granularity. Both must be positive and bucketSize must not exceed
// windowSize.
func NewTPSCounter(windowSize, bucketSize time.Duration) *TPSCounter {
	if windowSize <= 0 {
		panic("kernel: windowSize must be positive")
	}
	if bucketSize <= 0 {
		panic("kernel: bucketSize must be positive")
	}
	if bucketSize > windowSize {
		panic("kernel: bucketSize cannot exceed windowSize")
	}

	bucketCount := int(windowSize / bucketSize)
	counter := &TPSCounter{
		buckets:    make([]int64, bucketCount),
		bucketSize: bucketSize,
		windowSize: windowSize,
	}
	counter.lastRotation.Store(time.Now())
	return counter
}

// Increment records one event.
func (t *TPSCounter) Increment() {
	t.rotate()
	t.mu.Lock()
	t.buckets[len(t.buckets)-1]++
	t.mu.Unlock()
}

func (t *TPSCounter) rotate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	lastRotation := t.lastRotation.Load().(time.Time)
	elapsed := now.Sub(lastRotation)

	bucketsToAdvanceInt64 := int64(elapsed) / int64(t.bucketSize)
	if bucketsToAdvanceInt64 < 0 {
		bucketsToAdvanceInt64 = int64(len(t.buckets))
	} else if bucketsToAdvanceInt64 > int64(len(t.buckets)) {
		bucketsToAdvanceInt64 = int64(len(t.buckets))
	}
	bucketsToAdvance := int(bucketsToAdvanceInt64)

	if bucketsToAdvance >= len(t.buckets) {
		for i := range t.buckets {
			t.buckets[i] = 0
		}
		t.lastRotation.Store(now)
		return
	}
	if bucketsToAdvance <= 0 {
		return
	}

	copy(t.buckets, t.buckets[bucketsToAdvance:])
	for i := len(t.buckets) - bucketsToAdvance; i < len(t.buckets); i++ {
		t.buckets[i] = 0
	}
	t.lastRotation.Store(lastRotation.Add(time.Duration(bucketsToAdvance) * t.bucketSize))
}

// TPS returns the current rate, in events per second.
func (t *TPSCounter) TPS() float64 {
	t.rotate()

	t.mu.Lock()
	defer t.mu.Unlock()

	var sum int64
	for _, count := range t.buckets {
		sum += count
	}
	if sum == 0 {
		return 0
	}
	monitoredDuration := float64(len(t.buckets)) * t.bucketSize.Seconds()
	return float64(sum) / monitoredDuration
}
