package server

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
)

// LimitReason labels a rejected websocket connection attempt. Values
// double as the reason label on the rejection counter.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

// ConnectionLimits gates new websocket connections behind three checks:
// a per-IP token bucket for connection churn, a global per-instance cap,
// and a per-IP concurrent cap.
type ConnectionLimits struct {
	globalCurrent atomic.Int64
	globalMax     int64

	mu       sync.Mutex
	perIP    map[string]int
	perIPMax int

	buckets      map[string]*ipBucket
	rate         rate.Limit
	burst        int
	bucketSweep  time.Time
	bucketExpiry time.Duration
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const bucketSweepInterval = 5 * time.Minute

func NewConnectionLimits(globalMax int64, perIPMax int, connectionsPerSecond float64, burst int) *ConnectionLimits {
	return &ConnectionLimits{
		globalMax:    globalMax,
		perIP:        make(map[string]int),
		perIPMax:     perIPMax,
		buckets:      make(map[string]*ipBucket),
		rate:         rate.Limit(connectionsPerSecond),
		burst:        burst,
		bucketSweep:  time.Now().Add(bucketSweepInterval),
		bucketExpiry: 2 * bucketSweepInterval,
	}
}

// Acquire claims a connection slot for the given IP. On rejection it
// reports which limit fired; nothing is held and Release must not be
// called.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	if !l.allowRate(ip) {
		return false, LimitReasonRate
	}

	if !l.acquireGlobal() {
		return false, LimitReasonGlobal
	}

	if !l.acquirePerIP(ip) {
		l.releaseGlobal()
		return false, LimitReasonPerIP
	}

	l.publishGauges()
	return true, ""
}

// Release returns the slots claimed by a successful Acquire.
func (l *ConnectionLimits) Release(ip string) {
	l.releasePerIP(ip)
	l.releaseGlobal()
	l.publishGauges()
}

func (l *ConnectionLimits) acquireGlobal() bool {
	for {
		current := l.globalCurrent.Load()
		if current >= l.globalMax {
			return false
		}
		if l.globalCurrent.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *ConnectionLimits) releaseGlobal() {
	l.globalCurrent.Add(-1)
}

func (l *ConnectionLimits) acquirePerIP(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.perIP[ip] >= l.perIPMax {
		return false
	}
	l.perIP[ip]++
	return true
}

func (l *ConnectionLimits) releasePerIP(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count := l.perIP[ip]; count > 0 {
		l.perIP[ip] = count - 1
		if l.perIP[ip] == 0 {
			delete(l.perIP, ip)
		}
	}
}

func (l *ConnectionLimits) allowRate(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.bucketSweep) {
		cutoff := now.Add(-l.bucketExpiry)
		for ip, bucket := range l.buckets {
			if bucket.lastSeen.Before(cutoff) {
				delete(l.buckets, ip)
			}
		}
		l.bucketSweep = now.Add(bucketSweepInterval)
	}

	bucket, exists := l.buckets[ip]
	if !exists {
		bucket = &ipBucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[ip] = bucket
	}
	bucket.lastSeen = now

	return bucket.limiter.Allow()
}

func (l *ConnectionLimits) publishGauges() {
	metrics.WebSocketConnectionCapacity.Set(l.capacityPct())

	l.mu.Lock()
	uniqueIPs := len(l.perIP)
	l.mu.Unlock()
	metrics.WebSocketUniqueIPs.Set(float64(uniqueIPs))
}

func (l *ConnectionLimits) capacityPct() float64 {
	if l.globalMax == 0 {
		return 0
	}
	return float64(l.globalCurrent.Load()) / float64(l.globalMax) * 100
}

// Current returns the number of held connection slots.
func (l *ConnectionLimits) Current() int64 {
	return l.globalCurrent.Load()
}
