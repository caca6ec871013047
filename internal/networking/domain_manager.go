package networking

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rafabd1/Parallax/internal/config"
	"github.com/rafabd1/Parallax/internal/httpmsg"
	"github.com/rafabd1/Parallax/internal/utils"
)

const (
	DefaultMinTargetRPS             = 0.5 // rate applied after a 429
	DefaultInitialStandbyDuration   = 10 * time.Second
	DefaultMaxStandbyDuration       = time.Minute
	DefaultStandbyDurationIncrement = 10 * time.Second // added on every repeated 429
)

// domainState stores the state of a specific domain.
type domainState struct {
	lastRequestTime        time.Time // last request allowed to this domain
	consecutiveFailures    int
	TargetRPS              float64 // 0 means unthrottled
	StandbyUntil           time.Time
	CurrentStandbyDuration time.Duration // duration of the next standby period
}

// DomainManager paces requests per site (registrable domain) and puts a site in
// standby when it answers 429 Too Many Requests. It satisfies core.Pacer.
type DomainManager struct {
	config       *config.Config
	logger       utils.Logger
	domainStatus map[string]*domainState
	mu           sync.Mutex // protects domainStatus
}

// NewDomainManager creates a DomainManager. cfg.RateLimit is the starting rate per
// site; zero leaves sites unthrottled until they answer 429.
func NewDomainManager(cfg *config.Config, logger utils.Logger) *DomainManager {
	return &DomainManager{
		config:       cfg,
		logger:       logger,
		domainStatus: make(map[string]*domainState),
	}
}

// getOrCreateDomainState must be called with dm.mu held.
func (dm *DomainManager) getOrCreateDomainState(domain string) *domainState {
	ds, exists := dm.domainStatus[domain]
	if !exists {
		ds = &domainState{
			TargetRPS:              dm.config.RateLimit,
			CurrentStandbyDuration: DefaultInitialStandbyDuration,
		}
		dm.domainStatus[domain] = ds
		dm.logger.Debugf("[DomainManager] Initialized state for domain '%s' with TargetRPS: %.2f", domain, ds.TargetRPS)
	}
	return ds
}

// waitTime returns how long a request to ds must wait at now. Must be called with dm.mu held.
func (ds *domainState) waitTime(now time.Time) time.Duration {
	if ds.StandbyUntil.After(now) {
		return ds.StandbyUntil.Sub(now)
	}
	if ds.TargetRPS <= 0 || ds.lastRequestTime.IsZero() {
		return 0
	}
	requiredDelay := time.Duration(float64(time.Second) / ds.TargetRPS)
	if since := now.Sub(ds.lastRequestTime); since < requiredDelay {
		return requiredDelay - since
	}
	return 0
}

// reserve records a request as sent when the domain allows it, otherwise it
// returns the time left to wait.
func (dm *DomainManager) reserve(domain string) time.Duration {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	ds := dm.getOrCreateDomainState(domain)
	now := time.Now()
	if wait := ds.waitTime(now); wait > 0 {
		return wait
	}
	ds.lastRequestTime = now
	return 0
}

// RecordRequestResult analyzes the result of a request.
func (dm *DomainManager) RecordRequestResult(domain string, statusCode int, err error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	ds := dm.getOrCreateDomainState(domain)

	if statusCode == http.StatusTooManyRequests {
		ds.StandbyUntil = time.Now().Add(ds.CurrentStandbyDuration)
		if ds.TargetRPS <= 0 || ds.TargetRPS > DefaultMinTargetRPS {
			ds.TargetRPS = DefaultMinTargetRPS
		}
		dm.logger.Warnf("[DomainManager] Domain '%s' received status 429 (Too Many Requests). Standby for %s, TargetRPS reduced to %.2f.",
			domain, ds.CurrentStandbyDuration, ds.TargetRPS)

		ds.CurrentStandbyDuration += DefaultStandbyDurationIncrement
		if ds.CurrentStandbyDuration > DefaultMaxStandbyDuration {
			ds.CurrentStandbyDuration = DefaultMaxStandbyDuration
		}
		ds.consecutiveFailures = 0
		return
	}

	if err != nil {
		ds.consecutiveFailures++
		dm.logger.Debugf("[DomainManager] Error for domain %s: %v. Consecutive failures: %d.", domain, err, ds.consecutiveFailures)
		return
	}
	ds.consecutiveFailures = 0
}

// IsStandby reports whether the domain is in standby and until when.
func (dm *DomainManager) IsStandby(domain string) (bool, time.Time) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	ds, exists := dm.domainStatus[domain]
	if !exists || ds.StandbyUntil.IsZero() || time.Now().After(ds.StandbyUntil) {
		return false, time.Time{}
	}
	return true, ds.StandbyUntil
}

// Wait blocks until a request to target's site is allowed or ctx is done. Holding
// a request for a site in standby is logged once per call.
func (dm *DomainManager) Wait(ctx context.Context, target httpmsg.Target) error {
	domain := utils.SiteKey(target.Host)
	announced := false
	for {
		wait := dm.reserve(domain)
		if wait <= 0 {
			return nil
		}
		if standby, until := dm.IsStandby(domain); standby && !announced {
			dm.logger.Infof("[DomainManager] Domain '%s' is in standby until %s, holding request.", domain, until.Format(time.TimeOnly))
			announced = true
		} else {
			dm.logger.Debugf("[DomainManager] Waiting %s before next request to '%s'.", wait, domain)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Record feeds an attempt outcome for target back into its site state.
func (dm *DomainManager) Record(target httpmsg.Target, statusCode int, err error) {
	dm.RecordRequestResult(utils.SiteKey(target.Host), statusCode, err)
}
