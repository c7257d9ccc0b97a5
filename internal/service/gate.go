package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"copydesk_backend/internal/model"
)

const (
	// Metering veya plan okuması başarısız olduğunda kullanılan tavan.
	// Fail-open bir politika kararıdır: ölçüm arızası üretimi durdurmaz.
	failOpenTokenLimit = 1_000_000

	freePlanSlug = "free"

	// Threshold above which a pre-limit alert escalates from warning to
	// limit_reached.
	reachedPercent = 90

	alertDedupWindow = time.Hour
)

// Decision is the outcome of a pre-flight quota check.
type Decision struct {
	CanProceed   bool              `json:"can_proceed"`
	CurrentUsage int64             `json:"current_usage"`
	Limit        int64             `json:"limit"`
	UsagePercent float64           `json:"usage_percent"`
	Alert        *model.UsageAlert `json:"alert,omitempty"`
}

// LimitGate authorizes metered operations against the user's effective token
// limit (plan quota plus bonus tokens). It only reads usage; the caller
// records consumption through UsageMeter afterwards.
type LimitGate struct {
	users    UserStore
	subs     SubscriptionStore
	plans    PlanCatalog
	meter    *UsageMeter
	alerts   AlertStore
	notifier Notifier
	now      func() time.Time
}

func NewLimitGate(users UserStore, subs SubscriptionStore, plans PlanCatalog, meter *UsageMeter, alerts AlertStore, notifier Notifier) *LimitGate {
	return &LimitGate{
		users:    users,
		subs:     subs,
		plans:    plans,
		meter:    meter,
		alerts:   alerts,
		notifier: notifier,
		now:      time.Now,
	}
}

// Authorize decides whether a metered operation may proceed and, when
// warranted, records a usage alert. Blocking happens only at or above 100%
// of the effective limit.
func (g *LimitGate) Authorize(userID uint, estimatedTokens int64) *Decision {
	d, user, failOpen := g.evaluate(userID, estimatedTokens)
	if failOpen || user == nil || !user.LimitNotificationsEnabled {
		return d
	}

	threshold := float64(user.UsageAlertThreshold)
	if threshold <= 0 {
		threshold = 80
	}

	switch {
	case d.UsagePercent >= 100:
		// Aşım her zaman kayda geçer, dedup yok.
		g.recordAlert(user, d, model.AlertLimitExceeded, false)
	case d.UsagePercent >= threshold:
		typ := model.AlertWarning
		if d.UsagePercent >= reachedPercent {
			typ = model.AlertLimitReached
		}
		g.recordAlert(user, d, typ, true)
	}

	return d
}

// Usage returns the same computation as Authorize with a zero estimate but
// never writes alerts. Used by the dashboard endpoint.
func (g *LimitGate) Usage(userID uint) *Decision {
	d, _, _ := g.evaluate(userID, 0)
	return d
}

// evaluate computes the decision. Any lookup failure fails open: the
// operation proceeds, no alert is written and the event is logged so it
// stays visible to operators.
func (g *LimitGate) evaluate(userID uint, estimatedTokens int64) (*Decision, *model.User, bool) {
	failOpen := func(usage int64, reason string, err error) *Decision {
		log.Printf("Limit check failing open for user %d (%s): %v", userID, reason, err)
		return &Decision{
			CanProceed:   true,
			CurrentUsage: usage,
			Limit:        failOpenTokenLimit,
			UsagePercent: percent(usage+estimatedTokens, failOpenTokenLimit),
		}
	}

	user, err := g.users.ByID(userID)
	if err != nil {
		return failOpen(0, "user lookup", err), nil, true
	}

	plan, err := g.effectivePlan(userID)
	if err != nil {
		return failOpen(0, "plan lookup", err), user, true
	}

	usage, err := g.meter.CurrentPeriodUsage(userID)
	if err != nil {
		return failOpen(0, "usage lookup", err), user, true
	}

	limit := plan.TokenQuota + user.BonusTokens
	if limit <= 0 {
		return failOpen(usage, "non-positive limit", nil), user, true
	}

	p := percent(usage+estimatedTokens, limit)
	return &Decision{
		CanProceed:   p < 100,
		CurrentUsage: usage,
		Limit:        limit,
		UsagePercent: p,
	}, user, false
}

// effectivePlan resolves the user's plan. A canceled subscription keeps its
// paid plan until current_period_end; only after that (or without any
// subscription) does the user drop to the free tier.
func (g *LimitGate) effectivePlan(userID uint) (*model.Plan, error) {
	sub, err := g.subs.CurrentByUser(userID)
	if err == nil && sub.Usable(g.now()) {
		return g.plans.ByID(sub.PlanID)
	}
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return g.plans.BySlug(freePlanSlug)
	}
	return nil, err
}

func (g *LimitGate) recordAlert(user *model.User, d *Decision, typ model.AlertType, dedup bool) {
	now := g.now()

	if dedup {
		// Son bir saat içinde aynı tip uyarı varsa tekrarlanmaz.
		exists, err := g.alerts.ExistsSince(user.ID, typ, now.Add(-alertDedupWindow))
		if err != nil {
			log.Printf("Alert dedup check failed for user %d: %v", user.ID, err)
			return
		}
		if exists {
			return
		}
	}

	alert := &model.UsageAlert{
		UserID:       user.ID,
		Type:         typ,
		UsagePercent: d.UsagePercent,
		DedupKey:     dedupKey(user.ID, typ, now, dedup),
	}
	inserted, err := g.alerts.InsertUnique(alert)
	if err != nil {
		log.Printf("Could not record %s alert for user %d: %v", typ, user.ID, err)
		return
	}
	if !inserted {
		// Eşzamanlı bir istek aynı saat dilimine yazdı.
		return
	}
	d.Alert = alert

	if g.notifier != nil {
		email, name := user.Email, user.Name
		used, limit := d.CurrentUsage, d.Limit
		pct := d.UsagePercent
		go func() {
			if err := g.notifier.SendUsageAlertEmail(email, name, typ, pct, used, limit); err != nil {
				log.Printf("Could not send usage alert to %s: %v", email, err)
			}
		}()
	}
}

// dedupKey buckets warning/limit_reached alerts per user, type and clock
// hour so the unique index absorbs concurrent duplicates. Exceeded alerts
// get a per-row key: they are never suppressed.
func dedupKey(userID uint, typ model.AlertType, now time.Time, dedup bool) string {
	if !dedup {
		return fmt.Sprintf("%d:%s:%s", userID, typ, uuid.NewString())
	}
	return fmt.Sprintf("%d:%s:%s", userID, typ, now.UTC().Format("2006-01-02T15"))
}

func percent(used, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}
