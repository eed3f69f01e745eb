package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// Resolver groups listener keys into identity clusters
type Resolver struct {
	cfg Config
	log *zap.Logger
}

// NewResolver creates a new identity resolver
func NewResolver(cfg Config, log *zap.Logger) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Resolver{cfg: cfg, log: log}, nil
}

// listener is every event observed under one listener key
type listener struct {
	key       string
	events    []*domain.AttributionEvent
	firstSeen time.Time
	signals   []string
}

// cluster is a cluster under construction
type cluster struct {
	members  []*listener
	events   []*domain.AttributionEvent // sorted by OccurredAt
	anchored bool                       // holds at least one deterministic signal
	linked   bool                       // grew through a probabilistic link
	score    float64                    // weakest probabilistic link
	anchorAt time.Time
	id       string // provisional id used for ordering ties
}

// Resolve clusters the listener keys found in events. Keys that share a
// deterministic signal are merged with confidence 1.0; remaining keys link
// probabilistically or stay singletons. The output depends only on the input
// set and configuration, not on input order.
func (r *Resolver) Resolve(events []*domain.AttributionEvent) ([]domain.IdentityCluster, error) {
	listeners := groupByListener(events)
	if len(listeners) == 0 {
		return []domain.IdentityCluster{}, nil
	}

	// Deterministic pass: union keys that share a signal.
	uf := newUnionFind(len(listeners))
	owners := make(map[string]int)
	for i, l := range listeners {
		for _, s := range l.signals {
			if owner, ok := owners[s]; ok {
				uf.union(owner, i)
				continue
			}
			owners[s] = i
		}
	}

	var clusters []*cluster
	groups := make(map[int]*cluster)
	var unanchored []*listener
	for i, l := range listeners {
		if len(l.signals) == 0 {
			unanchored = append(unanchored, l)
			continue
		}
		root := uf.find(i)
		c, ok := groups[root]
		if !ok {
			c = &cluster{anchored: true, score: 1}
			groups[root] = c
			clusters = append(clusters, c)
		}
		c.add(l)
	}

	// Probabilistic pass: unanchored keys in first-seen order.
	for _, l := range unanchored {
		best, score := r.bestCandidate(l, clusters)
		if best != nil && score >= r.cfg.MinConfidence {
			r.log.Debug("Probabilistic identity link",
				zap.String("listener_key", l.key),
				zap.Float64("score", score))
			best.add(l)
			best.linked = true
			if score < best.score {
				best.score = score
			}
			continue
		}
		c := &cluster{score: 1}
		c.add(l)
		clusters = append(clusters, c)
	}

	out := make([]domain.IdentityCluster, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, c.finalize())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AnchorAt.Equal(out[j].AnchorAt) {
			return out[i].AnchorAt.Before(out[j].AnchorAt)
		}
		return out[i].ClusterID < out[j].ClusterID
	})
	return out, nil
}

// bestCandidate scores l against every cluster and applies the tie-break:
// among candidates within TieTolerance of the best score, prefer a
// deterministic anchor, then the higher score, then the earliest anchor event.
func (r *Resolver) bestCandidate(l *listener, clusters []*cluster) (*cluster, float64) {
	type candidate struct {
		c     *cluster
		score float64
	}

	var candidates []candidate
	top := 0.0
	for _, c := range clusters {
		s := r.linkScore(l, c)
		if s <= 0 {
			continue
		}
		candidates = append(candidates, candidate{c: c, score: s})
		if s > top {
			top = s
		}
	}
	if len(candidates) == 0 {
		return nil, 0
	}

	var tied []candidate
	for _, cand := range candidates {
		if top-cand.score <= r.cfg.TieTolerance {
			tied = append(tied, cand)
		}
	}
	sort.Slice(tied, func(i, j int) bool {
		a, b := tied[i], tied[j]
		if a.c.anchored != b.c.anchored {
			return a.c.anchored
		}
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.c.anchorAt.Equal(b.c.anchorAt) {
			return a.c.anchorAt.Before(b.c.anchorAt)
		}
		return a.c.id < b.c.id
	})
	return tied[0].c, tied[0].score
}

// linkScore is the best pair score between l's events and the cluster's events
func (r *Resolver) linkScore(l *listener, c *cluster) float64 {
	best := 0.0
	for _, e := range l.events {
		lo := e.OccurredAt.Add(-r.cfg.Window)
		hi := e.OccurredAt.Add(r.cfg.Window)
		start := sort.Search(len(c.events), func(i int) bool {
			return !c.events[i].OccurredAt.Before(lo)
		})
		for i := start; i < len(c.events) && !c.events[i].OccurredAt.After(hi); i++ {
			if s := r.pairScore(e, c.events[i]); s > best {
				best = s
			}
		}
	}
	return best
}

// pairScore is 0.5*ip_match + 0.3*device_match + 0.2*time_proximity with the
// default weights. Pairs that match neither IP subnet nor device score zero.
func (r *Resolver) pairScore(a, b *domain.AttributionEvent) float64 {
	ipMatch := sameSubnet(a.Identity.IPAddress, b.Identity.IPAddress)
	deviceMatch := a.Identity.DeviceFingerprint != "" && a.Identity.DeviceFingerprint == b.Identity.DeviceFingerprint
	if !ipMatch && !deviceMatch {
		return 0
	}

	dt := a.OccurredAt.Sub(b.OccurredAt)
	if dt < 0 {
		dt = -dt
	}
	if dt > r.cfg.Window {
		return 0
	}
	proximity := 1 - float64(dt)/float64(r.cfg.Window)

	score := r.cfg.TimeWeight * proximity
	if ipMatch {
		score += r.cfg.IPWeight
	}
	if deviceMatch {
		score += r.cfg.DeviceWeight
	}
	return score
}

func (c *cluster) add(l *listener) {
	c.members = append(c.members, l)
	c.events = append(c.events, l.events...)
	sort.SliceStable(c.events, func(i, j int) bool {
		return c.events[i].OccurredAt.Before(c.events[j].OccurredAt)
	})
	if c.anchorAt.IsZero() || l.firstSeen.Before(c.anchorAt) {
		c.anchorAt = l.firstSeen
	}
	if c.id == "" || l.key < c.id {
		c.id = l.key
	}
}

func (c *cluster) finalize() domain.IdentityCluster {
	keys := make([]string, 0, len(c.members))
	for _, m := range c.members {
		keys = append(keys, m.key)
	}
	sort.Strings(keys)

	// unlinked singletons count as deterministic
	method := domain.ResolutionDeterministic
	confidence := 1.0
	if c.linked {
		method = domain.ResolutionProbabilistic
		confidence = c.score
	}

	return domain.IdentityCluster{
		ClusterID:        ClusterID(keys),
		MemberKeys:       keys,
		ResolutionMethod: method,
		Confidence:       confidence,
		AnchorAt:         c.anchorAt,
	}
}

// ClusterID derives a stable cluster id from the sorted member keys
func ClusterID(sortedKeys []string) string {
	hash := sha256.Sum256([]byte(strings.Join(sortedKeys, "\x00")))
	return "cl_" + hex.EncodeToString(hash[:16])
}

// groupByListener collects events per listener key, sorted by first sighting then key
func groupByListener(events []*domain.AttributionEvent) []*listener {
	byKey := make(map[string]*listener)
	for _, e := range events {
		if e == nil || e.ListenerKey == "" {
			continue
		}
		l, ok := byKey[e.ListenerKey]
		if !ok {
			l = &listener{key: e.ListenerKey, firstSeen: e.OccurredAt}
			byKey[e.ListenerKey] = l
		}
		l.events = append(l.events, e)
		if e.OccurredAt.Before(l.firstSeen) {
			l.firstSeen = e.OccurredAt
		}
	}

	out := make([]*listener, 0, len(byKey))
	for _, l := range byKey {
		sort.Slice(l.events, func(i, j int) bool {
			if !l.events[i].OccurredAt.Equal(l.events[j].OccurredAt) {
				return l.events[i].OccurredAt.Before(l.events[j].OccurredAt)
			}
			return l.events[i].EventID < l.events[j].EventID
		})
		l.signals = deterministicSignals(l.events)
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].firstSeen.Equal(out[j].firstSeen) {
			return out[i].firstSeen.Before(out[j].firstSeen)
		}
		return out[i].key < out[j].key
	})
	return out
}

func deterministicSignals(events []*domain.AttributionEvent) []string {
	seen := make(map[string]bool)
	var signals []string
	add := func(prefix, v string) {
		if v == "" {
			return
		}
		s := prefix + v
		if !seen[s] {
			seen[s] = true
			signals = append(signals, s)
		}
	}
	for _, e := range events {
		add("user:", e.Identity.UserID)
		add("email:", strings.ToLower(e.Identity.EmailHash))
		add("customer:", e.Identity.CustomerID)
	}
	sort.Strings(signals)
	return signals
}

// sameSubnet compares IPv4 addresses by /24 and IPv6 addresses by /48
func sameSubnet(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	pa, err := netip.ParseAddr(a)
	if err != nil {
		return false
	}
	pb, err := netip.ParseAddr(b)
	if err != nil {
		return false
	}
	pa, pb = pa.Unmap(), pb.Unmap()
	if pa.Is4() != pb.Is4() {
		return false
	}

	bits := 48
	if pa.Is4() {
		bits = 24
	}
	prefixA, err := pa.Prefix(bits)
	if err != nil {
		return false
	}
	prefixB, err := pb.Prefix(bits)
	if err != nil {
		return false
	}
	return prefixA == prefixB
}
