package media

import (
	"strings"

	"media-reconciler/core/reconcile"
)

// UsagePolicy decides which usage sites count towards qualification.
type UsagePolicy struct {
	// LocalSite is excluded; usage on the wiki being illustrated adds nothing.
	LocalSite string
	// AllowedSuffixes restricts counted sites to these host suffixes.
	AllowedSuffixes []string
}

// ExternalSites returns the unique counted sites in first-seen order.
func (p UsagePolicy) ExternalSites(usage []reconcile.UsageEntry) []string {
	seen := make(map[string]struct{}, len(usage))
	sites := make([]string, 0, len(usage))
	for _, u := range usage {
		if _, ok := seen[u.Site]; ok {
			continue
		}
		seen[u.Site] = struct{}{}
		if u.Site == "" || u.Site == p.LocalSite || !p.allowed(u.Site) {
			continue
		}
		sites = append(sites, u.Site)
	}
	return sites
}

func (p UsagePolicy) allowed(site string) bool {
	for _, suffix := range p.AllowedSuffixes {
		if strings.HasSuffix(site, suffix) {
			return true
		}
	}
	return false
}

// Qualifies implements reconcile.Qualifier.
func (p UsagePolicy) Qualifies(item reconcile.SearchItem) bool {
	return len(p.ExternalSites(item.Usage)) > 0
}
