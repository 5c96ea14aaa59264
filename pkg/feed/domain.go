package feed

import (
	"net/url"
	"strings"
)

// StripWWW removes a leading "www." label.
func StripWWW(domain string) string {
	if strings.HasPrefix(strings.ToLower(domain), "www.") {
		return domain[4:]
	}
	return domain
}

// BaseDomain reduces a hostname to its registrable base. Two-letter TLDs
// with a short second-level label (co.uk, com.au style) keep three labels.
func BaseDomain(domain string) string {
	parts := strings.FieldsFunc(domain, func(r rune) bool { return r == '.' })
	if len(parts) <= 2 {
		return domain
	}
	last := parts[len(parts)-1]
	secondLast := parts[len(parts)-2]
	if len(last) == 2 && len(secondLast) <= 3 {
		return strings.Join(parts[len(parts)-3:], ".")
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// DomainVariants returns the forms of a domain under which a shared icon
// may be cached: as given (www-stripped), base, and www-prefixed base.
func DomainVariants(domain string) []string {
	d := StripWWW(domain)
	base := BaseDomain(d)
	variants := []string{d}
	if base != d {
		variants = append(variants, base)
	}
	wwwBase := "www." + base
	for _, v := range variants {
		if v == wwwBase {
			return variants
		}
	}
	return append(variants, wwwBase)
}

// GroupName derives the default user-visible grouping label for a feed URL:
// its www-stripped base domain. The empty string means the URL did not
// parse to a host.
func GroupName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	return BaseDomain(StripWWW(host))
}
