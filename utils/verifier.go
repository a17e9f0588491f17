package utils

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/badoux/checkmail"
	"github.com/likexian/whois"
)

// ContactVerification is the outcome of checking a contact's address before
// it can be enrolled in a sequence.
type ContactVerification struct {
	Email       string `json:"email"`
	Status      string `json:"status"` // valid, invalid, disposable, unknown
	Details     string `json:"details"`
	IsReachable bool   `json:"is_reachable"`
	DomainInfo  string `json:"domain_info,omitempty"`
}

var (
	disposableDomains = map[string]bool{
		"mailinator.com":    true,
		"guerrillamail.com": true,
		"10minutemail.com":  true,
		"tempmail.com":      true,
		"throwaway.email":   true,
		"yopmail.com":       true,
		"trashmail.com":     true,
		"getnada.com":       true,
	}

	commonTypos = map[string]string{
		"gmai.com":   "gmail.com",
		"gmal.com":   "gmail.com",
		"gmail.co":   "gmail.com",
		"yaho.com":   "yahoo.com",
		"hotmai.com": "hotmail.com",
		"outlok.com": "outlook.com",
	}

	mxCache = struct {
		sync.RWMutex
		m map[string][]*net.MX
	}{m: make(map[string][]*net.MX)}
)

// VerifyContactEmail runs syntax, typo, disposable and MX checks. It never
// opens an SMTP session; reachability here means the domain accepts mail.
func VerifyContactEmail(email string, includeWhois bool) *ContactVerification {
	email = strings.ToLower(strings.TrimSpace(email))
	result := &ContactVerification{Email: email, Status: "unknown"}

	if err := checkmail.ValidateFormat(email); err != nil {
		result.Status = "invalid"
		result.Details = "Invalid email format: " + err.Error()
		return result
	}

	parts := strings.Split(email, "@")
	localPart, domain := parts[0], parts[1]

	if suggested, ok := commonTypos[domain]; ok {
		result.Status = "invalid"
		result.Details = fmt.Sprintf("Possible typo, did you mean %s@%s?", localPart, suggested)
		return result
	}

	if disposableDomains[domain] {
		result.Status = "disposable"
		result.Details = "Disposable email domain"
		return result
	}

	records, err := lookupMX(domain)
	if err != nil || len(records) == 0 {
		result.Status = "invalid"
		result.Details = "Domain has no MX records"
		return result
	}

	result.Status = "valid"
	result.IsReachable = true
	result.Details = fmt.Sprintf("Domain accepts mail via %s", strings.TrimSuffix(records[0].Host, "."))

	if includeWhois {
		if info, err := whois.Whois(domain); err == nil {
			result.DomainInfo = Snippet(info, 500)
		}
	}

	return result
}

func lookupMX(domain string) ([]*net.MX, error) {
	mxCache.RLock()
	cached, ok := mxCache.m[domain]
	mxCache.RUnlock()
	if ok {
		return cached, nil
	}

	records, err := net.LookupMX(domain)
	if err != nil {
		return nil, err
	}

	mxCache.Lock()
	mxCache.m[domain] = records
	mxCache.Unlock()
	return records, nil
}
