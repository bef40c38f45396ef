package selector

import "fmt"

// ConfigurationError reports a malformed requirement set. It is fatal:
// no partial selection runs when validation fails.
type ConfigurationError struct {
	Reason  string
	Service string
}

func (e *ConfigurationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("invalid requirements: %s (service %q)", e.Reason, e.Service)
	}
	return "invalid requirements: " + e.Reason
}

// QuotaFetchError reports a failed quota query. It carries enough
// context to act on without re-running: which region, which service and
// quota. Fetch failures are recovered per region and never abort a
// selection.
type QuotaFetchError struct {
	Region    string
	Service   string
	QuotaCode string
	Err       error
}

func (e *QuotaFetchError) Error() string {
	return fmt.Sprintf("quota fetch failed for %s/%s (quota %s): %v",
		e.Region, e.Service, e.QuotaCode, e.Err)
}

func (e *QuotaFetchError) Unwrap() error { return e.Err }
