// Package scheduler paces outbound marketplace requests.
//
// A Scheduler enforces a minimum delay between consecutive requests and
// retries throttled requests with escalating delays. Callers pass a
// RequestFunc to Do; the function signals throttling by returning an
// error wrapping ErrThrottled. When retries are exhausted Do reports
// ErrRateLimitExceeded so batch operations can stop early instead of
// hammering the remote service.
//
// The clock and sleep functions are injectable, which keeps retry
// timing deterministic in tests.
package scheduler
