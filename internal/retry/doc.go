// Package retry provides the retry policy shared by the HTTP client and the
// download coordinator.
//
// A Policy bundles three things that used to be implicit in "loop until it
// works" code: how many attempts are allowed, how long to wait between them,
// and how to stop waiting when the run is cancelled.
//
//	policy := retry.Policy{Backoff: retry.RandomBackoff(5*time.Second, 15*time.Second)}
//	err := policy.Do(ctx, func(attempt int) error {
//	    return openSomething()
//	})
//
// Errors wrapped with Permanent end the loop immediately. Context
// cancellation is always returned unchanged.
package retry
