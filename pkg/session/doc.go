// Package session orchestrates one user's pass through a multi-step form:
// the login identity, the one-time schema fetch, the accumulated values, the
// current error mapping and the navigator.
//
// A session starts in StateLoading. Load (or Resolve, for fetches run
// elsewhere) installs the schema and moves to StateReady; a failed fetch
// moves to StateFailed, from which Load may be retried. WithLegacyLoading
// keeps the session in StateLoading on failure instead. A successful Submit
// hands the values to the configured Sink and ends in StateSubmitted.
//
// Values persist across navigation. Each validation pass (Next, Submit)
// replaces the error mapping wholesale, while SetValue clears only the error
// of the field it changes.
package session
