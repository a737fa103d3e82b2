// Package iam resolves who is calling.
//
// Two independent questions are answered per request:
//
//   - Principal: an end user identified by the session cookie
//     (SessionAuthenticator). Absent, expired, revoked or disabled sessions
//     resolve to an anonymous request; only storage failures are errors.
//   - Trusted caller: an internal worker proving knowledge of the shared
//     worker secret (WorkerAuthenticator). Trust never implies a principal.
//
// Neither answer authorizes anything. The authz package decides what the
// caller may do with them.
package iam
