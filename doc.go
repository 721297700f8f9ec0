// Package credentials implements the credential lifecycle for a web service:
// account activation through signed one-time codes, password login issuing an
// access/refresh token pair, password reset over the same signed-code flow,
// and session termination.
//
// Token lifecycle:
//   - A TokenCodec mints and verifies tamper-evident, time-bound JWTs. Each
//     token class (activation, access, refresh) gets its own codec with its
//     own secret, so a leaked key for one class cannot forge another.
//   - The ActivationFlow wraps the activation codec to produce pending-action
//     tokens that carry a short human-typeable code. The token travels back to
//     the client; the code travels out-of-band via a Notifier. Confirming an
//     action requires presenting both.
//   - The SessionIssuer exchanges verified credentials for a short-lived
//     access token plus a long-lived refresh token, persisting the refresh
//     token on the account. An account holds at most one live refresh token;
//     logging in anywhere rotates it and invalidates the previous one.
//   - The SessionTerminator revokes a presented refresh token by clearing the
//     stored copy, idempotently and without disclosing whether the token was
//     ever live.
//
// Commands:
//   - Each mutating operation (signup request, account activation, password
//     reset request/verify/complete) is a message plus handler pair that runs
//     inside a repository transaction. The CredentialsController binds them to a
//     JSON HTTP surface via go-router.
package credentials
