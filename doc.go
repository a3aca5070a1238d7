// Package session coordinates authenticated session state, profile data,
// and route gating against a hosted auth backend.
//
// Session lifecycle:
//   - Store holds the current State (user identity, loading flags) and
//     notifies subscribers on every replacement. State swaps are atomic so
//     consumers never observe a partial update.
//   - Synchronizer performs a single session probe at startup, then applies
//     backend auth-change events in emission order. Probe failures fail open
//     to the logged-out state rather than surfacing to callers.
//
// Profiles:
//   - ProfileCache fronts the profile store with a freshness window, a
//     retention window, and per-key request coalescing. A missing row is
//     auto-provisioned with defaults (role "user", name derived from the
//     email local part) and the created row becomes canonical.
//
// Mutations:
//   - Gateway wraps sign-up, sign-in, sign-out, password, and profile
//     mutations. Sign-out clears local state unconditionally before the
//     backend result is reported. Profile updates write through, replacing
//     the cache entry with the server-returned row only.
//
// Route gating:
//   - Evaluate is a pure function of State and role producing a loading,
//     redirect, or render decision. middleware/guardware enforces the same
//     policy over HTTP with token validation.
package session
