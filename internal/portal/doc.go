// Package portal is a client for the hosting portal's sharing REST API,
// limited to what a layer refresh needs: authenticating, resolving a hosted
// layer and the file item it was published from, and overwriting the layer
// with a new version of that file.
//
// Credentials live in an explicitly passed Session; nothing is stored in
// package state.
//
// Overwrite is never retried. Whether the portal's publish-with-overwrite is
// safe to repeat after a partial failure is not established, so a failure is
// reported to the caller as is.
package portal
