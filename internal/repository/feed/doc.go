// Package feed reads a release feed over HTTP.
//
// The Client fetches the JSON manifest and per-version descriptors, keeping
// each document after its first successful fetch for the life of the Client.
package feed
