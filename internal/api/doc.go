// Package api defines the JSON payloads exchanged between the daemon's HTTP
// surface and its clients, plus conversions from the storage types. The CLI
// imports these types so both sides agree on the wire format.
package api
