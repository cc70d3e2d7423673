// Command framefuse is the CLI companion to framefused. It talks to the
// daemon's HTTP API to submit frame sequences, watch encodes, and download
// the resulting artifacts.
package main
