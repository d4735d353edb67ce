// Package fetch downloads caption track bodies over HTTP with a bounded
// timeout and provides the courtesy delay helpers used between downloads.
package fetch
