// Package async provides synchronization primitives that can be awaited with
// a context instead of blocking a goroutine forever.
package async
