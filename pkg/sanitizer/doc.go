// Package sanitizer normalizes free-text input before validation and
// storage. Every function is idempotent.
package sanitizer
