// Package memory provides an in-process conversation store.
package memory
