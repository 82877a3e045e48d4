// Package jsonfile provides a JSON file implementation of driven.KeyValueStore.
//
// All values live in a single file. Several processes may share the file:
// writes re-read the file before applying the change, and an fsnotify
// watcher reloads the in-memory copy when another process writes. The
// last writer wins.
package jsonfile
