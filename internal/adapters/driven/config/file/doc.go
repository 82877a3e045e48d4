// Package file stores docchat settings in ~/.docchat/config.toml.
//
// Keys use dot notation ("server.url", "poll.interval") and are written as
// TOML tables, so the file stays readable and hand-editable:
//
//	[server]
//	url = "http://localhost:8080"
//
//	[poll]
//	interval = "500ms"
package file
