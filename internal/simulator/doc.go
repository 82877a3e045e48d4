// Package simulator runs a local stand-in for the document chat backend.
//
// It serves the ingestion endpoints (prior-session check, submission,
// upload and status polling) and the persistent /ws chat connection, so
// the client can be exercised end to end without the real service.
// Documents advance one pipeline stage per configured step after upload.
// Uploads are read by the extract package; answers quote the chunk that
// best matches the question and are streamed word by word.
package simulator
