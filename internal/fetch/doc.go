// Package fetch materializes a remote file on disk, resuming a previous
// partial download when the server allows it.
//
// The destination file is its own checkpoint: its length on disk is the
// only record of how much was downloaded. A Fetch call
//
//  1. opens the resource and learns its declared size,
//  2. compares it with the bytes already on disk,
//  3. skips, resumes with a Range request, or restarts from zero,
//  4. streams the body in 8 KiB chunks and classifies the result.
//
// Files of 8192 bytes or less are never resumed: the origin serves a small
// "download limit exceeded" page under the expected file name, so such a
// file is indistinguishable from a placeholder and is downloaded again.
//
// # Outcomes
//
//	Complete     the file on disk has exactly the declared size
//	Skipped      the file was already complete, the body was not read
//	Incomplete   the body ended early; fetching again resumes it
//	Failed       open error, stream error or inconsistent sizes
//	SizeUnknown  no declared size, whatever arrived is kept
//
// Only context cancellation is returned as an error. Everything else is
// described by the returned TransferState so that the caller decides
// whether to retry.
package fetch
