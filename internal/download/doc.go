// Package download provides the download orchestration logic for
// fetching albums and songs from myzuka.club.
//
// # Coordinator
//
// The Coordinator runs a batch of Tasks on a bounded pool of workers
// (errgroup with SetLimit). Each task loops under a retry.Policy:
//
//  1. Resolve the task to a Target (file URL and destination path)
//  2. Lock the destination path so only one worker writes it
//  3. Fetch the file with the resumable fetch.Fetcher
//
// Complete, Skipped and SizeUnknown outcomes finish a task. Anything else
// is retried, except permanent errors, which abandon only that task. A
// panic in one attempt is recovered and retried.
//
// # Manager
//
// The Manager drives a whole run:
//
//  1. Parse input URLs (album or artist pages)
//  2. Scrape album information from the site
//  3. Download cover and songs of each album, one album at a time
//  4. Report absent tracks and whether the album is complete
//  5. Generate playlists and cover thumbnails (optional)
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = manager.Initialize(ctx, "http://myzuka.club/Album/630746/The-6-Cello-Suites-Cd1-1994")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = manager.StartDownloads(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// Calls to the callback are serialized.
package download
