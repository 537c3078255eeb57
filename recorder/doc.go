// SPDX-License-Identifier: EPL-2.0

// Package recorder runs capture sessions one at a time on behalf of a
// caller that starts and ends recordings.
//
// A Coordinator owns a capture.Device. Start resolves the device, clamps
// the request to what the device supports and runs a capture.Session in
// the background. A second Start while a recording is active is refused
// without error. End cancels the active recording; the result is then
// encoded, either streamed to a file through afero or returned in memory,
// and handed to the completion callback.
//
//	coord := recorder.New(dev, recorder.WithOnComplete(func(r recorder.Result) {
//		log.Printf("%s: %d bytes", r.ID, len(r.Encoded))
//	}))
//	rec, ok, err := coord.Start(ctx, recorder.Request{Codec: "wav"})
//	...
//	coord.End()
//	res, _ := rec.Wait(ctx)
package recorder
