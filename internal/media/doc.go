// Package media records trigger videos and extracts still frames.
//
// CLI drives the camera through rpicam-vid, which writes a raw H.264 stream,
// then remuxes that stream into an MP4 with ffmpeg (stream copy, no encode)
// and deletes the raw file. ExtractStillFrame pulls the first frame of the
// MP4 as a JPEG for classification. Every external call runs under its own
// timeout so a wedged camera or encoder cannot stall the pipeline forever.
package media
